// Package iohwab is the I/O hardware-abstraction layer's contract: the
// external collaborator spec.md names only by its four accessors, each
// returning success/failure alongside its value. ADC/GPIO register access
// behind a real Source is explicitly out of scope (spec.md §1); the one
// concrete Source here is iohwab/simio, an in-memory test double.
package iohwab

// Source is the I/O hardware-abstraction contract.
type Source interface {
	// ReadPedalPercent returns the accelerator pedal position, 0..100.
	ReadPedalPercent() (percent uint8, ok bool)
	// ReadBrakePressed returns whether the brake pedal is currently
	// depressed.
	ReadBrakePressed() (pressed bool, ok bool)
	// ReadGear returns the selected gear (0=P,1=R,2=N,3=D) and whether
	// the reading is valid; an invalid reading should be dropped by the
	// caller rather than treated as a gear change.
	ReadGear() (gear uint8, valid bool, ok bool)
	// ReadDriveMode returns the selected drive mode (0=ECO, 1=NORMAL).
	ReadDriveMode() (mode uint8, ok bool)
}
