// Package simio is an in-memory, settable iohwab.Source used by every
// test and by cmd/ecu-sim's default build. Every reading defaults to
// ok=false until a test explicitly sets it, so a test can exercise the
// "sensor not ready" path without a separate fault-injection mechanism.
package simio

import "sync"

type Sim struct {
	mu sync.Mutex

	pedal   uint8
	pedalOK bool

	brake   bool
	brakeOK bool

	gear      uint8
	gearValid bool
	gearOK    bool

	mode   uint8
	modeOK bool
}

func New() *Sim { return &Sim{} }

func (s *Sim) SetPedalPercent(v uint8) {
	s.mu.Lock()
	s.pedal, s.pedalOK = v, true
	s.mu.Unlock()
}

func (s *Sim) SetBrakePressed(v bool) {
	s.mu.Lock()
	s.brake, s.brakeOK = v, true
	s.mu.Unlock()
}

func (s *Sim) SetGear(v uint8, valid bool) {
	s.mu.Lock()
	s.gear, s.gearValid, s.gearOK = v, valid, true
	s.mu.Unlock()
}

func (s *Sim) SetDriveMode(v uint8) {
	s.mu.Lock()
	s.mode, s.modeOK = v, true
	s.mu.Unlock()
}

func (s *Sim) ReadPedalPercent() (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pedal, s.pedalOK
}

func (s *Sim) ReadBrakePressed() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brake, s.brakeOK
}

func (s *Sim) ReadGear() (uint8, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gear, s.gearValid, s.gearOK
}

func (s *Sim) ReadDriveMode() (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.modeOK
}
