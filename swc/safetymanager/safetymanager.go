// Package safetymanager is the SafetyManager software component: a 10ms
// runnable that cross-checks brake state, selected gear, and engine speed
// for an implausible combination and publishes a read-only advisory to the
// diagnostics bus. Per spec.md's non-goal on interlock/fault-reaction
// policy, this advisory never gates CmdComposer's output; it is
// observation only.
package safetymanager

import (
	"ecuos/bus"
	"ecuos/iohwab"
	"ecuos/rte"
)

// gearDrive is the GearSelector encoding for "Drive".
const gearDrive = 3

// implausibleRPM is the engine-speed threshold above which "in gear, brake
// applied" is treated as an implausible reading worth flagging.
const implausibleRPM = 4000

// SWC is the built SafetyManager runnable. It reads the same HAL source as
// BrakeAcq/GearSelector independently, rather than through RTE, since COM's
// signal engine exposes no "read back a Tx signal" operation (spec §4.8
// only defines ReceiveSignal for the Rx direction).
type SWC struct {
	src  iohwab.Source
	rte  *rte.Rte
	diag *bus.Connection
}

func New(src iohwab.Source, r *rte.Rte, diag *bus.Connection) *SWC {
	return &SWC{src: src, rte: r, diag: diag}
}

// Run is the task entry bound to the 10ms alarm in config/vcu.go.
func (s *SWC) Run() {
	brake, brakeOK := s.src.ReadBrakePressed()
	gear, gearValid, gearOK := s.src.ReadGear()
	rpm, err := s.rte.ReadEngineSpeed()

	status := "ok"
	if brakeOK && gearOK && gearValid && err == nil {
		if brake && gear == gearDrive && rpm > implausibleRPM {
			status = "implausible"
		}
	} else {
		status = "unknown"
	}

	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "safetymanager", "status"), status, true))
	}
}
