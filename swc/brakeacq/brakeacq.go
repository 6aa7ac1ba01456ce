// Package brakeacq is the BrakeAcq software component: a 10ms runnable
// that reads the brake pedal switch and forwards it to RTE as the
// brake-active flag.
package brakeacq

import (
	"ecuos/bus"
	"ecuos/iohwab"
	"ecuos/rte"
)

// SWC is the built BrakeAcq runnable.
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
	pressed, ok := s.src.ReadBrakePressed()
	if !ok {
		return
	}
	if err := s.rte.WriteBrake(pressed); err != nil {
		return
	}
	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "brakeacq", "pressed"), pressed, true))
	}
}
