// Package pedalacq is the PedalAcq software component: a 10ms runnable
// that reads the accelerator pedal position and forwards it to RTE as the
// throttle-percent signal, per spec's supplemented SWC set.
package pedalacq

import (
	"ecuos/bus"
	"ecuos/iohwab"
	"ecuos/rte"
)

// SWC is the built PedalAcq runnable.
type SWC struct {
	src  iohwab.Source
	rte  *rte.Rte
	diag *bus.Connection
}

func New(src iohwab.Source, r *rte.Rte, diag *bus.Connection) *SWC {
	return &SWC{src: src, rte: r, diag: diag}
}

// Run is the task entry bound to the 10ms alarm in config/vcu.go. A
// sensor reading that isn't ok yet is skipped outright: there is no
// "last known pedal position" to fall back to before the first reading.
func (s *SWC) Run() {
	percent, ok := s.src.ReadPedalPercent()
	if !ok {
		return
	}
	if err := s.rte.WriteThrottle(percent); err != nil {
		return
	}
	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "pedalacq", "percent"), percent, true))
	}
}
