// Package gearselector is the GearSelector software component: a 10ms
// runnable that reads the selected gear and forwards it to RTE, dropping
// any reading the HAL marks invalid and retaining the last good value
// instead, per the HAL contract documented on iohwab.Source.ReadGear.
package gearselector

import (
	"ecuos/bus"
	"ecuos/iohwab"
	"ecuos/rte"
)

// SWC is the built GearSelector runnable.
type SWC struct {
	src  iohwab.Source
	rte  *rte.Rte
	diag *bus.Connection

	haveGood bool
	lastGood uint8
}

func New(src iohwab.Source, r *rte.Rte, diag *bus.Connection) *SWC {
	return &SWC{src: src, rte: r, diag: diag}
}

// Run is the task entry bound to the 10ms alarm in config/vcu.go.
func (s *SWC) Run() {
	gear, valid, ok := s.src.ReadGear()
	if ok && valid {
		s.lastGood = gear
		s.haveGood = true
	}
	if !s.haveGood {
		return
	}
	if err := s.rte.WriteGear(s.lastGood); err != nil {
		return
	}
	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "gearselector", "gear"), s.lastGood, true))
	}
}
