// Package cmdcomposer is the CmdComposer software component: a 10ms
// runnable that closes out the VCU_Command I-PDU cycle. By the time it
// runs, PedalAcq/BrakeAcq/GearSelector have already packed their signals
// into the shared Tx shadow buffer for this tick (COM's SendSignal writes
// land directly in that buffer, so there is no separate "read the composed
// value back" step). DriveModeMgr's 100ms alarm comes after CmdComposer's,
// so on a shared tick the frame carries the mode written in the previous
// 100ms period. CmdComposer only owns the alive-counter signal and the
// trigger itself.
package cmdcomposer

import (
	"ecuos/bus"
	"ecuos/rte"
)

// SWC is the built CmdComposer runnable.
type SWC struct {
	rte  *rte.Rte
	diag *bus.Connection

	alive uint8
}

func New(r *rte.Rte, diag *bus.Connection) *SWC {
	return &SWC{rte: r, diag: diag}
}

// Run is the task entry bound to the 10ms alarm in config/vcu.go, scheduled
// after the signal-acquisition SWCs so VCU_Command always carries this
// tick's freshest values.
func (s *SWC) Run() {
	if err := s.rte.WriteAlive(s.alive); err != nil {
		return
	}
	s.alive = (s.alive + 1) & 0x0F

	if err := s.rte.TriggerVCUCommand(); err != nil {
		if s.diag != nil {
			s.diag.Publish(s.diag.NewMessage(bus.T("swc", "cmdcomposer", "txerr"), err.Error(), false))
		}
		return
	}
	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "cmdcomposer", "alive"), s.alive, true))
	}
}
