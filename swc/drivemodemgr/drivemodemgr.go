// Package drivemodemgr is the DriveModeMgr software component: a 100ms
// runnable that reads the driver's mode selection and forwards it to RTE.
package drivemodemgr

import (
	"ecuos/bus"
	"ecuos/iohwab"
	"ecuos/rte"
)

// SWC is the built DriveModeMgr runnable.
type SWC struct {
	src  iohwab.Source
	rte  *rte.Rte
	diag *bus.Connection
}

func New(src iohwab.Source, r *rte.Rte, diag *bus.Connection) *SWC {
	return &SWC{src: src, rte: r, diag: diag}
}

// Run is the task entry bound to the 100ms alarm in config/vcu.go.
func (s *SWC) Run() {
	mode, ok := s.src.ReadDriveMode()
	if !ok {
		return
	}
	if err := s.rte.WriteMode(mode); err != nil {
		return
	}
	if s.diag != nil {
		s.diag.Publish(s.diag.NewMessage(bus.T("swc", "drivemodemgr", "mode"), mode, true))
	}
}
