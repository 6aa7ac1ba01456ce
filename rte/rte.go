// Package rte is the thin Runtime Environment adapter: send/receive style
// functions that forward into COM, presenting software components with
// named signals instead of raw signal/I-PDU ids, per spec §6.
package rte

import (
	"ecuos/com"
	"ecuos/x/mathx"
)

// Config binds the symbolic signal/I-PDU ids a VCU command composition
// exercises. The ids themselves are assigned once in config/vcu.go.
type Config struct {
	Com *com.Com

	ThrottleSignal int
	GearSignal     int
	ModeSignal     int
	BrakeSignal    int
	AliveSignal    int
	VCUCommandIPdu int

	EngineSpeedSignal int
}

// Rte is the built adapter.
type Rte struct {
	cfg Config
}

func New(cfg Config) *Rte { return &Rte{cfg: cfg} }

// WriteThrottle packs the throttle-percent signal, clamped to 0..100.
func (r *Rte) WriteThrottle(percent uint8) error {
	return r.cfg.Com.SendSignal(r.cfg.ThrottleSignal, uint32(mathx.Clamp(percent, 0, 100)))
}

// WriteGear packs the gear-selection signal (0=P,1=R,2=N,3=D).
func (r *Rte) WriteGear(gear uint8) error {
	return r.cfg.Com.SendSignal(r.cfg.GearSignal, uint32(gear))
}

// WriteMode packs the drive-mode signal (0=ECO,1=NORMAL).
func (r *Rte) WriteMode(mode uint8) error {
	return r.cfg.Com.SendSignal(r.cfg.ModeSignal, uint32(mode))
}

// WriteBrake packs the brake-active flag.
func (r *Rte) WriteBrake(pressed bool) error {
	v := uint32(0)
	if pressed {
		v = 1
	}
	return r.cfg.Com.SendSignal(r.cfg.BrakeSignal, v)
}

// WriteAlive packs the alive-counter nibble (0..15, wraps).
func (r *Rte) WriteAlive(v uint8) error {
	return r.cfg.Com.SendSignal(r.cfg.AliveSignal, uint32(v&0x0F))
}

// TriggerVCUCommand sends the composed VCU_Command I-PDU.
func (r *Rte) TriggerVCUCommand() error {
	return r.cfg.Com.TriggerIPduSend(r.cfg.VCUCommandIPdu)
}

// ReadEngineSpeed returns the most recently received engine speed, in rpm.
func (r *Rte) ReadEngineSpeed() (uint16, error) {
	v, err := r.cfg.Com.ReceiveSignal(r.cfg.EngineSpeedSignal)
	return uint16(v), err
}

// CallDiagnosticService is a placeholder for the client-server shape RTE
// normally presents (Rte_Call_<op>); no software component in this
// configuration issues a queued client-server request, so only the
// synchronous send/receive shape above is built. Kept as a named
// extension point rather than omitted, per spec §6's RTE contract.
func (r *Rte) CallDiagnosticService(op string, in []byte) (out []byte, err error) {
	return nil, com.ErrUnsupportedCall
}
