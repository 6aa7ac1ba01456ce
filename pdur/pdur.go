// Package pdur is the PDU Router: three static 1:1 routing tables
// (COM-Tx -> CanIf-Tx, CanIf-Rx-indication -> COM-Rx,
// CanIf-Tx-confirmation -> COM-Tx-confirmation), per spec §4.7.
package pdur

import (
	"sync"

	"ecuos/errcode"
)

// Route is one routing-table row: a source id and its 1:1 destination id.
type Route struct {
	Source int
	Dest   int
}

// Config is PduR's single construction input. Each table's source ids
// must be unique, per spec §3's routing-entry invariant.
type Config struct {
	ComTxToCanIfTx      []Route
	CanIfRxToComRx       []Route
	CanIfTxConfirmToCom []Route

	// TransmitToCanIf is called for COM-Tx -> CanIf-Tx with the resolved
	// destination id and payload.
	TransmitToCanIf func(canIfTxPduID int, payload []byte) error
	// IndicateToCom is called for CanIf-Rx -> COM-Rx with the resolved
	// destination id and payload.
	IndicateToCom func(comRxPduID int, data []byte)
	// ConfirmToCom is called for CanIf-Tx-confirm -> COM-Tx-confirm with
	// the resolved destination id.
	ConfirmToCom func(comTxPduID int)
}

// PduR is the built router. Tables are immutable after Build; Enabled is
// the only mutable field and is guarded by mu, since DisableRouting can be
// called from task context while a driver callback concurrently looks up
// the same table.
type PduR struct {
	mu sync.RWMutex

	comTxToCanIfTx      []Route
	canIfRxToComRx      []Route
	canIfTxConfirmToCom []Route

	enabled bool

	transmitToCanIf func(int, []byte) error
	indicateToCom   func(int, []byte)
	confirmToCom    func(int)
}

func uniqueSources(rs []Route) bool {
	seen := make(map[int]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.Source]; ok {
			return false
		}
		seen[r.Source] = struct{}{}
	}
	return true
}

// Build validates that each table's source ids are unique and returns a
// PduR with routing enabled.
func Build(cfg Config) (*PduR, error) {
	if !uniqueSources(cfg.ComTxToCanIfTx) || !uniqueSources(cfg.CanIfRxToComRx) || !uniqueSources(cfg.CanIfTxConfirmToCom) {
		return nil, errcode.Value
	}
	return &PduR{
		comTxToCanIfTx:      cfg.ComTxToCanIfTx,
		canIfRxToComRx:      cfg.CanIfRxToComRx,
		canIfTxConfirmToCom: cfg.CanIfTxConfirmToCom,
		enabled:             true,
		transmitToCanIf:     cfg.TransmitToCanIf,
		indicateToCom:       cfg.IndicateToCom,
		confirmToCom:        cfg.ConfirmToCom,
	}, nil
}

func lookup(table []Route, source int) (int, bool) {
	for _, r := range table {
		if r.Source == source {
			return r.Dest, true
		}
	}
	return 0, false
}

// TransmitCom routes a COM-Tx PDU to its CanIf-Tx destination. A routing
// miss or disabled routing returns not-ok, per spec §4.7 ("return not-ok
// for transmits").
func (p *PduR) TransmitCom(comTxPduID int, payload []byte) error {
	p.mu.RLock()
	enabled := p.enabled
	dest, ok := lookup(p.comTxToCanIfTx, comTxPduID)
	fn := p.transmitToCanIf
	p.mu.RUnlock()
	if !enabled || !ok {
		return errcode.NotOK
	}
	if fn == nil {
		return errcode.NotOK
	}
	return fn(dest, payload)
}

// IndicateCanIf routes a CanIf Rx-indication to its COM-Rx destination.
// Lookup miss or disabled routing silently drops, per spec §4.7 ("silently
// drop for indications").
func (p *PduR) IndicateCanIf(canIfRxPduID int, data []byte) {
	p.mu.RLock()
	enabled := p.enabled
	dest, ok := lookup(p.canIfRxToComRx, canIfRxPduID)
	fn := p.indicateToCom
	p.mu.RUnlock()
	if !enabled || !ok || fn == nil {
		return
	}
	fn(dest, data)
}

// ConfirmCanIf routes a CanIf Tx-confirmation to its COM-Tx-confirmation
// destination. Lookup miss or disabled routing silently drops.
func (p *PduR) ConfirmCanIf(canIfTxPduID int) {
	p.mu.RLock()
	enabled := p.enabled
	dest, ok := lookup(p.canIfTxConfirmToCom, canIfTxPduID)
	fn := p.confirmToCom
	p.mu.RUnlock()
	if !enabled || !ok || fn == nil {
		return
	}
	fn(dest)
}

// DisableRouting toggles routing off. When clearBuffers is true (the
// resolved "initialize" argument, per the PduR_DisableRouting open
// question) it also hands every registered buffer-clearing side effect a
// chance to run by clearing nothing here directly — PduR owns no buffers
// of its own, so this is forwarded to the caller-supplied clear
// callbacks where present.
func (p *PduR) DisableRouting(clearBuffers bool, clear func()) {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
	if clearBuffers && clear != nil {
		clear()
	}
}

// EnableRouting re-enables routing.
func (p *PduR) EnableRouting() {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
}
