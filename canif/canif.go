// Package canif is the CAN-Interface dispatcher: the controller/PDU mode
// matrix, Tx-id lookup (with dynamic-id override), Rx buffer, and the
// driver-facing Rx-indication/Tx-confirmation upcalls, per spec §4.6.
package canif

import (
	"sync"

	"ecuos/candrv"
	"ecuos/errcode"
)

// PduMode is a Tx or Rx PDU's mode. Transmit is permitted only when the
// owning controller is STARTED and the Tx PDU's mode includes
// transmission (Online or TxOnline), per spec §3's CanIf invariant.
type PduMode int

const (
	Offline PduMode = iota
	TxOffline
	RxOffline
	Online
	TxOnline
	RxOnline
)

func (m PduMode) transmitAllowed() bool { return m == Online || m == TxOnline }

// ControllerConfig binds one configured controller to its driver.
type ControllerConfig struct {
	Name   string
	Driver candrv.Driver
}

// TxPDUConfig describes one Tx PDU's static routing: its controller,
// driver mailbox, and on-wire CAN id (overridable at runtime if Dynamic).
type TxPDUConfig struct {
	Name       string
	Controller int
	Mailbox    int
	CanID      uint32
	Dynamic    bool
}

// RxPDUConfig describes one Rx PDU's static routing and reception buffer
// length.
type RxPDUConfig struct {
	Name       string
	Controller int
	CanID      uint32
	Length     int
}

// Config is CanIf's single construction input.
type Config struct {
	Controllers []ControllerConfig
	TxPDUs      []TxPDUConfig
	RxPDUs      []RxPDUConfig

	// RxIndication is invoked once an Rx PDU's buffer has been updated;
	// PduR registers here to forward into COM's receive indication.
	RxIndication func(rxPduID int, data []byte)
	// TxConfirmation is invoked once a Tx mailbox is confirmed sent;
	// PduR registers here to forward into COM's Tx confirmation.
	TxConfirmation func(txPduID int)

	// OnControllerModeChange and OnPduModeChange are optional diagnostics
	// hooks, invoked after a successful SetControllerMode / SetTxPduMode
	// or SetRxPduMode respectively.
	OnControllerModeChange func(ctrl int, mode candrv.Mode)
	OnPduModeChange        func(kind string, id int, mode PduMode)
}

type txPDUState struct {
	cfg       TxPDUConfig
	mode      PduMode
	currentID uint32
}

type rxPDUState struct {
	cfg     RxPDUConfig
	mode    PduMode
	buf     []byte
	hasData bool
}

// CanIf is the built dispatcher. All slices are sized once at Build and
// never grow; every field touched by a driver's Rx/confirm callback is
// guarded by mu, matching spec §5's "CanIf Rx buffer has-data flag" shared
// resource.
type CanIf struct {
	mu sync.Mutex

	controllers    []candrv.Driver
	controllerMode []candrv.Mode
	txPDUs         []txPDUState
	rxPDUs         []rxPDUState
	rxIndication   func(int, []byte)
	txConfirmation func(int)

	onControllerModeChange func(int, candrv.Mode)
	onPduModeChange        func(string, int, PduMode)
}

// Build validates cfg's controller references and wires every controller's
// driver callbacks to this CanIf instance.
func Build(cfg Config) (*CanIf, error) {
	if len(cfg.Controllers) == 0 {
		return nil, errcode.Value
	}
	for _, t := range cfg.TxPDUs {
		if t.Controller < 0 || t.Controller >= len(cfg.Controllers) {
			return nil, errcode.InvalidID
		}
	}
	for _, r := range cfg.RxPDUs {
		if r.Controller < 0 || r.Controller >= len(cfg.Controllers) {
			return nil, errcode.InvalidID
		}
		if r.Length <= 0 {
			return nil, errcode.Value
		}
	}

	c := &CanIf{
		rxIndication:           cfg.RxIndication,
		txConfirmation:         cfg.TxConfirmation,
		onControllerModeChange: cfg.OnControllerModeChange,
		onPduModeChange:        cfg.OnPduModeChange,
	}
	c.controllers = make([]candrv.Driver, len(cfg.Controllers))
	c.controllerMode = make([]candrv.Mode, len(cfg.Controllers))
	for i, cc := range cfg.Controllers {
		c.controllers[i] = cc.Driver
	}

	c.txPDUs = make([]txPDUState, len(cfg.TxPDUs))
	for i, t := range cfg.TxPDUs {
		c.txPDUs[i] = txPDUState{cfg: t, mode: Offline, currentID: t.CanID}
	}

	c.rxPDUs = make([]rxPDUState, len(cfg.RxPDUs))
	for i, r := range cfg.RxPDUs {
		c.rxPDUs[i] = rxPDUState{cfg: r, mode: Offline, buf: make([]byte, r.Length)}
	}

	for ctrlIdx, cc := range cfg.Controllers {
		idx := ctrlIdx
		cc.Driver.OnReceive(func(f candrv.Frame) { c.rxIndicationFromDriver(idx, f) })
		cc.Driver.OnTxConfirm(func(mailbox int) { c.txConfirmationFromDriver(idx, mailbox) })
	}

	return c, nil
}

// Transmit enqueues payload on pdu_id's controller/mailbox if the Tx PDU's
// mode permits transmission, per spec §4.6.
func (c *CanIf) Transmit(pduID int, payload []byte) error {
	if pduID < 0 || pduID >= len(c.txPDUs) {
		return errcode.InvalidID
	}
	c.mu.Lock()

	t := &c.txPDUs[pduID]
	if c.controllerMode[t.cfg.Controller] != candrv.Started || !t.mode.transmitAllowed() {
		c.mu.Unlock()
		return errcode.NotOK
	}
	canID := t.cfg.CanID
	if t.cfg.Dynamic {
		canID = t.currentID
	}
	var frame candrv.Frame
	frame.ID = canID
	frame.DLC = len(payload)
	if frame.DLC > len(frame.Data) {
		frame.DLC = len(frame.Data)
	}
	copy(frame.Data[:frame.DLC], payload)
	drv := c.controllers[t.cfg.Controller]
	mailbox := t.cfg.Mailbox
	// Released before the driver call: a driver may confirm synchronously,
	// and txConfirmationFromDriver takes the same lock.
	c.mu.Unlock()

	return drv.Transmit(mailbox, frame)
}

// ReadRx copies rx_pdu_id's latest received buffer into out and clears its
// has-data flag, or returns no-data if nothing has been received since the
// last read.
func (c *CanIf) ReadRx(pduID int, out []byte) (int, error) {
	if pduID < 0 || pduID >= len(c.rxPDUs) {
		return 0, errcode.InvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &c.rxPDUs[pduID]
	if !r.hasData {
		return 0, errcode.NoData
	}
	n := copy(out, r.buf)
	r.hasData = false
	return n, nil
}

// SetControllerMode delegates to the driver and mirrors the result in the
// CanIf state table.
func (c *CanIf) SetControllerMode(ctrl int, m candrv.Mode) error {
	if ctrl < 0 || ctrl >= len(c.controllers) {
		return errcode.InvalidID
	}
	c.mu.Lock()
	if err := c.controllers[ctrl].SetMode(m); err != nil {
		c.mu.Unlock()
		return errcode.MapDriverErr(err)
	}
	c.controllerMode[ctrl] = m
	cb := c.onControllerModeChange
	c.mu.Unlock()
	if cb != nil {
		cb(ctrl, m)
	}
	return nil
}

func (c *CanIf) GetControllerMode(ctrl int) (candrv.Mode, error) {
	if ctrl < 0 || ctrl >= len(c.controllers) {
		return 0, errcode.InvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllerMode[ctrl], nil
}

// SetTxPduMode/SetRxPduMode change PDU mode state only; they have no side
// effect on the driver, per spec §4.6.
func (c *CanIf) SetTxPduMode(pduID int, mode PduMode) error {
	if pduID < 0 || pduID >= len(c.txPDUs) {
		return errcode.InvalidID
	}
	c.mu.Lock()
	c.txPDUs[pduID].mode = mode
	cb := c.onPduModeChange
	c.mu.Unlock()
	if cb != nil {
		cb("tx", pduID, mode)
	}
	return nil
}

func (c *CanIf) GetTxPduMode(pduID int) (PduMode, error) {
	if pduID < 0 || pduID >= len(c.txPDUs) {
		return 0, errcode.InvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txPDUs[pduID].mode, nil
}

func (c *CanIf) SetRxPduMode(pduID int, mode PduMode) error {
	if pduID < 0 || pduID >= len(c.rxPDUs) {
		return errcode.InvalidID
	}
	c.mu.Lock()
	c.rxPDUs[pduID].mode = mode
	cb := c.onPduModeChange
	c.mu.Unlock()
	if cb != nil {
		cb("rx", pduID, mode)
	}
	return nil
}

func (c *CanIf) GetRxPduMode(pduID int) (PduMode, error) {
	if pduID < 0 || pduID >= len(c.rxPDUs) {
		return 0, errcode.InvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rxPDUs[pduID].mode, nil
}

// SetDynamicTxID overrides pdu_id's on-wire id, valid only for a PDU
// configured Dynamic and only within the 29-bit extended id space.
func (c *CanIf) SetDynamicTxID(pduID int, canID uint32) error {
	if pduID < 0 || pduID >= len(c.txPDUs) {
		return errcode.InvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &c.txPDUs[pduID]
	if !t.cfg.Dynamic {
		return errcode.InvalidState
	}
	if canID > 0x1FFFFFFF {
		return errcode.Value
	}
	t.currentID = canID
	return nil
}

// Reset restores every Tx and Rx PDU mode to Offline and clears every
// has-data flag. It iterates over configured capacities
// (len(c.txPDUs)/len(c.rxPDUs)), not any dynamic count, per the resolved
// CanIf_DeInit open question.
func (c *CanIf) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.txPDUs {
		c.txPDUs[i].mode = Offline
		c.txPDUs[i].currentID = c.txPDUs[i].cfg.CanID
	}
	for i := range c.rxPDUs {
		c.rxPDUs[i].mode = Offline
		c.rxPDUs[i].hasData = false
	}
}

// rxIndicationFromDriver looks up the Rx PDU whose controller and on-wire
// id match frame, copies its payload (length-clamped to the buffer),
// raises has-data, and invokes the upper-layer callback. Unknown ids are
// silently dropped, per spec §4.6.
func (c *CanIf) rxIndicationFromDriver(ctrl int, frame candrv.Frame) {
	c.mu.Lock()
	for i := range c.rxPDUs {
		r := &c.rxPDUs[i]
		if r.cfg.Controller != ctrl || r.cfg.CanID != frame.ID {
			continue
		}
		copy(r.buf, frame.Data[:frame.DLC])
		r.hasData = true
		idx := i
		cb := c.rxIndication
		data := append([]byte(nil), r.buf...)
		c.mu.Unlock()
		if cb != nil {
			cb(idx, data)
		}
		return
	}
	c.mu.Unlock()
}

// txConfirmationFromDriver maps mailbox back to its upper-layer PDU id and
// invokes the confirmation callback. Unknown mailboxes are silently
// dropped.
func (c *CanIf) txConfirmationFromDriver(ctrl int, mailbox int) {
	c.mu.Lock()
	for i := range c.txPDUs {
		t := &c.txPDUs[i]
		if t.cfg.Controller != ctrl || t.cfg.Mailbox != mailbox {
			continue
		}
		idx := i
		cb := c.txConfirmation
		c.mu.Unlock()
		if cb != nil {
			cb(idx)
		}
		return
	}
	c.mu.Unlock()
}
