// Package com is the signal engine: signal-to-I-PDU bit/byte packing,
// triggered transmission, and Rx-indication unpacking, per spec §4.8.
package com

import (
	"sync"

	"ecuos/errcode"
)

// ErrUnsupportedCall is returned by RTE's client-server placeholder: this
// configuration has no software component issuing queued client-server
// requests, so COM never builds the queue that would back one.
const ErrUnsupportedCall = errcode.Unsupported

// Direction is a signal's data-flow direction.
type Direction int

const (
	Tx Direction = iota
	Rx
)

// IPDUConfig describes one I-PDU's fixed length. Tx I-PDUs get a shadow
// buffer; Rx I-PDUs get a reception buffer; both are process-lifetime.
type IPDUConfig struct {
	Name   string
	Length int
}

// SignalConfig describes one signal's placement within its owning I-PDU,
// per spec §3's signal-descriptor invariant: byteOffset +
// ceil(bitLength/8) <= owning I-PDU length, bitOffset in [0,7].
type SignalConfig struct {
	Name       string
	IPDU       int
	Direction  Direction
	ByteOffset int
	BitOffset  int
	BitLength  int // 1, 4, 8, or 16
}

// Config is COM's single construction input.
type Config struct {
	TxIPDUs []IPDUConfig
	RxIPDUs []IPDUConfig
	Signals []SignalConfig

	// TransmitIPdu forwards a triggered Tx I-PDU to the router (PduR's
	// TransmitCom).
	TransmitIPdu func(ipduID int, payload []byte) error

	// TxConfirmation is called when PduR routes a CanIf Tx-confirmation
	// back to this Tx I-PDU. Optional: nothing in this configuration reads
	// a Tx-confirmation signal, so it exists as a named extension point
	// rather than being silently dropped.
	TxConfirmation func(ipduID int)

	// OnSignalSent is an optional diagnostics hook, invoked after every
	// successful SendSignal.
	OnSignalSent func(signalID int, value uint32)
}

func bytesNeeded(bitLength int) int {
	if bitLength <= 8 {
		return 1
	}
	return 2
}

// Build validates every signal's placement against its owning I-PDU's
// length and returns a COM engine with zeroed buffers.
func Build(cfg Config) (*Com, error) {
	for _, s := range cfg.Signals {
		var ipdus []IPDUConfig
		switch s.Direction {
		case Tx:
			ipdus = cfg.TxIPDUs
		case Rx:
			ipdus = cfg.RxIPDUs
		default:
			return nil, errcode.Value
		}
		if s.IPDU < 0 || s.IPDU >= len(ipdus) {
			return nil, errcode.InvalidID
		}
		if s.BitOffset < 0 || s.BitOffset > 7 {
			return nil, errcode.Value
		}
		switch s.BitLength {
		case 1, 4, 8, 16:
		default:
			return nil, errcode.Value
		}
		if s.ByteOffset < 0 || s.ByteOffset+bytesNeeded(s.BitLength) > ipdus[s.IPDU].Length {
			return nil, errcode.Value
		}
	}

	c := &Com{
		signals:        append([]SignalConfig(nil), cfg.Signals...),
		transmitIPdu:   cfg.TransmitIPdu,
		txConfirmation: cfg.TxConfirmation,
		onSignalSent:   cfg.OnSignalSent,
	}
	c.txBuffers = make([][]byte, len(cfg.TxIPDUs))
	for i, ip := range cfg.TxIPDUs {
		c.txBuffers[i] = make([]byte, ip.Length)
	}
	c.rxBuffers = make([][]byte, len(cfg.RxIPDUs))
	for i, ip := range cfg.RxIPDUs {
		c.rxBuffers[i] = make([]byte, ip.Length)
	}
	return c, nil
}

// Com is the built signal engine.
type Com struct {
	mu sync.Mutex

	signals        []SignalConfig
	txBuffers      [][]byte
	rxBuffers      [][]byte
	transmitIPdu   func(int, []byte) error
	txConfirmation func(int)
	onSignalSent   func(int, uint32)
}

// SendSignal packs value into its owning Tx I-PDU's shadow buffer
// according to the signal's bit length, per spec §4.8.
func (c *Com) SendSignal(signalID int, value uint32) error {
	if signalID < 0 || signalID >= len(c.signals) {
		return errcode.InvalidID
	}
	s := &c.signals[signalID]
	if s.Direction != Tx {
		return errcode.InvalidState
	}

	c.mu.Lock()
	buf := c.txBuffers[s.IPDU]
	packInto(buf, s.ByteOffset, s.BitOffset, s.BitLength, value)
	cb := c.onSignalSent
	c.mu.Unlock()
	if cb != nil {
		cb(signalID, value)
	}
	return nil
}

func packInto(buf []byte, byteOffset, bitOffset, bitLength int, value uint32) {
	switch bitLength {
	case 8:
		buf[byteOffset] = byte(value)
	case 4:
		buf[byteOffset] = buf[byteOffset]&^(0x0F<<uint(bitOffset)) | byte(value&0x0F)<<uint(bitOffset)
	case 1:
		if value&1 != 0 {
			buf[byteOffset] |= 1 << uint(bitOffset)
		} else {
			buf[byteOffset] &^= 1 << uint(bitOffset)
		}
	case 16:
		buf[byteOffset] = byte(value >> 8)
		buf[byteOffset+1] = byte(value)
	}
}

func unpackFrom(buf []byte, byteOffset, bitOffset, bitLength int) uint32 {
	switch bitLength {
	case 8:
		return uint32(buf[byteOffset])
	case 4:
		return uint32(buf[byteOffset]>>uint(bitOffset)) & 0x0F
	case 1:
		return uint32(buf[byteOffset]>>uint(bitOffset)) & 0x01
	case 16:
		return uint32(buf[byteOffset])<<8 | uint32(buf[byteOffset+1])
	}
	return 0
}

// TriggerIPduSend locates ipdu_id's Tx shadow buffer and forwards a copy
// of it to the router. Locking the whole pack-then-trigger span (SendSignal
// calls followed by this) is the caller's responsibility per task; within
// a single I-PDU's configured writer this kernel never interleaves two
// tasks on the same shadow buffer, so per-call locking here is sufficient.
func (c *Com) TriggerIPduSend(ipduID int) error {
	if ipduID < 0 || ipduID >= len(c.txBuffers) {
		return errcode.InvalidID
	}
	c.mu.Lock()
	payload := append([]byte(nil), c.txBuffers[ipduID]...)
	c.mu.Unlock()

	if c.transmitIPdu == nil {
		return errcode.NotOK
	}
	return c.transmitIPdu(ipduID, payload)
}

// TxConfirmation notifies this Tx I-PDU's confirmation callback, if any,
// that the router observed a matching CanIf Tx-confirmation.
func (c *Com) TxConfirmation(ipduID int) {
	if ipduID < 0 || ipduID >= len(c.txBuffers) {
		return
	}
	if c.txConfirmation != nil {
		c.txConfirmation(ipduID)
	}
}

// ReceiveIndication copies min(len(data), buffer length) bytes into
// rx_ipdu_id's reception buffer. Called by the router on the driver's
// interrupt context.
func (c *Com) ReceiveIndication(rxIPduID int, data []byte) {
	if rxIPduID < 0 || rxIPduID >= len(c.rxBuffers) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.rxBuffers[rxIPduID], data)
}

// ReceiveSignal returns the most recently unpacked value for signal_id,
// honouring the signal descriptor's bit length (a 16-bit signal decodes
// two big-endian bytes), per the resolved Com_ReceiveSignal open question.
func (c *Com) ReceiveSignal(signalID int) (uint32, error) {
	if signalID < 0 || signalID >= len(c.signals) {
		return 0, errcode.InvalidID
	}
	s := &c.signals[signalID]
	if s.Direction != Rx {
		return 0, errcode.InvalidState
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.rxBuffers[s.IPDU]
	return unpackFrom(buf, s.ByteOffset, s.BitOffset, s.BitLength), nil
}
