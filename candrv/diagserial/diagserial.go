//go:build tinygo && cortexm3

// Package diagserial mirrors the diagnostics bus (ecuos/bus) over a UART
// for the real target, where there is no host terminal to print retained
// topics to. Wiring mirrors the teacher's own rp2UART factory
// (services/hal/internal/platform/factories_rp2xxx.go): one
// github.com/jangala-dev/tinygo-uartx UART, configured once, written to
// from a connection subscribed to "#" (every topic). Never compiled by
// this repository's own tests.
package diagserial

import (
	"ecuos/bus"
	"ecuos/x/fmtx"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// Mirror writes every message published on b to a UART line, one line per
// message, in the teacher's alloc-light fmtx style rather than fmt.
type Mirror struct {
	uart *uartx.UART
	conn *bus.Connection
}

// New configures uart at 115200 8N1 and subscribes to every topic on b.
func New(u *uartx.UART, b *bus.Bus) *Mirror {
	_ = u.Configure(uartx.UARTConfig{BaudRate: 115200})
	conn := b.NewConnection("diagserial")
	return &Mirror{uart: u, conn: conn}
}

// Run subscribes to every retained and live topic and writes each message
// as a single line until sub's channel is closed. Call from its own task.
func (m *Mirror) Run() {
	sub := m.conn.Subscribe(bus.T("#"))
	for msg := range sub.Channel() {
		line := fmtx.Sprintf("%v = %v\n", msg.Topic, msg.Payload)
		_, _ = m.uart.Write([]byte(line))
	}
}
