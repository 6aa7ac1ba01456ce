// Package candrv is the peripheral driver layer's contract: the external
// collaborator spec.md specifies only by its interface (synchronous
// transmit per mailbox, Rx callback registration, controller mode
// control). SPEC_FULL gives it one concrete, testable shape: candrv/simbus
// is an in-memory loopback used by every test, and candrv/mcp2515 sketches
// a real SPI-attached controller, grounded in the MCP2515 reference driver
// retrieved alongside this spec, never compiled by our own tests.
package candrv

// Frame is one CAN frame, standard or extended id.
type Frame struct {
	ID       uint32
	Extended bool
	DLC      int
	Data     [8]byte
}

// Mode is a CAN controller's operating mode, shared by CanIf's controller
// state table and the driver beneath it.
type Mode int

const (
	Stopped Mode = iota
	Started
	Sleep
	Wakeup
)

// Driver is the contract CanIf dispatches through. Implementations must
// copy frame data on Transmit rather than retain the caller's slice, and
// must copy into a fresh Frame before invoking the OnReceive callback —
// per the design note, "the interface must take a slice/length pair and
// copy, not borrow across callback return."
type Driver interface {
	Transmit(mailbox int, frame Frame) error
	SetMode(m Mode) error
	GetMode() Mode

	// OnReceive registers the single callback invoked synchronously from
	// the driver's own receive-indication context for every inbound
	// frame. Replaces any previously registered callback.
	OnReceive(func(Frame))

	// OnTxConfirm registers the single callback invoked when mailbox's
	// pending transmission is confirmed by the controller.
	OnTxConfirm(func(mailbox int))
}
