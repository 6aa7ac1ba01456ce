// Package diag wires the kernel's lifecycle hooks, CanIf's mode-change
// callbacks, and Com's signal-sent callback into the shared diagnostics
// bus, the way the teacher's main.go wires its HAL device state into
// retained bus topics. None of this gates the spec-mandated synchronous
// call chain (scheduler -> COM -> PduR -> CanIf -> driver); every publish
// here is a best-effort observation after the fact.
package diag

import (
	"ecuos/bus"
	"ecuos/candrv"
	"ecuos/canif"
	"ecuos/kernel"
	"ecuos/x/conv"
)

// hexID formats a CAN id as 8-digit uppercase hex, matching the teacher's
// alloc-light x/conv helpers rather than fmt.Sprintf("%X", ...).
func hexID(id uint32) string {
	var buf [8]byte
	return string(conv.U32Hex(buf[:], id))
}

// KernelHooks returns kernel.Hooks that publish task lifecycle and error
// events to conn under the "kernel/..." topic tree.
func KernelHooks(conn *bus.Connection) kernel.Hooks {
	return kernel.Hooks{
		Startup: func() {
			conn.Publish(conn.NewMessage(bus.T("kernel", "state"), "started", true))
		},
		Shutdown: func(err error) {
			payload := "stopped"
			if err != nil {
				payload = err.Error()
			}
			conn.Publish(conn.NewMessage(bus.T("kernel", "state"), payload, true))
		},
		Error: func(err error) {
			conn.Publish(conn.NewMessage(bus.T("kernel", "error"), err.Error(), false))
		},
		PreTask: func(id kernel.TaskID) {
			conn.Publish(conn.NewMessage(bus.T("kernel", "task", int(id)), "running", true))
		},
		PostTask: func(id kernel.TaskID) {
			conn.Publish(conn.NewMessage(bus.T("kernel", "task", int(id)), "idle", true))
		},
	}
}

// CanIfHooks returns the CanIf diagnostics hooks (OnControllerModeChange,
// OnPduModeChange), publishing under "canif/...".
func CanIfHooks(conn *bus.Connection) (func(ctrl int, mode candrv.Mode), func(kind string, id int, mode canif.PduMode)) {
	onController := func(ctrl int, mode candrv.Mode) {
		conn.Publish(conn.NewMessage(bus.T("canif", "controller", ctrl, "mode"), int(mode), true))
	}
	onPdu := func(kind string, id int, mode canif.PduMode) {
		conn.Publish(conn.NewMessage(bus.T("canif", kind, id, "mode"), int(mode), true))
	}
	return onController, onPdu
}

// ComSignalHook returns the Com diagnostics hook (OnSignalSent), publishing
// under "com/signal/<id>".
func ComSignalHook(conn *bus.Connection) func(signalID int, value uint32) {
	return func(signalID int, value uint32) {
		conn.Publish(conn.NewMessage(bus.T("com", "signal", signalID), value, true))
	}
}

// PublishCanFrame publishes a transmitted or received frame's hex id and
// length, for a diagnostic mirror (e.g. cmd/ecu-diag) to subscribe to
// without decoding raw CAN traffic itself.
func PublishCanFrame(conn *bus.Connection, direction string, frame candrv.Frame) {
	conn.Publish(conn.NewMessage(bus.T("canif", direction, "frame"), hexID(frame.ID), false))
}

// Subscribe mirrors every topic on the bus, including the retained
// "kernel/...", "canif/...", and "com/..." trees, using the teacher's
// top-level diagnostics subscription pattern (bus.T("#")); topics from
// other publishers on the same bus are not filtered out.
func Subscribe(conn *bus.Connection) *bus.Subscription {
	return conn.Subscribe(bus.T("#"))
}
