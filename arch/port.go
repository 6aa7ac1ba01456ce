// Package arch is the architecture port: the one boundary in the kernel
// that is genuinely target-specific. It owns the periodic tick source, the
// context-switch primitive, and the initial-stack-frame shape for a freshly
// activated task. The scheduler on the other side of this interface never
// looks inside a StackFrame; it treats stacks as (base, size) pairs, per
// the spec's "architecture port" design note.
//
// Two implementations exist: sim.go (goroutine/channel baton-passing,
// used by every test and by cmd/ecu-sim) and cortexm3.go (build-tag gated,
// illustrative only — never compiled by our own build or tests).
package arch

import "time"

// StackFrame is an opaque descriptor for a task's private stack region.
// The kernel allocates Size bytes once at configuration time and never
// reads or writes through Base directly; only the Port does.
type StackFrame struct {
	Base uintptr
	Size uintptr
}

// Aligned16 reports whether the frame's base is 16-byte aligned, the
// invariant the real Cortex-M3 exception-return sequence requires.
func (f StackFrame) Aligned16() bool { return f.Base%16 == 0 }

// Entry is a task's entry function. It takes no arguments: OSEK tasks are
// activated with their argument registers zeroed.
type Entry func()

// Handle identifies a task's execution context to the port. The kernel
// never interprets its value beyond passing it back to Switch-family calls.
type Handle int

// Port is the architecture abstraction the scheduler drives.
type Port interface {
	// NewTask reserves a handle for a TCB's stack region. Called once per
	// configured task at kernel build time; the handle is reused across
	// every activate/terminate cycle of that task.
	NewTask(stack StackFrame) Handle

	// Activate (re)builds h's initial stack frame: a fresh execution
	// context that will run entry() the next time h is switched in, and
	// call onReturn() if entry returns on its own (the "terminal
	// trampoline" per the spec's initial-stack-frame design). Matches the
	// idempotence law: activate -> terminate -> activate yields a frame
	// equivalent to the first activation.
	Activate(h Handle, entry Entry, onReturn func())

	// SwitchOut parks `self` (the calling task) and switches execution to
	// `to`, resuming `self` only when it is scheduled back in (yield,
	// wait-event, IOC receive). Must be called from within self's own
	// execution context.
	SwitchOut(self, to Handle)

	// SwitchFinal parks the calling task permanently (it is SUSPENDED;
	// Activate will give it a fresh context later) and switches to `to`.
	// Used by terminate()/chain().
	SwitchFinal(to Handle)

	// Bootstrap starts the very first task and blocks until the system
	// is shut down.
	Bootstrap(first Handle)

	// Shutdown releases Bootstrap's caller.
	Shutdown()

	// ConfigureTick arms the periodic tick source. onTick is invoked from
	// the tick handler's own goroutine at the configured period; the
	// kernel takes the critical section for the duration of its own
	// bookkeeping inside onTick.
	ConfigureTick(period time.Duration, onTick func())

	// Critical disables the tick/driver interrupt sources for the
	// returned closure's lifetime; calling it restores the prior state.
	// Scope-bound: call the returned func on every exit path.
	Critical() (restore func())

	// RequestSwitch is the ISR-safe, non-blocking hint "a scheduling
	// decision is due" used by the tick source and by SetEvent. The idle
	// task's cooperative loop wakes promptly on this signal instead of
	// busy-spinning; it is edge-coalesced like any other wake channel in
	// this codebase.
	RequestSwitch()

	// AwaitWork blocks the idle task until RequestSwitch has fired since
	// the last call (edge-coalesced; always re-check state after wake).
	AwaitWork()
}
