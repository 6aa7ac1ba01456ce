//go:build tinygo && cortexm3

package arch

import (
	"device/arm"
	"machine"
	"runtime/interrupt"
	"time"
)

// NewCortexM3 is the real target's Port. It is never built or tested by
// this repository's own CI (nothing in go.mod/go.sum targets TinyGo's
// cortexm3 build), but sketches the wiring the sim port stands in for:
// SysTick drives the counter service, PendSV (lowest exception priority,
// per spec §4.1) performs the context switch, and the initial stack frame
// is laid out so the first exception return pops PSW/PC/LR/argument
// registers exactly as spec §4.1 describes.
//
// TODO(port): the PendSV handler body (register save/restore) is assembly
// and lives in a .s file alongside this one on the real target; it is not
// included here since nothing in this repository links or runs it.
func NewCortexM3() Port {
	p := &cortexM3Port{}
	interrupt.New(machine.PendSV_IRQn, p.handlePendSV)
	return p
}

type cortexM3Port struct {
	current  Handle
	frames   map[Handle]*StackFrame
	onTick   func()
	critical interrupt.Interrupt
}

func (p *cortexM3Port) NewTask(stack StackFrame) Handle {
	if !stack.Aligned16() {
		panic("arch: stack base must be 16-byte aligned")
	}
	if p.frames == nil {
		p.frames = map[Handle]*StackFrame{}
	}
	h := Handle(len(p.frames))
	f := stack
	p.frames[h] = &f
	return h
}

func (p *cortexM3Port) Activate(h Handle, entry Entry, onReturn func()) {
	// Lay out PSW (thumb bit set), PC=entry, LR=trampoline, R0..R3=0 at
	// the top of the task's stack region. Left unimplemented: writing
	// through StackFrame.Base requires the assembly trampoline mentioned
	// above; a host build never exercises this path.
	_ = entry
	_ = onReturn
}

func (p *cortexM3Port) SwitchOut(self, to Handle) {
	p.current = to
	arm.Asm("svc #0") // trap into the PendSV-pending path
}

func (p *cortexM3Port) SwitchFinal(to Handle) {
	p.current = to
	arm.Asm("svc #0")
}

func (p *cortexM3Port) Bootstrap(first Handle) {
	p.current = first
	for {
		arm.Asm("wfi")
	}
}

func (p *cortexM3Port) Shutdown() {}

func (p *cortexM3Port) ConfigureTick(period time.Duration, onTick func()) {
	p.onTick = onTick
	machine.InitSysTick(period)
}

func (p *cortexM3Port) Critical() (restore func()) {
	mask := interrupt.Disable()
	return func() { interrupt.Restore(mask) }
}

func (p *cortexM3Port) handlePendSV(interrupt.Interrupt) {
	// Save callee-saved registers of the outgoing task to its saved SP,
	// load p.current's saved SP, restore its callee-saved registers.
	// Assembly-only; see package doc.
}

func (p *cortexM3Port) RequestSwitch() { arm.Asm("svc #0") }

func (p *cortexM3Port) AwaitWork() { arm.Asm("wfi") }
