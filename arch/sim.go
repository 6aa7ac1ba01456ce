package arch

import (
	"runtime"
	"sync"
	"time"
)

// NewSim returns the default, host-testable Port: each Handle is backed by
// a goroutine gated on a one-slot "resume" channel, so that at any instant
// at most one task goroutine is doing anything other than blocking on its
// own channel. Context switch becomes a baton pass: signal the incoming
// task's channel, then (for SwitchOut) block on our own.
func NewSim() Port {
	return &simPort{
		tasks: make(map[Handle]*simTask),
		kick:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

type simTask struct {
	resume chan struct{}
	gen    int // incremented each Activate, guards stale goroutines
}

type simPort struct {
	mu       sync.Mutex
	critMu   sync.Mutex
	tasks    map[Handle]*simTask
	nextID   Handle
	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func (p *simPort) NewTask(_ StackFrame) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.nextID
	p.nextID++
	p.tasks[h] = &simTask{resume: make(chan struct{}, 1)}
	return h
}

func (p *simPort) Activate(h Handle, entry Entry, onReturn func()) {
	p.mu.Lock()
	t := p.tasks[h]
	t.gen++
	gen := t.gen
	// Fresh resume channel: any stale pending signal from a prior
	// incarnation of this handle must not leak into the new one.
	t.resume = make(chan struct{}, 1)
	resume := t.resume
	p.mu.Unlock()

	go func() {
		<-resume // wait to be switched in for the first time
		entry()
		p.mu.Lock()
		stillCurrent := p.tasks[h] != nil && p.tasks[h].gen == gen
		p.mu.Unlock()
		if stillCurrent {
			onReturn()
		}
	}()
}

func (p *simPort) resumeChan(h Handle) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks[h].resume
}

func (p *simPort) SwitchOut(self, to Handle) {
	selfCh := p.resumeChan(self)
	target := p.resumeChan(to)
	select {
	case target <- struct{}{}:
	default:
	}
	<-selfCh // block until switched back in
}

func (p *simPort) SwitchFinal(to Handle) {
	target := p.resumeChan(to)
	select {
	case target <- struct{}{}:
	default:
	}
	// The caller's goroutine ends here, without returning to its
	// trampoline; it is never resumed under this handle's current
	// generation.
	runtime.Goexit()
}

func (p *simPort) Bootstrap(first Handle) {
	target := p.resumeChan(first)
	select {
	case target <- struct{}{}:
	default:
	}
	<-p.stop
}

func (p *simPort) Shutdown() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *simPort) ConfigureTick(period time.Duration, onTick func()) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				onTick()
			}
		}
	}()
}

func (p *simPort) Critical() (restore func()) {
	p.critMu.Lock()
	return p.critMu.Unlock
}

func (p *simPort) RequestSwitch() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *simPort) AwaitWork() {
	select {
	case <-p.kick:
	case <-p.stop:
	}
}
