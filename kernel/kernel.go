package kernel

import (
	"ecuos/arch"
	"ecuos/errcode"
	"ecuos/x/fmtx"
	"ecuos/x/strx"
)

// Kernel is the running instance built by Build. All of its fields are
// allocated once and sized from Config; nothing here grows after Build
// returns. Every field shared with the tick handler is only ever touched
// under port.Critical().
type Kernel struct {
	port arch.Port
	cfg  Config
	hooks Hooks

	tasks     []tcb
	counters  []counter
	alarms    []alarmState
	schedtbls []schedTbl
	resources []resourceState
	iocs      []iocChannel

	ready      *readyRing
	running    TaskID
	idleHandle arch.Handle
}

func newKernel(port arch.Port, cfg Config) *Kernel {
	k := &Kernel{
		port:    port,
		cfg:     cfg,
		hooks:   cfg.Hooks,
		running: idleTaskID,
	}

	k.tasks = make([]tcb, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		k.tasks[i] = tcb{
			name:            strx.Coalesce(t.Name, "task"),
			entry:           t.Entry,
			extended:        t.Extended,
			activationLimit: t.ActivationLimit,
			state:           Suspended,
			handle:          port.NewTask(arch.StackFrame{Base: 16, Size: t.StackSize}),
		}
	}
	k.ready = newReadyRing(len(cfg.Tasks))

	k.counters = make([]counter, len(cfg.Counters))
	for i, c := range cfg.Counters {
		k.counters[i] = counter{max: c.Max, ticksPerBase: c.TicksPerBase, minCycle: c.MinCycle}
	}

	k.alarms = make([]alarmState, len(cfg.Alarms))
	for i, a := range cfg.Alarms {
		k.alarms[i] = alarmState{counter: a.Counter, action: a.Action}
	}

	k.schedtbls = make([]schedTbl, len(cfg.ScheduleTables))
	for i, st := range cfg.ScheduleTables {
		k.schedtbls[i] = schedTbl{
			counter:  st.Counter,
			duration: st.Duration,
			cyclic:   st.Cyclic,
			points:   st.Points,
		}
	}

	k.resources = make([]resourceState, len(cfg.Resources))

	k.iocs = make([]iocChannel, len(cfg.IOCChannels))
	for i, ch := range cfg.IOCChannels {
		k.iocs[i] = newIOCChannel(ch)
	}

	k.idleHandle = port.NewTask(arch.StackFrame{Base: 16, Size: 512})
	port.Activate(k.idleHandle, k.idleLoop, func() {
		k.reportError(&errcode.E{C: errcode.Error, Op: "idle", Msg: "idle task returned"})
	})

	return k
}

// Start runs the lifecycle startup sequence: invoke the startup hook,
// activate the configured autostart task, arm the tick source, and enter
// the scheduler loop. Start never returns until Shutdown is called from
// another goroutine (the error hook, a test, or a signal handler).
func (k *Kernel) Start() {
	if k.hooks.Startup != nil {
		k.hooks.Startup()
	}

	restore := k.port.Critical()
	if err := k.activateLocked(k.cfg.AutostartTask); err != nil {
		restore()
		k.reportError(err)
		k.Shutdown(err)
		return
	}
	restore()

	k.port.ConfigureTick(k.cfg.TickPeriod, k.onTick)
	k.port.Bootstrap(k.idleHandle)
}

// Shutdown invokes the shutdown hook and halts the architecture port.
func (k *Kernel) Shutdown(err error) {
	if k.hooks.Shutdown != nil {
		k.hooks.Shutdown(err)
	}
	k.port.Shutdown()
}

func (k *Kernel) reportError(err error) {
	if k.hooks.Error != nil {
		k.hooks.Error(err)
		return
	}
	fmtx.Printf("kernel: unhandled error: %s\n", errcode.Of(err).Error())
}

// onTick is the architecture port's tick callback: one hardware tick of
// the system's periodic tick source. Ordering per spec §4.2: counter
// increment, then alarm scan, then schedule-table scan, per counter that
// actually advanced this tick.
func (k *Kernel) onTick() {
	restore := k.port.Critical()
	defer restore()
	for i := range k.counters {
		cid := CounterID(i)
		if k.counters[i].advance() {
			k.scanAlarms(cid)
			k.scanScheduleTables(cid)
		}
	}
}

// activateLocked performs the activate() contract assuming the critical
// section is already held. See Activate for the public, self-locking
// entry point.
func (k *Kernel) activateLocked(id TaskID) error {
	if id == idleTaskID || !validTask(&k.cfg, id) {
		return errcode.InvalidID
	}
	t := &k.tasks[id]
	if t.activationCount >= t.activationLimit {
		return errcode.Limit
	}
	t.activationCount++
	if t.state == Suspended {
		t.state = Ready
		k.port.Activate(t.handle, k.taskEntry(id), func() { k.onTaskReturn(id) })
		k.ready.push(id)
		if k.running == idleTaskID {
			k.port.RequestSwitch()
		}
	}
	return nil
}

// Activate moves task id from SUSPENDED to READY (or, if it is already
// running/ready/waiting, records a queued reactivation up to its
// configured activation limit), and requests a scheduling decision if the
// current task is idle.
func (k *Kernel) Activate(id TaskID) error {
	restore := k.port.Critical()
	defer restore()
	return k.activateLocked(id)
}

// taskEntry wraps a configured task's entry function with the pre/post
// task hooks. It is built once per activation, not once per task, so a
// fresh closure always captures the current activation's id.
func (k *Kernel) taskEntry(id TaskID) func() {
	return func() {
		if k.hooks.PreTask != nil {
			k.hooks.PreTask(id)
		}
		k.tasks[id].entry()
		if k.hooks.PostTask != nil {
			k.hooks.PostTask(id)
		}
	}
}

// onTaskReturn is the terminal trampoline: invoked by the architecture
// port when a task's entry function returns on its own, rather than
// calling Terminate explicitly.
func (k *Kernel) onTaskReturn(id TaskID) {
	k.Terminate()
}

// Terminate moves the calling task from RUNNING to SUSPENDED and switches
// to the next scheduled task. It never returns.
func (k *Kernel) Terminate() {
	restore := k.port.Critical()
	self := k.running
	t := &k.tasks[self]
	t.activationCount--
	if t.activationCount > 0 {
		// A queued reactivation is pending: go straight back to READY
		// with a fresh stack frame, per OsTaskActivation multiple-request
		// semantics.
		t.state = Ready
		k.port.Activate(t.handle, k.taskEntry(self), func() { k.onTaskReturn(self) })
		k.ready.push(self)
	} else {
		t.state = Suspended
	}
	next := k.pickNext()
	restore()
	k.port.SwitchFinal(k.handleOf(next))
}

// Chain terminates the calling task and activates id as a single atomic
// step. id's validity and activation limit are checked before the calling
// task is suspended, so a failure leaves the caller's state untouched
// (chain never half-completes).
func (k *Kernel) Chain(id TaskID) error {
	restore := k.port.Critical()

	if id == idleTaskID || !validTask(&k.cfg, id) {
		restore()
		return errcode.InvalidID
	}
	target := &k.tasks[id]
	if target.activationCount >= target.activationLimit {
		restore()
		return errcode.Limit
	}

	self := k.running
	st := &k.tasks[self]
	st.activationCount--
	if st.activationCount > 0 {
		st.state = Ready
		k.port.Activate(st.handle, k.taskEntry(self), func() { k.onTaskReturn(self) })
		k.ready.push(self)
	} else {
		st.state = Suspended
	}

	target.activationCount++
	target.state = Ready
	k.port.Activate(target.handle, k.taskEntry(id), func() { k.onTaskReturn(id) })
	k.ready.push(id)

	next := k.pickNext()
	restore()
	k.port.SwitchFinal(k.handleOf(next))
	return nil
}

// Yield hints the scheduler to re-run without changing any task's state.
// If another task is READY, the caller is re-enqueued at the tail (round
// robin) and control switches to the head of the READY ring; otherwise
// Yield returns immediately.
func (k *Kernel) Yield() {
	restore := k.port.Critical()
	if k.ready.empty() {
		restore()
		return
	}
	self := k.running
	next, _ := k.ready.pop()
	k.ready.push(self)
	k.tasks[next].state = Running
	k.running = next
	restore()
	k.port.SwitchOut(k.tasks[self].handle, k.tasks[next].handle)
}

// pickNext dequeues the READY ring's head, or selects the idle task if it
// is empty, and records it as the running task. Must be called with the
// critical section held; caller performs the actual SwitchOut/SwitchFinal
// after releasing it.
func (k *Kernel) pickNext() TaskID {
	if id, ok := k.ready.pop(); ok {
		k.tasks[id].state = Running
		k.running = id
		return id
	}
	k.running = idleTaskID
	return idleTaskID
}

func (k *Kernel) handleOf(id TaskID) arch.Handle {
	if id == idleTaskID {
		return k.idleHandle
	}
	return k.tasks[id].handle
}

// idleLoop is the idle task's entry function: dispatch a READY task if one
// is waiting, otherwise block until RequestSwitch fires. It never returns.
func (k *Kernel) idleLoop() {
	for {
		if !k.tryDispatchFromIdle() {
			k.port.AwaitWork()
		}
	}
}

func (k *Kernel) tryDispatchFromIdle() bool {
	restore := k.port.Critical()
	id, ok := k.ready.pop()
	if !ok {
		restore()
		return false
	}
	k.tasks[id].state = Running
	k.running = id
	restore()
	k.port.SwitchOut(k.idleHandle, k.tasks[id].handle)
	return true
}
