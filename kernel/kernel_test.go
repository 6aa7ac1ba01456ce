package kernel

import (
	"testing"
	"time"

	"ecuos/arch"
	"ecuos/errcode"
)

// noopEntry returns an entry for a task whose only job is to terminate
// immediately; no test in this file currently uses it.
func noopEntry(k *Kernel) func() {
	return func() { k.Terminate() }
}

func newTestKernel(t *testing.T, cfg Config) (*Kernel, arch.Port) {
	t.Helper()
	if cfg.TickPeriod == 0 {
		// Long enough that the port's own ticker never fires during a test;
		// every test drives k.onTick() by hand for determinism.
		cfg.TickPeriod = time.Hour
	}
	port := arch.NewSim()
	k, err := Build(port, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return k, port
}

// runKernel starts k.Start() on its own goroutine (Bootstrap blocks until
// Shutdown) and returns a func that shuts it down and waits for Start to
// return.
func runKernel(t *testing.T, k *Kernel) func() {
	t.Helper()
	done := make(chan struct{})
	go func() {
		k.Start()
		close(done)
	}()
	return func() {
		k.Shutdown(nil)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("kernel did not shut down")
		}
	}
}

func TestBuildRejectsEmptyTasks(t *testing.T) {
	port := arch.NewSim()
	_, err := Build(port, Config{})
	if errcode.Of(err) != errcode.Value {
		t.Fatalf("want errcode.Value, got %v", err)
	}
}

func TestBuildRejectsBadAutostart(t *testing.T) {
	port := arch.NewSim()
	cfg := Config{
		TickPeriod: time.Millisecond,
		Tasks: []TaskConfig{
			{Name: "t0", Entry: func() {}, ActivationLimit: 1, StackSize: 256},
		},
		AutostartTask: 5,
	}
	_, err := Build(port, cfg)
	if errcode.Of(err) != errcode.InvalidID {
		t.Fatalf("want errcode.InvalidID, got %v", err)
	}
}

func TestActivateRunsTaskFromIdle(t *testing.T) {
	ran := make(chan struct{}, 1)

	var k *Kernel
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", Entry: func() {}, ActivationLimit: 1, StackSize: 256},
			{Name: "worker", ActivationLimit: 1, StackSize: 256},
		},
	}
	// boot terminates immediately; worker signals ran then terminates.
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		ran <- struct{}{}
		k.Terminate()
	}

	k, port := newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()
	_ = port

	if err := k.Activate(1); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker task never ran")
	}
}

func TestActivateBeyondLimitReturnsLimit(t *testing.T) {
	var k *Kernel
	block := make(chan struct{})
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "worker", ActivationLimit: 1, StackSize: 256},
		},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		<-block
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer func() {
		close(block)
		stop()
	}()

	if err := k.Activate(1); err != nil {
		t.Fatalf("first Activate: %v", err)
	}
	// worker is now RUNNING (activationLimit 1, activationCount 1); a
	// second activation must be rejected before the worker's entry ever
	// gets a chance to drain block, so there is no race with Terminate.
	if err := k.Activate(1); errcode.Of(err) != errcode.Limit {
		t.Fatalf("want errcode.Limit, got %v", err)
	}
}

func TestSetRelAlarmFiresActivateTaskOnTick(t *testing.T) {
	ran := make(chan struct{}, 1)
	var k *Kernel
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "periodic", ActivationLimit: 1, StackSize: 256},
		},
		Counters: []CounterConfig{
			{Name: "sys", Max: 1000, TicksPerBase: 1, MinCycle: 1},
		},
		Alarms: []AlarmConfig{
			{Name: "a0", Counter: 0, Action: ActivateTask{Task: 1}},
		},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		ran <- struct{}{}
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.SetRelAlarm(0, 3, 0); err != nil {
		t.Fatalf("SetRelAlarm: %v", err)
	}
	for i := 0; i < 2; i++ {
		k.onTick()
		select {
		case <-ran:
			t.Fatalf("alarm fired early on tick %d", i+1)
		default:
		}
	}
	k.onTick() // third tick: expiry reached
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("alarm never fired")
	}
}

func TestCancelAlarmPreventsFiring(t *testing.T) {
	ran := make(chan struct{}, 1)
	var k *Kernel
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "periodic", ActivationLimit: 1, StackSize: 256},
		},
		Counters: []CounterConfig{{Name: "sys", Max: 1000, TicksPerBase: 1, MinCycle: 1}},
		Alarms:   []AlarmConfig{{Name: "a0", Counter: 0, Action: ActivateTask{Task: 1}}},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		ran <- struct{}{}
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.SetRelAlarm(0, 1, 0); err != nil {
		t.Fatalf("SetRelAlarm: %v", err)
	}
	if err := k.CancelAlarm(0); err != nil {
		t.Fatalf("CancelAlarm: %v", err)
	}
	k.onTick()
	select {
	case <-ran:
		t.Fatal("cancelled alarm still fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCyclicAlarmReloadsAndFiresAgain(t *testing.T) {
	fired := make(chan struct{}, 8)
	var k *Kernel
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "periodic", ActivationLimit: 2, StackSize: 256},
		},
		Counters: []CounterConfig{{Name: "sys", Max: 1000, TicksPerBase: 1, MinCycle: 2}},
		Alarms:   []AlarmConfig{{Name: "a0", Counter: 0, Action: ActivateTask{Task: 1}}},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		fired <- struct{}{}
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.SetRelAlarm(0, 1, 2); err != nil {
		t.Fatalf("SetRelAlarm: %v", err)
	}
	for tick := 1; tick <= 5; tick++ {
		k.onTick()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("cyclic alarm fired fewer than 2 times (got %d)", i)
		}
	}
}

func TestStartScheduleTableFiresPointsInOrder(t *testing.T) {
	var k *Kernel
	order := make(chan int, 8)
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
		},
		Counters: []CounterConfig{{Name: "sys", Max: 1000, TicksPerBase: 1, MinCycle: 1}},
		ScheduleTables: []ScheduleTableConfig{
			{
				Counter:  0,
				Duration: 10,
				Cyclic:   false,
				Points: []ScheduleTablePoint{
					{Offset: 2, Action: CallFunction{Fn: func() { order <- 1 }}},
					{Offset: 5, Action: CallFunction{Fn: func() { order <- 2 }}},
				},
			},
		},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.StartScheduleTableRel(0, 0); err != nil {
		t.Fatalf("StartScheduleTableRel: %v", err)
	}
	for i := 0; i < 2; i++ {
		k.onTick()
	}
	select {
	case v := <-order:
		if v != 1 {
			t.Fatalf("want point 1 first, got %d", v)
		}
	default:
		t.Fatal("first point never fired by tick 2")
	}
	for i := 0; i < 3; i++ {
		k.onTick()
	}
	select {
	case v := <-order:
		if v != 2 {
			t.Fatalf("want point 2 second, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("second point never fired")
	}
}

// TestResourceBusyWhenHeldByAnotherTask exercises the baseline (non
// priority-ceiling) resource policy: a resource's owner field survives
// past its holder's own suspension, so a later task that never released
// it still observes Busy. holder hands off to contender via Chain rather
// than two independently scheduled tasks, matching this kernel's
// single-runnable-at-a-time cooperative model.
func TestResourceBusyWhenHeldByAnotherTask(t *testing.T) {
	var k *Kernel
	done := make(chan error, 1)
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "holder", ActivationLimit: 1, StackSize: 256},
			{Name: "contender", ActivationLimit: 1, StackSize: 256},
		},
		Resources: []ResourceConfig{{Name: "r0"}},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		if err := k.GetResource(0); err != nil {
			t.Errorf("holder GetResource: %v", err)
		}
		if err := k.Chain(2); err != nil {
			t.Errorf("Chain: %v", err)
		}
	}
	cfg.Tasks[2].Entry = func() {
		done <- k.GetResource(0)
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.Activate(1); err != nil {
		t.Fatalf("Activate holder: %v", err)
	}
	select {
	case err := <-done:
		if errcode.Of(err) != errcode.Busy {
			t.Fatalf("want errcode.Busy, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("contender never ran")
	}
}

func TestIOCWriteWakesExtendedReceiver(t *testing.T) {
	var k *Kernel
	got := make(chan any, 1)
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "receiver", Extended: true, ActivationLimit: 1, StackSize: 256},
		},
		IOCChannels: []IOCChannelConfig{
			{Name: "ch0", Capacity: 4, Receivers: []TaskID{1}},
		},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		v, err := k.ReceiveIOC(0)
		if err != nil {
			t.Errorf("ReceiveIOC: %v", err)
		}
		got <- v
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.Activate(1); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	// Give the receiver a chance to park in ReceiveIOC's WaitEvent before
	// the write; if it hasn't yet, WriteIOC's SetEvent is still correct
	// (events sets a bit the receiver polls for on its very next blocking
	// wait), this just keeps the test from depending on scheduling order.
	time.Sleep(20 * time.Millisecond)
	if err := k.WriteIOC(0, 42); err != nil {
		t.Fatalf("WriteIOC: %v", err)
	}
	select {
	case v := <-got:
		if v.(int) != 42 {
			t.Fatalf("want 42, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver never got IOC value")
	}
}

func TestChainSwitchesTasksAtomically(t *testing.T) {
	var k *Kernel
	ran := make(chan int, 2)
	cfg := Config{
		AutostartTask: 0,
		Tasks: []TaskConfig{
			{Name: "boot", ActivationLimit: 1, StackSize: 256},
			{Name: "first", ActivationLimit: 1, StackSize: 256},
			{Name: "second", ActivationLimit: 1, StackSize: 256},
		},
	}
	cfg.Tasks[0].Entry = func() { k.Terminate() }
	cfg.Tasks[1].Entry = func() {
		ran <- 1
		if err := k.Chain(2); err != nil {
			t.Errorf("Chain: %v", err)
		}
	}
	cfg.Tasks[2].Entry = func() {
		ran <- 2
		k.Terminate()
	}
	k, _ = newTestKernel(t, cfg)
	stop := runKernel(t, k)
	defer stop()

	if err := k.Activate(1); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	for _, want := range []int{1, 2} {
		select {
		case got := <-ran:
			if got != want {
				t.Fatalf("want %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("never observed task %d running", want)
		}
	}
}
