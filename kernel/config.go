package kernel

import (
	"time"

	"ecuos/arch"
	"ecuos/errcode"
)

// TaskConfig describes one statically configured task. Tasks are never
// added or removed after Build; StackSize is used once, at Build time, to
// reserve the task's stack region via the architecture port.
type TaskConfig struct {
	Name            string
	Entry           func()
	Extended        bool
	ActivationLimit int // OsTaskActivation; must be >= 1
	StackSize       uintptr
}

// CounterConfig describes one statically configured counter.
type CounterConfig struct {
	Name         string
	Max          uint64 // modulus; counter.current is always in [0, Max)
	TicksPerBase uint64 // sub-counter divisor; must be >= 1
	MinCycle     uint64 // smallest cycle an alarm/schedule-table may reload by
}

// AlarmConfig describes one statically configured alarm.
type AlarmConfig struct {
	Name    string
	Counter CounterID
	Action  Action
}

// ScheduleTablePoint is one (offset, action) entry of a schedule table.
// Offsets must be strictly increasing within a table and lie in
// [0, duration).
type ScheduleTablePoint struct {
	Offset uint64
	Action Action
}

// ScheduleTableConfig describes one statically configured schedule table.
type ScheduleTableConfig struct {
	Name     string
	Counter  CounterID
	Duration uint64
	Cyclic   bool
	Points   []ScheduleTablePoint
}

// ResourceConfig describes one statically configured non-reentrant
// resource. Ceiling is retained on the struct for a future priority-ceiling
// extension; the baseline policy never reads it.
type ResourceConfig struct {
	Name    string
	Ceiling int
}

// IOCChannelConfig describes one statically configured IOC channel.
// Elements are carried as any; a channel's producer and its receivers agree
// out of band on the concrete type they pass through it (mirroring the
// source's fixed-size-element-by-configuration shape without requiring a
// distinct Go type per channel).
type IOCChannelConfig struct {
	Name      string
	Capacity  int
	Receivers []TaskID
}

// Hooks are the weak-default lifecycle callbacks an application may
// override. The kernel is not permitted to reenter its own API from inside
// a hook, per spec §4.9.
type Hooks struct {
	Startup  func()
	Shutdown func(err error)
	Error    func(err error)
	PreTask  func(id TaskID)
	PostTask func(id TaskID)
}

// Config is the single construction input to Build. Every cross-reference
// (an alarm's Counter, a schedule table's Counter, an action's Task) is
// validated before Build returns a usable Kernel, per the "single
// construction path" design note.
type Config struct {
	// TickPeriod is the period at which Start arms the architecture port's
	// tick source; nominally 1ms (1kHz), per spec §6.
	TickPeriod    time.Duration
	AutostartTask TaskID

	Tasks          []TaskConfig
	Counters       []CounterConfig
	Alarms         []AlarmConfig
	ScheduleTables []ScheduleTableConfig
	Resources      []ResourceConfig
	IOCChannels    []IOCChannelConfig

	Hooks Hooks
}

func validTask(cfg *Config, id TaskID) bool {
	return id >= 0 && int(id) < len(cfg.Tasks)
}

func validCounter(cfg *Config, id CounterID) bool {
	return id >= 0 && int(id) < len(cfg.Counters)
}

func validateAction(cfg *Config, a Action) error {
	switch v := a.(type) {
	case ActivateTask:
		if !validTask(cfg, v.Task) {
			return errcode.InvalidID
		}
	case SetEvent:
		if !validTask(cfg, v.Task) {
			return errcode.InvalidID
		}
		if !cfg.Tasks[v.Task].Extended {
			return errcode.InvalidState
		}
	case CallFunction:
		if v.Fn == nil {
			return errcode.Value
		}
	default:
		return errcode.Value
	}
	return nil
}

// Build validates cfg and constructs a ready-to-run Kernel bound to port.
// All kernel tables are allocated exactly once here and never grow; no
// hot-path operation allocates after Build returns, matching the
// host-simulation reinterpretation of the "no dynamic allocation" Non-goal.
func Build(port arch.Port, cfg Config) (*Kernel, error) {
	if len(cfg.Tasks) == 0 {
		return nil, errcode.Value
	}
	if cfg.TickPeriod <= 0 {
		return nil, errcode.Value
	}
	if !validTask(&cfg, cfg.AutostartTask) {
		return nil, errcode.InvalidID
	}
	for _, c := range cfg.Counters {
		if c.Max == 0 || c.TicksPerBase == 0 {
			return nil, errcode.Value
		}
	}
	for _, a := range cfg.Alarms {
		if !validCounter(&cfg, a.Counter) {
			return nil, errcode.InvalidID
		}
		if err := validateAction(&cfg, a.Action); err != nil {
			return nil, err
		}
	}
	for _, st := range cfg.ScheduleTables {
		if !validCounter(&cfg, st.Counter) {
			return nil, errcode.InvalidID
		}
		last := uint64(0)
		for i, p := range st.Points {
			if p.Offset >= st.Duration {
				return nil, errcode.Value
			}
			if i > 0 && p.Offset <= last {
				return nil, errcode.Value
			}
			last = p.Offset
			if err := validateAction(&cfg, p.Action); err != nil {
				return nil, err
			}
		}
	}
	for _, ch := range cfg.IOCChannels {
		if ch.Capacity <= 0 {
			return nil, errcode.Value
		}
		for _, r := range ch.Receivers {
			if !validTask(&cfg, r) {
				return nil, errcode.InvalidID
			}
		}
	}
	for _, t := range cfg.Tasks {
		if t.Entry == nil || t.ActivationLimit < 1 {
			return nil, errcode.Value
		}
	}

	return newKernel(port, cfg), nil
}
