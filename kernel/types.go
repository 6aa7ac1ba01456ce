// Package kernel is the OSEK-subset real-time kernel: task scheduler,
// counter/alarm/schedule-table timing services, event/resource
// synchronisation, and the inter-OS-application IOC queue.
package kernel

// TaskID identifies a statically configured task. Tasks are never created
// or destroyed after Build; a TaskID is just an index into the kernel's
// task table.
type TaskID int

// CounterID identifies a statically configured counter.
type CounterID int

// AlarmID identifies a statically configured alarm.
type AlarmID int

// ScheduleTableID identifies a statically configured schedule table.
type ScheduleTableID int

// ResourceID identifies a statically configured non-reentrant resource.
type ResourceID int

// IOCChannelID identifies a statically configured IOC channel.
type IOCChannelID int

// EventMask is a per-task bitmask of event bits. Extended tasks wait on and
// clear subsets of their own mask; ISRs and other tasks set bits atomically.
type EventMask uint32

// EventIOC is the single, fixed event bit every IOC channel's writer raises
// on its receivers, per spec: "wake via a dedicated kernel event bit", not a
// per-channel bit. The bit does not say which channel has data: ReceiveIOC
// on a channel keeps waiting on EventIOC until that channel holds an
// element the calling receiver has not yet read.
const EventIOC EventMask = 1 << 31

// State is a task's run state.
type State int

const (
	Suspended State = iota
	Ready
	Running
	Waiting
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "SUSPENDED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Waiting:
		return "WAITING"
	default:
		return "UNKNOWN"
	}
}

// idleTaskID is the reserved task identity for the idle task. It is never
// present in the configured task table and never enqueued on the READY
// ring; Build assigns real tasks IDs 0..N-1, so idleTaskID (-1) can never
// collide with a configured task.
const idleTaskID TaskID = -1
