package kernel

import "ecuos/errcode"

// alarmState is an alarm's mutable run state. The configured Counter and
// Action never change after Build; only active/expiry/cycle are touched by
// SetRelAlarm, CancelAlarm, and the tick-handler scan.
type alarmState struct {
	counter CounterID
	action  Action

	active bool
	expiry uint64
	cycle  uint64
}

// scanAlarms fires every active alarm bound to counterID whose expiry
// equals that counter's current value, in ascending AlarmID (registration)
// order, per spec §5's "alarm actions fire in alarm-id order". Must be
// called with the kernel's critical section already held.
func (k *Kernel) scanAlarms(counterID CounterID) {
	cur := k.counters[counterID].current
	max := k.counters[counterID].max
	for i := range k.alarms {
		a := &k.alarms[i]
		if a.counter != counterID || !a.active || a.expiry != cur {
			continue
		}
		if a.cycle > 0 {
			a.expiry = (a.expiry + a.cycle) % max
		} else {
			a.active = false
		}
		a.action.fire(k)
	}
}

// SetRelAlarm arms alarm id to first fire `offset` ticks from the bound
// counter's current value (offset 0 fires on the very next tick, never
// within this call), and to reload by `cycle` ticks thereafter (0 =
// one-shot). cycle > 0 below the bound counter's configured minimum cycle
// is a value error.
func (k *Kernel) SetRelAlarm(id AlarmID, offset, cycle uint64) error {
	if id < 0 || int(id) >= len(k.alarms) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()

	a := &k.alarms[id]
	c := &k.counters[a.counter]
	if cycle > 0 && cycle < c.minCycle {
		return errcode.Value
	}
	if offset >= c.max {
		return errcode.Value
	}
	// scanAlarms always runs after the counter's increment, so a target
	// computed from the counter's current (pre-increment) value only
	// matches once the counter has wrapped all the way back around.
	// Offset 0 must fire on the very next tick, which is the first value
	// the counter takes after arming; fold that case in here rather than
	// leaving it to wrap.
	if offset == 0 {
		a.expiry = (c.current + 1) % c.max
	} else {
		a.expiry = (c.current + offset) % c.max
	}
	a.cycle = cycle
	a.active = true
	return nil
}

// CancelAlarm deactivates alarm id. A cancel racing the firing tick either
// observes the alarm before or after the scan; it never sees a partial
// update, since both this call and the scan take the same critical section.
func (k *Kernel) CancelAlarm(id AlarmID) error {
	if id < 0 || int(id) >= len(k.alarms) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()
	k.alarms[id].active = false
	return nil
}
