package kernel

import "ecuos/errcode"

type schedTblState int

const (
	stStopped schedTblState = iota
	stWaitingStart
	stRunning
)

// schedTbl is a schedule table's mutable run state. Points and the bound
// Counter never change after Build.
type schedTbl struct {
	counter  CounterID
	duration uint64
	cyclic   bool
	points   []ScheduleTablePoint

	state     schedTblState
	start     uint64 // absolute counter value this table's own elapsed-0 corresponds to
	pending   uint64 // scans still needed before leaving WAITING_START
	nextIndex int
}

// scanScheduleTables fires every due expiry point of every table bound to
// counterID, advancing WAITING_START tables to RUNNING the tick elapsed
// crosses zero (firing any offset-0 points immediately), and coalescing
// missed periods of cyclic tables in a single tick, per spec §4.2. Must be
// called with the kernel's critical section already held, after
// scanAlarms.
//
// WAITING_START tables count down `pending` rather than comparing the
// counter's live value against the absolute `start` it was armed with:
// this counter only ever advances forward, so a straight equality check
// can only match `start` again after a full wrap once offset 0 has
// already placed `start` behind the counter's very next value.
func (k *Kernel) scanScheduleTables(counterID CounterID) {
	cur := k.counters[counterID].current
	max := k.counters[counterID].max

	for i := range k.schedtbls {
		st := &k.schedtbls[i]
		if st.counter != counterID || st.state == stStopped {
			continue
		}
		if st.state == stWaitingStart {
			st.pending--
			if st.pending > 0 {
				continue
			}
			st.state = stRunning
			st.nextIndex = 0
		}

		for {
			elapsed := (cur + max - st.start) % max
			for st.nextIndex < len(st.points) && st.points[st.nextIndex].Offset <= elapsed && elapsed < st.duration {
				st.points[st.nextIndex].Action.fire(k)
				st.nextIndex++
			}
			if elapsed < st.duration {
				break
			}
			if !st.cyclic {
				st.state = stStopped
				break
			}
			st.start = (st.start + st.duration) % max
			st.nextIndex = 0
		}
	}
}

// StartScheduleTableRel arms table id to begin `offset` ticks from its
// bound counter's current value. offset must lie in [0, duration); the
// table must currently be STOPPED.
func (k *Kernel) StartScheduleTableRel(id ScheduleTableID, offset uint64) error {
	if id < 0 || int(id) >= len(k.schedtbls) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()

	st := &k.schedtbls[id]
	if st.state != stStopped {
		return errcode.InvalidState
	}
	if offset >= st.duration {
		return errcode.Value
	}
	c := &k.counters[st.counter]
	st.start = (c.current + offset) % c.max
	// offset 0 still needs one scan to elapse before the table can be
	// observed as RUNNING (scanScheduleTables runs after the counter's
	// increment, never before it), so its countdown floors at 1.
	if offset == 0 {
		st.pending = 1
	} else {
		st.pending = offset
	}
	st.state = stWaitingStart
	return nil
}

// StopScheduleTable halts table id unconditionally.
func (k *Kernel) StopScheduleTable(id ScheduleTableID) error {
	if id < 0 || int(id) >= len(k.schedtbls) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()
	k.schedtbls[id].state = stStopped
	return nil
}
