package kernel

import "ecuos/errcode"

// iocChannel is a multi-receiver ring buffer. Elements are carried as any;
// a channel's writer and its configured receivers agree out of band on
// the concrete type passed through it. Every receiver keeps its own tail
// and its own avail count (how many unread elements remain for it); avail
// saturates at capacity, so a write past that point drops that receiver's
// oldest unread element rather than growing the channel. avail, not a
// tail/head comparison, is what tells a receiver apart from empty: a full
// ring has tail == head for every receiver that hasn't caught up, exactly
// like an empty one would.
//
// This kernel configures at most one IOC channel per receiver task, so the
// single shared EventIOC bit unambiguously identifies "this channel has
// data" to ReceiveIOC's caller; a configuration fanning multiple channels
// into one receiver would need a per-channel bit, which spec §4.5
// explicitly does not specify ("a fixed event bit").
type iocChannel struct {
	receivers []TaskID
	capacity  int
	buf       []any
	head      int
	tails     []int
	avail     []int
}

func newIOCChannel(cfg IOCChannelConfig) iocChannel {
	return iocChannel{
		receivers: cfg.Receivers,
		capacity:  cfg.Capacity,
		buf:       make([]any, cfg.Capacity),
		tails:     make([]int, len(cfg.Receivers)),
		avail:     make([]int, len(cfg.Receivers)),
	}
}

func (ch *iocChannel) receiverIndex(id TaskID) int {
	for i, r := range ch.receivers {
		if r == id {
			return i
		}
	}
	return -1
}

// WriteIOC stores value at the channel's head, advancing each receiver's
// own tail (oldest-drop) once that receiver's avail count has saturated at
// capacity, and raises EventIOC on every configured receiver.
func (k *Kernel) WriteIOC(id IOCChannelID, value any) error {
	if id < 0 || int(id) >= len(k.iocs) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()

	ch := &k.iocs[id]
	ch.buf[ch.head] = value
	ch.head = (ch.head + 1) % ch.capacity
	for i := range ch.receivers {
		if ch.avail[i] < ch.capacity {
			ch.avail[i]++
		} else {
			ch.tails[i] = (ch.tails[i] + 1) % ch.capacity
		}
	}
	for _, r := range ch.receivers {
		k.setEventLocked(r, EventIOC)
	}
	return nil
}

// ReceiveIOC is the calling task's blocking read of channel id, implemented
// as wait-event per spec §5: it blocks on EventIOC until the caller's own
// avail count is nonzero, then copies one element and clears EventIOC once
// fully drained.
func (k *Kernel) ReceiveIOC(id IOCChannelID) (any, error) {
	if id < 0 || int(id) >= len(k.iocs) {
		return nil, errcode.InvalidID
	}
	for {
		restore := k.port.Critical()
		ch := &k.iocs[id]
		ri := ch.receiverIndex(k.running)
		if ri < 0 {
			restore()
			return nil, errcode.InvalidID
		}
		if ch.avail[ri] > 0 {
			v := ch.buf[ch.tails[ri]]
			ch.tails[ri] = (ch.tails[ri] + 1) % ch.capacity
			ch.avail[ri]--
			if ch.avail[ri] == 0 {
				k.tasks[k.running].events &^= EventIOC
			}
			restore()
			return v, nil
		}
		restore()
		if err := k.WaitEvent(EventIOC); err != nil {
			return nil, err
		}
	}
}
