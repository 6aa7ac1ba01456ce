package kernel

import "ecuos/errcode"

// counter is a monotonic tick counter with a sub-counter divisor. Every
// hardware tick advances subTick; current only advances once subTick
// reaches ticksPerBase, per spec §4.2.
type counter struct {
	current      uint64
	max          uint64
	ticksPerBase uint64
	subTick      uint64
	minCycle     uint64
}

// advance applies one hardware tick and reports whether current advanced
// (i.e. whether this counter's alarms and schedule tables should be
// scanned this tick).
func (c *counter) advance() bool {
	c.subTick++
	if c.subTick < c.ticksPerBase {
		return false
	}
	c.subTick = 0
	c.current = (c.current + 1) % c.max
	return true
}

// GetCounterValue returns counter id's current value.
func (k *Kernel) GetCounterValue(id CounterID) (uint64, error) {
	if !validCounter(&k.cfg, id) {
		return 0, errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()
	return k.counters[id].current, nil
}
