package kernel

import "ecuos/errcode"

// resourceState is a non-reentrant binary mutex's run state. Ceiling is
// carried on ResourceConfig for a future priority-ceiling extension; the
// baseline policy below never blocks and never reads it.
type resourceState struct {
	locked bool
	owner  TaskID
}

// GetResource acquires resource id for the calling task. If already locked
// by the caller this is a no-op (the baseline does not support nested
// locking depth tracking); if locked by another task the baseline does not
// block — the caller must structure its schedule so contention cannot
// occur (see the design note on priority-ceiling as a future extension).
func (k *Kernel) GetResource(id ResourceID) error {
	if id < 0 || int(id) >= len(k.resources) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()
	r := &k.resources[id]
	if r.locked && r.owner != k.running {
		return errcode.Busy
	}
	r.locked = true
	r.owner = k.running
	return nil
}

// ReleaseResource releases resource id if the calling task owns it;
// otherwise it is a no-op.
func (k *Kernel) ReleaseResource(id ResourceID) error {
	if id < 0 || int(id) >= len(k.resources) {
		return errcode.InvalidID
	}
	restore := k.port.Critical()
	defer restore()
	r := &k.resources[id]
	if r.locked && r.owner == k.running {
		r.locked = false
	}
	return nil
}
