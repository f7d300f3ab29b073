package kernel

// Mutex is a single-owner lock with one-level priority inheritance: a
// higher-priority task blocked on a held mutex lifts the owner's
// priority so it cannot be preempted indefinitely by medium-priority
// tasks (priority inversion). Not recursive — a re-lock by the owner is
// rejected with Invalid.
type Mutex struct {
	k     *Kernel
	owner *Task
	wq    waitQueue

	// ownerBasePriority is the owner's priority at the moment it
	// acquired the mutex, snapshotted per-lock; Task carries no
	// base-priority field. A task can hold more than one mutex at
	// once; if it gets boosted while holding this one and then releases
	// a different mutex first, restoring from a single task-global
	// value would wipe out the boost this mutex still requires.
	ownerBasePriority uint8
}

// NewMutex creates an unlocked mutex owned by k.
func (k *Kernel) NewMutex() *Mutex {
	return &Mutex{k: k}
}

// Lock acquires the mutex, blocking up to timeoutUS if it is held. Pass
// Infinite to wait forever, 0 to poll without blocking.
func (m *Mutex) Lock(timeoutUS uint64) Err {
	k := m.k
	mask := k.hal.IRQDisable()

	if m.owner == nil {
		m.owner = k.current
		m.ownerBasePriority = k.current.priority
		k.hal.IRQRestore(mask)
		return Ok
	}
	if m.owner == k.current {
		k.hal.IRQRestore(mask)
		return Invalid
	}

	if timeoutUS == 0 {
		k.hal.IRQRestore(mask)
		return Timeout
	}
	if k.hal.InISR() {
		k.hal.IRQRestore(mask)
		return IsrContext
	}

	// Priority inheritance: if the blocking task runs at a higher
	// priority than the current owner, lift the owner so a
	// medium-priority task cannot hold it hostage.
	if k.current.priority < m.owner.priority {
		k.boostPriority(m.owner, k.current.priority)
	}

	return k.blockCurrentLocked(mask, &m.wq, timeoutUS)
}

// TryLock attempts a non-blocking acquire.
func (m *Mutex) TryLock() Err {
	return m.Lock(0)
}

// Unlock releases the mutex. Returns Invalid if the calling task is not
// the current owner. If a task is queued, ownership transfers to it
// directly rather than reopening the mutex for contention.
func (m *Mutex) Unlock() Err {
	k := m.k
	mask := k.hal.IRQDisable()

	if m.owner != k.current {
		k.hal.IRQRestore(mask)
		return Invalid
	}

	if k.current.priority != m.ownerBasePriority {
		k.boostPriority(k.current, m.ownerBasePriority)
	}

	next := m.wq.pop()
	if next == nil {
		m.owner = nil
		k.hal.IRQRestore(mask)
		k.reschedule()
		return Ok
	}

	k.sleepListRemove(next)
	next.waitResult = Ok
	m.owner = next
	m.ownerBasePriority = next.priority
	k.readyPush(next)

	k.hal.IRQRestore(mask)
	k.reschedule()
	return Ok
}

// boostPriority raises t's effective priority to newPrio, relinking it
// in the ready queue if it is currently sitting in one. The original
// implementation this is ported from only ever changed the field on a
// Blocked owner and left a Ready owner in its old queue bucket; here a
// Ready owner is re-bucketed too, so the boost actually changes
// scheduling order instead of only taking effect the next time the
// owner blocks and is requeued.
func (k *Kernel) boostPriority(t *Task, newPrio uint8) {
	if t.state == Ready {
		k.readyRemove(t)
		t.priority = newPrio
		k.readyPush(t)
		return
	}
	t.priority = newPrio
}
