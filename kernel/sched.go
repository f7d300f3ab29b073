package kernel

// readyQueue is a FIFO of same-priority Ready tasks, threaded through
// Task.queueLink. One of these exists per priority level.
type readyQueue struct {
	head, tail *Task
}

func (q *readyQueue) push(t *Task) {
	t.queueLink = nil
	if q.tail == nil {
		q.head = t
		q.tail = t
		return
	}
	q.tail.queueLink = t
	q.tail = t
}

func (q *readyQueue) pop() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.queueLink
	if q.head == nil {
		q.tail = nil
	}
	t.queueLink = nil
	return t
}

func (q *readyQueue) remove(t *Task) bool {
	if q.head == nil {
		return false
	}
	if q.head == t {
		q.head = t.queueLink
		if q.head == nil {
			q.tail = nil
		}
		t.queueLink = nil
		return true
	}
	for p := q.head; p.queueLink != nil; p = p.queueLink {
		if p.queueLink == t {
			p.queueLink = t.queueLink
			if q.tail == t {
				q.tail = p
			}
			t.queueLink = nil
			return true
		}
	}
	return false
}

// readyPush marks t Ready and appends it to its priority's run queue.
func (k *Kernel) readyPush(t *Task) {
	t.state = Ready
	k.ready[t.priority].push(t)
}

// readyRemove unlinks t from its priority's run queue without changing
// its state; callers set the new state themselves.
func (k *Kernel) readyRemove(t *Task) {
	invariant(k.ready[t.priority].remove(t), "task not found in its own ready queue")
}

// pickNext pops and returns the head of the highest (numerically lowest)
// non-empty priority queue, or nil if every queue is empty. The idle task
// never comes out ahead of another Ready task at its own level: found at
// the head with others behind it, it goes back to the tail. In practice
// this never returns nil once the idle task exists, since idle never
// blocks and always occupies the lowest priority queue when not running.
func (k *Kernel) pickNext() *Task {
	for p := range k.ready {
		t := k.ready[p].pop()
		if t == nil {
			continue
		}
		if t.id == k.idleTID && k.ready[p].head != nil {
			k.ready[p].push(t)
			t = k.ready[p].pop()
		}
		return t
	}
	return nil
}

// SchedLock raises the nestable scheduler lock depth by one. While the
// depth is above zero, reschedule() is a no-op: the running task keeps
// the processor across any number of otherwise-preempting Give/Unlock/
// Send/Recv/wake calls it makes itself. Safe to nest.
func (k *Kernel) SchedLock() {
	mask := k.hal.IRQDisable()
	k.schedLockDepth++
	k.hal.IRQRestore(mask)
}

// SchedUnlock lowers the scheduler lock depth by one, ignoring a call
// with no matching SchedLock. Once the depth returns to zero, it
// performs the reschedule that every gated call along the way deferred.
func (k *Kernel) SchedUnlock() {
	mask := k.hal.IRQDisable()
	if k.schedLockDepth > 0 {
		k.schedLockDepth--
	}
	depth := k.schedLockDepth
	k.hal.IRQRestore(mask)

	if depth == 0 {
		k.reschedule()
	}
}

// reschedule picks the highest-priority Ready task and switches to it if
// it differs from the currently running one. If the caller already moved
// the running task out of the Running state (Blocked, Suspended,
// Inactive) before calling reschedule, that task is left off the ready
// queue; otherwise it is demoted to Ready and requeued at the tail of
// its priority, giving round-robin behavior among equal priorities. A
// no-op while schedLockDepth is above zero — the commit point itself,
// not the callers, enforces the lock so every call site stays as simple
// as "mutate state, call reschedule."
func (k *Kernel) reschedule() {
	if k.schedLockDepth > 0 {
		return
	}

	mask := k.hal.IRQDisable()

	next := k.pickNext()
	if next == nil {
		k.hal.IRQRestore(mask)
		return
	}

	old := k.current
	if old != nil && old.state == Running && next.priority > old.priority {
		// next is strictly lower priority than the running task: not
		// eligible to preempt. Put it back and keep old running.
		k.ready[next.priority].push(next)
		k.hal.IRQRestore(mask)
		return
	}

	if old != nil && old.state == Running {
		old.state = Ready
		k.ready[old.priority].push(old)
	}

	next.state = Running
	k.current = next

	var oldSP *SP
	if old != nil {
		oldSP = &old.sp
	}
	k.hal.ContextSwitch(oldSP, &next.sp)

	k.hal.IRQRestore(mask)
}

// TaskYield voluntarily gives up the processor to any other Ready task
// at the same or higher priority. A no-op if nothing else is Ready.
func (k *Kernel) TaskYield() {
	k.reschedule()
}

// Start hands control to the scheduler permanently. Must be called
// exactly once, after Init, from outside any task context. Never
// returns once scheduling has begun; a second call returns Invalid.
func (k *Kernel) Start() error {
	if k.started {
		return Invalid
	}
	k.started = true

	mask := k.hal.IRQDisable()
	first := k.pickNext()
	if first == nil {
		k.hal.IRQRestore(mask)
		panic("kernel: Start called with no ready tasks")
	}
	first.state = Running
	k.current = first
	k.hal.IRQRestore(mask)

	k.hal.StartFirstTask(first.sp)
	panic("kernel: StartFirstTask returned")
}
