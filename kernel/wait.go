package kernel

// waitQueue orders Blocked tasks by priority (numerically lower runs
// first), breaking ties FIFO among equal priorities — the one invariant
// the reference queue got right and this port keeps. Threaded through
// Task.queueLink, same as readyQueue, but insert is priority-ordered
// instead of append-only.
type waitQueue struct {
	head *Task
}

func (wq *waitQueue) insert(t *Task) {
	t.queueLink = nil
	t.waitQ = wq

	if wq.head == nil || t.priority < wq.head.priority {
		t.queueLink = wq.head
		wq.head = t
		return
	}
	p := wq.head
	for p.queueLink != nil && p.queueLink.priority <= t.priority {
		p = p.queueLink
	}
	t.queueLink = p.queueLink
	p.queueLink = t
}

// pop removes and returns the highest-priority (earliest-queued among
// ties) waiter, or nil if the queue is empty.
func (wq *waitQueue) pop() *Task {
	t := wq.head
	if t == nil {
		return nil
	}
	wq.head = t.queueLink
	t.queueLink = nil
	t.waitQ = nil
	return t
}

func (wq *waitQueue) remove(t *Task) bool {
	if wq.head == nil {
		return false
	}
	if wq.head == t {
		wq.head = t.queueLink
		t.queueLink = nil
		t.waitQ = nil
		return true
	}
	for p := wq.head; p.queueLink != nil; p = p.queueLink {
		if p.queueLink == t {
			p.queueLink = t.queueLink
			t.queueLink = nil
			t.waitQ = nil
			return true
		}
	}
	return false
}

// blockCurrentLocked parks the running task on wq, optionally with a
// timeout, and does not return until something wakes it: either
// wakeOneLocked (success) or the alarm sweep (Timeout). The caller must
// already hold mask from IRQDisable and must have just verified, in that same
// critical section, that the wait condition truly requires blocking —
// otherwise a Give/Send landing in the gap between the check and the
// enqueue would be missed forever. blockCurrentLocked releases mask
// itself before rescheduling.
func (k *Kernel) blockCurrentLocked(mask Mask, wq *waitQueue, timeoutUS uint64) Err {
	t := k.current
	wq.insert(t)

	if timeoutUS != Infinite {
		t.wakeTime = k.hal.TimerNowUS() + timeoutUS
		k.sleepListInsert(t)
		k.reprogramAlarm()
	}
	t.state = Blocked
	t.waitResult = Timeout

	k.hal.IRQRestore(mask)
	k.reschedule()

	return t.waitResult
}

// wakeOneLocked pops the highest-priority waiter off wq, marks it
// successful, and makes it Ready. Returns the woken task, or nil if wq
// was empty. The caller must already hold mask from IRQDisable — this
// must run in the same critical section as whatever test decided a
// waiter should be woken, or a waiter whose timeout fires in the gap
// could be missed by both the timeout sweep and this wake.
func (k *Kernel) wakeOneLocked(wq *waitQueue) *Task {
	t := wq.pop()
	if t == nil {
		return nil
	}
	k.sleepListRemove(t)
	t.waitResult = Ok
	k.readyPush(t)
	return t
}
