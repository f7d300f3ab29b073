package kernel

// The sleep list is a singly-linked list of Blocked tasks sorted
// ascending by wakeTime, threaded through Task.sleepLink. Exactly one
// hardware alarm is ever armed, for the earliest entry; the alarm
// handler sweeps everything due and reprograms for whatever is next.
// A task waiting on a primitive with a finite timeout sits on both this
// list (via sleepLink) and a waitQueue (via queueLink) at once — the
// reason the two links cannot share a field.

func (k *Kernel) sleepListInsert(t *Task) {
	t.sleepLink = nil
	if k.sleepHead == nil || t.wakeTime < k.sleepHead.wakeTime {
		t.sleepLink = k.sleepHead
		k.sleepHead = t
		return
	}
	p := k.sleepHead
	for p.sleepLink != nil && p.sleepLink.wakeTime <= t.wakeTime {
		p = p.sleepLink
	}
	t.sleepLink = p.sleepLink
	p.sleepLink = t
}

func (k *Kernel) sleepListRemove(t *Task) {
	if k.sleepHead == nil {
		return
	}
	if k.sleepHead == t {
		k.sleepHead = t.sleepLink
		t.sleepLink = nil
		return
	}
	for p := k.sleepHead; p.sleepLink != nil; p = p.sleepLink {
		if p.sleepLink == t {
			p.sleepLink = t.sleepLink
			t.sleepLink = nil
			return
		}
	}
}

// reprogramAlarm arms the single hardware alarm for the earliest sleeper,
// or cancels it if the list is empty. Callers hold IRQs disabled.
func (k *Kernel) reprogramAlarm() {
	if k.sleepHead == nil {
		k.hal.TimerCancelAlarm()
		return
	}
	k.hal.TimerSetAlarm(k.sleepHead.wakeTime)
}

// alarmHandler runs in interrupt context when the armed alarm fires. It
// sweeps every sleeper now due, detaches each from whatever wait queue
// it was also on (a timed wait), marks the timeout, and makes it Ready.
// Registered once, during Init.
func (k *Kernel) alarmHandler() {
	mask := k.hal.IRQDisable()

	now := k.hal.TimerNowUS()
	for k.sleepHead != nil && k.sleepHead.wakeTime <= now {
		t := k.sleepHead
		k.sleepHead = t.sleepLink
		t.sleepLink = nil

		if t.waitQ != nil {
			t.waitQ.remove(t)
		}
		t.waitResult = Timeout
		k.readyPush(t)
	}
	k.reprogramAlarm()

	k.hal.IRQRestore(mask)
	k.reschedule()
}

// UptimeUS returns the kernel's monotonic microsecond clock.
func (k *Kernel) UptimeUS() uint64 {
	return k.hal.TimerNowUS()
}

// SleepUS blocks the calling task for at least us microseconds. Returns
// IsrContext if called from interrupt context. A zero duration yields to
// any other Ready task at the same or higher priority without sleeping.
func (k *Kernel) SleepUS(us uint64) Err {
	if k.hal.InISR() {
		return IsrContext
	}
	if us == 0 {
		k.TaskYield()
		return Ok
	}

	mask := k.hal.IRQDisable()
	t := k.current
	t.wakeTime = k.hal.TimerNowUS() + us
	k.sleepListInsert(t)
	k.reprogramAlarm()
	t.state = Blocked
	t.waitResult = Ok
	k.hal.IRQRestore(mask)

	k.reschedule()
	return Ok
}

// SleepMS blocks the calling task for at least ms milliseconds.
func (k *Kernel) SleepMS(ms uint64) Err {
	return k.SleepUS(MSEC(ms))
}

// SleepS blocks the calling task for at least s seconds.
func (k *Kernel) SleepS(s uint64) Err {
	return k.SleepUS(SEC(s))
}
