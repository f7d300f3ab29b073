package kernel

import "testing"

// fakeHAL is the minimal stand-in used by tests that exercise queue
// bookkeeping directly and never need a real goroutine-backed task to
// actually run. IRQDisable/IRQRestore are no-ops since these tests never
// touch the package from more than one goroutine.
type fakeHAL struct {
	now        uint64
	alarmAt    uint64
	alarmArmed bool
	alarmFn    func()
	switches   int
}

func (h *fakeHAL) IRQDisable() Mask       { return 0 }
func (h *fakeHAL) IRQRestore(Mask)        {}
func (h *fakeHAL) InISR() bool            { return false }
func (h *fakeHAL) TimerInit()             {}
func (h *fakeHAL) TimerNowUS() uint64     { return h.now }
func (h *fakeHAL) TimerSetAlarm(t uint64) { h.alarmArmed = true; h.alarmAt = t }
func (h *fakeHAL) TimerCancelAlarm()      { h.alarmArmed = false }
func (h *fakeHAL) SetAlarmCallback(fn func()) {
	h.alarmFn = fn
}
func (h *fakeHAL) StackInit(stack []byte, entry func(arg any), arg any) SP { return new(int) }
func (h *fakeHAL) ContextSwitch(oldSP *SP, newSP *SP)                      { h.switches++ }
func (h *fakeHAL) StartFirstTask(sp SP)                                    {}
func (h *fakeHAL) Kill(sp SP)                                              {}
func (h *fakeHAL) BoardInit()                                              {}

func newTestKernel(tb testing.TB) (*Kernel, *fakeHAL) {
	tb.Helper()
	hal := &fakeHAL{}
	k := NewKernel(hal, Config{MaxTasks: 8, NumPriorities: 4, DefaultStackSize: 64})
	return k, hal
}

func TestReadyQueueFIFOWithinPriority(t *testing.T) {
	var q readyQueue
	a := &Task{id: 1}
	b := &Task{id: 2}
	c := &Task{id: 3}
	q.push(a)
	q.push(b)
	q.push(c)

	if got := q.pop(); got != a {
		t.Fatalf("expected a first, got %v", got)
	}
	if got := q.pop(); got != b {
		t.Fatalf("expected b second, got %v", got)
	}
	if got := q.pop(); got != c {
		t.Fatalf("expected c third, got %v", got)
	}
	if got := q.pop(); got != nil {
		t.Fatalf("expected empty queue, got %v", got)
	}
}

func TestReadyQueueRemoveMiddle(t *testing.T) {
	var q readyQueue
	a, b, c := &Task{id: 1}, &Task{id: 2}, &Task{id: 3}
	q.push(a)
	q.push(b)
	q.push(c)

	if !q.remove(b) {
		t.Fatal("expected remove(b) to succeed")
	}
	if got := q.pop(); got != a {
		t.Fatalf("expected a, got %v", got)
	}
	if got := q.pop(); got != c {
		t.Fatalf("expected c, got %v", got)
	}
}

func TestWaitQueuePriorityOrderingWithFIFOTieBreak(t *testing.T) {
	var wq waitQueue
	low1 := &Task{id: 1, priority: 5}
	low2 := &Task{id: 2, priority: 5}
	high := &Task{id: 3, priority: 1}
	mid := &Task{id: 4, priority: 3}

	wq.insert(low1)
	wq.insert(low2)
	wq.insert(high)
	wq.insert(mid)

	order := []*Task{}
	for {
		t := wq.pop()
		if t == nil {
			break
		}
		order = append(order, t)
	}

	want := []*Task{high, mid, low1, low2}
	if len(order) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("position %d: got task %d want task %d", i, order[i].id, want[i].id)
		}
	}
}

func TestSleepListInsertStaysSortedAndReprogramsAlarm(t *testing.T) {
	k, hal := newTestKernel(t)

	t1 := &Task{id: 1, wakeTime: 300}
	t2 := &Task{id: 2, wakeTime: 100}
	t3 := &Task{id: 3, wakeTime: 200}

	k.sleepListInsert(t1)
	k.reprogramAlarm()
	if !hal.alarmArmed || hal.alarmAt != 300 {
		t.Fatalf("expected alarm at 300, got armed=%v at=%d", hal.alarmArmed, hal.alarmAt)
	}

	k.sleepListInsert(t2)
	k.reprogramAlarm()
	if hal.alarmAt != 100 {
		t.Fatalf("expected alarm to move to 100, got %d", hal.alarmAt)
	}

	k.sleepListInsert(t3)

	got := []TaskID{}
	for p := k.sleepHead; p != nil; p = p.sleepLink {
		got = append(got, p.id)
	}
	want := []TaskID{2, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %d want %d", i, got[i], want[i])
		}
	}

	k.sleepListRemove(t2)
	k.reprogramAlarm()
	if hal.alarmAt != 200 {
		t.Fatalf("expected alarm to move to 200 after removing earliest, got %d", hal.alarmAt)
	}

	k.sleepListRemove(t1)
	k.sleepListRemove(t3)
	k.reprogramAlarm()
	if hal.alarmArmed {
		t.Fatal("expected alarm cancelled once sleep list is empty")
	}
}

func TestTaskCreateReusesDeletedSlot(t *testing.T) {
	k, _ := newTestKernel(t)
	if err := k.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	entry := func(any) {}
	tid1, err := k.TaskCreate("w1", entry, nil, 2, make([]byte, 64))
	if err != Ok {
		t.Fatalf("create w1: %v", err)
	}

	if err := k.TaskDelete(tid1); err != Ok {
		t.Fatalf("delete w1: %v", err)
	}

	tid2, err := k.TaskCreate("w2", entry, nil, 2, make([]byte, 64))
	if err != Ok {
		t.Fatalf("create w2: %v", err)
	}
	if tid2 != tid1 {
		t.Fatalf("expected slot reuse: tid1=%d tid2=%d", tid1, tid2)
	}
}

func TestSemGiveReturnsOverflowAtMax(t *testing.T) {
	k, _ := newTestKernel(t)
	sem := k.NewSem(2, 2)

	if err := sem.Give(); err != Overflow {
		t.Fatalf("expected Overflow at max with no waiter, got %v", err)
	}
	if got := sem.Count(); got != 2 {
		t.Fatalf("count must not change on Overflow, got %d", got)
	}
}

func TestMutexRecursiveLockReturnsInvalid(t *testing.T) {
	k, _ := newTestKernel(t)
	owner := &Task{id: 1, priority: 2}
	k.current = owner

	mu := k.NewMutex()
	if err := mu.Lock(Infinite); err != Ok {
		t.Fatalf("expected first lock to succeed, got %v", err)
	}
	if err := mu.Lock(Infinite); err != Invalid {
		t.Fatalf("expected recursive lock by owner to return Invalid, got %v", err)
	}
}

func TestSchedLockDefersRescheduleUntilDepthReachesZero(t *testing.T) {
	k, hal := newTestKernel(t)
	if err := k.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	entry := func(any) {}
	aID, err := k.TaskCreate("a", entry, nil, 1, make([]byte, 64))
	if err != Ok {
		t.Fatalf("create a: %v", err)
	}
	bID, err := k.TaskCreate("b", entry, nil, 1, make([]byte, 64))
	if err != Ok {
		t.Fatalf("create b: %v", err)
	}
	a, _ := k.taskByID(aID)
	b, _ := k.taskByID(bID)

	k.readyRemove(a)
	a.state = Running
	k.current = a

	k.SchedLock()
	k.SchedLock()
	k.TaskYield()
	if k.current != a || hal.switches != 0 {
		t.Fatalf("expected yield to be a no-op while locked, current=%v switches=%d", k.current.id, hal.switches)
	}

	k.SchedUnlock()
	if k.current != a || hal.switches != 0 {
		t.Fatalf("expected no reschedule while depth still above zero, current=%v switches=%d", k.current.id, hal.switches)
	}

	k.SchedUnlock()
	if k.current != b || hal.switches != 1 {
		t.Fatalf("expected deferred reschedule once depth reached zero, current=%v switches=%d", k.current.id, hal.switches)
	}
}

func TestTaskDeleteRejectsSelfAndDoubleDelete(t *testing.T) {
	k, _ := newTestKernel(t)
	if err := k.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	k.current = &k.tasks[k.idleTID]

	if err := k.TaskDelete(k.idleTID); err != Invalid {
		t.Fatalf("expected Invalid deleting current task, got %v", err)
	}

	k.current = nil
	if err := k.TaskDelete(k.idleTID); err != Ok {
		t.Fatalf("expected Ok deleting idle task once not current, got %v", err)
	}
	if err := k.TaskDelete(k.idleTID); err != Invalid {
		t.Fatalf("expected Invalid on double delete, got %v", err)
	}
}
