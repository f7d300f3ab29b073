package kernel

// TaskState is one of the five states a TCB can be in: a free or
// deleted pool slot, eligible to run, currently running, blocked on
// a primitive or timeout, or administratively suspended.
type TaskState uint8

const (
	Inactive TaskState = iota
	Ready
	Running
	Blocked
	Suspended
)

func (s TaskState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// TaskID is a small, stable index into the TCB pool.
type TaskID uint8

// Task is one TCB, allocated from the kernel's fixed-capacity pool. A
// Task is on at most one queue at a time through each of its two
// intrusive links: queueLink (a ready queue, or a single wait queue) and
// sleepLink (the sleep list). A Blocked task with a finite timeout is the
// one case where both links are in use simultaneously, which is why the
// two links must be distinct fields rather than a single shared "next".
type Task struct {
	// sp is kept first: a real Cortex-M port's asm expects the saved
	// stack pointer at a fixed, asm-addressable offset. hal/sim does not
	// need the constraint; hal/cortexm does.
	sp SP

	id       TaskID
	name     string
	state    TaskState
	priority uint8

	stack []byte

	entry func(arg any)
	arg   any

	wakeTime   uint64
	waitResult Err

	// rrRemaining is reserved for a future tick-driven round-robin
	// slicing policy; the scheduler never reads it today.
	rrRemaining uint16

	queueLink *Task
	sleepLink *Task

	// waitQ is the wait queue t.queueLink currently threads through, if
	// any. Lets a timeout or a delete unlink the task generically without
	// the sleep/alarm code knowing which primitive it is waiting on.
	waitQ *waitQueue

	// pendingMsg is the caller's own message buffer while blocked inside
	// MQueue.Send (the payload) or MQueue.Recv (the destination). The
	// task on the other end of the rendezvous copies directly through
	// this pointer instead of bouncing the message through the ring a
	// second time.
	pendingMsg []byte
}

// ID returns the task's stable pool index.
func (t *Task) ID() TaskID { return t.id }

// Name returns the task's diagnostic name.
func (t *Task) Name() string { return t.name }

// State returns the task's current state.
func (t *Task) State() TaskState { return t.state }

// Config holds the kernel's compile-time-equivalent tunables.
type Config struct {
	MaxTasks         uint8
	NumPriorities    uint8
	DefaultStackSize int
}

// DefaultConfig returns the default tunables: 16 tasks, 8 priority
// levels, 1024-byte default stack.
func DefaultConfig() Config {
	return Config{MaxTasks: 16, NumPriorities: 8, DefaultStackSize: 1024}
}

// Kernel is the whole RTOS instance: TCB pool, scheduler state, sleep
// list, and the HAL it drives. Deliberately not global state — it hangs
// off *Kernel so a process can run many independent kernels
// concurrently. See DESIGN.md for the rationale.
type Kernel struct {
	hal HAL
	cfg Config

	tasks   []Task
	used    uint8
	freeIDs []TaskID

	current *Task
	ready   []readyQueue

	sleepHead *Task

	// schedLockDepth is a nestable counter: reschedule() is a no-op while
	// it is above zero. SchedLock/SchedUnlock manage it; unlock only
	// reschedules once the depth returns to zero.
	schedLockDepth uint32

	idleTID TaskID
	started bool
}

// NewKernel allocates a kernel instance over hal with the given config.
// It does not touch the HAL yet; call Init to bring the kernel up.
func NewKernel(hal HAL, cfg Config) *Kernel {
	if cfg.MaxTasks == 0 {
		cfg.MaxTasks = DefaultConfig().MaxTasks
	}
	if cfg.NumPriorities == 0 {
		cfg.NumPriorities = DefaultConfig().NumPriorities
	}
	if cfg.DefaultStackSize == 0 {
		cfg.DefaultStackSize = DefaultConfig().DefaultStackSize
	}
	k := &Kernel{
		hal:   hal,
		cfg:   cfg,
		tasks: make([]Task, cfg.MaxTasks),
		ready: make([]readyQueue, cfg.NumPriorities),
	}
	for i := range k.tasks {
		k.tasks[i].state = Inactive
		k.tasks[i].id = TaskID(i)
	}
	return k
}

// Init brings the kernel up: board init, timer init, scheduler init, and
// the idle task. Mirrors br_kernel_init's call order exactly.
func (k *Kernel) Init() error {
	k.hal.BoardInit()
	k.hal.TimerInit()
	k.hal.SetAlarmCallback(k.alarmHandler)

	tid, err := k.taskCreateLocked("idle", idleEntry, nil, k.cfg.NumPriorities-1, make([]byte, k.cfg.DefaultStackSize))
	if err != Ok {
		// Fatal: cannot create the idle task. The reference
		// implementation spins forever with IRQs masked; we panic,
		// since a hosted process has no other "halt".
		panic("kernel: failed to create idle task: " + err.Error())
	}
	k.idleTID = tid
	return nil
}

func idleEntry(_ any) {
	select {}
}

// TaskCreate allocates a TCB from the pool, primes its stack through the
// HAL, and makes it Ready. Returns NoMem if the pool is exhausted,
// Invalid if entry is nil, stack is empty, or priority is out of range.
func (k *Kernel) TaskCreate(name string, entry func(arg any), arg any, priority uint8, stack []byte) (TaskID, Err) {
	if entry == nil || len(stack) == 0 {
		return 0, Invalid
	}
	if priority >= k.cfg.NumPriorities {
		return 0, Invalid
	}
	return k.taskCreateLocked(name, entry, arg, priority, stack)
}

func (k *Kernel) taskCreateLocked(name string, entry func(arg any), arg any, priority uint8, stack []byte) (TaskID, Err) {
	mask := k.hal.IRQDisable()

	// A deleted task's slot is reused ahead of growing the pool, last
	// freed first: see TestTaskCreateReusesDeletedSlot and
	// installDeletionChurn for the behavior this mirrors.
	var t *Task
	if n := len(k.freeIDs); n > 0 {
		tid := k.freeIDs[n-1]
		k.freeIDs = k.freeIDs[:n-1]
		t = &k.tasks[tid]
	} else if k.used < k.cfg.MaxTasks {
		t = &k.tasks[k.used]
		t.id = TaskID(k.used)
		k.used++
	} else {
		k.hal.IRQRestore(mask)
		return 0, NoMem
	}

	t.name = name
	t.entry = entry
	t.arg = arg
	t.priority = priority
	t.stack = stack
	t.wakeTime = 0
	t.rrRemaining = 0
	t.queueLink = nil
	t.sleepLink = nil
	t.waitQ = nil
	t.pendingMsg = nil

	t.sp = k.hal.StackInit(stack, entry, arg)

	tid := t.id
	k.readyPush(t)
	k.hal.IRQRestore(mask)

	return tid, Ok
}

func (k *Kernel) taskByID(tid TaskID) (*Task, Err) {
	if tid >= TaskID(k.used) {
		return nil, Invalid
	}
	return &k.tasks[tid], Ok
}

// TaskSuspend moves tid to Suspended, unlinking it from its ready queue
// if present. If tid is the running task, it reschedules immediately.
func (k *Kernel) TaskSuspend(tid TaskID) Err {
	t, err := k.taskByID(tid)
	if err != Ok {
		return err
	}
	if t.state == Inactive {
		return Invalid
	}

	mask := k.hal.IRQDisable()
	if t.state == Ready {
		k.readyRemove(t)
	}
	t.state = Suspended
	k.hal.IRQRestore(mask)

	if t == k.current {
		k.reschedule()
	}
	return Ok
}

// TaskResume moves a Suspended task back to Ready and reschedules.
func (k *Kernel) TaskResume(tid TaskID) Err {
	t, err := k.taskByID(tid)
	if err != Ok {
		return err
	}
	if t.state != Suspended {
		return Invalid
	}
	mask := k.hal.IRQDisable()
	k.readyPush(t)
	k.hal.IRQRestore(mask)
	k.reschedule()
	return Ok
}

// TaskDelete returns the TCB to Inactive and reclaims its pool slot.
// Rejects self-delete with Invalid — a task cannot free the stack it is
// currently running on.
func (k *Kernel) TaskDelete(tid TaskID) Err {
	t, err := k.taskByID(tid)
	if err != Ok {
		return err
	}
	if t == k.current {
		return Invalid
	}
	if t.state == Inactive {
		return Invalid
	}

	mask := k.hal.IRQDisable()
	switch t.state {
	case Ready:
		k.readyRemove(t)
	case Blocked:
		// The task may be on a wait queue, the sleep list, or both at
		// once (a timed wait); detach from whichever it is actually on.
		if t.waitQ != nil {
			t.waitQ.remove(t)
			t.waitQ = nil
		}
		k.sleepListRemove(t)
	}
	t.state = Inactive
	t.queueLink = nil
	t.sleepLink = nil
	t.wakeTime = 0
	k.hal.Kill(t.sp)
	t.stack = nil
	k.freeIDs = append(k.freeIDs, t.id)
	k.hal.IRQRestore(mask)

	return Ok
}

// TaskSelf returns the currently running task's ID.
func (k *Kernel) TaskSelf() TaskID {
	if k.current == nil {
		return 0
	}
	return k.current.ID()
}
