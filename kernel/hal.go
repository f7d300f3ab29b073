package kernel

// Time literals, all expressed in microseconds (the kernel's one time
// unit): USEC(x) = x, MSEC(x) = x*1000, SEC(x) = x*1e6.
func USEC(x uint64) uint64 { return x }
func MSEC(x uint64) uint64 { return x * 1_000 }
func SEC(x uint64) uint64  { return x * 1_000_000 }

// Infinite is the "wait forever" timeout value.
const Infinite uint64 = ^uint64(0)

// Mask is the opaque token returned by IRQDisable and consumed by
// IRQRestore. Callers must never inspect it; it exists only to be
// threaded back through a matching restore.
type Mask uint32

// SP is the opaque per-task execution handle a HAL port hands back from
// StackInit. The kernel never dereferences it — it only stores it in
// Task.sp and passes it back to ContextSwitch/StartFirstTask. On real
// hardware this would be a raw stack pointer; hosted ports may represent
// it however they need to (see hal/sim).
type SP any

// HAL is the narrow hardware abstraction the kernel links against. The
// kernel never touches a register, a vector table, or a UART directly —
// every hardware-dependent operation funnels through here, plus two
// Go-specific additions: SetAlarmCallback, to register the
// interrupt-vector wiring that a real board would otherwise do at link
// time via its startup/vector-table code, and Kill, to reclaim the
// execution resource behind a deleted task.
type HAL interface {
	// IRQDisable masks interrupts globally and returns a token that must
	// be passed to the matching IRQRestore. Nestable.
	IRQDisable() Mask
	// IRQRestore restores the interrupt mask saved in mask.
	IRQRestore(mask Mask)
	// InISR reports whether the calling code is running in interrupt
	// context.
	InISR() bool

	// TimerInit starts the monotonic microsecond clock.
	TimerInit()
	// TimerNowUS returns the current monotonic time in microseconds.
	TimerNowUS() uint64
	// TimerSetAlarm arms a one-shot wake at the given absolute time. If
	// absUS is already in the past, the alarm fires as soon as possible.
	TimerSetAlarm(absUS uint64)
	// TimerCancelAlarm disarms any pending alarm.
	TimerCancelAlarm()
	// SetAlarmCallback registers the function the HAL invokes (from ISR
	// context) when the armed alarm fires. Called exactly once, during
	// kernel Init.
	SetAlarmCallback(fn func())

	// StackInit primes a fresh stack so a later ContextSwitch/
	// StartFirstTask resumes as if preempted just before entry(arg). If
	// entry ever returns, execution must reach a safe, permanent halt.
	StackInit(stack []byte, entry func(arg any), arg any) SP
	// ContextSwitch requests a switch away from *oldSP to *newSP. The
	// request is deferred: the actual handoff happens once the caller
	// re-enables interrupts (see IRQRestore), never synchronously inside
	// this call, so interrupts queued in between are not dropped.
	ContextSwitch(oldSP *SP, newSP *SP)
	// StartFirstTask bootstraps execution of the task owning sp. Never
	// returns.
	StartFirstTask(sp SP)
	// Kill reclaims whatever execution resource backs sp. Only ever
	// called for a task that is not Running (TaskDelete refuses
	// self-delete), so the resource is guaranteed to be parked rather
	// than live. A no-op on a port where a stack is just memory; on a
	// hosted simulation backed by a goroutine per task, this is what
	// actually unparks and exits it.
	Kill(sp SP)

	// BoardInit performs board/early init. A no-op on hosted ports; real
	// ports may use it for clock tree / pin setup. Board bring-up itself
	// is a named non-goal — this hook exists only so Init's call order
	// matches the conventional board_init → timer_init →
	// sched_init sequence.
	BoardInit()
}
