// Package kernel implements a small preemptive, fixed-priority
// cooperative-preemptive scheduler in the style of a single-core RTOS:
// fixed-capacity task pool, per-priority ready queues, a sorted sleep
// list driven by one reprogrammable hardware alarm, and the classic
// trio of IPC primitives — counting semaphores, priority-inheritance
// mutexes, and fixed-capacity message queues.
//
// Every kernel-mutating operation funnels through the HAL's
// IRQDisable/IRQRestore pair, mirroring how the reference firmware
// protects its data structures with a global interrupt mask rather than
// a lock: there is exactly one kernel running per HAL, and ISR context
// and task context share the same critical section discipline.
package kernel

// Version identifies this scheduler's ABI-ish revision for diagnostic
// logging at the cmd/embersim layer; the kernel package itself never
// logs.
const Version = "0.1.0"
