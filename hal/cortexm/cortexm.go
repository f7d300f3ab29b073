// Package cortexm is the real-hardware counterpart to hal/sim: a
// kernel.HAL backed by PendSV/SysTick on an ARMv7-M core (Cortex-M3/M4).
// Bringing up actual register access needs the //go:build arm target
// and a linker script this repository does not ship, so the
// implementation here is a documented stub: it builds on every platform
// and fails loudly if anyone tries to actually run it, instead of
// silently doing nothing.
package cortexm

import "github.com/emberkernel/ember/kernel"

// HAL is the placeholder Cortex-M port. See the package doc: every
// method panics. A real port would replace IRQDisable/IRQRestore with
// CPSID/CPSIE (or BASEPRI write for nestable priority masking),
// ContextSwitch with a pended SysTick/PendSV exception that performs the
// actual register-save/restore, and StackInit with the exception-frame
// layout the ARM EABI expects so a first "return" lands in entry(arg).
type HAL struct{}

var _ kernel.HAL = (*HAL)(nil)

// New returns a Cortex-M HAL stub. Every method panics; this exists so
// cmd/embersim can name a --hal=cortexm flag value without a compile
// error, not so it can be run.
func New() *HAL { return &HAL{} }

const unimplemented = "hal/cortexm: not implemented on this build; use hal/sim for a hosted run"

func (h *HAL) IRQDisable() kernel.Mask     { panic(unimplemented) }
func (h *HAL) IRQRestore(kernel.Mask)      { panic(unimplemented) }
func (h *HAL) InISR() bool                 { panic(unimplemented) }
func (h *HAL) TimerInit()                  { panic(unimplemented) }
func (h *HAL) TimerNowUS() uint64          { panic(unimplemented) }
func (h *HAL) TimerSetAlarm(absUS uint64)  { panic(unimplemented) }
func (h *HAL) TimerCancelAlarm()           { panic(unimplemented) }
func (h *HAL) SetAlarmCallback(fn func())  { panic(unimplemented) }
func (h *HAL) ContextSwitch(oldSP *kernel.SP, newSP *kernel.SP) { panic(unimplemented) }
func (h *HAL) StartFirstTask(sp kernel.SP) { panic(unimplemented) }
func (h *HAL) Kill(sp kernel.SP)           { panic(unimplemented) }
func (h *HAL) BoardInit()                  { panic(unimplemented) }

func (h *HAL) StackInit(stack []byte, entry func(arg any), arg any) kernel.SP {
	panic(unimplemented)
}
