// Package sim implements kernel.HAL on top of goroutines, channels, and
// the host's wall clock, so the scheduler in package kernel can be
// exercised and tested without any target hardware. Each task gets its
// own goroutine parked on a resume/kill pair; a context switch is a
// request recorded by ContextSwitch and only committed — signal the new
// task, park the old one — once the caller reaches IRQRestore, exactly
// mirroring how a real PendSV-driven switch only lands once interrupts
// are unmasked again.
package sim

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/emberkernel/ember/kernel"
)

// taskHandle is the kernel.SP this HAL hands back from StackInit: one
// goroutine's resume/kill pair.
type taskHandle struct {
	resume chan struct{}
	kill   chan struct{}
	killed sync.Once
}

// HAL is a hosted, goroutine-backed kernel.HAL. The zero value is not
// usable; construct with New.
type HAL struct {
	log *zap.Logger

	mu sync.Mutex // the single simulated global interrupt mask

	start time.Time

	alarmFn  func()
	alarmMu  sync.Mutex
	alarmer  *time.Timer
	isrDepth int32

	pendingOld *taskHandle
	pendingNew *taskHandle
}

var _ kernel.HAL = (*HAL)(nil)

// New builds a simulated HAL. log may be nil, in which case this HAL
// stays silent (zap.NewNop semantics).
func New(log *zap.Logger) *HAL {
	if log == nil {
		log = zap.NewNop()
	}
	return &HAL{log: log}
}

func (h *HAL) IRQDisable() kernel.Mask {
	h.mu.Lock()
	return 0
}

func (h *HAL) IRQRestore(_ kernel.Mask) {
	newT := h.pendingNew
	oldT := h.pendingOld
	h.pendingNew = nil
	h.pendingOld = nil
	h.mu.Unlock()

	if newT == nil {
		return
	}
	newT.resume <- struct{}{}

	if oldT == nil {
		return
	}
	select {
	case <-oldT.resume:
	case <-oldT.kill:
		h.log.Debug("task killed while parked")
		runtime.Goexit()
	}
}

func (h *HAL) InISR() bool {
	return atomic.LoadInt32(&h.isrDepth) != 0
}

func (h *HAL) TimerInit() {
	h.start = time.Now()
}

func (h *HAL) TimerNowUS() uint64 {
	return uint64(time.Since(h.start) / time.Microsecond)
}

func (h *HAL) TimerSetAlarm(absUS uint64) {
	h.alarmMu.Lock()
	defer h.alarmMu.Unlock()

	if h.alarmer != nil {
		h.alarmer.Stop()
	}
	now := h.TimerNowUS()
	var d time.Duration
	if absUS > now {
		d = time.Duration(absUS-now) * time.Microsecond
	}
	fn := h.alarmFn
	h.alarmer = time.AfterFunc(d, func() {
		atomic.AddInt32(&h.isrDepth, 1)
		defer atomic.AddInt32(&h.isrDepth, -1)
		fn()
	})
}

func (h *HAL) TimerCancelAlarm() {
	h.alarmMu.Lock()
	defer h.alarmMu.Unlock()
	if h.alarmer != nil {
		h.alarmer.Stop()
		h.alarmer = nil
	}
}

func (h *HAL) SetAlarmCallback(fn func()) {
	h.alarmFn = fn
}

func (h *HAL) StackInit(stack []byte, entry func(arg any), arg any) kernel.SP {
	_ = stack // the simulation needs no real stack memory, only a goroutine
	th := &taskHandle{
		resume: make(chan struct{}),
		kill:   make(chan struct{}),
	}

	go func() {
		select {
		case <-th.resume:
		case <-th.kill:
			return
		}
		entry(arg)
		h.log.Debug("task entry returned, parking forever")
		select {}
	}()

	return th
}

func (h *HAL) ContextSwitch(oldSP *kernel.SP, newSP *kernel.SP) {
	if newSP == nil {
		panic("sim: ContextSwitch called with nil newSP")
	}
	nt, ok := (*newSP).(*taskHandle)
	if !ok || nt == nil {
		panic("sim: ContextSwitch newSP is not a *taskHandle")
	}
	h.pendingNew = nt

	if oldSP != nil {
		if ot, ok := (*oldSP).(*taskHandle); ok {
			h.pendingOld = ot
		}
	}
}

func (h *HAL) StartFirstTask(sp kernel.SP) {
	th, ok := sp.(*taskHandle)
	if !ok || th == nil {
		panic("sim: StartFirstTask sp is not a *taskHandle")
	}
	th.resume <- struct{}{}
	select {}
}

func (h *HAL) Kill(sp kernel.SP) {
	th, ok := sp.(*taskHandle)
	if !ok || th == nil {
		return
	}
	th.killed.Do(func() { close(th.kill) })
}

func (h *HAL) BoardInit() {
	h.log.Debug("board init (simulated, no-op)")
}
