package kernel

// MQueue is a fixed-capacity ring buffer of fixed-size messages. Send
// and Recv rendezvous directly when the opposite side is already
// waiting: the waking side copies straight through the woken task's
// Task.pendingMsg rather than bouncing the payload through the ring a
// second time, so a capacity-1 queue behaves like a true handoff.
type MQueue struct {
	k        *Kernel
	msgSize  int
	capacity int
	ring     []byte
	head     int
	count    int
	sendWQ   waitQueue
	recvWQ   waitQueue
}

// NewMQueue creates a message queue owned by k over caller-provided
// storage buf, holding up to capacity messages of msgSize bytes each. No
// allocation happens here beyond the MQueue header itself; len(buf) must
// be at least capacity*msgSize. Returns nil if it is not.
func (k *Kernel) NewMQueue(buf []byte, msgSize, capacity int) *MQueue {
	if msgSize <= 0 || capacity <= 0 || len(buf) < capacity*msgSize {
		return nil
	}
	return &MQueue{
		k:        k,
		msgSize:  msgSize,
		capacity: capacity,
		ring:     buf[:capacity*msgSize],
	}
}

func (m *MQueue) slot(i int) []byte {
	off := i * m.msgSize
	return m.ring[off : off+m.msgSize]
}

func (m *MQueue) pushLocked(msg []byte) {
	tail := (m.head + m.count) % m.capacity
	copy(m.slot(tail), msg)
	m.count++
}

func (m *MQueue) popLocked() []byte {
	item := m.slot(m.head)
	m.head = (m.head + 1) % m.capacity
	m.count--
	return item
}

// Send enqueues msg, blocking up to timeoutUS if the queue is full. Pass
// Infinite to wait forever, 0 to poll without blocking. len(msg) must
// equal the queue's message size.
func (m *MQueue) Send(msg []byte, timeoutUS uint64) Err {
	if len(msg) != m.msgSize {
		return Invalid
	}
	k := m.k
	mask := k.hal.IRQDisable()

	// A waiting receiver can only exist when the ring is empty, since
	// Recv only blocks on an empty queue. Hand off straight to its
	// buffer instead of pushing onto the ring just to pop it back off.
	if waiter := m.recvWQ.pop(); waiter != nil {
		copy(waiter.pendingMsg, msg)
		k.sleepListRemove(waiter)
		waiter.waitResult = Ok
		k.readyPush(waiter)
		k.hal.IRQRestore(mask)
		k.reschedule()
		return Ok
	}

	if m.count == m.capacity {
		if timeoutUS == 0 {
			k.hal.IRQRestore(mask)
			return Timeout
		}
		if k.hal.InISR() {
			k.hal.IRQRestore(mask)
			return IsrContext
		}
		k.current.pendingMsg = msg
		err := k.blockCurrentLocked(mask, &m.sendWQ, timeoutUS)
		k.current.pendingMsg = nil
		return err
	}

	m.pushLocked(msg)
	k.hal.IRQRestore(mask)
	k.reschedule()
	return Ok
}

// Recv dequeues into dst, blocking up to timeoutUS if the queue is
// empty. Pass Infinite to wait forever, 0 to poll without blocking.
// len(dst) must equal the queue's message size.
func (m *MQueue) Recv(dst []byte, timeoutUS uint64) Err {
	if len(dst) != m.msgSize {
		return Invalid
	}
	k := m.k
	mask := k.hal.IRQDisable()

	if m.count > 0 {
		copy(dst, m.popLocked())
		if waiter := m.sendWQ.pop(); waiter != nil {
			m.pushLocked(waiter.pendingMsg)
			k.sleepListRemove(waiter)
			waiter.waitResult = Ok
			k.readyPush(waiter)
		}
		k.hal.IRQRestore(mask)
		k.reschedule()
		return Ok
	}

	if timeoutUS == 0 {
		k.hal.IRQRestore(mask)
		return Timeout
	}
	if k.hal.InISR() {
		k.hal.IRQRestore(mask)
		return IsrContext
	}
	k.current.pendingMsg = dst
	err := k.blockCurrentLocked(mask, &m.recvWQ, timeoutUS)
	k.current.pendingMsg = nil
	return err
}

// Len returns the current number of queued messages. Diagnostic only.
func (m *MQueue) Len() int {
	mask := m.k.hal.IRQDisable()
	n := m.count
	m.k.hal.IRQRestore(mask)
	return n
}
