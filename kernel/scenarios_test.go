package kernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberkernel/ember/hal/sim"
	"github.com/emberkernel/ember/kernel"
)

// bootTestKernel brings up a kernel on a simulated HAL; startInBackground
// then starts its scheduler on a background goroutine. Start never
// returns, which is expected: the goroutine lives for the rest of the
// test process, same as a real board's main loop would.
func bootTestKernel(t *testing.T, cfg kernel.Config) *kernel.Kernel {
	t.Helper()
	k := kernel.NewKernel(sim.New(nil), cfg)
	require.NoError(t, k.Init())
	return k
}

func startInBackground(k *kernel.Kernel) {
	go func() {
		defer func() { recover() }()
		k.Start()
	}()
}

const testTimeout = 2 * time.Second

func TestSemGiveTakeOrdersByPriority(t *testing.T) {
	k := bootTestKernel(t, kernel.Config{MaxTasks: 8, NumPriorities: 4, DefaultStackSize: 256})
	sem := k.NewSem(0, 2)

	order := make(chan int, 2)

	_, err := k.TaskCreate("low-waiter", func(any) {
		sem.Take(kernel.Infinite)
		order <- 2
		for {
			k.SleepMS(1000)
		}
	}, nil, 3, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	_, err = k.TaskCreate("high-waiter", func(any) {
		k.SleepMS(10) // let the low-priority waiter block first
		sem.Take(kernel.Infinite)
		order <- 1
		for {
			k.SleepMS(1000)
		}
	}, nil, 1, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	_, err = k.TaskCreate("giver", func(any) {
		k.SleepMS(50)
		sem.Give()
		k.SleepMS(20)
		sem.Give()
		for {
			k.SleepMS(1000)
		}
	}, nil, 2, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	startInBackground(k)

	var got []int
	timeout := time.After(testTimeout)
	for i := 0; i < 2; i++ {
		select {
		case v := <-order:
			got = append(got, v)
		case <-timeout:
			t.Fatalf("timed out waiting for wake order, got %v so far", got)
		}
	}
	require.Equal(t, []int{1, 2}, got, "higher-priority waiter must be woken first")
}

func TestMutexPriorityInheritancePreventsStarvation(t *testing.T) {
	k := bootTestKernel(t, kernel.Config{MaxTasks: 8, NumPriorities: 4, DefaultStackSize: 256})
	mu := k.NewMutex()

	done := make(chan string, 2)

	_, err := k.TaskCreate("low", func(any) {
		mu.Lock(kernel.Infinite)
		k.SleepMS(100)
		done <- "low"
		mu.Unlock()
		for {
			k.SleepMS(1000)
		}
	}, nil, 3, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	_, err = k.TaskCreate("medium-hog", func(any) {
		k.SleepMS(5)
		for {
			// busy-ish loop, yields so the simulation keeps making progress
			k.TaskYield()
		}
	}, nil, 2, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	_, err = k.TaskCreate("high", func(any) {
		k.SleepMS(20)
		mu.Lock(kernel.Infinite)
		done <- "high"
		mu.Unlock()
		for {
			k.SleepMS(1000)
		}
	}, nil, 1, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	startInBackground(k)

	timeout := time.After(testTimeout)
	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case v := <-done:
			seen[v] = true
		case <-timeout:
			t.Fatalf("timed out, only saw %v; medium-priority hog likely starved the low owner", seen)
		}
	}
}

func TestMQueueSendRecvRendezvous(t *testing.T) {
	k := bootTestKernel(t, kernel.Config{MaxTasks: 8, NumPriorities: 4, DefaultStackSize: 256})
	mq := k.NewMQueue(make([]byte, 1), 1, 1)

	received := make(chan byte, 4)

	_, err := k.TaskCreate("sender", func(any) {
		for i := byte(0); i < 4; i++ {
			mq.Send([]byte{i}, kernel.Infinite)
		}
		for {
			k.SleepMS(1000)
		}
	}, nil, 2, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	_, err = k.TaskCreate("receiver", func(any) {
		for {
			buf := make([]byte, 1)
			if err := mq.Recv(buf, kernel.Infinite); err == kernel.Ok {
				received <- buf[0]
			}
		}
	}, nil, 2, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	startInBackground(k)

	timeout := time.After(testTimeout)
	for want := byte(0); want < 4; want++ {
		select {
		case got := <-received:
			require.Equal(t, want, got)
		case <-timeout:
			t.Fatalf("timed out waiting for message %d", want)
		}
	}
}

func TestSleepWakesAfterDuration(t *testing.T) {
	k := bootTestKernel(t, kernel.Config{MaxTasks: 4, NumPriorities: 2, DefaultStackSize: 256})
	woke := make(chan struct{})

	_, err := k.TaskCreate("sleeper", func(any) {
		k.SleepMS(30)
		close(woke)
		for {
			k.SleepMS(1000)
		}
	}, nil, 0, make([]byte, 256))
	require.Equal(t, kernel.Ok, err)

	startInBackground(k)

	select {
	case <-woke:
	case <-time.After(testTimeout):
		t.Fatal("sleeper never woke")
	}
}
