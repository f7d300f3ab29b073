package main

import (
	"encoding/binary"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/emberkernel/ember/kernel"
)

// installScenario wires the chosen demo's tasks into k. Must be called
// between k.Init() and k.Start().
func installScenario(k *kernel.Kernel, log *zap.Logger, cfg boardConfig) error {
	switch cfg.scenario {
	case "producer-consumer":
		return installProducerConsumer(k, log, cfg.stackSize)
	case "priority-inversion":
		return installPriorityInversion(k, log, cfg.stackSize)
	case "deletion-churn":
		return installDeletionChurn(k, log, cfg.stackSize)
	default:
		return errUnknownScenario(cfg.scenario)
	}
}

type errUnknownScenario string

func (e errUnknownScenario) Error() string { return "unknown scenario: " + string(e) }

// installProducerConsumer wires a bounded mqueue between a fast producer
// and a slower consumer, so the ring buffer fills and the producer's
// blocking Send, woken by the consumer's Recv, actually gets exercised.
func installProducerConsumer(k *kernel.Kernel, log *zap.Logger, stackSize int) error {
	mq := k.NewMQueue(make([]byte, 4*4), 4, 4)

	producer := func(_ any) {
		var i uint32
		for {
			var msg [4]byte
			binary.LittleEndian.PutUint32(msg[:], i)
			if err := mq.Send(msg[:], kernel.Infinite); err != kernel.Ok {
				log.Warn("producer send failed", zap.String("err", err.Error()))
			}
			log.Info("produced", zap.Uint32("value", i))
			i++
			k.SleepMS(50)
		}
	}
	consumer := func(_ any) {
		for {
			var msg [4]byte
			if err := mq.Recv(msg[:], kernel.Infinite); err != kernel.Ok {
				log.Warn("consumer recv failed", zap.String("err", err.Error()))
				continue
			}
			log.Info("consumed", zap.Uint32("value", binary.LittleEndian.Uint32(msg[:])))
			k.SleepMS(150)
		}
	}

	if _, err := k.TaskCreate("producer", producer, nil, 2, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	if _, err := k.TaskCreate("consumer", consumer, nil, 2, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	return nil
}

// installPriorityInversion reproduces the classic inversion setup: a low
// priority task grabs a mutex and does slow work holding it, a
// medium-priority task hogs the CPU with unrelated work, and a
// high-priority task blocks on the same mutex. Priority inheritance
// should let the low task finish and hand off instead of starving behind
// the medium task indefinitely.
func installPriorityInversion(k *kernel.Kernel, log *zap.Logger, stackSize int) error {
	mu := k.NewMutex()

	low := func(_ any) {
		for {
			log.Info("low: acquiring mutex")
			mu.Lock(kernel.Infinite)
			log.Info("low: holding mutex, doing slow work")
			k.SleepMS(200)
			log.Info("low: releasing mutex")
			mu.Unlock()
			k.SleepMS(500)
		}
	}
	medium := func(_ any) {
		for {
			log.Debug("medium: running, no mutex involved")
			k.SleepMS(20)
		}
	}
	high := func(_ any) {
		for {
			k.SleepMS(80)
			log.Info("high: requesting mutex")
			mu.Lock(kernel.Infinite)
			log.Info("high: acquired mutex")
			mu.Unlock()
		}
	}

	if _, err := k.TaskCreate("low", low, nil, 5, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	if _, err := k.TaskCreate("medium", medium, nil, 3, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	if _, err := k.TaskCreate("high", high, nil, 1, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	return nil
}

// installDeletionChurn ports a classic task-deletion stress test:
// create a worker, let it finish its work and idle, delete it, create a
// second worker and confirm it reuses the freed slot, then confirm a
// task cannot delete itself.
func installDeletionChurn(k *kernel.Kernel, log *zap.Logger, stackSize int) error {
	var runCount int32

	worker := func(arg any) {
		id := arg.(int)
		log.Info("worker running", zap.Int("id", id))
		atomic.AddInt32(&runCount, 1)
		k.SleepMS(50)
		log.Info("worker finished, idling until deleted", zap.Int("id", id))
		for {
			k.SleepMS(1000)
		}
	}

	selfDelete := func(_ any) {
		me := k.TaskSelf()
		log.Info("self-delete: attempting to delete self")
		if err := k.TaskDelete(me); err == kernel.Invalid {
			log.Info("self-delete: PASS, self-deletion correctly rejected")
		} else {
			log.Error("self-delete: FAIL, expected Invalid", zap.String("got", err.Error()))
		}
		for {
			k.SleepMS(1000)
		}
	}

	supervisor := func(_ any) {
		log.Info("deletion churn: test 1, create+delete worker 1")
		tid1, err := k.TaskCreate("worker1", worker, 1, 3, make([]byte, stackSize))
		if err != kernel.Ok {
			log.Error("could not create worker1", zap.String("err", err.Error()))
			return
		}
		k.SleepMS(200)
		if err := k.TaskDelete(tid1); err == kernel.Ok {
			log.Info("test 1: PASS, worker1 deleted")
		} else {
			log.Error("test 1: FAIL", zap.String("err", err.Error()))
		}

		log.Info("deletion churn: test 2, create worker 2, expect slot reuse")
		tid2, err := k.TaskCreate("worker2", worker, 2, 3, make([]byte, stackSize))
		if err != kernel.Ok {
			log.Error("could not create worker2", zap.String("err", err.Error()))
			return
		}
		if tid2 == tid1 {
			log.Info("test 2: PASS, slot reused", zap.Uint8("tid", uint8(tid2)))
		} else {
			log.Warn("test 2: slot not reused", zap.Uint8("old", uint8(tid1)), zap.Uint8("new", uint8(tid2)))
		}
		k.SleepMS(200)
		k.TaskDelete(tid2)

		log.Info("deletion churn: test 3, self-deletion prevention")
		tid3, err := k.TaskCreate("selfdelete", selfDelete, nil, 3, make([]byte, stackSize))
		if err != kernel.Ok {
			log.Error("could not create selfdelete task", zap.String("err", err.Error()))
			return
		}
		k.SleepMS(200)
		k.TaskDelete(tid3)

		if n := atomic.LoadInt32(&runCount); n == 2 {
			log.Info("test 4: PASS, worker run count matches", zap.Int32("count", n))
		} else {
			log.Error("test 4: FAIL, unexpected worker run count", zap.Int32("count", n))
		}

		for {
			k.SleepMS(1000)
		}
	}

	if _, err := k.TaskCreate("supervisor", supervisor, nil, 1, make([]byte, stackSize)); err != kernel.Ok {
		return err
	}
	return nil
}
