package muduo

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEventLoopRunInLoopFromOtherGoroutine(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	var ran int32
	done := make(chan struct{})

	loop.RunInLoop(func() {
		atomic.StoreInt32(&ran, 1)
		if !loop.IsInLoopThread() {
			t.Error("RunInLoop callback did not run on the loop's own goroutine")
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunInLoop callback never ran")
	}

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("callback did not run")
	}
}

func TestEventLoopQueueInLoopOrdersAfterCurrentCallback(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	var order []int
	done := make(chan struct{})

	loop.RunInLoop(func() {
		order = append(order, 1)
		loop.QueueInLoop(func() {
			order = append(order, 3)
			close(done)
		})
		order = append(order, 2)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued functor never ran")
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestEventLoopQuitStopsTheLoop(t *testing.T) {
	thread := NewLoopThread("test")
	thread.StartLoop()

	stopped := make(chan struct{})
	go func() {
		thread.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after Quit")
	}
}
