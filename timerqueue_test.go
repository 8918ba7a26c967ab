package muduo

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerQueueRunAfterFires(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	fired := make(chan time.Time, 1)
	start := time.Now()

	loop.RunAfter(50*time.Millisecond, func() {
		fired <- time.Now()
	})

	select {
	case when := <-fired:
		if elapsed := when.Sub(start); elapsed < 40*time.Millisecond {
			t.Fatalf("timer fired too early: %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimerQueueRunEveryRepeats(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	var count int32
	done := make(chan struct{})

	var id TimerID
	id = loop.RunEvery(15*time.Millisecond, func() {
		if atomic.AddInt32(&count, 1) == 3 {
			loop.CancelTimer(id)
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("repeating timer did not fire 3 times")
	}

	// give a canceled repeat timer a chance to misfire before asserting
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Fatalf("count after cancel = %d, want 3 (timer fired after cancellation)", got)
	}
}

func TestTimerQueueCancelBeforeFire(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	fired := make(chan struct{}, 1)

	id := loop.RunAfter(100*time.Millisecond, func() {
		fired <- struct{}{}
	})
	loop.CancelTimer(id)

	select {
	case <-fired:
		t.Fatal("canceled timer fired anyway")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTimerQueueCancelDuringOwnCallback(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	var count int32
	done := make(chan struct{})

	var id TimerID
	id = loop.RunEvery(10*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
		loop.CancelTimer(id) // cancel itself while it is firing
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("count = %d, want 1 (self-cancel during fire should suppress the repeat)", got)
	}
}

func TestTimerQueueOrdersByExpiration(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	var mu orderRecorder
	done := make(chan struct{})

	loop.RunAfter(30*time.Millisecond, func() { mu.record("second") })
	loop.RunAfter(10*time.Millisecond, func() {
		mu.record("first")
		loop.RunAfter(30*time.Millisecond, func() {
			mu.record("third")
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timers never completed")
	}

	got := mu.snapshot()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

type orderRecorder struct {
	vals []string
}

func (r *orderRecorder) record(s string) { r.vals = append(r.vals, s) }
func (r *orderRecorder) snapshot() []string {
	out := make([]string, len(r.vals))
	copy(out, r.vals)
	return out
}
