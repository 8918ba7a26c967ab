package muduo

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestChannelDispatchesReadOnSocketReadiness(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	a, b, err := socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(a)
	defer unix.Close(b)

	read := make(chan struct{}, 1)

	loop.RunInLoop(func() {
		ch := NewChannel(loop, a)
		ch.SetReadCallback(func(timestamp) { read <- struct{}{} })
		ch.EnableReading()
	})

	if _, err := unix.Write(b, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-read:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read callback")
	}
}

func TestChannelEnableDisableTracksInterest(t *testing.T) {
	thread := NewLoopThread("test")
	loop := thread.StartLoop()
	defer thread.Stop()

	a, b, err := socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(a)
	defer unix.Close(b)

	done := make(chan struct{})

	loop.RunInLoop(func() {
		defer close(done)

		ch := NewChannel(loop, a)
		if ch.IsReading() || ch.IsWriting() {
			t.Error("new channel should have no interest enabled")
		}

		ch.EnableReading()
		if !ch.IsReading() {
			t.Error("EnableReading did not set IsReading")
		}

		ch.EnableWriting()
		if !ch.IsWriting() {
			t.Error("EnableWriting did not set IsWriting")
		}

		ch.DisableWriting()
		if ch.IsWriting() {
			t.Error("DisableWriting left IsWriting true")
		}

		ch.DisableAll()
		if !ch.IsNoneEvent() {
			t.Error("DisableAll left some interest set")
		}

		ch.Remove()
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RunInLoop to execute")
	}
}
