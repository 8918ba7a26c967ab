package muduo

import (
	"sync"
	"sync/atomic"
	"time"
)

// Functor is a callback queued to run on a loop's own goroutine.
type Functor func()

// defaultPollTimeout bounds how long a single poll() call may block so
// that a loop with no registered fds and no timers still periodically
// gets to notice Quit was called from elsewhere -- in practice the
// wakeup fd makes this unnecessary, but it is cheap insurance against a
// wakeup write getting lost to a coalesced epoll_ctl race.
const defaultPollTimeout = 10 * time.Second

var loopRegistry sync.Map // goroutineID -> *EventLoop

// EventLoop is the reactor: one per goroutine, owning a demultiplexer,
// a timer queue, and a cross-goroutine task queue. All Channel
// callbacks, timer callbacks, and queued functors run on the same
// goroutine that calls Loop -- the one piece of thread affinity every
// other component in this package is built to respect.
type EventLoop struct {
	goroutineID int64

	poller     poller
	wakeup     wakeupSignal
	wakeupChan *Channel
	timers     *TimerQueue

	looping bool
	quit    int32 // atomic

	handlingEvents         bool
	callingPendingFunctors bool

	mu              sync.Mutex
	pendingFunctors []Functor
}

// NewEventLoop constructs an EventLoop bound to the calling goroutine.
// Loop must later be called from that same goroutine; calling it from
// any other goroutine is a contract violation (see isInLoopThread).
func NewEventLoop() (*EventLoop, error) {
	gid := goroutineID()

	if _, exists := loopRegistry.Load(gid); exists {
		return nil, ErrLoopAlreadyRunning
	}

	loop := &EventLoop{goroutineID: gid}

	p, err := newPoller(loop)
	if err != nil {
		return nil, err
	}
	loop.poller = p

	w, err := newWakeup()
	if err != nil {
		p.close()
		return nil, err
	}
	loop.wakeup = w
	loop.wakeupChan = NewChannel(loop, w.Fd())
	loop.wakeupChan.SetReadCallback(func(timestamp) { w.Drain() })
	loop.wakeupChan.EnableReading()

	timers, err := newTimerQueue(loop)
	if err != nil {
		loop.wakeupChan.DisableAll()
		w.Close()
		p.close()
		return nil, err
	}
	loop.timers = timers

	loopRegistry.Store(gid, loop)

	return loop, nil
}

// Close tears down the loop's poller and kernel fds. Must be called
// after Loop has returned.
func (l *EventLoop) Close() {
	l.timers.close()
	l.wakeupChan.DisableAll()
	l.wakeupChan.Remove()
	l.wakeup.Close()
	l.poller.close()
	loopRegistry.Delete(l.goroutineID)
}

// Loop runs the reactor until Quit is called. Must be called from the
// same goroutine that constructed the EventLoop.
func (l *EventLoop) Loop() {
	l.assertInLoopThread()

	if l.looping {
		defaultLogger.Fatalf("muduo: EventLoop.Loop called while already looping")
	}

	l.looping = true
	atomic.StoreInt32(&l.quit, 0)

	for atomic.LoadInt32(&l.quit) == 0 {
		res, err := l.poller.poll(defaultPollTimeout)
		if err != nil {
			defaultLogger.Errorf("eventloop: poll: %v", err)
		}

		if len(res.active) > 0 {
			l.handlingEvents = true
			for _, ch := range res.active {
				ch.HandleEvents(res.receiveTime)
			}
			l.handlingEvents = false
		}

		l.callPendingFunctors()
	}

	l.looping = false
}

func (l *EventLoop) callPendingFunctors() {
	l.callingPendingFunctors = true

	l.mu.Lock()
	functors := l.pendingFunctors
	l.pendingFunctors = nil
	l.mu.Unlock()

	for _, f := range functors {
		f()
	}

	l.callingPendingFunctors = false
}

// Quit asks the loop to stop after its current iteration. Safe to call
// from any goroutine.
func (l *EventLoop) Quit() {
	atomic.StoreInt32(&l.quit, 1)

	if !l.isInLoopThread() {
		l.wakeup.Wakeup()
	}
}

// RunInLoop runs cb immediately if called from the loop's own
// goroutine, or queues it to run on the next iteration otherwise.
func (l *EventLoop) RunInLoop(cb Functor) {
	if l.isInLoopThread() {
		cb()
	} else {
		l.QueueInLoop(cb)
	}
}

// QueueInLoop always defers cb to the next call to callPendingFunctors,
// even from the loop's own goroutine -- useful for breaking out of a
// callback currently executing in HandleEvents.
func (l *EventLoop) QueueInLoop(cb Functor) {
	l.mu.Lock()
	l.pendingFunctors = append(l.pendingFunctors, cb)
	l.mu.Unlock()

	if !l.isInLoopThread() || l.callingPendingFunctors {
		l.wakeup.Wakeup()
	}
}

// RunAt schedules cb to run at when. Safe to call from any goroutine.
func (l *EventLoop) RunAt(when time.Time, cb TimerCallback) TimerID {
	return l.timers.addTimer(cb, when, 0)
}

// RunAfter schedules cb to run after delay. Safe to call from any
// goroutine.
func (l *EventLoop) RunAfter(delay time.Duration, cb TimerCallback) TimerID {
	return l.RunAt(time.Now().Add(delay), cb)
}

// RunEvery schedules cb to run every interval, starting one interval
// from now. Safe to call from any goroutine.
func (l *EventLoop) RunEvery(interval time.Duration, cb TimerCallback) TimerID {
	return l.timers.addTimer(cb, time.Now().Add(interval), interval)
}

// CancelTimer cancels a timer previously returned by RunAt/RunAfter/
// RunEvery. Safe to call from any goroutine.
func (l *EventLoop) CancelTimer(id TimerID) {
	l.timers.cancel(id)
}

func (l *EventLoop) updateChannel(ch *Channel) {
	if ch.OwnerLoop() != l {
		defaultLogger.Fatalf("muduo: channel does not belong to this loop")
	}
	l.assertInLoopThread()
	l.poller.updateChannel(ch)
}

func (l *EventLoop) removeChannel(ch *Channel) {
	if ch.OwnerLoop() != l {
		defaultLogger.Fatalf("muduo: channel does not belong to this loop")
	}
	l.assertInLoopThread()
	l.poller.removeChannel(ch)
}

// IsInLoopThread reports whether the calling goroutine is this loop's
// owning goroutine.
func (l *EventLoop) IsInLoopThread() bool { return l.isInLoopThread() }

func (l *EventLoop) isInLoopThread() bool {
	return goroutineID() == l.goroutineID
}

func (l *EventLoop) assertInLoopThread() {
	if !l.isInLoopThread() {
		defaultLogger.Fatalf("muduo: operation must run on the EventLoop's own goroutine")
	}
}
