package muduo

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// minTimerFire floors how soon a kernel timer can be armed, matching
// mini_muduo's TimerQueue::howMuchTimeFromNow clamp -- an expiration
// that is already in the past (or a whisker away) still gets a strictly
// positive arm time so timerfd_settime never disarms the timer instead
// of firing it immediately.
const minTimerFire = 100 * time.Microsecond

// TimerQueue holds every timer registered on one EventLoop, ordered by
// expiration in a min-heap and armed against a single kernel timer
// primitive (timerfd on linux, a self-pipe elsewhere) so the loop only
// ever has one extra fd to poll regardless of how many timers are live.
type TimerQueue struct {
	loop       *EventLoop
	kernel     kernelTimerFD
	channel    *Channel

	heap timerHeap
	byID map[timerSeq]*timer

	nextSequence timerSeq

	callingExpired bool
	cancelingTimers map[*timer]bool
}

func newTimerQueue(loop *EventLoop) (*TimerQueue, error) {
	kernel, err := newKernelTimerFD()
	if err != nil {
		return nil, err
	}

	q := &TimerQueue{
		loop:            loop,
		kernel:          kernel,
		byID:            make(map[timerSeq]*timer),
		cancelingTimers: make(map[*timer]bool),
	}

	q.channel = NewChannel(loop, kernel.Fd())
	q.channel.SetReadCallback(func(timestamp) { q.handleRead() })
	q.channel.EnableReading()

	return q, nil
}

func (q *TimerQueue) close() {
	q.channel.DisableAll()
	q.channel.Remove()
	q.kernel.Close()
}

// addTimer schedules cb to run at when, repeating every interval if
// interval is non-zero. Safe to call from any goroutine.
func (q *TimerQueue) addTimer(cb TimerCallback, when time.Time, interval time.Duration) TimerID {
	t := newTimer(cb, when, interval)
	t.sequence = timerSeq(atomic.AddUint64((*uint64)(&q.nextSequence), 1))

	q.loop.RunInLoop(func() {
		q.addTimerInLoop(t)
	})

	return TimerID{sequence: t.sequence}
}

// cancel cancels a previously scheduled timer. Safe to call from any
// goroutine; canceling an already-fired non-repeating timer, or an
// already-canceled one, is a harmless no-op (logged at warn).
func (q *TimerQueue) cancel(id TimerID) {
	q.loop.RunInLoop(func() {
		q.cancelInLoop(id)
	})
}

func (q *TimerQueue) addTimerInLoop(t *timer) {
	q.loop.assertInLoopThread()

	earliestChanged := len(q.heap) == 0 || t.expiration.Before(q.heap[0].expiration)

	q.byID[t.sequence] = t
	heap.Push(&q.heap, t)

	if earliestChanged {
		q.armKernelTimer(t.expiration)
	}
}

func (q *TimerQueue) cancelInLoop(id TimerID) {
	q.loop.assertInLoopThread()

	t, ok := q.byID[id.sequence]
	if !ok {
		defaultLogger.Warnf("timerqueue: %v", ErrTimerNotFound)
		return
	}

	if t.heapIndex != -1 {
		heap.Remove(&q.heap, t.heapIndex)
	}

	if q.callingExpired {
		q.cancelingTimers[t] = true
	}

	delete(q.byID, id.sequence)
}

func (q *TimerQueue) handleRead() {
	q.loop.assertInLoopThread()

	now := time.Now()
	q.kernel.Drain()

	expired := q.extractExpired(now)

	q.callingExpired = true
	for _, t := range expired {
		t.callback()
	}
	q.callingExpired = false

	q.reset(expired, now)

	q.cancelingTimers = make(map[*timer]bool)
}

// extractExpired pops every timer whose expiration is not after now off
// the heap, in expiration order, mirroring TimerQueue::getExpiredEntries'
// sentinel-bounded lower_bound scan.
func (q *TimerQueue) extractExpired(now time.Time) []*timer {
	var expired []*timer

	for len(q.heap) > 0 && !q.heap[0].expiration.After(now) {
		t := heap.Pop(&q.heap).(*timer)
		expired = append(expired, t)
	}

	return expired
}

func (q *TimerQueue) reset(expired []*timer, now time.Time) {
	for _, t := range expired {
		if t.repeat && !q.cancelingTimers[t] {
			t.restart(now)
			heap.Push(&q.heap, t)
		} else {
			delete(q.byID, t.sequence)
		}
	}

	if len(q.heap) > 0 {
		q.armKernelTimer(q.heap[0].expiration)
	}
}

func (q *TimerQueue) armKernelTimer(when time.Time) {
	d := time.Until(when)
	if d < minTimerFire {
		d = minTimerFire
	}

	if err := q.kernel.SetTime(d); err != nil {
		defaultLogger.Errorf("timerqueue: arm kernel timer: %v", err)
	}
}
