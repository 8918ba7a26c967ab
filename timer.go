package muduo

import "time"

// TimerCallback is invoked when a timer fires.
type TimerCallback func()

// timerSeq is a monotonically increasing per-TimerQueue counter used both
// to break expiration ties (earlier-registered timers fire first, as
// std::set<Entry>'s pointer-identity tiebreak effectively guaranteed)
// and as the non-owning handle a TimerID wraps.
type timerSeq uint64

// TimerID is an opaque, non-owning reference to a scheduled timer.
// Go has no weak_ptr; instead of pointing at the timer directly, a
// TimerID carries only the sequence number TimerQueue assigned it, so a
// stale TimerID (timer already fired and not repeating, or already
// canceled) simply fails to find anything on Cancel rather than
// extending the timer's lifetime the way a strong reference would.
type TimerID struct {
	sequence timerSeq
}

// timer is one scheduled callback. heapIndex tracks its position in the
// owning TimerQueue's min-heap; -1 means the timer is not currently
// sitting in the heap (either it is mid-fire, having been extracted by
// extractExpired, or it was never (re)inserted).
type timer struct {
	callback   TimerCallback
	expiration time.Time
	interval   time.Duration
	repeat     bool
	sequence   timerSeq
	heapIndex  int
}

func newTimer(cb TimerCallback, when time.Time, interval time.Duration) *timer {
	return &timer{
		callback:   cb,
		expiration: when,
		interval:   interval,
		repeat:     interval > 0,
		heapIndex:  -1,
	}
}

func (t *timer) restart(now time.Time) {
	if t.repeat {
		t.expiration = now.Add(t.interval)
	} else {
		t.expiration = time.Time{}
	}
}

// timerHeap implements container/heap.Interface ordered by (expiration,
// sequence), the Go rendering of the original's std::set<pair<Timestamp,
// shared_ptr<Timer>>> ordering (timestamp first, then an identity
// tiebreak so insertion order decides ties deterministically).
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].expiration.Equal(h[j].expiration) {
		return h[i].sequence < h[j].sequence
	}
	return h[i].expiration.Before(h[j].expiration)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*timer)
	t.heapIndex = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*h = old[:n-1]
	return t
}
