package muduo

import "time"

// timestamp is mini_muduo's Timestamp collapsed onto time.Time: Go's
// monotonic-reading time.Time already gives the steady_clock semantics
// the original hand-rolled (ordering, subtraction, wall-clock rendering
// for logs) without a bespoke wrapper type.
type timestamp = time.Time

func now() timestamp { return time.Now() }
