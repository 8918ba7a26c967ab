package muduo

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the id of the calling goroutine by parsing the
// "goroutine N [running]:" header Go's runtime prints at the top of a
// stack dump. There is no supported API for this and no library in the
// retrieved corpus wraps it (the usual third-party answer,
// petermattis/goid, is absent from every example and go.mod in the
// pack) -- this is the smallest thing that reproduces gettid()'s job of
// giving EventLoop a stable identity for its owning goroutine to assert
// against, and it is only ever used for that assertion, never on a hot
// path.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]

	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseInt(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
