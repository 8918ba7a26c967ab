//go:build darwin || freebsd || dragonfly || netbsd || openbsd

package muduo

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// kernelTimerFD is the single-fd kernel timer primitive a TimerQueue
// arms and disarms; one instance backs the entire timer set of an
// EventLoop regardless of how many Timer objects are scheduled.
type kernelTimerFD interface {
	Fd() int
	SetTime(d time.Duration) error
	Drain()
	Close() error
}

// selfPipeTimerFD stands in for timerfd on platforms without it: a
// time.AfterFunc goroutine fires and writes one byte to a non-blocking
// pipe, which is the fd the EventLoop's poller actually watches. This
// is the same self-pipe idiom the wakeup channel uses for its own
// cross-thread signal on these platforms.
type selfPipeTimerFD struct {
	readFd  int
	writeFd int

	mu    sync.Mutex
	timer *time.Timer
}

func newKernelTimerFD() (kernelTimerFD, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}

	return &selfPipeTimerFD{readFd: fds[0], writeFd: fds[1]}, nil
}

func (t *selfPipeTimerFD) Fd() int { return t.readFd }

func (t *selfPipeTimerFD) SetTime(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	t.timer = time.AfterFunc(d, func() {
		var b [1]byte
		b[0] = 1
		_, _ = unix.Write(t.writeFd, b[:])
	})

	return nil
}

func (t *selfPipeTimerFD) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(t.readFd, buf[:])
		if n <= 0 || err != nil {
			return
		}
		if n < len(buf) {
			return
		}
	}
}

func (t *selfPipeTimerFD) Close() error {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	unix.Close(t.writeFd)
	return unix.Close(t.readFd)
}
