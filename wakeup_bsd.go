//go:build darwin || freebsd || dragonfly || netbsd || openbsd

package muduo

import "golang.org/x/sys/unix"

// wakeupSignal is the cross-goroutine fd an EventLoop polls alongside
// real I/O so that QueueInLoop/Quit called from another goroutine can
// interrupt a blocked poll call.
type wakeupSignal interface {
	Fd() int
	Wakeup()
	Drain()
	Close() error
}

// pipeWakeup is the self-pipe fallback for platforms without eventfd.
type pipeWakeup struct {
	readFd  int
	writeFd int
}

func newWakeup() (wakeupSignal, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}
	return &pipeWakeup{readFd: fds[0], writeFd: fds[1]}, nil
}

func (w *pipeWakeup) Fd() int { return w.readFd }

func (w *pipeWakeup) Wakeup() {
	var buf [1]byte
	buf[0] = 1
	if _, err := unix.Write(w.writeFd, buf[:]); err != nil {
		defaultLogger.Errorf("eventloop: wakeup write: %v", err)
	}
}

func (w *pipeWakeup) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.readFd, buf[:])
		if n <= 0 || err != nil {
			return
		}
		if n < len(buf) {
			return
		}
	}
}

func (w *pipeWakeup) Close() error {
	unix.Close(w.writeFd)
	return unix.Close(w.readFd)
}
