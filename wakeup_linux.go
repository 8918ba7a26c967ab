//go:build linux

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

type eventfdWakeup struct {
	fd int
}

func newWakeup() (wakeupSignal, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &eventfdWakeup{fd: fd}, nil
}

func (w *eventfdWakeup) Fd() int { return w.fd }

func (w *eventfdWakeup) Wakeup() {
	var buf [8]byte
	buf[7] = 1
	if _, err := unix.Write(w.fd, buf[:]); err != nil {
		defaultLogger.Errorf("eventloop: wakeup write: %v", err)
	}
}

func (w *eventfdWakeup) Drain() {
	var buf [8]byte
	_, _ = unix.Read(w.fd, buf[:])
}

func (w *eventfdWakeup) Close() error {
	return unix.Close(w.fd)
}
