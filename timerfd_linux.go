//go:build linux

package muduo

import (
	"encoding/binary"
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

type linuxTimerFD struct {
	fd int
}

func newKernelTimerFD() (kernelTimerFD, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &linuxTimerFD{fd: fd}, nil
}

func (t *linuxTimerFD) Fd() int { return t.fd }

func (t *linuxTimerFD) SetTime(d time.Duration) error {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	return unix.TimerfdSettime(t.fd, 0, &spec, nil)
}

// Drain reads the expiration counter off the timerfd so it stops being
// readable; the value itself (how many periods fired since the last
// read) is unused, as mini_muduo's readTimerFd only logs it.
func (t *linuxTimerFD) Drain() {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil || n != 8 {
		return
	}
	_ = binary.LittleEndian.Uint64(buf[:])
}

func (t *linuxTimerFD) Close() error {
	return unix.Close(t.fd)
}
