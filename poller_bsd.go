//go:build darwin || freebsd || dragonfly || netbsd || openbsd

package muduo

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin poller backend. Unlike epoll, kqueue
// registers read and write interest as two independent filters rather
// than one bitmask, so updateChannel adds or deletes each of the two
// filters separately instead of issuing a single epoll_ctl-style call.
type kqueuePoller struct {
	loop     *EventLoop
	kq       int
	channels map[int]*Channel
	events   []unix.Kevent_t
}

func newPoller(loop *EventLoop) (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)

	return &kqueuePoller{
		loop:     loop,
		kq:       kq,
		channels: make(map[int]*Channel),
		events:   make([]unix.Kevent_t, initialEventListSize),
	}, nil
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}

func (p *kqueuePoller) poll(timeout time.Duration) (pollResult, error) {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())

	n, err := unix.Kevent(p.kq, nil, p.events, &ts)
	receiveTime := now()

	if err != nil {
		if err == unix.EINTR {
			return pollResult{receiveTime: receiveTime}, nil
		}
		return pollResult{receiveTime: receiveTime}, err
	}

	if n == 0 {
		return pollResult{receiveTime: receiveTime}, nil
	}

	seen := make(map[int]eventMask, n)
	order := make([]int, 0, n)

	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Ident)

		if _, ok := seen[fd]; !ok {
			order = append(order, fd)
		}

		m := seen[fd]
		switch ev.Filter {
		case unix.EVFILT_READ:
			m |= eventRead
		case unix.EVFILT_WRITE:
			m |= eventWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			m |= eventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			m |= eventError
		}
		seen[fd] = m
	}

	active := make([]*Channel, 0, len(order))
	for _, fd := range order {
		ch, ok := p.channels[fd]
		if !ok {
			continue
		}
		ch.setReceivedEvents(seen[fd])
		active = append(active, ch)
	}

	if n == len(p.events) {
		p.events = make([]unix.Kevent_t, 2*len(p.events))
	}

	return pollResult{receiveTime: receiveTime, active: active}, nil
}

func (p *kqueuePoller) updateChannel(ch *Channel) {
	fd := ch.Fd()

	switch ch.state {
	case channelNew, channelIgnored:
		if ch.state == channelNew {
			p.channels[fd] = ch
		}
		ch.state = channelAdded
		p.applyFilters(ch)

	case channelAdded:
		if ch.IsNoneEvent() {
			ch.state = channelIgnored
			p.toggleFilter(fd, unix.EVFILT_READ, false)
			p.toggleFilter(fd, unix.EVFILT_WRITE, false)
		} else {
			p.applyFilters(ch)
		}

	default:
		defaultLogger.Warnf("poller: invalid channel state %d for fd %d", ch.state, fd)
	}
}

func (p *kqueuePoller) applyFilters(ch *Channel) {
	p.toggleFilter(ch.Fd(), unix.EVFILT_READ, ch.IsReading())
	p.toggleFilter(ch.Fd(), unix.EVFILT_WRITE, ch.IsWriting())
}

func (p *kqueuePoller) toggleFilter(fd int, filter int16, enable bool) {
	flags := uint16(unix.EV_DELETE)
	if enable {
		flags = unix.EV_ADD | unix.EV_ENABLE
	}

	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}

	// EV_DELETE on a filter that was never added is harmless to attempt
	// and is not worth tracking separately; the kernel just errors ENOENT.
	_, _ = unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
}

func (p *kqueuePoller) removeChannel(ch *Channel) {
	fd := ch.Fd()

	delete(p.channels, fd)

	if ch.state == channelAdded {
		p.toggleFilter(fd, unix.EVFILT_READ, false)
		p.toggleFilter(fd, unix.EVFILT_WRITE, false)
	}

	ch.state = channelNew
}
