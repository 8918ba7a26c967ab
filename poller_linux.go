//go:build linux

package muduo

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the linux poller backend: golang.org/x/sys/unix wraps
// epoll_create1/epoll_ctl/epoll_wait directly, no cgo and no dependence
// on the thinner syscall package epoll wrappers.
type epollPoller struct {
	loop     *EventLoop
	epollFd  int
	channels map[int]*Channel
	events   []unix.EpollEvent
}

func newPoller(loop *EventLoop) (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &epollPoller{
		loop:     loop,
		epollFd:  fd,
		channels: make(map[int]*Channel),
		events:   make([]unix.EpollEvent, initialEventListSize),
	}, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epollFd)
}

func (p *epollPoller) poll(timeout time.Duration) (pollResult, error) {
	timeoutMs := int(timeout / time.Millisecond)

	n, err := unix.EpollWait(p.epollFd, p.events, timeoutMs)
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

	active := make([]*Channel, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		ch, ok := p.channels[int(ev.Fd)]
		if !ok {
			continue
		}
		ch.setReceivedEvents(fromEpollEvents(ev.Events))
		active = append(active, ch)
	}

	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, 2*len(p.events))
	}

	return pollResult{receiveTime: receiveTime, active: active}, nil
}

func (p *epollPoller) updateChannel(ch *Channel) {
	fd := ch.Fd()

	switch ch.state {
	case channelNew, channelIgnored:
		if ch.state == channelNew {
			p.channels[fd] = ch
		}
		ch.state = channelAdded
		p.epollCtl(unix.EPOLL_CTL_ADD, ch)

	case channelAdded:
		if ch.IsNoneEvent() {
			ch.state = channelIgnored
			p.epollCtl(unix.EPOLL_CTL_DEL, ch)
		} else {
			p.epollCtl(unix.EPOLL_CTL_MOD, ch)
		}

	default:
		defaultLogger.Warnf("poller: invalid channel state %d for fd %d", ch.state, fd)
	}
}

func (p *epollPoller) removeChannel(ch *Channel) {
	fd := ch.Fd()

	delete(p.channels, fd)

	if ch.state == channelAdded {
		p.epollCtl(unix.EPOLL_CTL_DEL, ch)
	}

	ch.state = channelNew
}

func (p *epollPoller) epollCtl(op int, ch *Channel) {
	ev := unix.EpollEvent{
		Events: toEpollEvents(ch.events),
		Fd:     int32(ch.Fd()),
	}

	if err := unix.EpollCtl(p.epollFd, op, ch.Fd(), &ev); err != nil {
		defaultLogger.Errorf("poller: epoll_ctl(op=%d, fd=%d): %v", op, ch.Fd(), err)
	}
}

func toEpollEvents(m eventMask) uint32 {
	var e uint32
	if m&eventRead != 0 {
		e |= unix.EPOLLIN | unix.EPOLLPRI
	}
	if m&eventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func fromEpollEvents(e uint32) eventMask {
	var m eventMask
	if e&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		m |= eventRead
	}
	if e&unix.EPOLLOUT != 0 {
		m |= eventWrite
	}
	if e&unix.EPOLLERR != 0 {
		m |= eventError
	}
	if e&unix.EPOLLHUP != 0 {
		m |= eventHangup
	}
	if e&unix.EPOLLRDHUP != 0 {
		m |= eventReadHangup
	}
	return m
}
