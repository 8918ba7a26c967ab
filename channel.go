package muduo

// event masks, independent of the poller backend. Values are chosen so
// poller_linux.go and poller_bsd.go can translate them to/from
// EPOLLIN/EVFILT_READ etc. with a single switch each.
type eventMask uint32

const (
	eventNone eventMask = 0

	eventRead eventMask = 1 << (iota - 1)
	eventWrite
	eventError
	eventHangup
	eventReadHangup
)

// channelState mirrors Channel::State in epoller.cpp: a channel moves
// NEW -> ADDED when first registered, ADDED -> IGNORED when its interest
// mask goes to none (so the poller can EPOLL_CTL_DEL without forgetting
// about the fd entirely), and back to NEW once fully removed.
type channelState int

const (
	channelNew channelState = iota
	channelAdded
	channelIgnored
)

// EventCallback is a callback with no data payload (write/close/error).
type EventCallback func()

// ReadEventCallback is invoked when a channel's fd becomes readable.
type ReadEventCallback func(receiveTime timestamp)

// Channel binds one file descriptor's event interest and its read/write/
// close/error callbacks to a single owning EventLoop. It owns no fd
// lifetime; callers open/close the fd and merely hand it to a Channel.
type Channel struct {
	loop *EventLoop
	fd   int

	state channelState

	addedToLoop   bool
	handlingEvent bool

	events   eventMask
	revents  eventMask

	readCallback  ReadEventCallback
	writeCallback EventCallback
	closeCallback EventCallback
	errorCallback EventCallback
}

// NewChannel wraps fd for use with loop. The channel is not registered
// with the poller until EnableReading/EnableWriting is called.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, state: channelNew}
}

func (c *Channel) Fd() int  { return c.fd }
func (c *Channel) OwnerLoop() *EventLoop { return c.loop }

func (c *Channel) SetReadCallback(cb ReadEventCallback)   { c.readCallback = cb }
func (c *Channel) SetWriteCallback(cb EventCallback)      { c.writeCallback = cb }
func (c *Channel) SetCloseCallback(cb EventCallback)      { c.closeCallback = cb }
func (c *Channel) SetErrorCallback(cb EventCallback)      { c.errorCallback = cb }

func (c *Channel) setReceivedEvents(revents eventMask) { c.revents = revents }

// HandleEvents dispatches the fd's pending events to the registered
// callbacks, in the same order mini_muduo's Channel::handleEvents uses:
// a hangup without a matching readable condition closes the channel
// outright (the peer reset without ever giving us a chance to drain
// pending data), then errors, then reads (which also cover read-hangup,
// so a half-close still reaches the message callback once more), then
// writes.
func (c *Channel) HandleEvents(receiveTime timestamp) {
	c.handlingEvent = true

	if c.revents&eventHangup != 0 && c.revents&eventRead == 0 {
		if c.closeCallback != nil {
			c.closeCallback()
		}
	}

	if c.revents&eventError != 0 {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}

	if c.revents&(eventRead|eventReadHangup) != 0 {
		if c.readCallback != nil {
			c.readCallback(receiveTime)
		}
	}

	if c.revents&eventWrite != 0 {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}

	c.handlingEvent = false
}

func (c *Channel) EnableReading() {
	c.events |= eventRead
	c.update()
}

func (c *Channel) EnableWriting() {
	c.events |= eventWrite
	c.update()
}

func (c *Channel) DisableReading() {
	c.events &^= eventRead
	c.update()
}

func (c *Channel) DisableWriting() {
	c.events &^= eventWrite
	c.update()
}

func (c *Channel) DisableAll() {
	c.events = eventNone
	c.update()
}

func (c *Channel) IsReading() bool  { return c.events&eventRead != 0 }
func (c *Channel) IsWriting() bool  { return c.events&eventWrite != 0 }
func (c *Channel) IsNoneEvent() bool { return c.events == eventNone }

func (c *Channel) update() {
	c.addedToLoop = true
	c.loop.updateChannel(c)
}

// Remove unregisters the channel from its loop's poller. The channel
// must not currently have any events enabled.
func (c *Channel) Remove() {
	c.addedToLoop = false
	c.loop.removeChannel(c)
}
