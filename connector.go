package muduo

import (
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"
)

type connectorState int32

const (
	connectorDisconnected connectorState = iota
	connectorConnecting
	connectorConnected
)

// maxRetryDelay and initRetryDelay reproduce mini_muduo's doubling
// schedule (500ms, x2, capped at 30s); they're expressed here as the
// backoff.ExponentialBackOff knobs that reproduce the same numbers
// deterministically (RandomizationFactor 0 disables the library's
// jitter, which mini_muduo's hand-rolled doubling never had either).
const (
	initRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 30 * time.Second
)

// ConnectorNewConnectionCallback hands a connected, non-blocking fd to
// the owning TcpClient.
type ConnectorNewConnectionCallback func(connFd int)

// Connector drives a single outgoing, non-blocking TCP connection
// attempt with exponential-backoff retry. It has no notion of
// reconnecting after a connection drops -- TcpClient calls Restart for
// that -- it only owns getting from "nothing" to "one connected fd".
//
// state and wantsConnect are written from Start/Stop, which are called
// from any goroutine, and read from the loop goroutine inside
// connect/retry/handleWrite/handleError, so both are plain int32s
// manipulated only through sync/atomic.
type Connector struct {
	loop       *EventLoop
	serverAddr *InetAddress

	state        int32 // connectorState
	wantsConnect int32 // 0 or 1

	retryBackoff *backoff.ExponentialBackOff
	retryTimer   TimerID
	retryPending bool

	channel *Channel

	newConnectionCallback ConnectorNewConnectionCallback
}

// NewConnector builds a Connector targeting serverAddr. It does nothing
// until Start is called.
func NewConnector(loop *EventLoop, serverAddr *InetAddress) *Connector {
	return &Connector{
		loop:         loop,
		serverAddr:   serverAddr,
		state:        int32(connectorDisconnected),
		retryBackoff: newRetryBackoff(),
	}
}

func newRetryBackoff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initRetryDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxRetryDelay,
		MaxElapsedTime:      0, // never give up; TcpClient decides when to stop
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (c *Connector) getState() connectorState    { return connectorState(atomic.LoadInt32(&c.state)) }
func (c *Connector) setState(s connectorState)   { atomic.StoreInt32(&c.state, int32(s)) }
func (c *Connector) getWantsConnect() bool       { return atomic.LoadInt32(&c.wantsConnect) != 0 }
func (c *Connector) setWantsConnect(want bool) {
	v := int32(0)
	if want {
		v = 1
	}
	atomic.StoreInt32(&c.wantsConnect, v)
}

func (c *Connector) SetNewConnectionCallback(cb ConnectorNewConnectionCallback) {
	c.newConnectionCallback = cb
}

func (c *Connector) ServerAddress() *InetAddress { return c.serverAddr }

// Start begins connecting. Safe to call from any goroutine.
func (c *Connector) Start() {
	c.setWantsConnect(true)
	c.loop.RunInLoop(c.startInLoop)
}

func (c *Connector) startInLoop() {
	c.loop.assertInLoopThread()

	if c.getState() != connectorDisconnected {
		defaultLogger.Fatalf("connector: startInLoop called while state != disconnected")
	}

	if c.getWantsConnect() {
		c.connect()
	} else {
		defaultLogger.Debugf("connector: do not connect")
	}
}

func (c *Connector) connect() {
	fd, err := createNonblockingSocket(c.serverAddr.Family())
	if err != nil {
		defaultLogger.Errorf("connector: create socket: %v", err)
		return
	}

	sock := NewSocket(fd)
	connErr := sock.Connect(c.serverAddr)

	switch connErr {
	case nil, unix.EINPROGRESS, unix.EINTR, unix.EISCONN:
		c.connecting(fd)

	case unix.EAGAIN, unix.EADDRINUSE, unix.EADDRNOTAVAIL, unix.ECONNREFUSED, unix.ENETUNREACH:
		c.retry(fd)

	case unix.EACCES, unix.EPERM, unix.EAFNOSUPPORT, unix.EALREADY, unix.EBADF, unix.EFAULT, unix.ENOTSOCK:
		defaultLogger.Errorf("connector: connect: %v", connErr)
		unix.Close(fd)

	default:
		defaultLogger.Errorf("connector: unexpected connect error: %v", connErr)
		unix.Close(fd)
	}
}

func (c *Connector) connecting(fd int) {
	c.setState(connectorConnecting)

	c.channel = NewChannel(c.loop, fd)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetErrorCallback(c.handleError)
	c.channel.EnableWriting()
}

func (c *Connector) retry(fd int) {
	unix.Close(fd)
	c.setState(connectorDisconnected)

	if c.getWantsConnect() {
		delay := c.retryBackoff.NextBackOff()
		defaultLogger.Infof("connector: retry connecting to %s in %s", c.serverAddr.ToIPPort(), delay)

		c.retryTimer = c.loop.RunAfter(delay, c.startInLoop)
		c.retryPending = true
	} else {
		defaultLogger.Debugf("connector: do not connect")
	}
}

// Stop cancels an in-flight connection attempt, including a pending
// backoff retry timer. Safe to call from any goroutine.
func (c *Connector) Stop() {
	c.setWantsConnect(false)
	c.loop.QueueInLoop(c.stopInLoop)
}

func (c *Connector) stopInLoop() {
	c.loop.assertInLoopThread()

	if c.retryPending {
		c.loop.CancelTimer(c.retryTimer)
		c.retryPending = false
	}

	if c.getState() == connectorConnecting {
		c.setState(connectorDisconnected)
		fd := c.removeAndResetChannel()
		unix.Close(fd)
	}
}

func (c *Connector) removeAndResetChannel() int {
	c.channel.DisableAll()
	c.channel.Remove()
	fd := c.channel.Fd()

	c.loop.QueueInLoop(func() {
		c.channel = nil
	})

	return fd
}

// Restart resets backoff and begins connecting again. Must run on the
// connector's loop goroutine.
func (c *Connector) Restart() {
	c.loop.assertInLoopThread()

	if c.retryPending {
		c.loop.CancelTimer(c.retryTimer)
		c.retryPending = false
	}

	c.setState(connectorDisconnected)
	c.retryBackoff = newRetryBackoff()
	c.setWantsConnect(true)

	c.startInLoop()
}

func (c *Connector) handleWrite() {
	defaultLogger.Tracef("connector: handleWrite state=%d", c.getState())

	if c.getState() != connectorConnecting {
		return
	}

	fd := c.removeAndResetChannel()
	sock := NewSocket(fd)

	if errno := sock.SocketError(); errno != 0 {
		defaultLogger.Warnf("connector: SO_ERROR = %d", errno)
		c.retry(fd)
		return
	}

	if sock.IsSelfConnect() {
		defaultLogger.Warnf("connector: %v", ErrSelfConnect)
		c.retry(fd)
		return
	}

	c.setState(connectorConnected)

	if c.getWantsConnect() {
		if c.newConnectionCallback != nil {
			c.newConnectionCallback(fd)
		}
	} else {
		unix.Close(fd)
	}
}

func (c *Connector) handleError() {
	defaultLogger.Errorf("connector: handleError state=%d", c.getState())

	if c.getState() != connectorConnecting {
		return
	}

	fd := c.removeAndResetChannel()
	sock := NewSocket(fd)
	errno := sock.SocketError()
	defaultLogger.Tracef("connector: SO_ERROR = %d", errno)

	c.retry(fd)
}
