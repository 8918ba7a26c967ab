package muduo

import "golang.org/x/sys/unix"

type connState int

const (
	connStateConnecting connState = iota
	connStateConnected
	connStateDisconnecting
	connStateDisconnected
)

// defaultHighWaterMark is mini_muduo's 64MiB default -- the point at
// which an output buffer that can't drain fast enough starts telling
// the application to slow down via HighWaterMarkCallback.
const defaultHighWaterMark = 64 * 1024 * 1024

// TcpConnection represents one established, non-blocking TCP socket: a
// receive buffer, a send buffer with backpressure signalling, and the
// four-state lifecycle (connecting -> connected -> disconnecting ->
// disconnected) that mini_muduo's TcpConnection drives through a single
// Channel's read/write/close/error callbacks.
type TcpConnection struct {
	loop *EventLoop
	name string

	socket  *Socket
	channel *Channel

	localAddr *InetAddress
	peerAddr  *InetAddress

	state connState

	connectionCallback     ConnectionCallback
	messageCallback        MessageCallback
	writeCompleteCallback  WriteCompleteCallback
	highWaterMarkCallback  HighWaterMarkCallback
	closeCallback          CloseCallback

	highWaterMark int

	inputBuf  *Buffer
	outputBuf *Buffer

	context interface{}
}

// NewTcpConnection wraps an already-connected, non-blocking sockFd.
// Used internally by TcpServer (new inbound connection) and TcpClient
// (new outbound connection); application code never constructs one
// directly.
func NewTcpConnection(loop *EventLoop, name string, sockFd int, localAddr, peerAddr *InetAddress) *TcpConnection {
	c := &TcpConnection{
		loop:          loop,
		name:          name,
		socket:        NewSocket(sockFd),
		channel:       NewChannel(loop, sockFd),
		localAddr:     localAddr,
		peerAddr:      peerAddr,
		state:         connStateConnecting,
		highWaterMark: defaultHighWaterMark,
		inputBuf:      NewBuffer(),
		outputBuf:     NewBuffer(),
	}

	c.channel.SetReadCallback(c.handleRead)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetCloseCallback(c.handleClose)
	c.channel.SetErrorCallback(c.handleError)

	defaultLogger.Debugf("tcpconnection: ctor[%s], fd = %d", name, sockFd)

	c.socket.SetKeepAlive(true)

	return c
}

func (c *TcpConnection) GetLoop() *EventLoop       { return c.loop }
func (c *TcpConnection) Name() string              { return c.name }
func (c *TcpConnection) LocalAddress() *InetAddress { return c.localAddr }
func (c *TcpConnection) PeerAddress() *InetAddress  { return c.peerAddr }

func (c *TcpConnection) Connected() bool    { return c.state == connStateConnected }
func (c *TcpConnection) Disconnected() bool { return c.state == connStateDisconnected }

// Context lets a collaborator (e.g. a protocol decoder sitting above
// this core) stash per-connection state without needing its own
// fd-keyed map.
func (c *TcpConnection) Context() interface{}       { return c.context }
func (c *TcpConnection) SetContext(ctx interface{}) { c.context = ctx }

func (c *TcpConnection) SetHighWaterMarkCallback(cb HighWaterMarkCallback, mark int) {
	c.highWaterMarkCallback = cb
	c.highWaterMark = mark
}

// internal setters used only by TcpServer/TcpClient during setup.
func (c *TcpConnection) setConnectionCallback(cb ConnectionCallback)         { c.connectionCallback = cb }
func (c *TcpConnection) setMessageCallback(cb MessageCallback)               { c.messageCallback = cb }
func (c *TcpConnection) setWriteCompleteCallback(cb WriteCompleteCallback)   { c.writeCompleteCallback = cb }
func (c *TcpConnection) SetCloseCallback(cb CloseCallback)                  { c.closeCallback = cb }

// onConnectionEstablished transitions CONNECTING -> CONNECTED and fires
// the connection callback. Called exactly once, on the owning loop, by
// TcpServer/TcpClient right after construction.
func (c *TcpConnection) onConnectionEstablished() {
	c.loop.assertInLoopThread()

	if c.state != connStateConnecting {
		defaultLogger.Fatalf("tcpconnection: onConnectionEstablished called twice")
	}

	c.state = connStateConnected
	c.channel.EnableReading()

	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
}

// onConnectionDestroyed is called exactly once, on the owning loop,
// when the owning TcpServer/TcpClient has finished removing this
// connection from its own bookkeeping.
func (c *TcpConnection) onConnectionDestroyed() {
	c.loop.assertInLoopThread()

	if c.state == connStateConnected {
		c.state = connStateDisconnected
		c.channel.DisableAll()

		if c.connectionCallback != nil {
			c.connectionCallback(c)
		}
	}

	c.channel.Remove()
	c.socket.Close()
}

// Send queues message for delivery, writing directly if the output
// buffer is currently empty and the connection isn't already blocked on
// a partial write. Safe to call from any goroutine.
func (c *TcpConnection) Send(message []byte) {
	if c.state != connStateConnected {
		return
	}

	if c.loop.IsInLoopThread() {
		c.sendInLoop(message)
	} else {
		msg := append([]byte(nil), message...)
		c.loop.RunInLoop(func() { c.sendInLoop(msg) })
	}
}

// SendString is a convenience wrapper over Send.
func (c *TcpConnection) SendString(message string) {
	c.Send([]byte(message))
}

func (c *TcpConnection) sendInLoop(message []byte) {
	c.loop.assertInLoopThread()

	if c.state == connStateDisconnected {
		defaultLogger.Warnf("tcpconnection: sendInLoop on already-disconnected connection")
		return
	}

	var nwrote int
	remaining := len(message)
	faultError := false

	if !c.channel.IsWriting() && c.outputBuf.ReadableBytes() == 0 {
		n, err := unix.Write(c.channel.Fd(), message)
		if err == nil {
			nwrote = n
			remaining = len(message) - n

			if remaining == 0 && c.writeCompleteCallback != nil {
				cb := c.writeCompleteCallback
				c.loop.QueueInLoop(func() { cb(c) })
			}
		} else if err != unix.EAGAIN {
			if err == unix.EPIPE || err == unix.ECONNRESET {
				faultError = true
			}
		}
	}

	if !faultError && remaining > 0 {
		oldLen := c.outputBuf.ReadableBytes()

		c.outputBuf.Append(message[nwrote:])

		if c.outputBuf.ReadableBytes() >= c.highWaterMark && oldLen < c.highWaterMark && c.highWaterMarkCallback != nil {
			cb := c.highWaterMarkCallback
			size := oldLen + remaining
			c.loop.QueueInLoop(func() { cb(c, size) })
		}

		if !c.channel.IsWriting() {
			c.channel.EnableWriting()
		}
	}
}

func (c *TcpConnection) handleRead(receiveTime timestamp) {
	c.loop.assertInLoopThread()

	n, err := c.inputBuf.ReadFD(c.channel.Fd())

	if n > 0 {
		if c.messageCallback != nil {
			c.messageCallback(c, c.inputBuf, receiveTime)
		}
	} else if n == 0 {
		c.handleClose()
	} else {
		if err != unix.EAGAIN {
			defaultLogger.Errorf("tcpconnection: read: %v", err)
			c.handleError()
		}
	}
}

func (c *TcpConnection) handleWrite() {
	c.loop.assertInLoopThread()

	if !c.channel.IsWriting() {
		defaultLogger.Tracef("tcpconnection: fd %d is down, no more writing", c.channel.Fd())
		return
	}

	n, err := unix.Write(c.channel.Fd(), c.outputBuf.Peek())
	if err != nil {
		if err != unix.EAGAIN {
			defaultLogger.Errorf("tcpconnection: write: %v", err)
		}
		return
	}

	c.outputBuf.Retrieve(n)

	if c.outputBuf.ReadableBytes() == 0 {
		c.channel.DisableWriting()

		if c.writeCompleteCallback != nil {
			cb := c.writeCompleteCallback
			c.loop.QueueInLoop(func() { cb(c) })
		}

		if c.state == connStateDisconnecting {
			c.shutdownInLoop()
		}
	}
}

// Shutdown half-closes the connection for writing once any queued
// output has drained. Safe to call from any goroutine.
func (c *TcpConnection) Shutdown() {
	if c.state != connStateConnected {
		return
	}

	c.state = connStateDisconnecting
	c.loop.RunInLoop(c.shutdownInLoop)
}

func (c *TcpConnection) shutdownInLoop() {
	c.loop.assertInLoopThread()

	if !c.channel.IsWriting() {
		c.socket.ShutdownWrite()
	}
}

// ForceClose closes the connection immediately, discarding any queued
// output. Safe to call from any goroutine.
func (c *TcpConnection) ForceClose() {
	if c.state == connStateConnected || c.state == connStateDisconnecting {
		c.state = connStateDisconnecting
		c.loop.QueueInLoop(c.forceCloseInLoop)
	}
}

func (c *TcpConnection) forceCloseInLoop() {
	c.loop.assertInLoopThread()

	if c.state == connStateConnected || c.state == connStateDisconnecting {
		c.handleClose()
	}
}

func (c *TcpConnection) SetTCPNoDelay(on bool) {
	c.socket.SetTCPNoDelay(on)
}

// TCPInfo reports the OS's TCP_INFO statistics for this connection's
// socket -- retransmits, RTT estimate, congestion window -- the
// observability hook mini_muduo's TcpConnection::getTcpInfo exposes.
func (c *TcpConnection) TCPInfo() (*unix.TCPInfo, error) {
	if c.state == connStateDisconnected {
		return nil, ErrConnClosed
	}
	return c.socket.TCPInfo()
}

func (c *TcpConnection) handleClose() {
	c.loop.assertInLoopThread()

	defaultLogger.Tracef("tcpconnection: handleClose fd=%d state=%d", c.channel.Fd(), c.state)

	c.state = connStateDisconnected
	c.channel.DisableAll()

	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}

	// must run last: this is what tells TcpServer/TcpClient to remove us
	// from their bookkeeping.
	if c.closeCallback != nil {
		c.closeCallback(c)
	}
}

func (c *TcpConnection) handleError() {
	errno := 0
	if v, err := unix.GetsockoptInt(c.channel.Fd(), unix.SOL_SOCKET, unix.SO_ERROR); err == nil {
		errno = v
	}
	defaultLogger.Errorf("tcpconnection: %s socket error %d", c.name, errno)
}
