package muduo

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// TcpClient drives a single outgoing connection, optionally
// reconnecting (via its Connector) whenever the connection drops.
//
// retry and connect are written from Connect/Disconnect/Stop/EnableRetry,
// which are called from any goroutine, and read from the loop goroutine
// in removeConnection, so both are plain int32s manipulated only through
// sync/atomic.
type TcpClient struct {
	loop *EventLoop
	name string

	connector *Connector

	retry   int32 // 0 or 1
	connect int32 // 0 or 1

	connectionCallback    ConnectionCallback
	messageCallback       MessageCallback
	writeCompleteCallback WriteCompleteCallback

	nextConnID int

	mu   sync.Mutex
	conn *TcpConnection
}

// NewTcpClient builds a client targeting serverAddr. Connect must be
// called to actually start connecting.
func NewTcpClient(loop *EventLoop, serverAddr *InetAddress, name string) *TcpClient {
	c := &TcpClient{
		loop:               loop,
		name:               name,
		connector:          NewConnector(loop, serverAddr),
		connect:            1,
		connectionCallback: DefaultConnectionCallback,
		messageCallback:    DefaultMessageCallback,
		nextConnID:         1,
	}

	c.connector.SetNewConnectionCallback(c.onNewConnection)

	defaultLogger.Infof("tcpclient: new[%s]", name)

	return c
}

func (c *TcpClient) SetConnectionCallback(cb ConnectionCallback)       { c.connectionCallback = cb }
func (c *TcpClient) SetMessageCallback(cb MessageCallback)             { c.messageCallback = cb }
func (c *TcpClient) SetWriteCompleteCallback(cb WriteCompleteCallback) { c.writeCompleteCallback = cb }

// EnableRetry makes the client reconnect automatically whenever its
// connection drops.
func (c *TcpClient) EnableRetry() { atomic.StoreInt32(&c.retry, 1) }

func (c *TcpClient) Retry() bool         { return atomic.LoadInt32(&c.retry) != 0 }
func (c *TcpClient) Name() string        { return c.name }
func (c *TcpClient) GetLoop() *EventLoop { return c.loop }

// Connect starts the connection attempt.
func (c *TcpClient) Connect() {
	defaultLogger.Infof("tcpclient: connect[%s] - connecting to %s", c.name, c.connector.ServerAddress().ToIPPort())

	atomic.StoreInt32(&c.connect, 1)
	c.connector.Start()
}

// Disconnect shuts down the current connection (if any) without
// touching the retry flag used by reconnection.
func (c *TcpClient) Disconnect() {
	atomic.StoreInt32(&c.connect, 0)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Shutdown()
	}
}

// Stop cancels any in-flight connection attempt, including a pending
// backoff retry timer. Unlike mini_muduo's destructor, which pins a
// live Connector for one extra second with an AfterFunc hack to avoid
// a use-after-free, Go's garbage collector already keeps the Connector
// alive for as long as its own scheduled timer callback references it
// -- so Stop can simply cancel the connector's retry timer and return.
func (c *TcpClient) Stop() {
	atomic.StoreInt32(&c.connect, 0)
	c.connector.Stop()
}

func (c *TcpClient) onNewConnection(sockFd int) {
	c.loop.assertInLoopThread()

	sock := NewSocket(sockFd)
	peerAddr, err := sock.PeerAddr()
	if err != nil {
		peerAddr = NewInetAddress(0, false, false)
	}
	localAddr, err := sock.LocalAddr()
	if err != nil {
		localAddr = NewInetAddress(0, false, peerAddr.IsIPv6())
	}

	connName := fmt.Sprintf("%s:%s#%d", c.name, peerAddr.ToIPPort(), c.nextConnID)
	c.nextConnID++

	conn := NewTcpConnection(c.loop, connName, sockFd, localAddr, peerAddr)

	conn.setConnectionCallback(c.connectionCallback)
	conn.setMessageCallback(c.messageCallback)
	conn.setWriteCompleteCallback(c.writeCompleteCallback)
	conn.SetCloseCallback(c.removeConnection)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	conn.onConnectionEstablished()
}

func (c *TcpClient) removeConnection(conn *TcpConnection) {
	c.loop.assertInLoopThread()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	c.loop.QueueInLoop(conn.onConnectionDestroyed)

	if c.Retry() && atomic.LoadInt32(&c.connect) != 0 {
		defaultLogger.Infof("tcpclient: connect[%s] - reconnecting to %s", c.name, c.connector.ServerAddress().ToIPPort())
		c.connector.Restart()
	}
}
