package muduo

import (
	"fmt"
	"sync"
)

// TcpServer Option controls whether the listening socket sets
// SO_REUSEPORT, letting several TcpServer processes (or threads, each
// with its own acceptor) share one listening port and let the kernel
// load-balance accept(2) calls between them.
type TcpServerOption int

const (
	NoReusePort TcpServerOption = iota
	ReusePort
)

// TcpServer accepts inbound connections on listenAddr and dispatches
// each to an I/O loop from its LoopThreadPool, round robin.
type TcpServer struct {
	mainLoop *EventLoop
	name     string
	ipPort   string

	threadPool *LoopThreadPool
	acceptor   *Acceptor

	startOnce sync.Once

	connectionCallback    ConnectionCallback
	messageCallback       MessageCallback
	writeCompleteCallback WriteCompleteCallback

	nextConnID int

	mu          sync.Mutex
	connections map[string]*TcpConnection
}

// NewTcpServer builds a server that will listen on listenAddr once
// Start is called, dispatching accepted connections across nThreads
// I/O loops (0 means the accept loop itself handles all I/O too).
func NewTcpServer(mainLoop *EventLoop, listenAddr *InetAddress, name string, nThreads int, option TcpServerOption) (*TcpServer, error) {
	s := &TcpServer{
		mainLoop:              mainLoop,
		name:                  name,
		ipPort:                listenAddr.ToIPPort(),
		threadPool:            NewLoopThreadPool(mainLoop, nThreads),
		connectionCallback:    DefaultConnectionCallback,
		messageCallback:       DefaultMessageCallback,
		nextConnID:            1,
		connections:           make(map[string]*TcpConnection),
	}

	acceptor, err := NewAcceptor(mainLoop, listenAddr, option == ReusePort)
	if err != nil {
		return nil, err
	}
	s.acceptor = acceptor
	acceptor.SetNewConnectionCallback(s.onNewConnection)

	return s, nil
}

func (s *TcpServer) SetConnectionCallback(cb ConnectionCallback)       { s.connectionCallback = cb }
func (s *TcpServer) SetMessageCallback(cb MessageCallback)             { s.messageCallback = cb }
func (s *TcpServer) SetWriteCompleteCallback(cb WriteCompleteCallback) { s.writeCompleteCallback = cb }

// Start begins listening. Harmless to call more than once; only the
// first call takes effect. Must run on the main loop's goroutine, since
// starting the thread pool asserts that.
func (s *TcpServer) Start() {
	s.startOnce.Do(func() {
		s.threadPool.Start()
		s.mainLoop.RunInLoop(func() {
			if err := s.acceptor.Listen(); err != nil {
				defaultLogger.Fatalf("tcpserver: listen: %v", err)
			}
		})
	})
}

// Stop tears down every connection and joins the I/O thread pool. Must
// run on the main loop's goroutine.
func (s *TcpServer) Stop() {
	s.mainLoop.assertInLoopThread()

	s.mu.Lock()
	conns := make([]*TcpConnection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		c := conn
		c.GetLoop().RunInLoop(func() { c.onConnectionDestroyed() })
	}

	s.acceptor.Close()
	s.threadPool.Stop()
}

func (s *TcpServer) onNewConnection(sockFd int, peerAddr *InetAddress) {
	s.mainLoop.assertInLoopThread()

	connName := fmt.Sprintf("%s-%s#%d", s.name, s.ipPort, s.nextConnID)
	s.nextConnID++

	defaultLogger.Infof("tcpserver: newConnection [%s] - new connection [%s] from %s", s.name, connName, peerAddr.ToIPPort())

	localSock := NewSocket(sockFd)
	localAddr, err := localSock.LocalAddr()
	if err != nil {
		localAddr = NewInetAddress(0, false, peerAddr.IsIPv6())
	}

	ioLoop := s.threadPool.GetNextLoop()

	conn := NewTcpConnection(ioLoop, connName, sockFd, localAddr, peerAddr)

	s.mu.Lock()
	s.connections[connName] = conn
	s.mu.Unlock()

	conn.setConnectionCallback(s.connectionCallback)
	conn.setMessageCallback(s.messageCallback)
	conn.setWriteCompleteCallback(s.writeCompleteCallback)
	conn.SetCloseCallback(s.removeConnection)

	ioLoop.RunInLoop(conn.onConnectionEstablished)
}

func (s *TcpServer) removeConnection(conn *TcpConnection) {
	s.mainLoop.RunInLoop(func() { s.removeConnectionInLoop(conn) })
}

func (s *TcpServer) removeConnectionInLoop(conn *TcpConnection) {
	s.mainLoop.assertInLoopThread()

	defaultLogger.Infof("tcpserver: removeConnectionInLoop [%s] - connection %s", s.name, conn.Name())

	s.mu.Lock()
	delete(s.connections, conn.Name())
	s.mu.Unlock()

	conn.GetLoop().QueueInLoop(conn.onConnectionDestroyed)
}
