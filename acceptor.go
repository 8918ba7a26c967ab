package muduo

import "golang.org/x/sys/unix"

// NewConnectionCallback hands a freshly accept(2)ed fd and its peer
// address to whoever owns the Acceptor (always TcpServer).
type NewConnectionCallback func(connFd int, peerAddr *InetAddress)

// Acceptor owns the listening socket and channel for a TcpServer. It
// never touches LoopThreadPool directly; TcpServer hands each
// accepted connection to the pool itself.
type Acceptor struct {
	loop    *EventLoop
	socket  *Socket
	channel *Channel

	listening bool

	newConnectionCallback NewConnectionCallback

	// idleFd is mini_muduo's EMFILE workaround: when the process is out
	// of file descriptors, accept(2) fails and epoll keeps reporting the
	// listening socket readable forever (the connection sits in the
	// kernel's accept queue with nobody able to claim it). Releasing one
	// spare fd, accepting (and immediately dropping) the stuck
	// connection, then reopening the spare, drains the queue entry
	// without needing a free descriptor for real use.
	idleFd int
}

// NewAcceptor creates a listening-socket acceptor bound to listenAddr.
// reusePort controls whether SO_REUSEPORT is set, letting multiple
// processes/threads share the same listening port.
func NewAcceptor(loop *EventLoop, listenAddr *InetAddress, reusePort bool) (*Acceptor, error) {
	fd, err := createNonblockingSocket(listenAddr.Family())
	if err != nil {
		return nil, err
	}

	socket := NewSocket(fd)
	socket.SetReuseAddr(true)
	socket.SetReusePort(reusePort)
	if err := socket.Bind(listenAddr); err != nil {
		socket.Close()
		return nil, err
	}

	idleFd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		socket.Close()
		return nil, err
	}

	a := &Acceptor{
		loop:    loop,
		socket:  socket,
		channel: NewChannel(loop, fd),
		idleFd:  idleFd,
	}

	a.channel.SetReadCallback(func(timestamp) { a.handleRead() })

	return a, nil
}

func (a *Acceptor) SetNewConnectionCallback(cb NewConnectionCallback) {
	a.newConnectionCallback = cb
}

func (a *Acceptor) Listening() bool { return a.listening }

// Listen starts listening for incoming connections. Must run on the
// acceptor's loop goroutine.
func (a *Acceptor) Listen() error {
	a.loop.assertInLoopThread()

	a.listening = true
	if err := a.socket.Listen(); err != nil {
		return err
	}
	a.channel.EnableReading()
	return nil
}

func (a *Acceptor) Close() {
	a.channel.DisableAll()
	a.channel.Remove()
	unix.Close(a.idleFd)
	a.socket.Close()
}

func (a *Acceptor) handleRead() {
	a.loop.assertInLoopThread()

	connFd, peerAddr, err := a.socket.Accept()
	if err == nil {
		if a.newConnectionCallback != nil {
			a.newConnectionCallback(connFd, peerAddr)
		} else {
			unix.Close(connFd)
		}
		return
	}

	defaultLogger.Errorf("acceptor: accept: %v", err)

	if err == unix.EMFILE {
		unix.Close(a.idleFd)
		a.idleFd, _, _ = unix.Accept(a.socket.Fd())
		unix.Close(a.idleFd)
		a.idleFd, _ = unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	}
}
