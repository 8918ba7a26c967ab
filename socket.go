package muduo

import "golang.org/x/sys/unix"

// Socket owns one file descriptor and the option-setting and listen/
// accept/shutdown operations mini_muduo's socket_ops namespace performs
// on it. It does not own a Channel; callers pair a Socket's fd with a
// Channel themselves (see Acceptor, Connector, TcpConnection).
type Socket struct {
	fd int
}

// NewSocket wraps an already-created fd.
func NewSocket(fd int) *Socket { return &Socket{fd: fd} }

func (s *Socket) Fd() int { return s.fd }

// createNonblockingSocket opens a non-blocking, close-on-exec TCP
// socket for the given address family, mirroring socket_ops::
// createNonblockingOrDie.
func createNonblockingSocket(family int) (int, error) {
	return unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
}

func (s *Socket) Bind(addr *InetAddress) error {
	return unix.Bind(s.fd, addr.sockaddr())
}

func (s *Socket) Listen() error {
	return unix.Listen(s.fd, unix.SOMAXCONN)
}

// Accept accepts one pending connection, returning the new fd (already
// non-blocking and close-on-exec) and the peer's address.
func (s *Socket) Accept() (int, *InetAddress, error) {
	connFd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, err
	}
	return connFd, addressFromSockaddr(sa), nil
}

func (s *Socket) ShutdownWrite() error {
	return unix.Shutdown(s.fd, unix.SHUT_WR)
}

func (s *Socket) SetTCPNoDelay(on bool) error {
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(on))
}

func (s *Socket) SetReuseAddr(on bool) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(on))
}

func (s *Socket) SetReusePort(on bool) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(on))
}

func (s *Socket) SetKeepAlive(on bool) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolToInt(on))
}

// Connect issues a non-blocking connect(2). A nil error or EINPROGRESS
// both mean "in progress, watch for writability"; the caller (Connector)
// does the errno classification mini_muduo's Connector::connect does.
func (s *Socket) Connect(addr *InetAddress) error {
	return unix.Connect(s.fd, addr.sockaddr())
}

// SocketError returns the pending SO_ERROR on the socket, as reported
// after a non-blocking connect becomes writable.
func (s *Socket) SocketError() int {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return int(err.(unix.Errno))
	}
	return errno
}

func (s *Socket) LocalAddr() (*InetAddress, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil, err
	}
	return addressFromSockaddr(sa), nil
}

func (s *Socket) PeerAddr() (*InetAddress, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return nil, err
	}
	return addressFromSockaddr(sa), nil
}

// IsSelfConnect reports whether a connected socket raced into
// connecting to itself (the local ephemeral port happened to equal the
// target and the kernel looped the connection back), the same guard
// Connector::handleWrite applies before handing the fd off as a real
// connection.
func (s *Socket) IsSelfConnect() bool {
	local, err := s.LocalAddr()
	if err != nil {
		return false
	}
	peer, err := s.PeerAddr()
	if err != nil {
		return false
	}
	return local.Port() == peer.Port() && local.IP() == peer.IP()
}

// TCPInfo returns the kernel's TCP_INFO statistics for the socket.
func (s *Socket) TCPInfo() (*unix.TCPInfo, error) {
	return unix.GetsockoptTCPInfo(s.fd, unix.IPPROTO_TCP, unix.TCP_INFO)
}

func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
