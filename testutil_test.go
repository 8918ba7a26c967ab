package muduo

import (
	"testing"

	"golang.org/x/sys/unix"
)

// boundPort reads back the ephemeral port the kernel picked for a
// TcpServer started against port 0. Must be called after Start.
func boundPort(t *testing.T, server *TcpServer) uint16 {
	t.Helper()

	addr, err := server.acceptor.socket.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}
	return addr.Port()
}

// pipeFDs returns a blocking pipe's (read, write) ends for tests that
// need a real fd to hand to ReadFD/Channel without a full socket pair.
func pipeFDs() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], 0); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func closeFD(fd int) { unix.Close(fd) }

func writeAllFD(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// socketpair returns two connected, blocking Unix-domain sockets for
// tests that exercise Channel/EventLoop readiness without a real TCP
// handshake.
func socketpair() (int, int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}
