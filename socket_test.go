package muduo

import (
	"testing"

	"golang.org/x/sys/unix"
)

// TestSocketSelfConnectDetection reproduces the literal self-connect
// scenario: a socket bound to an ephemeral loopback port that then
// connects to that very port on itself ends up with identical local and
// peer addresses, which IsSelfConnect must catch.
func TestSocketSelfConnectDetection(t *testing.T) {
	fd, err := createNonblockingSocket(unix.AF_INET)
	if err != nil {
		t.Fatalf("create socket: %v", err)
	}
	defer unix.Close(fd)

	sock := NewSocket(fd)

	bindAddr := NewInetAddress(0, true, false)
	if err := sock.Bind(bindAddr); err != nil {
		t.Fatalf("bind: %v", err)
	}

	local, err := sock.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}

	selfAddr, err := NewInetAddressFromIP("127.0.0.1", local.Port())
	if err != nil {
		t.Fatalf("self addr: %v", err)
	}

	connErr := sock.Connect(selfAddr)
	if connErr != nil && connErr != unix.EINPROGRESS {
		t.Fatalf("connect: %v", connErr)
	}

	if connErr == unix.EINPROGRESS {
		pollfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		if _, err := unix.Poll(pollfds, 2000); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}

	if errno := sock.SocketError(); errno != 0 {
		t.Fatalf("socket error after connecting to self: errno %d", errno)
	}

	if !sock.IsSelfConnect() {
		local, _ := sock.LocalAddr()
		peer, _ := sock.PeerAddr()
		t.Fatalf("IsSelfConnect = false, local = %v, peer = %v", local, peer)
	}
}
