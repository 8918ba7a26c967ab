package muduo

import (
	"testing"
	"time"
)

func TestAcceptorAcceptsConnection(t *testing.T) {
	thread := NewLoopThread("acceptor")
	loop := thread.StartLoop()
	defer thread.Stop()

	var acceptor *Acceptor
	accepted := make(chan *InetAddress, 1)
	setupDone := make(chan struct{})

	loop.RunInLoop(func() {
		var err error
		acceptor, err = NewAcceptor(loop, NewInetAddress(0, true, false), false)
		if err != nil {
			t.Errorf("new acceptor: %v", err)
			close(setupDone)
			return
		}
		acceptor.SetNewConnectionCallback(func(fd int, peer *InetAddress) {
			closeFD(fd)
			accepted <- peer
		})
		if !acceptor.Listening() {
			if err := acceptor.Listen(); err != nil {
				t.Errorf("listen: %v", err)
			}
		}
		close(setupDone)
	})
	<-setupDone

	if !acceptor.Listening() {
		t.Fatal("acceptor should report listening after Listen")
	}

	addr, err := acceptor.socket.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}
	dialAddr, err := NewInetAddressFromIP("127.0.0.1", addr.Port())
	if err != nil {
		t.Fatalf("dial addr: %v", err)
	}

	clientThread := NewLoopThread("dialer")
	clientLoop := clientThread.StartLoop()
	defer clientThread.Stop()

	clientLoop.RunInLoop(func() {
		c := NewConnector(clientLoop, dialAddr)
		c.SetNewConnectionCallback(func(fd int) { closeFD(fd) })
		c.Start()
	})

	select {
	case peer := <-accepted:
		if peer.Port() == 0 {
			t.Fatal("accepted connection reports a zero peer port")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor never accepted the connection")
	}
}
