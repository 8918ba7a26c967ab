package muduo

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newLoopbackServer(t *testing.T, name string, nThreads int) (*TcpServer, *EventLoop, *LoopThread) {
	t.Helper()

	thread := NewLoopThread(name + "-main")
	loop := thread.StartLoop()

	var server *TcpServer
	var setupErr error
	done := make(chan struct{})

	loop.RunInLoop(func() {
		server, setupErr = NewTcpServer(loop, NewInetAddress(0, true, false), name, nThreads, NoReusePort)
		close(done)
	})
	<-done

	if setupErr != nil {
		thread.Stop()
		t.Fatalf("new tcp server: %v", setupErr)
	}

	return server, loop, thread
}

func TestTcpServerEchoesMessage(t *testing.T) {
	server, loop, thread := newLoopbackServer(t, "EchoServer", 1)
	defer thread.Stop()

	var port uint16
	addrDone := make(chan struct{})

	server.SetMessageCallback(func(conn *TcpConnection, buf *Buffer, _ time.Time) {
		msg := buf.RetrieveAllAsString()
		conn.SendString(msg)
	})

	loop.RunInLoop(func() {
		server.Start()
		port = boundPort(t, server)
		close(addrDone)
	})
	<-addrDone

	clientThread := NewLoopThread("client")
	clientLoop := clientThread.StartLoop()
	defer clientThread.Stop()

	addr, err := NewInetAddressFromIP("127.0.0.1", port)
	if err != nil {
		t.Fatalf("address: %v", err)
	}

	echoed := make(chan string, 1)

	clientLoop.RunInLoop(func() {
		client := NewTcpClient(clientLoop, addr, "EchoClient")
		client.SetConnectionCallback(func(conn *TcpConnection) {
			if conn.Connected() {
				conn.SendString("hello\r\n")
			}
		})
		client.SetMessageCallback(func(conn *TcpConnection, buf *Buffer, _ time.Time) {
			echoed <- buf.RetrieveAllAsString()
		})
		client.Connect()
	})

	select {
	case msg := <-echoed:
		if msg != "hello\r\n" {
			t.Fatalf("echoed = %q, want %q", msg, "hello\r\n")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("never received echo")
	}
}

// TestTcpConnectionHighWaterMarkCallback reproduces the literal
// high-water scenario: a connection with a 1024-byte mark sends 2048
// bytes while the peer reads nothing, and the callback must fire
// exactly once with outBufSize == 2048. The peer side is a bare fd with
// no Channel/loop ever registered for it, so nothing ever drains its
// receive buffer; the sender's kernel send buffer is pre-filled by a
// raw write before the real Send call so the direct-write fast path in
// sendInLoop sees the socket already full and buffers the whole message.
func TestTcpConnectionHighWaterMarkCallback(t *testing.T) {
	a, b, err := socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer closeFD(b) // peer: never read from, ever

	if err := unix.SetNonblock(a, true); err != nil {
		t.Fatalf("set nonblock: %v", err)
	}

	// fill the kernel send buffer on `a` (and, transitively, b's
	// receive buffer) so the next write through muduo cannot complete
	// inline.
	filler := make([]byte, 4096)
	for {
		_, err := unix.Write(a, filler)
		if err == unix.EAGAIN {
			break
		}
		if err != nil {
			t.Fatalf("fill send buffer: %v", err)
		}
	}

	thread := NewLoopThread("hwm")
	loop := thread.StartLoop()
	defer thread.Stop()

	const mark = 1024
	const messageSize = 2048

	fired := make(chan int, 1)
	done := make(chan struct{})

	loop.RunInLoop(func() {
		local := NewInetAddress(0, true, false)
		conn := NewTcpConnection(loop, "hwm-test", a, local, local)
		conn.SetHighWaterMarkCallback(func(_ *TcpConnection, size int) {
			fired <- size
		}, mark)
		conn.onConnectionEstablished()

		conn.Send(make([]byte, messageSize))
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("setup never completed")
	}

	select {
	case size := <-fired:
		if size != messageSize {
			t.Fatalf("high water mark callback size = %d, want %d", size, messageSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("high water mark callback never fired")
	}

	select {
	case <-fired:
		t.Fatal("high water mark callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}
