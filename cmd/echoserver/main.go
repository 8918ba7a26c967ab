// Command echoserver stands up a mini-muduo TcpServer that echoes back
// whatever it receives, mirroring original_source/examples/echo.
package main

import (
	"log"
	"time"

	"github.com/xtaci/mini-muduo"
)

type echoServer struct {
	server *muduo.TcpServer
}

func newEchoServer(loop *muduo.EventLoop, listenAddr *muduo.InetAddress, nThreads int) (*echoServer, error) {
	server, err := muduo.NewTcpServer(loop, listenAddr, "EchoServer", nThreads, muduo.NoReusePort)
	if err != nil {
		return nil, err
	}

	s := &echoServer{server: server}
	server.SetConnectionCallback(s.onConnection)
	server.SetMessageCallback(s.onMessage)
	return s, nil
}

func (s *echoServer) onConnection(conn *muduo.TcpConnection) {
	state := "DOWN"
	if conn.Connected() {
		state = "UP"
	}
	log.Printf("EchoServer - %s -> %s is %s", conn.PeerAddress().ToIPPort(), conn.LocalAddress().ToIPPort(), state)
}

func (s *echoServer) onMessage(conn *muduo.TcpConnection, buf *muduo.Buffer, receiveTime time.Time) {
	msg := buf.RetrieveAllAsString()
	log.Printf("%s echo %d bytes, data received at %s", conn.Name(), len(msg), receiveTime.Format(time.RFC3339Nano))
	conn.SendString(msg)
}

func (s *echoServer) start() {
	s.server.Start()
}

func main() {
	cfg := loadConfig()

	loop, err := muduo.NewEventLoop()
	if err != nil {
		log.Fatalf("echoserver: new event loop: %v", err)
	}

	listenAddr := muduo.NewInetAddress(cfg.Port, false, cfg.Ipv6)

	srv, err := newEchoServer(loop, listenAddr, cfg.NThreads)
	if err != nil {
		log.Fatalf("echoserver: new server: %v", err)
	}

	srv.start()

	log.Printf("echoserver: listening on %s with %d I/O threads", listenAddr.ToIPPort(), cfg.NThreads)

	loop.Loop()
}
