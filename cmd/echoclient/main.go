// Command echoclient connects to an echoserver, sends a line, and logs
// whatever comes back -- the client half of
// original_source/examples/echo.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/xtaci/mini-muduo"
)

type echoClient struct {
	client  *muduo.TcpClient
	message string
}

func newEchoClient(loop *muduo.EventLoop, serverAddr *muduo.InetAddress, message string) *echoClient {
	c := &echoClient{
		client:  muduo.NewTcpClient(loop, serverAddr, "EchoClient"),
		message: message,
	}
	c.client.SetConnectionCallback(c.onConnection)
	c.client.SetMessageCallback(c.onMessage)
	return c
}

func (c *echoClient) connect() {
	c.client.Connect()
}

func (c *echoClient) onConnection(conn *muduo.TcpConnection) {
	if conn.Connected() {
		log.Printf("echoclient: connected to %s, sending %q", conn.PeerAddress().ToIPPort(), c.message)
		conn.SendString(c.message)
	} else {
		log.Printf("echoclient: disconnected from %s", conn.PeerAddress().ToIPPort())
	}
}

func (c *echoClient) onMessage(conn *muduo.TcpConnection, buf *muduo.Buffer, receiveTime time.Time) {
	msg := buf.RetrieveAllAsString()
	log.Printf("echoclient: received %q (%d bytes) at %s", msg, len(msg), receiveTime.Format(time.RFC3339Nano))
}

func main() {
	host := flag.String("host", "127.0.0.1", "echoserver host")
	port := flag.Uint("port", 2007, "echoserver port")
	message := flag.String("message", "hello\r\n", "message to send once connected")
	flag.Parse()

	loop, err := muduo.NewEventLoop()
	if err != nil {
		log.Fatalf("echoclient: new event loop: %v", err)
	}

	serverAddr, err := muduo.NewInetAddressFromIP(*host, uint16(*port))
	if err != nil {
		log.Fatalf("echoclient: %v", err)
	}

	client := newEchoClient(loop, serverAddr, *message)
	client.connect()

	loop.Loop()
}
