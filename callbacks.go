package muduo

// ConnectionCallback is invoked once when a TcpConnection transitions
// to connected, and again when it transitions to disconnected.
type ConnectionCallback func(conn *TcpConnection)

// MessageCallback is invoked whenever new bytes have been read into a
// TcpConnection's input buffer. The callback is responsible for
// retrieving whatever it consumes; bytes left in buf stay there for the
// next call.
type MessageCallback func(conn *TcpConnection, buf *Buffer, receiveTime timestamp)

// WriteCompleteCallback is invoked once a sent message has been fully
// handed to the kernel: either the direct write in Send took all of it,
// or the output buffer has fully drained after a partial write.
type WriteCompleteCallback func(conn *TcpConnection)

// HighWaterMarkCallback is invoked when a TcpConnection's output buffer
// grows past its configured high water mark.
type HighWaterMarkCallback func(conn *TcpConnection, outputBufferBytes int)

// CloseCallback is invoked once, internally, when a TcpConnection has
// fully transitioned to disconnected -- it is how TcpServer/TcpClient
// learn to remove the connection from their own bookkeeping, and is set
// up by them rather than by the application.
type CloseCallback func(conn *TcpConnection)

// DefaultConnectionCallback logs the connection's up/down transition
// and does nothing else -- the same no-op-but-visible default
// mini_muduo ships so that a TcpServer/TcpClient user who only cares
// about messageCallback doesn't have to supply one.
func DefaultConnectionCallback(conn *TcpConnection) {
	state := "DOWN"
	if conn.Connected() {
		state = "UP"
	}
	defaultLogger.Tracef("%s -> %s is %s", conn.LocalAddress().ToIPPort(), conn.PeerAddress().ToIPPort(), state)
}

// DefaultMessageCallback discards whatever was read, so a server that
// forgets to set a real message callback doesn't silently grow its
// input buffer forever.
func DefaultMessageCallback(conn *TcpConnection, buf *Buffer, _ timestamp) {
	buf.RetrieveAll()
}
