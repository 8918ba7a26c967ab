package muduo

import "errors"

// Sentinel errors returned by the core. Peer-caused and transient I/O
// conditions are classified by syscall.Errno at the call site instead of
// being wrapped here; these are the conditions callers need to branch on.
var (
	// ErrConnClosed is returned by TCPInfo calls made against a
	// TcpConnection that has already reached the disconnected state.
	ErrConnClosed = errors.New("muduo: connection closed")

	// ErrLoopAlreadyRunning is returned by NewEventLoop when the calling
	// goroutine already owns a live EventLoop.
	ErrLoopAlreadyRunning = errors.New("muduo: loop already running")

	// ErrTimerNotFound is logged by TimerQueue.cancel when the timer id
	// does not refer to a live timer (already fired and non-repeating, or
	// already canceled).
	ErrTimerNotFound = errors.New("muduo: timer not found")

	// ErrSelfConnect is reported through a Connector's warning log line when
	// a non-blocking connect raced itself into a loopback self-connection.
	ErrSelfConnect = errors.New("muduo: self connect")
)
