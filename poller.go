package muduo

import "time"

// pollResult is what a platform poller hands back from one Poll call:
// the channels that became ready and the time the poll returned, used as
// the (approximate) receive timestamp handed to read callbacks.
type pollResult struct {
	receiveTime timestamp
	active      []*Channel
}

// poller is the demultiplexer interface each platform backend
// (poller_linux.go's epoll, poller_bsd.go's kqueue) implements. An
// EventLoop owns exactly one poller for its lifetime.
type poller interface {
	// poll blocks for at most timeout waiting for I/O readiness,
	// returning the channels that became ready.
	poll(timeout time.Duration) (pollResult, error)

	// updateChannel registers ch's current interest mask with the OS,
	// or updates it if ch is already registered. Mirrors EPoller::
	// updateChannel's NEW/ADDED/IGNORED state machine.
	updateChannel(ch *Channel)

	// removeChannel unregisters ch. ch must be in the ADDED or IGNORED
	// state (i.e. it must have been updateChannel'd before).
	removeChannel(ch *Channel)

	close() error
}

// initialEventListSize is the starting capacity of a poller's
// ready-event scratch buffer; it doubles whenever a poll call fills it
// completely, mirroring EPoller's kEventListInitSize growth policy.
const initialEventListSize = 16
