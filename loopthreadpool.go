package muduo

import "fmt"

// LoopThreadPool hands out I/O loops to a TcpServer in round robin, so
// accepted connections spread across nThreads independent EventLoops
// instead of all sharing the main (accept) loop.
type LoopThreadPool struct {
	mainLoop *EventLoop
	nThreads int

	next    int
	threads []*LoopThread
	loops   []*EventLoop
}

// NewLoopThreadPool creates a pool that will spin up nThreads I/O
// loops. nThreads == 0 means "no extra loops" -- GetNextLoop always
// returns mainLoop in that case, exactly as mini_muduo's single-
// threaded mode does.
func NewLoopThreadPool(mainLoop *EventLoop, nThreads int) *LoopThreadPool {
	return &LoopThreadPool{mainLoop: mainLoop, nThreads: nThreads}
}

// Start spins up the pool's threads. Must run on mainLoop's goroutine.
func (p *LoopThreadPool) Start() {
	p.mainLoop.assertInLoopThread()

	for i := 0; i < p.nThreads; i++ {
		t := NewLoopThread(fmt.Sprintf("LoopThread#%d", i))
		p.threads = append(p.threads, t)
		p.loops = append(p.loops, t.StartLoop())
	}
}

// Stop quits and joins every I/O thread.
func (p *LoopThreadPool) Stop() {
	for _, t := range p.threads {
		t.Stop()
	}
}

// GetNextLoop returns the next I/O loop in round-robin order.
func (p *LoopThreadPool) GetNextLoop() *EventLoop {
	if p.nThreads == 0 {
		return p.mainLoop
	}

	loop := p.loops[p.next]
	p.next = (p.next + 1) % p.nThreads
	return loop
}
