package muduo

import "sync"

// LoopThread runs one EventLoop on a dedicated goroutine, the unit
// LoopThreadPool composes N of. Mirrors mini_muduo's EventLoopThread:
// the loop is constructed inside the goroutine itself (so its
// goroutine-affinity capture lines up) and StartLoop blocks the caller
// until that construction has happened.
type LoopThread struct {
	name string

	mu   sync.Mutex
	cond *sync.Cond
	loop *EventLoop

	done chan struct{}
}

// NewLoopThread creates a LoopThread; name is used only for logging.
func NewLoopThread(name string) *LoopThread {
	t := &LoopThread{name: name, done: make(chan struct{})}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// StartLoop spawns the goroutine, waits for its EventLoop to exist, and
// returns it.
func (t *LoopThread) StartLoop() *EventLoop {
	go t.run()

	t.mu.Lock()
	for t.loop == nil {
		t.cond.Wait()
	}
	loop := t.loop
	t.mu.Unlock()

	return loop
}

func (t *LoopThread) run() {
	loop, err := NewEventLoop()
	if err != nil {
		defaultLogger.Fatalf("loopthread[%s]: new event loop: %v", t.name, err)
	}

	t.mu.Lock()
	t.loop = loop
	t.cond.Signal()
	t.mu.Unlock()

	loop.Loop()
	loop.Close()

	close(t.done)
}

// Stop asks the thread's loop to quit and waits for its goroutine to
// exit.
func (t *LoopThread) Stop() {
	t.mu.Lock()
	loop := t.loop
	t.mu.Unlock()

	if loop == nil {
		return
	}

	loop.Quit()
	<-t.done
}
