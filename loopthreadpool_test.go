package muduo

import "testing"

func TestLoopThreadPoolRoundRobin(t *testing.T) {
	thread := NewLoopThread("main")
	mainLoop := thread.StartLoop()
	defer thread.Stop()

	done := make(chan struct{})
	var pool *LoopThreadPool

	mainLoop.RunInLoop(func() {
		pool = NewLoopThreadPool(mainLoop, 3)
		pool.Start()
		close(done)
	})
	<-done
	defer func() {
		stopped := make(chan struct{})
		mainLoop.RunInLoop(func() {
			pool.Stop()
			close(stopped)
		})
		<-stopped
	}()

	seen := make(map[*EventLoop]int)
	for i := 0; i < 9; i++ {
		seen[pool.GetNextLoop()]++
	}

	if len(seen) != 3 {
		t.Fatalf("round robin visited %d distinct loops, want 3", len(seen))
	}
	for loop, count := range seen {
		if count != 3 {
			t.Fatalf("loop %p visited %d times, want 3", loop, count)
		}
		if loop == mainLoop {
			t.Fatal("pool with nThreads > 0 should never hand out the main loop")
		}
	}
}

func TestLoopThreadPoolZeroThreadsReturnsMainLoop(t *testing.T) {
	thread := NewLoopThread("main")
	mainLoop := thread.StartLoop()
	defer thread.Stop()

	pool := NewLoopThreadPool(mainLoop, 0)

	done := make(chan struct{})
	mainLoop.RunInLoop(func() {
		pool.Start()
		close(done)
	})
	<-done

	for i := 0; i < 3; i++ {
		if pool.GetNextLoop() != mainLoop {
			t.Fatal("pool with nThreads == 0 must always return the main loop")
		}
	}
}
