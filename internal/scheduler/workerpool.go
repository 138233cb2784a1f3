package scheduler

import "sync/atomic"

// WorkerPool is a bounded set of concurrent execution slots (spec §4.4).
// The pool does not own queued work — SchedulerLoop decides what runs and
// calls TryAcquire before spawning a dispatch goroutine.
type WorkerPool struct {
	max     int32
	current atomic.Int32
}

func NewWorkerPool(max int) *WorkerPool {
	return &WorkerPool{max: int32(max)}
}

// TryAcquire attempts a non-blocking slot acquisition.
func (p *WorkerPool) TryAcquire() bool {
	for {
		cur := p.current.Load()
		if cur >= p.max {
			return false
		}
		if p.current.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (p *WorkerPool) Release() {
	p.current.Add(-1)
}

func (p *WorkerPool) InFlight() int {
	return int(p.current.Load())
}

func (p *WorkerPool) Max() int {
	return int(p.max)
}

func (p *WorkerPool) Available() int {
	avail := int(p.max) - p.InFlight()
	if avail < 0 {
		return 0
	}
	return avail
}
