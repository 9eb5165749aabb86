package executor

import "runtime"

// WorkerPool is the process-wide shared thread pool: queries are
// otherwise independent, but every parallel join in every
// concurrently-running query submits its per-LHS-tuple tasks onto the same
// bounded set of worker goroutines. A single pool instance is constructed
// at engine startup and injected, then reused across every join in every
// query.
type WorkerPool struct {
	jobs chan func()
	done chan struct{}
}

// NewWorkerPool starts workerCount goroutines draining a shared job queue;
// workerCount <= 0 uses runtime.NumCPU().
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	p := &WorkerPool{
		jobs: make(chan func(), workerCount*4),
		done: make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job()
		case <-p.done:
			return
		}
	}
}

// Submit enqueues job for execution on the pool. It blocks if every worker
// and the queue's buffer are busy; submission back-pressure keeps the
// task backlog bounded.
func (p *WorkerPool) Submit(job func()) {
	select {
	case p.jobs <- job:
	case <-p.done:
	}
}

// Close signals every worker to stop at its next task boundary. Call once
// per pool lifetime.
func (p *WorkerPool) Close() {
	close(p.done)
}
