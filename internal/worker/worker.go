package worker

import (
	"sync"
)

// Job is a unit of work executed by the Worker. The Worker never inspects
// a job's behaviour; a job that fails does so on its own terms; the loop
// must survive it, including panics.
type Job func()

// Logger defines the logging interface used by the Worker.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// state is the lifecycle state of a Worker.
//
// The three states exist because queue acceptance differs around Start and
// Stop: jobs pushed to a fresh worker accumulate until the first Start,
// but jobs pushed after a Stop are dropped until the worker is started
// again.
type state int

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

// Worker runs submitted jobs on a single background goroutine, in
// submission order, exactly once each. It decouples the goroutine that
// submits a job from the goroutine that runs it: Push never blocks on
// job execution.
//
// The run loop drains the entire pending queue into a local batch on each
// wake-up, so a burst of pushes is served without per-job lock traffic.
//
// Stop terminates the background goroutine, waits for it to finish the
// batch it is executing, and discards anything still queued; there is
// deliberately no drain guarantee on shutdown. A stopped Worker can be
// started again.
//
// All methods are safe for concurrent use from multiple goroutines.
type Worker struct {
	// lifecycle guards the state and the per-run channels.
	lifecycle sync.Mutex
	state     state
	stopCh    chan struct{}
	doneCh    chan struct{}

	// queueMu guards the pending job queue only, so Push never contends
	// with a Stop that is waiting on the run loop.
	queueMu  sync.Mutex
	jobs     []Job
	executed uint64

	// wake signals the run loop that the queue is non-empty. Buffered so
	// a send never blocks the pusher; one pending signal is enough because
	// the loop drains the whole queue per wake-up.
	wake chan struct{}

	logger Logger
}

// New creates a Worker. The worker is not running until Start is called;
// jobs pushed before the first Start accumulate and run once it starts.
func New() *Worker {
	return &Worker{
		wake:   make(chan struct{}, 1),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the worker. Call before Start.
func (w *Worker) SetLogger(logger Logger) {
	w.logger = logger
}

// Push appends job to the tail of the queue and wakes the worker if it is
// idle. It never blocks on job execution. Pushing a nil job is a no-op.
//
// Jobs pushed to a worker that has been stopped are dropped until the
// next Start; jobs pushed to a fresh, never-started worker are queued.
func (w *Worker) Push(job Job) {
	if job == nil {
		return
	}

	w.lifecycle.Lock()
	if w.state == stateStopped {
		w.lifecycle.Unlock()
		w.logger.Debug("job dropped, worker stopped")
		return
	}
	w.lifecycle.Unlock()

	w.queueMu.Lock()
	w.jobs = append(w.jobs, job)
	w.queueMu.Unlock()

	w.signal()
}

// signal delivers a non-blocking wake-up to the run loop.
func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start launches the background goroutine if it is not already running.
//
// It returns true when this call started the worker and false when the
// worker was already running. If wait is true, Start does not return
// until the background goroutine has begun polling its queue.
//
// Only one background goroutine exists per Worker at a time.
func (w *Worker) Start(wait bool) bool {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.state == stateRunning {
		return false
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.state = stateRunning

	started := make(chan struct{})
	go func(stopCh, doneCh chan struct{}) {
		close(started)
		defer close(doneCh)
		w.loop(stopCh)
	}(w.stopCh, w.doneCh)

	if wait {
		<-started
	}

	// Serve anything queued before this start.
	w.signal()

	return true
}

// Stop requests the background goroutine to terminate, waits for it to
// finish the batch it is executing, then discards any jobs still queued.
// Pending jobs submitted before Stop but not yet picked up are lost.
//
// Stop is idempotent; stopping an unstarted or already-stopped worker is
// a no-op.
func (w *Worker) Stop() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.state != stateRunning {
		return
	}

	close(w.stopCh)
	<-w.doneCh
	w.state = stateStopped

	// Discard unrun work and any stale wake-up so a later Start begins
	// with a clean queue.
	w.queueMu.Lock()
	dropped := len(w.jobs)
	w.jobs = nil
	w.queueMu.Unlock()

	select {
	case <-w.wake:
	default:
	}

	if dropped > 0 {
		w.logger.Debug("worker stopped with queued jobs discarded", "dropped", dropped)
	}
}

// loop is the body of the background goroutine. It waits until the queue
// is non-empty or a stop is requested, swaps the entire pending queue into
// a local batch, and runs every job in that batch to completion, in order.
func (w *Worker) loop(stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-w.wake:
			// A stop request outranks pending work: jobs left in the
			// queue at stop time are discarded, not run.
			select {
			case <-stopCh:
				return
			default:
			}
		}

		w.queueMu.Lock()
		batch := w.jobs
		w.jobs = nil
		w.queueMu.Unlock()

		for _, job := range batch {
			w.run(job)
		}
	}
}

// run executes a single job, converting a panic into a logged failure so
// one bad job cannot stop the loop or affect the jobs behind it.
func (w *Worker) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panic recovered", "panic", r)
		}
	}()

	job()

	w.queueMu.Lock()
	w.executed++
	w.queueMu.Unlock()
}

// Stats holds diagnostic counters for a Worker.
//
// This is the diagnostic surface in place of a native thread handle:
// goroutines have no identity to expose, so callers observe the worker's
// state instead of its thread.
type Stats struct {
	Running  bool   `json:"running"`
	Queued   int    `json:"queued"`
	Executed uint64 `json:"executed"`
}

// Stats returns a snapshot of the worker's diagnostic counters.
func (w *Worker) Stats() Stats {
	w.lifecycle.Lock()
	running := w.state == stateRunning
	w.lifecycle.Unlock()

	w.queueMu.Lock()
	queued := len(w.jobs)
	executed := w.executed
	w.queueMu.Unlock()

	return Stats{
		Running:  running,
		Queued:   queued,
		Executed: executed,
	}
}

// Running reports whether the background goroutine is active.
func (w *Worker) Running() bool {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	return w.state == stateRunning
}
