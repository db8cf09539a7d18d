package transfer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/ratelimit"
)

// EventType names a transfer event
type EventType string

const (
	EventStart    EventType = "file_start"
	EventProgress EventType = "file_progress"
	EventComplete EventType = "file_complete"
	EventError    EventType = "file_error"
)

// Event reports progress of one task
type Event struct {
	Type  EventType
	Name  string
	Bytes int64 // bytes transferred so far
	Total int64 // expected size, -1 when unknown
	Index int   // 1-based position of the task
	Count int   // number of tasks in the run
	Err   error
}

// Observer receives transfer events. Calls are serialized by the pool.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// OnEvent calls f
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Func transfers one task. wrap must be applied to the data stream so that
// bandwidth limiting and progress reporting take effect. It returns the
// number of bytes moved.
type Func func(ctx context.Context, task *Task, wrap func(io.Reader) io.Reader) (int64, error)

// PoolConfig configures a Pool
type PoolConfig struct {
	MaxWorkers int
	Limiter    *ratelimit.Limiter // shared by every worker; nil is unlimited
	Observer   Observer
	Logger     logging.Logger
}

// Pool runs transfers with at most MaxWorkers in flight
type Pool struct {
	maxWorkers int
	limiter    *ratelimit.Limiter
	observer   Observer
	logger     logging.Logger
	emitMu     sync.Mutex
}

// NewPool creates a worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &Pool{
		maxWorkers: cfg.MaxWorkers,
		limiter:    cfg.Limiter,
		observer:   cfg.Observer,
		logger:     logging.OrNull(cfg.Logger),
	}
}

// MaxWorkers returns the concurrency bound
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

func (p *Pool) emit(e Event) {
	if p.observer == nil {
		return
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.observer.OnEvent(e)
}

// Run executes fn for every task and waits for all of them. Each task's
// status records its outcome; the first error is returned. Tasks not yet
// started when ctx is cancelled fail with the context error.
func (p *Pool) Run(ctx context.Context, tasks []*Task, fn Func) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	semaphore := make(chan struct{}, p.maxWorkers)

	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i, task := range tasks {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			task.MarkError(ctx.Err(), 0)
			record(ctx.Err())
			continue
		}

		wg.Add(1)
		go func(task *Task, index int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			task.MarkProcessing(index)
			start := time.Now()
			p.emit(Event{Type: EventStart, Name: task.Label(), Total: task.Size, Index: index, Count: len(tasks)})

			wrap := func(r io.Reader) io.Reader {
				return &progressReader{
					reader:         ratelimit.NewReader(ctx, r, p.limiter),
					lastReportTime: time.Now(),
					onProgress: func(read int64) {
						p.emit(Event{Type: EventProgress, Name: task.Label(), Bytes: read, Total: task.Size, Index: index, Count: len(tasks)})
					},
				}
			}

			n, err := fn(ctx, task, wrap)
			if err != nil {
				task.MarkError(err, time.Since(start))
				p.logger.Warn(ctx, "transfer failed", logging.Fields{"file": task.Label(), "error": err.Error()})
				p.emit(Event{Type: EventError, Name: task.Label(), Bytes: n, Total: task.Size, Index: index, Count: len(tasks), Err: err})
				record(err)
				return
			}

			task.MarkCompleted(n, time.Since(start))
			p.logger.Debug(ctx, "transfer completed", logging.Fields{"file": task.Label(), "bytes": n, "duration": task.Duration.String()})
			p.emit(Event{Type: EventComplete, Name: task.Label(), Bytes: n, Total: task.Size, Index: index, Count: len(tasks)})
		}(task, i+1)
	}

	wg.Wait()
	return firstErr
}

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)

	// Report every 64KB, every 50ms, and once the stream ends
	if pr.onProgress != nil && pr.read > pr.lastReported {
		shouldReport := pr.read-pr.lastReported >= progressReportBytes ||
			time.Since(pr.lastReportTime) >= progressReportInterval ||
			err != nil

		if shouldReport {
			pr.onProgress(pr.read)
			pr.lastReported = pr.read
			pr.lastReportTime = time.Now()
		}
	}
	return n, err
}
