package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrPoolStopped is returned when work is submitted to a stopped pool
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrTaskPanicked is returned when a task panics
	ErrTaskPanicked = errors.New("task panicked")
)

// Config holds worker pool configuration
type Config struct {
	Logger      *slog.Logger
	Name        string
	Concurrency int
	QueueSize   int
	// LockOSThread pins each worker goroutine to its OS thread for the
	// lifetime of the pool. Required for COM automation.
	LockOSThread bool
}

type task struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context) error
	done chan error
}

// Pool runs heavy external work on a bounded set of goroutines so request
// handlers never block on subprocesses beyond their own job
type Pool struct {
	logger       *slog.Logger
	name         string
	concurrency  int
	lockOSThread bool

	tasks     chan task
	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a new pool. Call Start before submitting work.
func NewPool(cfg *Config) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	name := cfg.Name
	if name == "" {
		name = "worker"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		logger:       logger,
		name:         name,
		concurrency:  concurrency,
		lockOSThread: cfg.LockOSThread,
		tasks:        make(chan task, queueSize),
		stopChan:     make(chan struct{}),
	}
}

// Start spawns the worker goroutines
func (p *Pool) Start() {
	p.startOnce.Do(p.spawnWorkerPool)
}

// Stop signals every worker to exit and waits for running tasks to finish.
// Queued tasks that never started fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool", slog.String("pool", p.name))
		close(p.stopChan)
		p.wg.Wait()
		p.logger.Info("Worker pool stopped", slog.String("pool", p.name))
	})
}

// Do runs fn on a pool worker and waits for its result. It returns early with
// ctx.Err() if ctx ends first; fn receives the same ctx and is expected to
// abandon its work.
func (p *Pool) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	t := task{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}

	select {
	case <-p.stopChan:
		return ErrPoolStopped
	default:
	}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		return ErrPoolStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		// a task already running still gets to report
		select {
		case err := <-t.done:
			return err
		default:
			return ErrPoolStopped
		}
	}
}

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (p *Pool) spawnWorkerPool() {
	p.logger.Info("Spawning worker pool",
		slog.String("pool", p.name),
		slog.Int("concurrency", p.concurrency),
		slog.Bool("lock_os_thread", p.lockOSThread),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (p *Pool) workerLoop(workerNum int) {
	defer p.wg.Done()

	if p.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	workerName := fmt.Sprintf("%s-%d", p.name, workerNum)
	p.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug("Worker goroutine stopping", slog.String("worker_name", workerName))
			return

		case t := <-p.tasks:
			if err := t.ctx.Err(); err != nil {
				t.done <- err
				continue
			}

			start := time.Now()
			err := p.runTask(t)
			p.logger.Debug("Task finished",
				slog.String("worker_name", workerName),
				slog.String("task", t.name),
				slog.Duration("duration", time.Since(start)),
				slog.Bool("failed", err != nil),
			)
			t.done <- err
		}
	}
}

func (p *Pool) runTask(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked",
				slog.String("pool", p.name),
				slog.String("task", t.name),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("%s: %w: %v", t.name, ErrTaskPanicked, r)
		}
	}()

	return t.fn(t.ctx)
}
