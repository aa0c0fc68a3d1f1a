package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/vidmill/vidmill/internal/config"
	"github.com/vidmill/vidmill/internal/queue"
)

// errNoJobs signals an empty queue to the worker loop.
var errNoJobs = errors.New("no jobs available")

// Processor runs one dequeued job to a terminal status.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// Pool runs a fixed number of workers polling the job queue.
type Pool struct {
	mu sync.RWMutex

	queue     queue.Queue
	processor Processor
	logger    *slog.Logger
	reporter  func(error)

	instanceID   string
	workerCount  int
	pollInterval time.Duration
	infraBackoff time.Duration

	active map[string]activeJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// activeJob records what a worker is busy with and since when.
type activeJob struct {
	jobID     string
	startedAt time.Time
}

// NewPool creates a worker pool over the given queue and processor.
func NewPool(q queue.Queue, processor Processor, cfg config.Worker) *Pool {
	return &Pool{
		queue:        q,
		processor:    processor,
		logger:       slog.Default(),
		instanceID:   uuid.NewString(),
		workerCount:  cfg.Count,
		pollInterval: cfg.PollInterval,
		infraBackoff: cfg.InfraBackoff,
		active:       make(map[string]activeJob),
	}
}

// WithLogger sets a custom logger.
func (p *Pool) WithLogger(logger *slog.Logger) *Pool {
	p.logger = logger
	return p
}

// WithErrorReporter sets a hook invoked for every infrastructure error the
// worker loop hits, in addition to logging it.
func (p *Pool) WithErrorReporter(fn func(error)) *Pool {
	p.reporter = fn
	return p
}

// Start launches the workers. It returns an error if the pool is already
// running.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		return fmt.Errorf("pool already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workerCount; i++ {
		workerID := fmt.Sprintf("%s-%d", p.instanceID, i)
		p.wg.Add(1)
		go p.worker(workerID)
	}

	p.logger.Info("worker pool started",
		slog.String("instance_id", p.instanceID),
		slog.Int("workers", p.workerCount),
		slog.Duration("poll_interval", p.pollInterval))

	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.ctx = nil
	p.cancel = nil
	p.mu.Unlock()

	p.logger.Info("worker pool stopped")
}

// worker is the poll loop for one worker goroutine.
func (p *Pool) worker(workerID string) {
	defer p.wg.Done()

	log := p.logger.With(slog.String("worker_id", workerID))
	log.Debug("worker started")

	for {
		select {
		case <-p.ctx.Done():
			log.Debug("worker stopping")
			return
		default:
		}

		err := p.runOne(workerID)
		if err == nil {
			// Took a job; look for the next one immediately.
			continue
		}

		wait := p.pollInterval
		if !errors.Is(err, errNoJobs) {
			log.Error("processing job", slog.String("error", err.Error()))
			if p.reporter != nil {
				p.reporter(err)
			}
			wait = p.infraBackoff
		}

		select {
		case <-p.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runOne dequeues and processes a single job.
func (p *Pool) runOne(workerID string) error {
	jobID, err := p.queue.Dequeue(p.ctx)
	if err != nil {
		return fmt.Errorf("dequeueing: %w", err)
	}
	if jobID == "" {
		return errNoJobs
	}

	p.setActive(workerID, jobID)
	defer p.clearActive(workerID)

	if err := p.processor.Process(p.ctx, jobID); err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	return nil
}

func (p *Pool) setActive(workerID, jobID string) {
	p.mu.Lock()
	p.active[workerID] = activeJob{jobID: jobID, startedAt: time.Now()}
	p.mu.Unlock()
}

func (p *Pool) clearActive(workerID string) {
	p.mu.Lock()
	delete(p.active, workerID)
	p.mu.Unlock()
}

// ActiveJob describes one in-flight job in a pool status snapshot.
type ActiveJob struct {
	WorkerID string        `json:"worker_id"`
	JobID    string        `json:"job_id"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Status is a snapshot of the pool and its host.
type Status struct {
	InstanceID  string      `json:"instance_id"`
	Running     bool        `json:"running"`
	Workers     int         `json:"workers"`
	ActiveJobs  []ActiveJob `json:"active_jobs"`
	QueueLength int64       `json:"queue_length"`

	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Load1         float64 `json:"load1"`
}

// Status reports the active jobs together with the queue backlog and host
// utilization.
func (p *Pool) Status(ctx context.Context) Status {
	now := time.Now()

	p.mu.RLock()
	running := p.ctx != nil
	active := make([]ActiveJob, 0, len(p.active))
	for workerID, job := range p.active {
		active = append(active, ActiveJob{
			WorkerID: workerID,
			JobID:    job.jobID,
			Elapsed:  now.Sub(job.startedAt),
		})
	}
	p.mu.RUnlock()

	st := Status{
		InstanceID: p.instanceID,
		Running:    running,
		Workers:    p.workerCount,
		ActiveJobs: active,
	}

	if length, err := p.queue.Len(ctx); err == nil {
		st.QueueLength = length
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		st.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		st.MemoryPercent = vm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		st.Load1 = avg.Load1
	}

	return st
}
