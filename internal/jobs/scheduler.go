package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/internal/sync_"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job scheduler is closed")
	ErrDuplicate = errors.New("job is already queued or running")
)

// A Job is deferred resolution work that outlives the request which created it.
type Job struct {
	ID uuid.UUID
	// Jobs with the same key are never queued or run concurrently.
	Key       string
	Request   clipbot.Request
	UserID    int64
	Submitted time.Time
}

func NewJob(req clipbot.Request, userID int64) Job {
	return Job{
		ID:        uuid.New(),
		Key:       fmt.Sprintf("%d:%s", userID, req.Fingerprint),
		Request:   req,
		UserID:    userID,
		Submitted: time.Now(),
	}
}

// A Handler runs one job. The context carries the job's own deadline.
type Handler func(ctx context.Context, job Job) error

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

var DefaultConfig = Config{
	Workers:   4,
	QueueSize: 64,
	Timeout:   2 * time.Minute,
}

// A Scheduler runs submitted jobs on a fixed pool of workers.
type Scheduler struct {
	config   Config
	handler  Handler
	queue    *queue
	inflight *sync_.Mutexed[generic.Set[string]]
	closed   atomic.Bool
	started  atomic.Bool
	workers  sync.WaitGroup
	log      *zap.SugaredLogger
}

func NewScheduler(config Config, handler Handler) *Scheduler {
	if config.Workers < 1 {
		config.Workers = DefaultConfig.Workers
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig.Timeout
	}
	return &Scheduler{
		config:   config,
		handler:  handler,
		queue:    newQueue(config.QueueSize),
		inflight: sync_.NewMutexed(generic.NewSet[string]()),
		log:      zap.S().Named("jobs"),
	}
}

// Start launches the workers. Job deadlines derive from ctx, so cancelling it aborts running jobs. Calling Start
// again has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	for n := 0; n < s.config.Workers; n++ {
		s.workers.Add(1)
		go func(n int) {
			defer s.workers.Done()
			s.worker(ctx, n)
		}(n)
	}
	s.log.Infow("started", "workers", s.config.Workers, "queue", s.config.QueueSize)
}

// Submit queues a job without blocking.
func (s *Scheduler) Submit(job Job) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Submitted.IsZero() {
		job.Submitted = time.Now()
	}
	added := sync_.Locking(s.inflight, func(keys generic.Set[string]) bool {
		return keys.Add(job.Key)
	})
	if !added {
		return ErrDuplicate
	}
	if err := s.queue.TryPush(job); err != nil {
		s.release(job.Key)
		return err
	}
	s.log.Debugw("job queued", "job", job.ID, "key", job.Key, "queued", s.queue.Len())
	return nil
}

// Inflight returns the number of jobs queued or running.
func (s *Scheduler) Inflight() int {
	return sync_.Locking(s.inflight, generic.Set[string].Count)
}

// Queued returns the number of jobs waiting for a worker.
func (s *Scheduler) Queued() int {
	return s.queue.Len()
}

// Close stops accepting jobs and waits for the workers to finish what is already queued.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.queue.Close()
	s.workers.Wait()
	s.log.Info("stopped")
}

func (s *Scheduler) worker(ctx context.Context, n int) {
	log := s.log.With("worker", n)
	for job := range s.queue.Jobs() {
		s.run(ctx, log, job)
	}
}

func (s *Scheduler) run(ctx context.Context, log *zap.SugaredLogger, job Job) {
	defer s.release(job.Key)
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	log = log.With("job", job.ID, "url", job.Request.URL)
	start := time.Now()
	log.Debugw("job started", "queued", start.Sub(job.Submitted))
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.handler(ctx, job)
	}()
	if err != nil {
		log.Warnw("job failed", "error", err, "elapsed", time.Since(start))
	} else {
		log.Infow("job finished", "elapsed", time.Since(start))
	}
}

func (s *Scheduler) release(key string) {
	sync_.Locking(s.inflight, func(keys generic.Set[string]) bool {
		return keys.Remove(key)
	})
}
