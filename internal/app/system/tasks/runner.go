// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a periodic maintenance task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Status is a snapshot of one job's history.
type Status struct {
	Name      string
	Runs      int
	Failures  int
	Running   bool
	LastRun   time.Time
	LastError string
}

// Runner runs registered jobs on their intervals until stopped.
type Runner struct {
	logger *zap.Logger
	jobs   []Job

	mu     sync.Mutex
	status map[string]*Status

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates an empty Runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger, status: make(map[string]*Status)}
}

// Register adds job. It must be called before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
	r.mu.Lock()
	r.status[job.Name] = &Status{Name: job.Name}
	r.mu.Unlock()
}

// Start launches one goroutine per job. Each job runs once immediately.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.logger.Info("background task runner started", zap.Int("job_count", len(r.jobs)))
}

// Stop cancels every job and waits for them until ctx expires.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		var busy []string
		for _, s := range r.Snapshot() {
			if s.Running {
				busy = append(busy, s.Name)
			}
		}
		r.logger.Warn("background task runner shutdown timed out", zap.Strings("jobs_still_running", busy))
		return ctx.Err()
	}
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return r.execute(ctx, job)
		}
	}
	return ErrUnknownJob
}

// Snapshot returns the status of every job, sorted by name.
func (r *Runner) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.status))
	for _, s := range r.status {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Status) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	_ = r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job Job) error {
	r.update(job.Name, func(s *Status) { s.Running = true })
	start := time.Now()

	err := job.Run(ctx)

	r.update(job.Name, func(s *Status) {
		s.Running = false
		s.Runs++
		s.LastRun = start
		s.LastError = ""
		if err != nil {
			s.Failures++
			s.LastError = err.Error()
		}
	})

	switch {
	case err != nil && ctx.Err() != nil:
		r.logger.Debug("job cancelled", zap.String("job", job.Name))
	case err != nil:
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	default:
		r.logger.Debug("job completed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)))
	}
	return err
}

func (r *Runner) update(name string, fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[name]
	if !ok {
		s = &Status{Name: name}
		r.status[name] = s
	}
	fn(s)
}
