// Package scheduler runs the periodic maintenance jobs (guard sweep, cache
// prefetch) on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "holidayd/internal/log"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	// Spec is a standard 5-field cron expression or a descriptor such as
	// "@daily" or "@every 6h".
	Spec string
	Run  func(ctx context.Context)
}

// Entry describes a scheduled job.
type Entry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// Scheduler wraps a cron.Cron. Overlapping runs of the same job are
// skipped and panics are recovered and logged.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]scheduled
}

type scheduled struct {
	job Job
	id  cron.EntryID
}

// New creates a scheduler evaluating specs in loc. Jobs receive ctx.
func New(ctx context.Context, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &Scheduler{
		ctx: ctx,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs: make(map[string]scheduled),
	}
}

// Add validates and registers job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a func")
	}
	if _, err := cron.ParseStandard(job.Spec); err != nil {
		return fmt.Errorf("scheduler: job %q: invalid spec %q: %w", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("scheduler: duplicate job %q", job.Name)
	}

	id, err := s.cron.AddFunc(job.Spec, s.wrap(job))
	if err != nil {
		return fmt.Errorf("scheduler: job %q: %w", job.Name, err)
	}
	s.jobs[job.Name] = scheduled{job: job, id: id}
	appLog.Info("scheduled job", "name", job.Name, "spec", job.Spec)
	return nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		started := time.Now()
		appLog.Debug("job started", "name", job.Name)
		job.Run(s.ctx)
		appLog.Info("job finished", "name", job.Name, "elapsed", time.Since(started))
	}
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	s.wrap(sj.job)()
	return nil
}

// Entries lists the registered jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for name, sj := range s.jobs {
		e := s.cron.Entry(sj.id)
		out = append(out, Entry{Name: name, Spec: sj.job.Spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling; the returned context is done once running jobs
// have completed.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
