// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// JobFunc performs one run of a job.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule cron.Schedule
	run      JobFunc
	nextRun  time.Time
	running  bool
}

// Scheduler checks for and executes due jobs.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	tick    time.Duration
	now     func() time.Time
	timeout time.Duration
	wg      sync.WaitGroup
	done    chan struct{}
	stopped sync.Once
}

// New creates a scheduler that checks for due jobs every tick.
func New(tick time.Duration) *Scheduler {
	return &Scheduler{
		tick:    tick,
		now:     time.Now,
		timeout: 5 * time.Minute,
		done:    make(chan struct{}),
	}
}

// Add registers fn under name with a standard cron expression. The first
// run happens at the first activation after the scheduler starts.
func (s *Scheduler) Add(name, expr string, fn JobFunc) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression for job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{name: name, schedule: schedule, run: fn})
	return nil
}

// Run starts the scheduler's ticking loop and blocks until ctx is cancelled
// or Stop is called. In-flight jobs are waited for before returning.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	jobs := len(s.jobs)
	s.mu.Unlock()
	log.Info().Int("jobs", jobs).Msg("Starting background scheduler...")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.plan(s.now())

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			log.Info().Msg("Stopping background scheduler.")
			return
		case <-s.done:
			s.wg.Wait()
			log.Info().Msg("Stopping background scheduler.")
			return
		case <-ticker.C:
			s.runDue(ctx, s.now())
		}
	}
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() { close(s.done) })
}

// plan computes the first activation of every job.
func (s *Scheduler) plan(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		j.nextRun = j.schedule.Next(now)
		log.Debug().Str("job", j.name).Time("next_run", j.nextRun).Msg("Scheduled job")
	}
}

// runDue starts every job whose activation time has passed. A job that is
// still running from a previous activation is skipped.
func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.nextRun.IsZero() || now.Before(j.nextRun) {
			continue
		}
		j.nextRun = j.schedule.Next(now)
		if j.running {
			log.Warn().Str("job", j.name).Msg("Scheduler: previous run still in progress, skipping")
			continue
		}
		j.running = true
		s.wg.Add(1)
		go s.execute(ctx, j)
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	if err := j.run(ctx); err != nil {
		log.Error().Err(err).Str("job", j.name).Msg("Scheduler: job failed")
		return
	}
	log.Debug().Str("job", j.name).Dur("took", s.now().Sub(start)).Msg("Scheduler: job finished")
}
