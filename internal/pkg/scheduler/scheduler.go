package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// ErrUnknownJob is returned when a manual trigger names an unregistered job.
var ErrUnknownJob = errors.New("unknown scheduled job")

// runTimeout bounds one job invocation so a hung external call cannot wedge
// the cadence goroutine forever.
const runTimeout = 5 * time.Minute

// JobFunc is one sweep invocation. Errors are logged by the scheduler; the
// cadence keeps running.
type JobFunc func(ctx context.Context) error

// job is one registered periodic task.
type job struct {
	name     string
	interval time.Duration
	run      JobFunc

	ticker  *time.Ticker
	stopCh  chan struct{}
	running bool
	lastRun time.Time
	nextRun time.Time
}

// JobStatus is the introspection view of one job.
type JobStatus struct {
	Name    string    `json:"name"`
	Running bool      `json:"running"`
	NextRun time.Time `json:"next_run"`
}

// Status is the introspection view of the whole scheduler.
type Status struct {
	Initialized bool        `json:"initialized"`
	TotalJobs   int         `json:"total_jobs"`
	Jobs        []JobStatus `json:"jobs"`
}

// Scheduler owns a registry of named periodic jobs, each on its own ticker so
// cadences never block each other. It holds no business logic: every run
// function delegates to the ledger, reconciler or dispatcher.
type Scheduler struct {
	mu          sync.Mutex
	wg          sync.WaitGroup
	jobs        map[string]*job
	order       []string
	initialized bool
}

// New creates an empty scheduler. Jobs are registered before Initialize.
func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*job),
	}
}

// Register adds a named job to the registry. Registering after Initialize is
// allowed; the job starts on the next Initialize or StartJob call.
func (s *Scheduler) Register(name string, interval time.Duration, run JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		log.Warnf("[Scheduler] Job %s registered twice, keeping the first registration", name)
		return
	}
	s.jobs[name] = &job{name: name, interval: interval, run: run}
	s.order = append(s.order, name)
}

// Initialize starts every registered job. Idempotent: a second call is a
// logged no-op, not an error, so restart paths can call it blindly.
func (s *Scheduler) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		log.Info("[Scheduler] Already initialized, skipping")
		return
	}
	s.initialized = true

	for _, name := range s.order {
		s.startLocked(s.jobs[name])
	}
	log.Infof("[Scheduler] Initialized with %d jobs", len(s.jobs))
}

// RunJob triggers one synchronous run of a job, outside its cadence. Used
// for operational override and tests.
func (s *Scheduler) RunJob(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	log.Infof("[Scheduler] Manual run of job %s", name)
	return s.invoke(j)
}

// StartJob resumes a stopped job's cadence.
func (s *Scheduler) StartJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if j.running {
		return nil
	}
	s.startLocked(j)
	return nil
}

// StopJob pauses a job's cadence. The job stays registered and can be
// restarted or run manually.
func (s *Scheduler) StopJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.stopLocked(j)
	return nil
}

// Status reports the registry for introspection, in registration order.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Status{
		Initialized: s.initialized,
		TotalJobs:   len(s.jobs),
		Jobs:        make([]JobStatus, 0, len(s.jobs)),
	}
	for _, name := range s.order {
		j := s.jobs[name]
		out.Jobs = append(out.Jobs, JobStatus{
			Name:    j.name,
			Running: j.running,
			NextRun: j.nextRun,
		})
	}
	return out
}

// Shutdown stops all cadences and waits for in-flight runs to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	for _, name := range s.order {
		s.stopLocked(s.jobs[name])
	}
	s.initialized = false
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("[Scheduler] Stopped")
}

// startLocked starts one job's cadence goroutine. Caller holds s.mu.
func (s *Scheduler) startLocked(j *job) {
	j.ticker = time.NewTicker(j.interval)
	j.stopCh = make(chan struct{})
	j.running = true
	j.nextRun = time.Now().Add(j.interval)

	s.wg.Add(1)
	go s.loop(j, j.ticker, j.stopCh)
	log.Infof("[Scheduler] Job %s started (every %s)", j.name, j.interval)
}

// stopLocked stops one job's cadence. Caller holds s.mu.
func (s *Scheduler) stopLocked(j *job) {
	if !j.running {
		return
	}
	j.ticker.Stop()
	close(j.stopCh)
	j.running = false
	j.nextRun = time.Time{}
	log.Infof("[Scheduler] Job %s stopped", j.name)
}

func (s *Scheduler) loop(j *job, ticker *time.Ticker, stopCh chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			j.nextRun = time.Now().Add(j.interval)
			s.mu.Unlock()

			if err := s.invoke(j); err != nil {
				log.Errorf("[Scheduler] Job %s failed: %v", j.name, err)
			}
		}
	}
}

// invoke runs a job once with a bounded context and records the run time.
func (s *Scheduler) invoke(j *job) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)

	s.mu.Lock()
	j.lastRun = start
	s.mu.Unlock()
	return err
}
