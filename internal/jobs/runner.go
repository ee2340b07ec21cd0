// internal/jobs/runner.go
package jobs

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	conf "github.com/mininik08inv/bookstore/internal/config"
)

// wrapper for a started job
type runningJob struct {
	Name string
	Inst Job
}

// Runner builds the configured jobs through the registry and runs each in
// its own goroutine until Stop or context cancellation.
type Runner struct {
	log     zerolog.Logger
	deps    Deps
	mu      sync.Mutex
	cfg     *conf.Config
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    []runningJob
}

func NewRunner(log zerolog.Logger, cfg *conf.Config, deps Deps) *Runner {
	return &Runner{log: log, cfg: cfg, deps: deps}
}

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	started := r.buildJobsLocked()
	r.jobs = started
	r.mu.Unlock()

	r.log.Info().Int("jobs", len(started)).Msg("runner: start")

	for i := range started {
		r.wg.Add(1)
		go func(j Job) {
			defer r.wg.Done()
			if err := j.Start(ctx); err != nil {
				r.log.Error().Err(err).Str("job", j.Name()).Msg("job finished with error")
			}
		}(started[i].Inst)
	}
	return nil
}

func (r *Runner) buildJobsLocked() []runningJob {
	var out []runningJob
	if r.cfg == nil || len(r.cfg.Jobs) == 0 {
		r.log.Warn().Msg("jobs: none configured (check config.json)")
		return out
	}
	for name, raw := range r.cfg.Jobs {
		f, ok := Get(name)
		if !ok {
			r.log.Warn().Str("job", name).Msg("no factory registered, skipping")
			continue
		}
		deps := r.deps
		deps.Log = r.log.With().Str("job", name).Logger()
		inst, err := f(deps, raw)
		if err != nil {
			r.log.Error().Err(err).Str("job", name).Msg("job init failed")
			continue
		}
		out = append(out, runningJob{Name: name, Inst: inst})
	}
	return out
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	jobs := r.jobs
	r.jobs = nil
	r.cancel = nil
	r.mu.Unlock()

	for _, rj := range jobs {
		rj.Inst.Stop()
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.log.Info().Msg("runner: stop")
}

func (r *Runner) UpdateConfig(cfg *conf.Config) {
	r.mu.Lock()
	r.cfg = cfg
	isRunning := r.running
	r.mu.Unlock()

	if isRunning {
		// restart so the jobs pick up the new config
		r.Stop()
		_ = r.Start(context.Background())
	}
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
