package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
	"github.com/timoknapp/badminton-buddy/pkg/config"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/tournament"
)

type Config struct {
	CronSpec   string // e.g. "*/5 * * * *" (local time)
	RunOnStart bool   // run one refresh immediately on Start
}

// FromConfig takes the watch settings out of the loaded client configuration.
func FromConfig(cfg config.Config) Config {
	return Config{
		CronSpec:   firstNonEmpty(cfg.WatchCron, config.DefaultWatchCron),
		RunOnStart: true,
	}
}

// Scheduler runs the refresh job on a cron spec. Each tick runs in a scope, so a
// tick that is still running when the next one fires is cancelled and its result dropped.
type Scheduler struct {
	mu     sync.Mutex
	c      *cron.Cron
	config Config
	src    tournament.Source
	scope  *apiclient.Scope
	last   tournament.WarmupResult
	runs   int
}

func New(cfg Config, src tournament.Source) (*Scheduler, error) {
	s := &Scheduler{config: cfg, src: src}
	c, err := s.build(cfg)
	if err != nil {
		return nil, err
	}
	s.c = c
	s.scope = &apiclient.Scope{}
	return s, nil
}

func (s *Scheduler) build(cfg Config) (*cron.Cron, error) {
	c := cron.New() // standard 5-field spec
	if _, err := c.AddFunc(cfg.CronSpec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Scheduler) Start() {
	logger.Info("Starting scheduler (cron=%s)", s.config.CronSpec)
	s.c.Start()
	if s.config.RunOnStart {
		go s.RunOnce(context.Background())
	}
}

// Stop halts the cron loop and cancels a tick in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()

	scope.Close()
	<-s.c.Stop().Done()
}

// RunOnce runs one refresh in the scheduler's scope and returns its result.
// ErrSuperseded means a newer tick took over.
func (s *Scheduler) RunOnce(ctx context.Context) (tournament.WarmupResult, error) {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()

	logger.Info("Scheduler tick: running refresh job")
	res, err := apiclient.Latest(ctx, scope, func(ctx context.Context) (tournament.WarmupResult, error) {
		return tournament.Warmup(ctx, s.src)
	})
	switch {
	case errors.Is(err, apiclient.ErrSuperseded):
		logger.Info("Scheduler tick superseded by a newer one")
		return res, err
	case err != nil:
		logger.Warn("Scheduler tick failed: %v", err)
		return res, err
	}

	s.mu.Lock()
	s.last = res
	s.runs++
	s.mu.Unlock()
	logger.Info("Scheduler refresh done, rows fetched: %d", res.Total())
	return res, nil
}

// Last returns the most recent completed refresh and how many have completed.
func (s *Scheduler) Last() (tournament.WarmupResult, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.runs
}

// Reload swaps in a new cron spec, restarting the loop only when it changed.
func (s *Scheduler) Reload(cfg Config) error {
	if cfg.CronSpec == s.config.CronSpec {
		logger.Info("Scheduler configuration unchanged, no restart needed")
		return nil
	}

	c, err := s.build(cfg)
	if err != nil {
		return err
	}
	s.Stop()
	logger.Info("Stopped scheduler for configuration reload")

	s.mu.Lock()
	s.c = c
	s.config = cfg
	s.scope = &apiclient.Scope{}
	s.mu.Unlock()

	s.c.Start()
	logger.Info("Scheduler restarted with new configuration (cron=%s)", cfg.CronSpec)
	return nil
}

// GetConfig returns the current scheduler configuration
func (s *Scheduler) GetConfig() Config {
	return s.config
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
