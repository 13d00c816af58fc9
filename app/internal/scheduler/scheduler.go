package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pulse/app/internal/checker"
	"pulse/app/internal/models"
	"pulse/app/internal/refresh"
)

// DefaultBuffer is the result channel capacity used when none is configured
const DefaultBuffer = 100

const fallbackInterval = 5 * time.Second

var ErrAlreadyStarted = errors.New("scheduler already started")

// Result is one probe outcome of one endpoint
type Result struct {
	Endpoint string
	Sample   models.Sample
}

// Scheduler runs one independent probe loop per endpoint and publishes every
// sample on a shared bounded channel.
type Scheduler struct {
	endpoints       []models.Endpoint
	defaultInterval time.Duration
	prober          checker.Prober
	logger          *slog.Logger

	results chan Result
	refresh *refresh.Broadcaster
	started atomic.Bool
}

// New creates a scheduler for every endpoint of cfg
func New(cfg models.Config, prober checker.Prober, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	buffer := cfg.Settings.ResultBuffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	interval := cfg.Settings.DefaultInterval
	if interval <= 0 {
		interval = fallbackInterval
	}
	return &Scheduler{
		endpoints:       cfg.Endpoints,
		defaultInterval: interval,
		prober:          prober,
		logger:          logger,
		results:         make(chan Result, buffer),
		refresh:         refresh.New(),
	}
}

// Results is closed once every loop has exited
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Refresh wakes every loop that is currently waiting and returns how many were woken
func (s *Scheduler) Refresh() int {
	n := s.refresh.Trigger()
	s.logger.Debug("force refresh", "delivered", n)
	return n
}

// Run starts all loops and blocks until ctx is cancelled and every loop has exited
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(s.results)

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range s.endpoints {
		g.Go(func() error {
			s.loop(ctx, e)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e models.Endpoint) {
	interval := e.EffectiveInterval(s.defaultInterval)
	wake := s.refresh.Subscribe()
	defer s.refresh.Unsubscribe(wake)

	log := s.logger.With("endpoint", e.Name)
	log.Debug("probe loop started", "interval", interval)
	defer log.Debug("probe loop stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		sample := s.prober.Check(ctx, e)
		if ctx.Err() != nil {
			// interrupted by shutdown, not a real observation
			return
		}

		select {
		case s.results <- Result{Endpoint: e.Name, Sample: sample}:
		case <-ctx.Done():
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
