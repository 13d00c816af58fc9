package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"pulse/app/internal/alerts"
	"pulse/app/internal/database"
	"pulse/app/internal/metrics"
)

// DefaultTimeout bounds a single delivery when none is configured
const DefaultTimeout = 10 * time.Second

// Sink delivers one alert to one destination
type Sink interface {
	Name() string
	Notify(ctx context.Context, a alerts.Alert) error
}

// Options configures a Dispatcher
type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// LogJournal records each delivery outcome in the system log table
	LogJournal bool
}

// Dispatcher fans alerts out to every sink without blocking the caller
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	journal bool

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks
func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		journal: opts.LogJournal,
	}
}

// Sinks returns the names of the configured sinks
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Notify hands the alert to every sink in its own goroutine and returns immediately
func (d *Dispatcher) Notify(a alerts.Alert) {
	for _, s := range d.sinks {
		d.wg.Add(1)
		go d.deliver(s, a)
	}
}

func (d *Dispatcher) deliver(s Sink, a alerts.Alert) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := s.Notify(ctx, a)
	d.metrics.ObserveNotification(s.Name(), err)
	if err != nil {
		d.logger.Error("notification failed",
			"sink", s.Name(), "endpoint", a.Endpoint, "alert_id", a.ID, "error", err)
		d.record(database.LogLevelError, s.Name(), a, err.Error())
		return
	}
	d.logger.Debug("notification sent", "sink", s.Name(), "endpoint", a.Endpoint, "alert_id", a.ID)
	d.record(database.LogLevelInfo, s.Name(), a, "")
}

func (d *Dispatcher) record(level, sink string, a alerts.Alert, details string) {
	if !d.journal || database.DB == nil {
		return
	}
	msg := sink + " notification sent"
	if level == database.LogLevelError {
		msg = sink + " notification failed"
	}
	if err := database.InsertLog(level, database.LogCategoryNotification, a.Endpoint, msg, details); err != nil {
		d.logger.Warn("failed to write notification log", "error", err)
	}
}

// Wait blocks until every in-flight delivery has finished, including sends a
// sink kept running past the delivery timeout
func (d *Dispatcher) Wait() {
	d.wg.Wait()
	for _, s := range d.sinks {
		if w, ok := s.(interface{ Wait() }); ok {
			w.Wait()
		}
	}
}

// Close waits for in-flight deliveries and releases sinks that hold connections
func (d *Dispatcher) Close() error {
	d.Wait()
	var errs []error
	for _, s := range d.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
