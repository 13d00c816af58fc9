package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"pulse/app/internal/alerts"
	"pulse/app/internal/cache"
	"pulse/app/internal/database"
	"pulse/app/internal/history"
	"pulse/app/internal/hub"
	"pulse/app/internal/metrics"
	"pulse/app/internal/models"
	"pulse/app/internal/scheduler"
)

// Source produces probe results until its context is cancelled
type Source interface {
	Run(ctx context.Context) error
	Results() <-chan scheduler.Result
	Refresh() int
}

// Notifier receives accepted alerts. Notify must not block.
type Notifier interface {
	Notify(a alerts.Alert)
}

// waiter is implemented by notifiers that can flush in-flight deliveries
type waiter interface {
	Wait()
}

// Options wires the optional collaborators of a Monitor
type Options struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Hub       *hub.Hub
	Snapshots *cache.Snapshots
	Notifier  Notifier
	// LogJournal records failing probes and alerts in the system log table
	LogJournal bool
}

// Monitor is the single consumer of probe results. It alone owns the
// history store, the detector state and the alert history.
type Monitor struct {
	cfg       models.Config
	source    Source
	logger    *slog.Logger
	metrics   *metrics.Metrics
	hub       *hub.Hub
	ownHub    bool
	snapshots *cache.Snapshots
	notifier  Notifier
	journal   bool
	now       func() time.Time

	history  *history.Store
	detector *alerts.Detector
	alerts   *alerts.History
}

// New creates a monitor for cfg fed by source
func New(cfg models.Config, source Source, opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Monitor{
		cfg:       cfg,
		source:    source,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		hub:       opts.Hub,
		snapshots: opts.Snapshots,
		notifier:  opts.Notifier,
		journal:   opts.LogJournal,
		now:       time.Now,
		history:   history.NewStore(cfg.Endpoints, cfg.Settings.HistorySize),
		detector:  alerts.NewDetector(cfg.Settings.Alerts, cfg.Endpoints),
		alerts:    alerts.NewHistory(cfg.Settings.AlertHistorySize),
	}
	if m.hub == nil {
		m.hub = hub.New(nil, opts.Logger)
		m.ownHub = true
	}
	if m.snapshots == nil {
		m.snapshots = cache.NewSnapshots()
	}
	return m
}

// Snapshots is the read model kept current after every batch
func (m *Monitor) Snapshots() *cache.Snapshots {
	return m.snapshots
}

// Subscribe streams live sample and alert events
func (m *Monitor) Subscribe(buffer int) (<-chan hub.Event, func()) {
	return m.hub.Subscribe(buffer)
}

// Refresh asks every waiting probe loop to probe now and returns how many did
func (m *Monitor) Refresh() int {
	n := m.source.Refresh()
	m.metrics.ObserveRefresh(n)
	m.logger.Info("force refresh", "delivered", n)
	return n
}

// Run consumes results until the source is exhausted. It returns only after
// every probe loop has exited and pending notifications have been flushed.
func (m *Monitor) Run(ctx context.Context) error {
	if m.ownHub {
		hubCtx, stopHub := context.WithCancel(context.Background())
		hubDone := make(chan struct{})
		go func() { m.hub.Run(hubCtx); close(hubDone) }()
		defer func() { stopHub(); <-hubDone }()
	}

	m.publishAll()

	srcErr := make(chan error, 1)
	go func() { srcErr <- m.source.Run(ctx) }()

	m.consume(m.source.Results())

	err := <-srcErr
	if w, ok := m.notifier.(waiter); ok {
		w.Wait()
	}
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	m.logger.Info("monitor stopped")
	return nil
}

func (m *Monitor) consume(results <-chan scheduler.Result) {
	for {
		r, ok := <-results
		if !ok {
			return
		}
		batch := []scheduler.Result{r}

	drain:
		for {
			select {
			case r, ok := <-results:
				if !ok {
					m.process(batch)
					return
				}
				batch = append(batch, r)
			default:
				break drain
			}
		}
		m.process(batch)
	}
}

func (m *Monitor) process(batch []scheduler.Result) {
	touched := make(map[string]bool, len(batch))
	alerted := false

	for _, r := range batch {
		h, ok := m.history.Get(r.Endpoint)
		if !ok {
			m.logger.Warn("result for unknown endpoint", "endpoint", r.Endpoint)
			continue
		}

		var previous *models.Status
		if last, ok := h.Latest(); ok {
			p := last.Status
			previous = &p
		}
		m.history.Append(r.Endpoint, r.Sample)
		touched[r.Endpoint] = true

		m.metrics.ObserveSample(r.Endpoint, r.Sample)
		m.hub.Broadcast(hub.Event{Type: hub.EventSample, Endpoint: r.Endpoint, Payload: r.Sample})
		m.logSample(r)

		t, ok := m.detector.Evaluate(r.Endpoint, previous, r.Sample.Status)
		if !ok {
			continue
		}
		a := alerts.NewAlert(r.Endpoint, t, previous, r.Sample.Status, m.now())
		m.alerts.Add(a)
		alerted = true

		m.metrics.ObserveAlert(a)
		m.hub.Broadcast(hub.Event{Type: hub.EventAlert, Endpoint: a.Endpoint, Payload: a})
		m.logger.Info("alert", "endpoint", a.Endpoint, "transition", a.Transition, "severity", a.Severity)
		m.record(database.LogLevelWarn, database.LogCategoryAlert, a.Endpoint, a.Message, string(a.Transition))
		if m.notifier != nil {
			m.notifier.Notify(a)
		}
	}

	for _, e := range m.cfg.Endpoints {
		if touched[e.Name] {
			m.publishEndpoint(e)
		}
	}
	if alerted {
		m.snapshots.PutAlerts(m.alerts)
	}
	m.snapshots.Touch(m.now())
}

func (m *Monitor) logSample(r scheduler.Result) {
	s := r.Sample
	switch s.Status {
	case models.StatusDown:
		m.logger.Debug("probe failed", "endpoint", r.Endpoint, "error", s.Error, "kind", s.ErrorKind)
		m.record(database.LogLevelError, database.LogCategoryProbe, r.Endpoint, "Endpoint check failed", s.Error)
	case models.StatusWarning:
		details := ""
		if s.Code != nil {
			details = fmt.Sprintf("status=%d", *s.Code)
		}
		if ms := s.LatencyMS(); ms != nil {
			details += fmt.Sprintf(" latency=%dms", *ms)
		}
		m.logger.Debug("probe warning", "endpoint", r.Endpoint, "details", details)
		m.record(database.LogLevelWarn, database.LogCategoryProbe, r.Endpoint, "Endpoint check warning", details)
	}
}

func (m *Monitor) record(level, category, endpoint, msg, details string) {
	if !m.journal || database.DB == nil {
		return
	}
	if err := database.InsertLog(level, category, endpoint, msg, details); err != nil {
		m.logger.Warn("failed to write system log", "error", err)
	}
}

func (m *Monitor) publishAll() {
	m.snapshots.SetOrder(m.history.Names())
	for _, e := range m.cfg.Endpoints {
		m.publishEndpoint(e)
	}
	m.snapshots.PutAlerts(m.alerts)
	m.snapshots.Touch(m.now())
}

func (m *Monitor) publishEndpoint(e models.Endpoint) {
	h, _ := m.history.Get(e.Name)
	state, _ := m.detector.State(e.Name)
	interval := e.EffectiveInterval(m.cfg.Settings.DefaultInterval)
	m.snapshots.PutEndpoint(cache.BuildEndpoint(e, interval, h, state))
}
