package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"pulse/app/internal/alerts"
	"pulse/app/internal/history"
	"pulse/app/internal/models"
)

// RecentWindow is how many trailing samples feed the latency trend
const RecentWindow = 20

const (
	keyOrder     = "order"
	keyAlerts    = "alerts"
	keyUpdated   = "updated_at"
	endpointPref = "endpoint:"
)

// EndpointSnapshot is an immutable copy of one endpoint's state at publish time
type EndpointSnapshot struct {
	Name                string               `json:"name"`
	Target              string               `json:"url"`
	Interval            time.Duration        `json:"interval"`
	Latest              *models.Sample       `json:"latest,omitempty"`
	Samples             int                  `json:"samples"`
	Uptime              float64              `json:"uptime_percentage"`
	AvgLatencyMS        *int64               `json:"avg_latency_ms,omitempty"`
	MinLatencyMS        *int64               `json:"min_latency_ms,omitempty"`
	MaxLatencyMS        *int64               `json:"max_latency_ms,omitempty"`
	RecentMS            []int64              `json:"recent_latency_ms"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	History             []models.Sample      `json:"-"`
	Chart               []history.ChartPoint `json:"-"`
}

// BuildEndpoint copies everything a reader may ask about one endpoint
func BuildEndpoint(e models.Endpoint, interval time.Duration, h *history.SiteHistory, state alerts.AlertState) EndpointSnapshot {
	snap := EndpointSnapshot{
		Name:                e.Name,
		Target:              e.Target,
		Interval:            interval,
		Samples:             h.Len(),
		Uptime:              h.UptimePercentage(),
		AvgLatencyMS:        millis(h.AvgLatency()),
		MinLatencyMS:        millis(h.MinLatency()),
		MaxLatencyMS:        millis(h.MaxLatency()),
		ConsecutiveFailures: state.ConsecutiveFailures,
		History:             h.All(),
		Chart:               h.ChartData(),
	}
	if latest, ok := h.Latest(); ok {
		snap.Latest = &latest
	}
	recent := h.RecentLatencies(RecentWindow)
	snap.RecentMS = make([]int64, len(recent))
	for i, d := range recent {
		snap.RecentMS[i] = d.Milliseconds()
	}
	return snap
}

func millis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

// Snapshots is the read model shared with presentation readers. The monitor
// replaces entries wholesale after every batch; readers only ever see complete values.
type Snapshots struct {
	c *gocache.Cache
}

// NewSnapshots creates an empty read model. Entries never expire.
func NewSnapshots() *Snapshots {
	return &Snapshots{c: gocache.New(gocache.NoExpiration, 0)}
}

// SetOrder records the endpoint display order
func (s *Snapshots) SetOrder(names []string) {
	s.c.Set(keyOrder, append([]string(nil), names...), gocache.NoExpiration)
}

// PutEndpoint replaces one endpoint's snapshot
func (s *Snapshots) PutEndpoint(snap EndpointSnapshot) {
	s.c.Set(endpointPref+snap.Name, snap, gocache.NoExpiration)
}

// PutAlerts publishes a copy of the alert history. Later writes to h are not visible to readers.
func (s *Snapshots) PutAlerts(h *alerts.History) {
	s.c.Set(keyAlerts, h.Clone(), gocache.NoExpiration)
}

// Touch records the publish time of the latest batch
func (s *Snapshots) Touch(at time.Time) {
	s.c.Set(keyUpdated, at, gocache.NoExpiration)
}

// Endpoint returns one endpoint's latest snapshot
func (s *Snapshots) Endpoint(name string) (EndpointSnapshot, bool) {
	v, ok := s.c.Get(endpointPref + name)
	if !ok {
		return EndpointSnapshot{}, false
	}
	return v.(EndpointSnapshot), true
}

// Endpoints returns every snapshot in display order
func (s *Snapshots) Endpoints() []EndpointSnapshot {
	v, ok := s.c.Get(keyOrder)
	if !ok {
		return nil
	}
	names := v.([]string)
	out := make([]EndpointSnapshot, 0, len(names))
	for _, n := range names {
		if snap, ok := s.Endpoint(n); ok {
			out = append(out, snap)
		}
	}
	return out
}

// Alerts returns the published alert history. Callers must not add to it.
func (s *Snapshots) Alerts() *alerts.History {
	v, ok := s.c.Get(keyAlerts)
	if !ok {
		return alerts.NewHistory(1)
	}
	return v.(*alerts.History)
}

// UpdatedAt returns when the last batch was published
func (s *Snapshots) UpdatedAt() time.Time {
	v, ok := s.c.Get(keyUpdated)
	if !ok {
		return time.Time{}
	}
	return v.(time.Time)
}
