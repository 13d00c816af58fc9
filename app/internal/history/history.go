package history

import (
	"time"

	"pulse/app/internal/models"
	"pulse/app/internal/ring"
)

// SiteHistory keeps the most recent samples for one endpoint
type SiteHistory struct {
	results *ring.Buffer[models.Sample]
}

// ChartPoint is a (time, latency) pair used for trend charts
type ChartPoint struct {
	Time      time.Time `json:"t"`
	LatencyMS int64     `json:"ms"`
}

// NewSiteHistory creates a history holding at most maxSize samples
func NewSiteHistory(maxSize int) *SiteHistory {
	return &SiteHistory{results: ring.New[models.Sample](maxSize)}
}

// Append stores a sample, evicting the oldest when full
func (h *SiteHistory) Append(s models.Sample) {
	h.results.Push(s)
}

// Latest returns the most recent sample
func (h *SiteHistory) Latest() (models.Sample, bool) {
	return h.results.Last()
}

// Len returns the number of stored samples
func (h *SiteHistory) Len() int {
	return h.results.Len()
}

// All returns a copy of the stored samples, oldest first
func (h *SiteHistory) All() []models.Sample {
	return h.results.Slice()
}

// AvgLatency is the mean latency over samples that carry one
func (h *SiteHistory) AvgLatency() *time.Duration {
	var sum time.Duration
	n := 0
	h.results.Each(func(s models.Sample) bool {
		if s.Latency != nil {
			sum += *s.Latency
			n++
		}
		return true
	})
	if n == 0 {
		return nil
	}
	avg := sum / time.Duration(n)
	return &avg
}

// MinLatency is the smallest recorded latency
func (h *SiteHistory) MinLatency() *time.Duration {
	return h.extreme(func(a, b time.Duration) bool { return a < b })
}

// MaxLatency is the largest recorded latency
func (h *SiteHistory) MaxLatency() *time.Duration {
	return h.extreme(func(a, b time.Duration) bool { return a > b })
}

func (h *SiteHistory) extreme(better func(a, b time.Duration) bool) *time.Duration {
	var best *time.Duration
	h.results.Each(func(s models.Sample) bool {
		if s.Latency != nil && (best == nil || better(*s.Latency, *best)) {
			v := *s.Latency
			best = &v
		}
		return true
	})
	return best
}

// UptimePercentage returns the share of Up samples, 0 when empty
func (h *SiteHistory) UptimePercentage() float64 {
	total := h.results.Len()
	if total == 0 {
		return 0
	}
	up := 0
	h.results.Each(func(s models.Sample) bool {
		if s.Status == models.StatusUp {
			up++
		}
		return true
	})
	return float64(up) / float64(total) * 100
}

// RecentLatencies returns the latencies among the last k samples, oldest first.
// Samples without a latency are skipped.
func (h *SiteHistory) RecentLatencies(k int) []time.Duration {
	n := h.results.Len()
	start := n - k
	if start < 0 {
		start = 0
	}
	out := make([]time.Duration, 0, n-start)
	for i := start; i < n; i++ {
		if s := h.results.At(i); s.Latency != nil {
			out = append(out, *s.Latency)
		}
	}
	return out
}

// ChartData returns timestamp/latency pairs for every sample with a latency
func (h *SiteHistory) ChartData() []ChartPoint {
	var out []ChartPoint
	h.results.Each(func(s models.Sample) bool {
		if s.Latency != nil {
			out = append(out, ChartPoint{Time: s.Timestamp, LatencyMS: s.Latency.Milliseconds()})
		}
		return true
	})
	return out
}

// Store maps endpoint names to their history. It has a single writer and is not locked.
type Store struct {
	order []string
	sites map[string]*SiteHistory
}

// NewStore creates an empty history for every endpoint, keeping config order
func NewStore(endpoints []models.Endpoint, maxSize int) *Store {
	s := &Store{sites: make(map[string]*SiteHistory, len(endpoints))}
	for _, e := range endpoints {
		if _, dup := s.sites[e.Name]; dup {
			continue
		}
		s.order = append(s.order, e.Name)
		s.sites[e.Name] = NewSiteHistory(maxSize)
	}
	return s
}

// Get returns the history of one endpoint
func (s *Store) Get(name string) (*SiteHistory, bool) {
	h, ok := s.sites[name]
	return h, ok
}

// Names lists endpoint names in config order
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Append records a sample. Unknown names are ignored and reported as false.
func (s *Store) Append(name string, sample models.Sample) bool {
	h, ok := s.sites[name]
	if !ok {
		return false
	}
	h.Append(sample)
	return true
}
