package alerts

import "pulse/app/internal/ring"

// History is a bounded FIFO of emitted alerts
type History struct {
	alerts *ring.Buffer[Alert]
}

// NewHistory creates a history holding at most maxSize alerts
func NewHistory(maxSize int) *History {
	return &History{alerts: ring.New[Alert](maxSize)}
}

// Add appends an alert, evicting the oldest when full
func (h *History) Add(a Alert) {
	h.alerts.Push(a)
}

// Clone returns an independent copy with the same capacity
func (h *History) Clone() *History {
	c := &History{alerts: ring.New[Alert](h.alerts.Cap())}
	h.alerts.Each(func(a Alert) bool {
		c.alerts.Push(a)
		return true
	})
	return c
}

// Len returns the number of stored alerts
func (h *History) Len() int {
	return h.alerts.Len()
}

// Latest returns the most recent alert
func (h *History) Latest() (Alert, bool) {
	return h.alerts.Last()
}

// All returns every stored alert in insertion order
func (h *History) All() []Alert {
	return h.alerts.Slice()
}

// BySeverity returns alerts of one severity in insertion order
func (h *History) BySeverity(s Severity) []Alert {
	return h.filter(func(a Alert) bool { return a.Severity == s })
}

// BySite returns alerts of one endpoint in insertion order
func (h *History) BySite(name string) []Alert {
	return h.filter(func(a Alert) bool { return a.Endpoint == name })
}

// ByID finds an alert by its identifier
func (h *History) ByID(id string) (Alert, bool) {
	var found Alert
	ok := false
	h.alerts.Each(func(a Alert) bool {
		if a.ID == id {
			found, ok = a, true
			return false
		}
		return true
	})
	return found, ok
}

func (h *History) filter(keep func(Alert) bool) []Alert {
	out := []Alert{}
	h.alerts.Each(func(a Alert) bool {
		if keep(a) {
			out = append(out, a)
		}
		return true
	})
	return out
}
