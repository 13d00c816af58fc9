package alerts

import (
	"time"

	"pulse/app/internal/models"
)

// AlertState is the per-endpoint detection state. It is owned by the Detector.
type AlertState struct {
	ConsecutiveFailures int
	LastAlertTime       *time.Time
	LastAlertStatus     *models.Status
	// StableStatus is the status that held right before the current failure streak began.
	StableStatus *models.Status
}

// Detector turns per-endpoint status pairs into alert transitions,
// gated by failure threshold, cooldown and per-transition policy.
// It is not safe for concurrent use; the monitor loop is its only caller.
type Detector struct {
	global    models.AlertPolicy
	overrides map[string]*models.AlertOverride
	states    map[string]*AlertState
	now       func() time.Time
}

// NewDetector creates a detector with empty state for every endpoint
func NewDetector(global models.AlertPolicy, endpoints []models.Endpoint) *Detector {
	d := &Detector{
		global:    global,
		overrides: make(map[string]*models.AlertOverride, len(endpoints)),
		states:    make(map[string]*AlertState, len(endpoints)),
		now:       time.Now,
	}
	for _, e := range endpoints {
		d.overrides[e.Name] = e.Alerts
		d.states[e.Name] = &AlertState{}
	}
	return d
}

// ResolvePolicy merges an optional endpoint override over the global policy, field by field
func ResolvePolicy(global models.AlertPolicy, override *models.AlertOverride) models.AlertPolicy {
	p := global
	if override == nil {
		return p
	}
	if override.Enabled != nil {
		p.Enabled = *override.Enabled
	}
	if override.Threshold != nil {
		p.Threshold = *override.Threshold
	}
	if override.Cooldown != nil {
		p.Cooldown = *override.Cooldown
	}
	return p
}

// Policy returns the effective policy of an endpoint
func (d *Detector) Policy(name string) (models.AlertPolicy, bool) {
	override, ok := d.overrides[name]
	if !ok {
		return models.AlertPolicy{}, false
	}
	return ResolvePolicy(d.global, override), true
}

// State returns a copy of an endpoint's detection state
func (d *Detector) State(name string) (AlertState, bool) {
	s, ok := d.states[name]
	if !ok {
		return AlertState{}, false
	}
	return *s, true
}

// Evaluate decides whether the move from previous to current is alert-worthy.
// Unknown endpoints and disabled policies are silent no-ops.
func (d *Detector) Evaluate(name string, previous *models.Status, current models.Status) (Transition, bool) {
	policy, ok := d.Policy(name)
	if !ok || !policy.Enabled {
		return "", false
	}
	state := d.states[name]

	if current.IsFailing() {
		if state.ConsecutiveFailures == 0 {
			state.StableStatus = copyStatus(previous)
		}
		state.ConsecutiveFailures++
	} else {
		state.ConsecutiveFailures = 0
		state.StableStatus = copyStatus(&current)
	}

	if current.IsFailing() && state.ConsecutiveFailures < policy.Threshold {
		return "", false
	}

	now := d.now()
	if state.LastAlertTime != nil && now.Sub(*state.LastAlertTime) < policy.Cooldown &&
		state.LastAlertStatus != nil && *state.LastAlertStatus == current {
		return "", false
	}

	// Recovery is reported against what it recovered from; failures against the pre-streak baseline.
	from := state.StableStatus
	if current == models.StatusUp {
		from = previous
	}
	if from == nil {
		return "", false
	}

	t, ok := TransitionFor(*from, current)
	if !ok || !t.Enabled(policy.Transitions) {
		return "", false
	}

	state.LastAlertTime = &now
	state.LastAlertStatus = copyStatus(&current)
	return t, true
}

func copyStatus(s *models.Status) *models.Status {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
