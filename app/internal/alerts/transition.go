package alerts

import "pulse/app/internal/models"

// Transition is a named status change
type Transition string

const (
	UpToDown   Transition = "up_to_down"
	UpToWarn   Transition = "up_to_warn"
	DownToUp   Transition = "down_to_up"
	WarnToDown Transition = "warn_to_down"
	WarnToUp   Transition = "warn_to_up"
	DownToWarn Transition = "down_to_warn"
)

// TransitionFor maps a (from, to) pair to its transition. Equal statuses have none.
func TransitionFor(from, to models.Status) (Transition, bool) {
	switch {
	case from == models.StatusUp && to == models.StatusDown:
		return UpToDown, true
	case from == models.StatusUp && to == models.StatusWarning:
		return UpToWarn, true
	case from == models.StatusDown && to == models.StatusUp:
		return DownToUp, true
	case from == models.StatusWarning && to == models.StatusDown:
		return WarnToDown, true
	case from == models.StatusWarning && to == models.StatusUp:
		return WarnToUp, true
	case from == models.StatusDown && to == models.StatusWarning:
		return DownToWarn, true
	}
	return "", false
}

// Enabled reports whether flags allow alerting on t
func (t Transition) Enabled(flags models.TransitionFlags) bool {
	switch t {
	case UpToDown:
		return flags.UpToDown
	case UpToWarn:
		return flags.UpToWarn
	case DownToUp:
		return flags.DownToUp
	case WarnToDown:
		return flags.WarnToDown
	case WarnToUp:
		return flags.WarnToUp
	case DownToWarn:
		return flags.DownToWarn
	}
	return false
}

// Severity derives the alert severity from the resulting status
func (t Transition) Severity() Severity {
	switch t {
	case UpToDown, WarnToDown:
		return SeverityCritical
	case UpToWarn, DownToWarn:
		return SeverityWarning
	default:
		return SeverityRecovery
	}
}
