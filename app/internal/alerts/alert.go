package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pulse/app/internal/models"
)

// Severity classifies an alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityRecovery Severity = "recovery"
)

// ParseSeverity accepts the lower-case severity names
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityCritical, SeverityWarning, SeverityRecovery:
		return Severity(s), true
	}
	return "", false
}

// Alert is an accepted status transition for one endpoint
type Alert struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Endpoint   string        `json:"endpoint"`
	Transition Transition    `json:"transition"`
	Severity   Severity      `json:"severity"`
	Previous   models.Status `json:"previous_status"`
	Current    models.Status `json:"current_status"`
	Message    string        `json:"message"`
}

// NewAlert builds an alert. A missing previous status is reported as Up.
func NewAlert(endpoint string, t Transition, previous *models.Status, current models.Status, at time.Time) Alert {
	prev := models.StatusUp
	if previous != nil {
		prev = *previous
	}
	return Alert{
		ID:         uuid.NewString(),
		Timestamp:  at,
		Endpoint:   endpoint,
		Transition: t,
		Severity:   t.Severity(),
		Previous:   prev,
		Current:    current,
		Message:    formatMessage(endpoint, t),
	}
}

func formatMessage(endpoint string, t Transition) string {
	switch t {
	case UpToDown:
		return fmt.Sprintf("%s is DOWN", endpoint)
	case UpToWarn:
		return fmt.Sprintf("%s has WARNING status", endpoint)
	case DownToUp:
		return fmt.Sprintf("%s has RECOVERED", endpoint)
	case WarnToDown:
		return fmt.Sprintf("%s went from WARNING to DOWN", endpoint)
	case WarnToUp:
		return fmt.Sprintf("%s recovered from WARNING", endpoint)
	case DownToWarn:
		return fmt.Sprintf("%s went from DOWN to WARNING", endpoint)
	}
	return endpoint
}
