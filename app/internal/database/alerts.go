package database

import (
	"time"

	"pulse/app/internal/alerts"
	"pulse/app/internal/models"
)

// InsertAlert appends an alert to the journal. Re-inserting the same ID is a no-op.
func InsertAlert(a alerts.Alert) error {
	_, err := DB.Exec(`INSERT INTO alerts (id, created_at, endpoint, transition, severity, previous_status, current_status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.Timestamp.UTC().Format(time.RFC3339Nano), a.Endpoint, string(a.Transition),
		string(a.Severity), string(a.Previous), string(a.Current), a.Message)
	return err
}

// ListAlerts returns journaled alerts newest first, optionally filtered by endpoint and severity
func ListAlerts(limit int, endpoint, severity string) ([]alerts.Alert, error) {
	query := `SELECT id, created_at, endpoint, transition, severity, previous_status, current_status, message
		FROM alerts WHERE 1=1`
	args := []interface{}{}

	if endpoint != "" {
		query += " AND endpoint = ?"
		args = append(args, endpoint)
	}
	if severity != "" {
		query += " AND severity = ?"
		args = append(args, severity)
	}

	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var (
			a                                      alerts.Alert
			createdAt, transition, sev, prev, curr string
		)
		if err := rows.Scan(&a.ID, &createdAt, &a.Endpoint, &transition, &sev, &prev, &curr, &a.Message); err != nil {
			return nil, err
		}
		a.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		a.Transition = alerts.Transition(transition)
		a.Severity = alerts.Severity(sev)
		a.Previous = models.Status(prev)
		a.Current = models.Status(curr)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAlerts returns the number of journaled alerts
func CountAlerts() (int, error) {
	var n int
	err := DB.QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&n)
	return n, err
}

// PruneAlerts keeps only the newest keepCount alerts
func PruneAlerts(keepCount int) error {
	_, err := DB.Exec(`DELETE FROM alerts WHERE id NOT IN (
		SELECT id FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, keepCount)
	return err
}
