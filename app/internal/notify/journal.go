package notify

import (
	"context"

	"pulse/app/internal/alerts"
	"pulse/app/internal/database"
)

// Journal appends alerts to the SQLite journal
type Journal struct{}

func (Journal) Name() string { return "journal" }

func (Journal) Notify(_ context.Context, a alerts.Alert) error {
	return database.InsertAlert(a)
}
