package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pulse/app/internal/alerts"
	"pulse/app/internal/database"
)

// Refresher triggers an immediate probe of every waiting endpoint loop
type Refresher interface {
	Refresh() int
}

// HandleRefresh forces a probe round and reports how many loops were woken
func HandleRefresh(ref Refresher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := ref.Refresh()
		logger.Info("refresh requested", "remote", r.RemoteAddr, "delivered", n)
		writeJSON(w, http.StatusAccepted, map[string]int{"delivered": n})
	}
}

// HandleGetLogs returns journaled system logs with optional filtering
func HandleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !journalAvailable(w) {
			return
		}
		limit, err := queryInt(r, "limit", 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if limit > 500 {
			limit = 500
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		q := r.URL.Query()
		logs, err := database.GetLogs(limit, q.Get("level"), q.Get("category"), q.Get("endpoint"), offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if logs == nil {
			logs = []database.LogEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
	}
}

// HandleGetLogStats returns log statistics
func HandleGetLogStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !journalAvailable(w) {
			return
		}
		stats, err := database.GetLogStats()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// HandleClearLogs clears logs older than the given number of days, or all of them
func HandleClearLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !journalAvailable(w) {
			return
		}
		var req struct {
			Days int `json:"days"` // 0 means clear all
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req.Days = 0
		}
		if req.Days < 0 {
			writeError(w, http.StatusBadRequest, "days must not be negative")
			return
		}
		if err := database.ClearLogs(req.Days); err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleJournalAlerts lists persisted alerts, newest first
func HandleJournalAlerts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !journalAvailable(w) {
			return
		}
		limit, err := queryInt(r, "limit", 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q := r.URL.Query()
		if s := q.Get("severity"); s != "" {
			if _, ok := alerts.ParseSeverity(s); !ok {
				writeError(w, http.StatusBadRequest, "unknown severity")
				return
			}
		}
		list, err := database.ListAlerts(limit, q.Get("site"), q.Get("severity"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if list == nil {
			list = []alerts.Alert{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": list})
	}
}

func journalAvailable(w http.ResponseWriter) bool {
	if database.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "journal is disabled")
		return false
	}
	return true
}
