package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pulse/app/internal/alerts"
	"pulse/app/internal/cache"
	"pulse/app/internal/history"
	"pulse/app/internal/models"
	"pulse/app/internal/version"
)

// Summary counts endpoints by their latest status
type Summary struct {
	Total   int `json:"total"`
	Up      int `json:"up"`
	Down    int `json:"down"`
	Warning int `json:"warning"`
	Pending int `json:"pending"`
}

type statusResponse struct {
	UpdatedAt   time.Time                `json:"updated_at"`
	Summary     Summary                  `json:"summary"`
	Endpoints   []cache.EndpointSnapshot `json:"endpoints"`
	LatestAlert *alerts.Alert            `json:"latest_alert,omitempty"`
}

func summarize(snaps []cache.EndpointSnapshot) Summary {
	s := Summary{Total: len(snaps)}
	for _, e := range snaps {
		if e.Latest == nil {
			s.Pending++
			continue
		}
		switch e.Latest.Status {
		case models.StatusUp:
			s.Up++
		case models.StatusDown:
			s.Down++
		case models.StatusWarning:
			s.Warning++
		}
	}
	return s
}

// HandleHealth reports that the server is alive
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
	}
}

// HandleStatus returns the latest snapshot of every endpoint
func HandleStatus(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoints := snaps.Endpoints()
		if endpoints == nil {
			endpoints = []cache.EndpointSnapshot{}
		}
		resp := statusResponse{
			UpdatedAt: snaps.UpdatedAt(),
			Summary:   summarize(endpoints),
			Endpoints: endpoints,
		}
		if a, ok := snaps.Alerts().Latest(); ok {
			resp.LatestAlert = &a
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleEndpoint returns one endpoint's snapshot
func HandleEndpoint(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupEndpoint(w, r, snaps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// HandleEndpointHistory returns the stored samples of one endpoint, oldest first.
// ?limit=k keeps only the k most recent.
func HandleEndpointHistory(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupEndpoint(w, r, snaps)
		if !ok {
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		samples := tail(snap.History, limit)
		if samples == nil {
			samples = []models.Sample{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"endpoint": snap.Name,
			"samples":  samples,
		})
	}
}

// HandleEndpointChart returns timestamp/latency pairs for charting
func HandleEndpointChart(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupEndpoint(w, r, snaps)
		if !ok {
			return
		}
		points := snap.Chart
		if points == nil {
			points = []history.ChartPoint{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"endpoint": snap.Name,
			"points":   points,
		})
	}
}

// HandleAlerts lists alerts in emission order, optionally filtered by severity and site
func HandleAlerts(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var severity alerts.Severity
		if s := q.Get("severity"); s != "" {
			parsed, ok := alerts.ParseSeverity(s)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown severity %q", s))
				return
			}
			severity = parsed
		}
		site := q.Get("site")
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h := snaps.Alerts()
		var out []alerts.Alert
		switch {
		case severity != "" && site != "":
			out = []alerts.Alert{}
			for _, a := range h.BySite(site) {
				if a.Severity == severity {
					out = append(out, a)
				}
			}
		case severity != "":
			out = h.BySeverity(severity)
		case site != "":
			out = h.BySite(site)
		default:
			out = h.All()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": tail(out, limit)})
	}
}

// HandleAlert returns one alert by ID
func HandleAlert(snaps *cache.Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := snaps.Alerts().ByID(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func lookupEndpoint(w http.ResponseWriter, r *http.Request, snaps *cache.Snapshots) (cache.EndpointSnapshot, bool) {
	name := chi.URLParam(r, "name")
	snap, ok := snaps.Endpoint(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown endpoint %q", name))
	}
	return snap, ok
}

// queryInt parses a non-negative integer query parameter
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// tail returns the last k elements, or all of them when k is 0
func tail[T any](items []T, k int) []T {
	if k <= 0 || k >= len(items) {
		return items
	}
	return items[len(items)-k:]
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
