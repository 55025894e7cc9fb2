package api

import (
	"net/http"
)

// Health reports datastore and session-store reachability for liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	status := "ok"
	code := http.StatusOK
	checks := map[string]string{}

	if err := h.Store.Ping(r.Context()); err != nil {
		checks["storage"] = err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}
	if err := h.Sessions.Ping(r.Context()); err != nil {
		checks["sessions"] = err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	} else {
		checks["sessions"] = "ok"
	}

	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
