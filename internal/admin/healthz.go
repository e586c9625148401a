package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthzResponse is the /healthz body: overall status plus one entry
// per registered HealthChecker.
type healthzResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

type checkResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// handleHealthz runs every registered HealthChecker and reports 200 if
// all pass, 503 if any fail -- a dependency outage should not mask
// itself behind a healthy process check.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]checkResult, len(s.checkers))
	allOK := true
	for _, c := range s.checkers {
		ok, detail := c.Healthy(ctx)
		checks[c.Name()] = checkResult{OK: ok, Detail: detail}
		if !ok {
			allOK = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !allOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(healthzResponse{Status: status, Checks: checks})
}
