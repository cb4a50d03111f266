package httpx

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

const healthResponse = `{"status":"ok"}`

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// liveness answers 200 while the process serves requests.
func liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// readiness runs every check under one deadline and answers 503 when any fails.
func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	names := slices.Sorted(maps.Keys(checks))
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		body := readinessBody{Status: "ok", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				body.Status = "unavailable"
				body.Checks[name] = "unavailable"
				if logger != nil {
					logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
				}
				continue
			}
			body.Checks[name] = "ok"
		}

		code := http.StatusOK
		if body.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, body)
	}
}
