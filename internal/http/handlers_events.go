package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultKeepAlive = 25 * time.Second

// StreamOptions tunes the session event stream.
type StreamOptions struct {
	KeepAlive time.Duration
}

func (o StreamOptions) keepAlive() time.Duration {
	if o.KeepAlive <= 0 {
		return defaultKeepAlive
	}
	return o.KeepAlive
}

// Events streams the session state as Server-Sent Events. The first event
// carries the current state; later events follow session changes.
// GET /auth/events.
func (h *AuthHandlers) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := h.Sessions.Resolve(ctx, sessionIDFromRequest(r))
	if err != nil {
		h.logger().ErrorContext(ctx, "session subscription failed", "error", err)
		WriteError(w, ErrorParams{
			Code:      http.StatusServiceUnavailable,
			ErrCode:   "events_unavailable",
			Message:   "Live session updates are unavailable.",
			Retryable: true,
		})
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger().WarnContext(ctx, "clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.Stream.keepAlive())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sc, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := writeEvent(w, "session", newSessionView(sc)); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
