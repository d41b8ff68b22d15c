package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/irzumbm/pulseai/internal/model"
)

// handleWatchRequest streams a request's status transitions over SSE until
// the request reaches a terminal state. Watching does not consume the
// result; a poll is still needed to take it.
func (s *Server) handleWatchRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, ok := s.registry.GetStatus(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "request not found")
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before writing the current status so no transition between
	// the two is lost. Subscribing to a finished request returns a closed
	// channel, so the loop below exits immediately after the snapshot.
	ch, unsub := s.registry.Broker().Subscribe(id)
	defer unsub()

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	if err := writeSSEData(w, status); err != nil {
		return
	}
	if canFlush {
		flusher.Flush()
	}
	if model.Terminal(status) {
		_ = writeSSEEvent(w, "done", status)
		if canFlush {
			flusher.Flush()
		}
		return
	}

	last := status
	for {
		select {
		case next, ok := <-ch:
			if !ok {
				// Request finished; send explicit done event before closing.
				_ = writeSSEEvent(w, "done", last)
				if canFlush {
					flusher.Flush()
				}
				return
			}
			last = next
			if err := writeSSEData(w, next); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSEData writes a status as an SSE data event. Multi-line strings are
// split so that each segment gets its own "data:" prefix, per the SSE spec.
func writeSSEData(w http.ResponseWriter, data string) error {
	for seg := range strings.SplitSeq(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	// Blank line terminates the event.
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
