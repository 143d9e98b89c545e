package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/service/progress"
)

// cancelJob handles POST /jobs/{id}/cancel, delegating to
// Runner.CancelJob which cancels a running job's context or marks a
// pending one cancelled directly.
func (h *handlers) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.cancelJob.parseID", err))
		return
	}

	if err := h.deps.Runner.CancelJob(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const sseHeartbeatInterval = 15 * time.Second

// jobEvents handles GET /jobs/{id}/events: an SSE stream of the job's
// progress operation, grounded on the teacher's
// internal/http/handlers/progress.go handleSSEEvents - adapted to plain
// chi (no huma registration path needed here since this route was never
// huma-registered in the teacher either).
func (h *handlers) jobEvents(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.jobEvents.parseID", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	filter := &progress.OperationFilter{OwnerID: &id}
	sub := h.deps.Progress.Subscribe(filter)
	defer h.deps.Progress.Unsubscribe(sub.ID)

	rc := http.NewResponseController(w)

	if current, err := h.deps.Progress.GetOperationByOwner("job", id); err == nil {
		writeSSEEvent(w, progress.EventTypeProgress, current)
		_ = rc.Flush()
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				return
			}
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if event.Progress.OwnerID != id {
				continue
			}
			writeSSEEvent(w, event.EventType, event.Progress)
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, eventType string, p *progress.UniversalProgress) {
	data, err := json.Marshal(p)
	if err != nil {
		fmt.Fprintf(w, "event: %s\ndata: {\"error\": \"marshal error\"}\n\n", eventType)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
