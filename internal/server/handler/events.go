package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/colosseo/arenabook/internal/domain"
)

// EventHandler serves the durable event log for clients that need to catch
// up after a dropped WebSocket connection.
type EventHandler struct {
	events domain.EventStore
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events domain.EventStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logHandler(logger, "events"),
	}
}

// ListEvents replays events after a given sequence number.
// GET /api/events?since=0&limit=100
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since int64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = n
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := h.events.ListSince(r.Context(), since, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"next":   next,
	})
}

// ListPoolEvents returns a pool's full event history in sequence order.
// GET /api/pools/{id}/events
func (h *EventHandler) ListPoolEvents(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	events, err := h.events.ListByPool(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pool events failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pool_id": id,
		"events":  events,
	})
}
