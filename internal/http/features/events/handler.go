package events

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/stay-concierge/internal/conversation"
	"github.com/tendant/stay-concierge/internal/http/middleware"
	"github.com/tendant/stay-concierge/internal/httputil"
)

// Dispatcher hands an event to the conversation engine and waits for the reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev conversation.Event) (conversation.Reply, error)
}

// Handler handles inbound channel events.
type Handler struct {
	logger     *slog.Logger
	dispatcher Dispatcher
	limiter    middleware.KeyLimiter
}

// NewHandler creates a new events handler.
func NewHandler(logger *slog.Logger, dispatcher Dispatcher, limiter middleware.KeyLimiter) *Handler {
	return &Handler{
		logger:     logger,
		dispatcher: dispatcher,
		limiter:    limiter,
	}
}

// Handle runs one conversation turn.
// POST /v1/events
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var ev conversation.Event
	if err := httputil.DecodeJSON(r, &ev); err != nil {
		if httputil.IsTooLarge(err) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validate(ev); msg != "" {
		httputil.Error(w, http.StatusBadRequest, msg)
		return
	}

	if h.limiter.Limit(w, r, ev.UserID) {
		return
	}

	reply, err := h.dispatcher.Dispatch(r.Context(), ev)
	if err != nil {
		channel, _ := middleware.GetChannel(r.Context())
		switch {
		case errors.Is(err, conversation.ErrClosed):
			httputil.Error(w, http.StatusServiceUnavailable, "shutting down")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			h.logger.Warn("event reply abandoned", "channel", channel, "user_id", ev.UserID, "error", err)
			httputil.Error(w, http.StatusServiceUnavailable, "event still processing")
		default:
			h.logger.Error("failed to dispatch event", "channel", channel, "user_id", ev.UserID, "error", err)
			httputil.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, reply)
}

// validate returns a client error message for a malformed event.
func validate(ev conversation.Event) string {
	if ev.UserID == "" {
		return "user_id is required"
	}
	if !ev.Kind.Valid() {
		return "kind must be one of text, media, command, start"
	}
	switch ev.Kind {
	case conversation.EventText:
		if ev.Text == "" {
			return "text is required"
		}
	case conversation.EventMedia:
		// Unsupported kinds reach the engine, which explains what it accepts.
		if ev.Media == nil || ev.Media.Ref == "" {
			return "media.ref is required"
		}
	case conversation.EventCommand:
		if ev.Command == "" {
			return "command is required"
		}
	}
	return ""
}
