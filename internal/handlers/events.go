package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-graph/internal/services/events"
)

// DefaultKeepalive is how often an idle event stream sends a comment line.
const DefaultKeepalive = 30 * time.Second

// EventsHandler streams playback events to clients as Server-Sent Events
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
}

func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger, keepalive time.Duration) *EventsHandler {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   keepalive,
	}
}

// ServeHTTP handles SSE requests for playback events
// GET /v1/events/playback/{id}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	idStr, ok := strings.CutPrefix(strings.Trim(r.URL.Path, "/"), "v1/events/playback/")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/events/playback/{id}")
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid playback ID format")
		return
	}

	ctx := r.Context()
	channel := events.Channel(id)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	// Wait for the subscription so no event published after "connected" is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe", "error", err, "channel", channel)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	h.logger.Info("SSE connection established", "session_id", id.String(), "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Write deadline not adjustable", "error", err)
	}

	msgChan := pubsub.Channel()
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	h.sendSSE(w, "connected", map[string]any{
		"session_id": id.String(),
		"message":    "Connected to event stream",
	})

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "session_id", id.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, string(event.Type), event.Data)

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flush(w)
}

func flush(w http.ResponseWriter) {
	_ = http.NewResponseController(w).Flush()
}
