package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/portfolio-intake/internal/events"
	"github.com/aristath/portfolio-intake/internal/utils"
)

const (
	// FormatJSON sends text frames holding JSON
	FormatJSON = "json"
	// FormatMsgpack sends binary frames holding msgpack
	FormatMsgpack = "msgpack"

	streamBuffer      = 100
	writeTimeout      = 5 * time.Second
	heartbeatInterval = 30 * time.Second
)

// EventsStreamHandler streams bus events to websocket clients
type EventsStreamHandler struct {
	eventBus  *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: heartbeatInterval,
		done:      make(chan struct{}),
	}
}

// Close disconnects every client
func (h *EventsStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP handles GET /api/events/ws
// Query parameters: types (comma separated event types, default all), format (json|msgpack).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	allowedTypes, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatMsgpack {
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}

	eventChan := make(chan *events.Event, streamBuffer)

	// Subscribe before the handshake completes so a client never misses events emitted
	// right after it connects
	unsubscribe := h.eventBus.SubscribeAll(func(event *events.Event) {
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}

		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Client messages are ignored; ctx ends when the client goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().
		Str("format", format).
		Int("types", len(allowedTypes)).
		Msg("Client connected to event stream")

	if err := h.send(ctx, conn, format, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return

		case event := <-eventChan:
			payload, err := events.ToMap(event)
			if err != nil {
				h.log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to encode event")
				continue
			}
			if err := h.send(ctx, conn, format, payload); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.send(ctx, conn, format, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}

func (h *EventsStreamHandler) send(ctx context.Context, conn *websocket.Conn, format string, message map[string]interface{}) error {
	data, msgType, err := encodeMessage(format, message)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, msgType, data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write to event stream")
		return err
	}
	return nil
}

func encodeMessage(format string, message map[string]interface{}) ([]byte, websocket.MessageType, error) {
	if format == FormatMsgpack {
		data, err := msgpack.Marshal(message)
		return data, websocket.MessageBinary, err
	}
	data, err := json.Marshal(message)
	return data, websocket.MessageText, err
}

// parseTypes returns nil when every event type is wanted
func parseTypes(filter string) (map[events.EventType]bool, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}

	known := make(map[events.EventType]bool, len(events.AllTypes))
	for _, t := range events.AllTypes {
		known[t] = true
	}

	allowed := make(map[events.EventType]bool)
	for _, part := range utils.SplitList(filter) {
		t := events.EventType(strings.ToUpper(part))
		if !known[t] {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		allowed[t] = true
	}
	return allowed, nil
}
