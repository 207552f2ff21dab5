package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event with typed data to the bus and logs it
func (m *Manager) Emit(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	m.bus.Emit(event)

	// Form snapshots are large and frequent; keep them out of info logs
	logEvent := m.log.Info()
	if event.Type == FormChanged {
		logEvent = m.log.Debug()
	}
	if logEvent.Enabled() {
		eventJSON, _ := json.Marshal(event)
		logEvent.
			Str("event_type", string(event.Type)).
			Str("module", module).
			RawJSON("event", eventJSON).
			Msg("Event emitted")
	}
}

// Notify emits a user-facing notification
func (m *Manager) Notify(module, level, message string) {
	m.Emit(module, &NotificationData{Level: level, Message: message})
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.Emit(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// ToMap converts an event into a generic map using its JSON representation.
// Encoders that do not honor json.Marshaler (msgpack) use this form.
func ToMap(event *Event) (map[string]interface{}, error) {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}
