package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	bus.Subscribe(Notification, func(*Event) { order = append(order, "first") })
	bus.SubscribeAll(func(*Event) { order = append(order, "all") })
	bus.Subscribe(Notification, func(*Event) { order = append(order, "second") })
	bus.Subscribe(FormChanged, func(*Event) { order = append(order, "form") })

	bus.Emit(&Event{Type: Notification})

	assert.Equal(t, []string{"first", "all", "second"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(FormChanged, func(*Event) { calls++ })
	bus.Emit(&Event{Type: FormChanged})

	unsubscribe()
	unsubscribe() // idempotent
	bus.Emit(&Event{Type: FormChanged})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	delivered := false
	bus.SubscribeAll(func(*Event) { panic("boom") })
	bus.SubscribeAll(func(*Event) { delivered = true })

	require.NotPanics(t, func() { bus.Emit(&Event{Type: ErrorOccurred}) })
	assert.True(t, delivered)
}

func TestBus_SetsTimestamp(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got *Event
	bus.SubscribeAll(func(e *Event) { got = e })
	bus.Emit(&Event{Type: Notification})

	require.NotNil(t, got)
	assert.False(t, got.Timestamp.IsZero())
}

func TestManager_EmitPublishesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	bus := NewBus(log)
	manager := NewManager(bus, log)

	var got *Event
	bus.Subscribe(Notification, func(e *Event) { got = e })

	manager.Notify("catalog", LevelSuccess, "Your data is now ready for use!")

	require.NotNil(t, got)
	assert.Equal(t, Notification, got.Type)
	assert.Equal(t, "catalog", got.Module)
	data, ok := got.Data.(*NotificationData)
	require.True(t, ok)
	assert.Equal(t, LevelSuccess, data.Level)
	assert.Contains(t, buf.String(), "Event emitted")
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { got = e })
	manager.EmitError("form", errors.New("backend unavailable"), map[string]interface{}{"stocks": 3})

	require.NotNil(t, got)
	data := got.Data.(*ErrorEventData)
	assert.Equal(t, "backend unavailable", data.Error)
}

func TestToMap(t *testing.T) {
	event := &Event{
		Type:   CatalogLoaded,
		Module: "catalog",
		Data: &CatalogLoadedData{
			UploadID: "u-1",
			FileName: "prices.csv",
			Tickers:  []string{"msft", "aapl"},
			Rows:     2,
		},
	}

	m, err := ToMap(event)
	require.NoError(t, err)
	assert.Equal(t, "CATALOG_LOADED", m["type"])

	data, ok := m["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "prices.csv", data["file_name"])
	assert.Equal(t, float64(2), data["rows"])
}

func TestEventData_JSON(t *testing.T) {
	data := &SubmissionRejectedData{Errors: []FieldIssue{{Path: "stocks", Message: "too few"}}}

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[{"path":"stocks","message":"too few"}]}`, string(raw))
	assert.Equal(t, SubmissionRejected, data.EventType())
}
