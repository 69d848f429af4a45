package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderwatch-engine/internal/events"
)

func TestMakeEventEnvelope(t *testing.T) {
	t.Parallel()

	raw := events.MakeEvent("req-1", "crawl_started", 1, map[string]any{"task_id": "t1"})

	var e events.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "crawl_started", e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "req-1", e.RequestID)
	assert.False(t, e.At.IsZero())

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Equal(t, "t1", data["task_id"])
}

func TestMakeEventNilData(t *testing.T) {
	t.Parallel()

	raw := events.MakeEvent("", "ping", 1, nil)

	var e events.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "ping", e.Type)
	assert.Nil(t, e.Data)
}

func TestHubFanOut(t *testing.T) {
	t.Parallel()

	hub := events.NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(b)

	hub.Publish("one")
	assert.Equal(t, "one", <-a)
	assert.Equal(t, "one", <-b)

	hub.Unsubscribe(a)
	hub.Publish("two")
	assert.Equal(t, "two", <-b)
}

func TestHubDropsWhenSubscriberLags(t *testing.T) {
	t.Parallel()

	hub := events.NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Channel buffer is 10; extra publishes are dropped, not blocking.
	for i := 0; i < 50; i++ {
		hub.Publish("evt")
	}
	assert.Len(t, ch, 10)
}
