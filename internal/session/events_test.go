// internal/session/events_test.go
package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeqa/testforge/api/schemas"
)

func TestEventLogOrderAndKinds(t *testing.T) {
	log := NewEventLog(8)

	log.OnConsole("warn", "deprecated API")
	log.OnRequest("GET", "https://example.test/app.js")
	log.OnResponse(200, "https://example.test/app.js")

	events := log.Snapshot()
	require.Len(t, events, 3)

	assert.Equal(t, schemas.PageEventConsole, events[0].Kind)
	assert.Equal(t, "warn", events[0].Detail)
	assert.Equal(t, "deprecated API", events[0].Text)

	assert.Equal(t, schemas.PageEventRequest, events[1].Kind)
	assert.Equal(t, "GET", events[1].Detail)

	assert.Equal(t, schemas.PageEventResponse, events[2].Kind)
	assert.Equal(t, "200", events[2].Detail)
}

func TestEventLogBounded(t *testing.T) {
	log := NewEventLog(4)

	for i := 0; i < 10; i++ {
		log.OnConsole("log", fmt.Sprintf("message %d", i))
	}

	events := log.Snapshot()
	require.Len(t, events, 4)
	// Oldest entries fall out; the survivors stay in arrival order.
	assert.Equal(t, "message 6", events[0].Text)
	assert.Equal(t, "message 9", events[3].Text)
}

func TestEventLogZeroSize(t *testing.T) {
	log := NewEventLog(0)
	log.OnConsole("log", "still recorded")
	assert.Len(t, log.Snapshot(), 1)
}
