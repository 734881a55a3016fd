package orchestrator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorIgnoresNonJSONChunks(t *testing.T) {
	var a Accumulator

	ev, consumed := a.Feed("[PHASE:searching]\n")
	assert.False(t, consumed)
	assert.Nil(t, ev)
	assert.False(t, a.Consuming())
}

func TestAccumulatorSingleChunk(t *testing.T) {
	var a Accumulator

	ev, consumed := a.Feed(`{"ok":true}` + "\n")
	require.True(t, consumed)
	require.NotNil(t, ev)
	assert.Equal(t, EventResult, ev.Type)
	assert.JSONEq(t, `{"ok":true}`, string(ev.Result))
	assert.False(t, a.Consuming())
}

func TestAccumulatorArbitrarySplits(t *testing.T) {
	payload := `{"title":"Results for \"broken } brace\"","items":[{"id":1,"score":0.93},{"id":2,"score":0.88}],"total":2}`

	// every possible split point, including inside string literals
	for cut := 1; cut < len(payload); cut++ {
		var a Accumulator

		ev, consumed := a.Feed(payload[:cut])
		require.True(t, consumed, "cut %d", cut)
		if ev == nil {
			assert.True(t, a.Consuming(), "cut %d", cut)
			ev, consumed = a.Feed(payload[cut:])
			require.True(t, consumed, "cut %d", cut)
		}

		require.NotNil(t, ev, "cut %d", cut)
		assert.Equal(t, EventResult, ev.Type)

		var got, want map[string]any
		require.NoError(t, json.Unmarshal(ev.Result, &got))
		require.NoError(t, json.Unmarshal([]byte(payload), &want))
		assert.Equal(t, want, got, "cut %d", cut)
		assert.False(t, a.Consuming())
	}
}

func TestAccumulatorManySmallChunks(t *testing.T) {
	payload := `{"summary":"done","count":42}`

	var a Accumulator
	var result *Event
	for _, c := range strings.Split(payload, "") {
		ev, consumed := a.Feed(c)
		require.True(t, consumed)
		if ev != nil {
			require.Nil(t, result, "only one result may be emitted")
			result = ev
		}
	}

	require.NotNil(t, result)
	assert.JSONEq(t, payload, string(result.Result))
}

func TestAccumulatorConsumingBlocksMarkerParsing(t *testing.T) {
	var a Accumulator

	_, consumed := a.Feed(`{"partial":`)
	require.True(t, consumed)
	require.True(t, a.Consuming())

	// while consuming, even marker-looking chunks are swallowed into the buffer
	ev, consumed := a.Feed(`"[PHASE:x]"}`)
	require.True(t, consumed)
	require.NotNil(t, ev)
	assert.JSONEq(t, `{"partial":"[PHASE:x]"}`, string(ev.Result))
}

func TestAccumulatorResetsOnRunawayGrowth(t *testing.T) {
	var a Accumulator

	_, consumed := a.Feed(`{"truncated":"`)
	require.True(t, consumed)

	filler := strings.Repeat("x", 8*1024)
	for i := 0; i < 10 && a.Consuming(); i++ {
		ev, consumed := a.Feed(filler)
		require.True(t, consumed)
		require.Nil(t, ev)
	}

	// the ceiling kicked in and the buffer was discarded
	assert.False(t, a.Consuming())

	// normal parsing resumes afterwards
	ev, consumed := a.Feed(`{"ok":true}`)
	require.True(t, consumed)
	require.NotNil(t, ev)
}
