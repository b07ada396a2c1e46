package client

import (
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/insight-stream/pkg/insight"
)

func collectEvents(t *testing.T, raw string) []insight.Event {
	t.Helper()

	var events []insight.Event
	err := readStream(strings.NewReader(raw), func(evt insight.Event) error {
		events = append(events, evt)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestReadStreamDecodesFramesInOrder(t *testing.T) {
	raw := "data: {\"type\":\"progress\",\"status\":\"first\"}\n\n" +
		"data: {\"type\":\"progress\",\"status\":\"second\"}\n\n" +
		"data: {\"type\":\"subtext_complete\",\"result\":{\"ok\":true}}\n\n"

	events := collectEvents(t, raw)
	require.Len(t, events, 3)

	assert.Equal(t, insight.ProgressEvent{Status: "first"}, events[0])
	assert.Equal(t, insight.ProgressEvent{Status: "second"}, events[1])
	assert.True(t, events[2].Terminal())
}

func TestReadStreamFiltersHeartbeats(t *testing.T) {
	raw := strings.Repeat(":\n\n", 20) +
		"data: {\"type\":\"progress\",\"status\":\"working\"}\n\n" +
		":\n\n"

	events := collectEvents(t, raw)
	require.Len(t, events, 1, "heartbeat frames must never surface as events")
	assert.Equal(t, insight.ProgressEvent{Status: "working"}, events[0])
}

func TestReadStreamHeartbeatOnlyStream(t *testing.T) {
	events := collectEvents(t, strings.Repeat(":\n\n", 5))
	assert.Empty(t, events)
}

func TestReadStreamHandlesPartialReads(t *testing.T) {
	raw := "data: {\"type\":\"progress\",\"status\":\"chunked\"}\n\n"

	var events []insight.Event
	err := readStream(iotest.OneByteReader(strings.NewReader(raw)), func(evt insight.Event) error {
		events = append(events, evt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, insight.ProgressEvent{Status: "chunked"}, events[0])
}

func TestReadStreamJoinsMultiLineData(t *testing.T) {
	// One frame split across several data lines reassembles with newline
	// separators, per the SSE grammar. The raw result bytes make the joiner
	// observable: concatenating the lines directly would yield [1,2].
	raw := "data: {\"type\":\"subtext_complete\",\"result\":[1,\n" +
		"data: 2]}\n\n"

	events := collectEvents(t, raw)
	require.Len(t, events, 1)

	complete, ok := events[0].(insight.CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, "[1,\n2]", string(complete.Result))
}

func TestReadStreamFinalFrameWithoutTrailingBlank(t *testing.T) {
	raw := "data: {\"type\":\"error\",\"error\":\"boom\"}\n"

	events := collectEvents(t, raw)
	require.Len(t, events, 1)
	assert.Equal(t, insight.ErrorEvent{Message: "boom"}, events[0])
}

func TestReadStreamRejectsMalformedFrame(t *testing.T) {
	err := readStream(strings.NewReader("data: {not json}\n\n"), func(insight.Event) error {
		t.Fatal("callback must not run for undecodable frames")
		return nil
	})
	assert.Error(t, err)
}
