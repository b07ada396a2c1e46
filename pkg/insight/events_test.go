package insight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		evt  Event
		want string
	}{
		{
			name: "progress event carries status",
			evt:  ProgressEvent{Status: StatusRecon},
			want: `{"type":"progress","status":"Gathering conversational signals"}`,
		},
		{
			name: "complete event type includes the kind",
			evt:  CompleteEvent{Kind: KindCPS, Result: json.RawMessage(`{"score":7}`)},
			want: `{"type":"cps_complete","result":{"score":7}}`,
		},
		{
			name: "error event carries the message verbatim",
			evt:  ErrorEvent{Message: "pass 2 failed"},
			want: `{"type":"error","error":"pass 2 failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := MarshalEvent(tt.evt)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestUnmarshalEvent_RoundTrip(t *testing.T) {
	t.Parallel()

	events := []Event{
		ProgressEvent{Status: StatusPassOne},
		CompleteEvent{Kind: KindSubtext, Result: json.RawMessage(`{"themes":[]}`)},
		ErrorEvent{Message: "backend unavailable"},
	}

	for _, evt := range events {
		data, err := MarshalEvent(evt)
		require.NoError(t, err)

		got, err := UnmarshalEvent(data)
		require.NoError(t, err)
		assert.Equal(t, evt.EventType(), got.EventType())
		assert.Equal(t, evt.Terminal(), got.Terminal())
	}
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "unknown type", data: `{"type":"bogus"}`},
		{name: "unknown kind in complete type", data: `{"type":"nonsense_complete"}`},
		{name: "not json", data: `data garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := UnmarshalEvent([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestTerminalMarkers(t *testing.T) {
	t.Parallel()

	assert.False(t, ProgressEvent{}.Terminal())
	assert.True(t, CompleteEvent{Kind: KindRecon}.Terminal())
	assert.True(t, ErrorEvent{}.Terminal())
}
