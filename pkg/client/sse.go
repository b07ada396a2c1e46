package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// readStream consumes an SSE byte stream, decoding each data frame into an
// event and invoking onEvent synchronously in arrival order. Comment frames
// (heartbeats) are filtered and never surface. It returns nil when the
// stream ends; whether that end was normal is for the caller to decide from
// the events it observed.
//
// Events are processed one at a time before the next read resumes, so the
// callback sees them in exactly the order the server emitted them.
func readStream(r io.Reader, onEvent func(insight.Event) error) error {
	reader := bufio.NewReader(r)

	var data strings.Builder
	for {
		line, err := reader.ReadString('\n')

		if len(line) > 0 {
			switch {
			case strings.HasPrefix(line, ":"):
				// Heartbeat or comment frame.

			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(line, "data:")
				payload = strings.TrimPrefix(payload, " ")
				// Consecutive data lines of one frame are joined with a
				// newline per the SSE grammar.
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimRight(payload, "\n"))

			case strings.TrimRight(line, "\n") == "":
				if data.Len() > 0 {
					if derr := dispatch(data.String(), onEvent); derr != nil {
						return derr
					}
					data.Reset()
				}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// A frame without a trailing blank line still counts.
				if data.Len() > 0 {
					return dispatch(data.String(), onEvent)
				}
				return nil
			}
			return err
		}
	}
}

func dispatch(payload string, onEvent func(insight.Event) error) error {
	evt, err := insight.UnmarshalEvent([]byte(payload))
	if err != nil {
		return fmt.Errorf("decoding stream frame: %w", err)
	}
	return onEvent(evt)
}
