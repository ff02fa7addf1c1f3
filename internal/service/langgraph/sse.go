package langgraph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const maxEventSize = 8 << 20

// pumpEvents reads server-sent events from body and forwards them to writer
// until the stream ends, breaks, or the reader side is closed.
func pumpEvents(ctx context.Context, op string, body io.ReadCloser, writer *schema.StreamWriter[StreamEvent]) {
	defer body.Close()
	defer writer.Close()

	err := scanEvents(body, func(ev StreamEvent) bool {
		if ev.Event == EventError {
			writer.Send(StreamEvent{}, &ServiceError{Op: op, Reason: ReasonRejected, Err: errors.New(errorMessage(ev))})
			return false
		}
		if ev.Event == EventEnd {
			return false
		}
		closed := writer.Send(ev, nil)
		return !closed
	})
	if err != nil {
		var se *ServiceError
		if errors.As(err, &se) {
			se.Op = op
			writer.Send(StreamEvent{}, se)
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		writer.Send(StreamEvent{}, transportError(op, err))
	}
}

// scanEvents parses a text/event-stream body and calls emit for each
// dispatched event. emit returning false stops the scan without error.
func scanEvents(r io.Reader, emit func(StreamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		event string
		data  strings.Builder
		lines int
	)

	dispatch := func() (bool, error) {
		if lines == 0 {
			event = ""
			return true, nil
		}
		raw := []byte(data.String())
		name := event
		if name == "" {
			name = "message"
		}
		event, lines = "", 0
		data.Reset()

		payload, err := decodeEventData(raw)
		if err != nil {
			return false, &ServiceError{Reason: ReasonMalformed, Err: fmt.Errorf("decode %s event: %w", name, err)}
		}
		return emit(StreamEvent{Event: name, Data: payload, Raw: raw}), nil
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			more, err := dispatch()
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			if lines > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			lines++
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return &ServiceError{Reason: ReasonMalformed, Err: err}
		}
		return err
	}
	_, err := dispatch()
	return err
}

func errorMessage(ev StreamEvent) string {
	if ev.Data != nil {
		if msg, ok := ev.Data["message"].(string); ok && msg != "" {
			if kind, ok := ev.Data["error"].(string); ok && kind != "" {
				return kind + ": " + msg
			}
			return msg
		}
	}
	if len(ev.Raw) > 0 {
		return string(ev.Raw)
	}
	return "run failed"
}
