package langgraph

// StreamModeValues asks the service to emit the full state after each step.
const StreamModeValues = "values"

// Stream event names emitted by the run stream endpoint.
const (
	EventMetadata = "metadata"
	EventValues   = "values"
	EventError    = "error"
	EventEnd      = "end"
)

// Thread is a server-side conversation context.
type Thread struct {
	ThreadID string         `json:"thread_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Status   string         `json:"status,omitempty"`
}

// RunRequest is the body of a streamed run.
type RunRequest struct {
	AssistantID string         `json:"assistant_id"`
	Input       map[string]any `json:"input"`
	StreamMode  string         `json:"stream_mode"`
}

// StreamEvent is one server-sent event of a run stream. Data is nil when the
// payload is absent or not a JSON object.
type StreamEvent struct {
	Event string
	Data  map[string]any
	Raw   []byte
}

// RunID returns the run identifier carried by a metadata event.
func (e StreamEvent) RunID() string {
	if e.Event != EventMetadata || e.Data == nil {
		return ""
	}
	id, _ := e.Data["run_id"].(string)
	return id
}
