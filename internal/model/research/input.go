package research

import (
	"errors"
	"fmt"
)

// Form defaults and the analyst count bounds.
const (
	DefaultTopic       = "Future of AI in Healthcare"
	DefaultMaxAnalysts = 3
	DefaultFeedback    = "Please ensure analysts cover ethics and regulations."

	MinAnalysts = 1
	MaxAnalysts = 10
)

// ErrInvalidInput marks a submission rejected before any remote call.
var ErrInvalidInput = errors.New("invalid research input")

// RunInput is the payload handed to the remote research workflow.
type RunInput struct {
	Topic                string `json:"topic"`
	MaxAnalysts          int    `json:"max_analysts"`
	HumanAnalystFeedback string `json:"human_analyst_feedback"`
}

// NewRunInput builds a RunInput from the three form values as given.
func NewRunInput(topic string, maxAnalysts int, feedback string) RunInput {
	return RunInput{
		Topic:                topic,
		MaxAnalysts:          maxAnalysts,
		HumanAnalystFeedback: feedback,
	}
}

// DefaultInput returns the initial form values.
func DefaultInput() RunInput {
	return NewRunInput(DefaultTopic, DefaultMaxAnalysts, DefaultFeedback)
}

// Validate checks the analyst count bounds. Text fields are free-form and
// may be empty; the workflow decides what to make of them.
func (in RunInput) Validate() error {
	if in.MaxAnalysts < MinAnalysts || in.MaxAnalysts > MaxAnalysts {
		return fmt.Errorf("%w: max_analysts must be between %d and %d, got %d", ErrInvalidInput, MinAnalysts, MaxAnalysts, in.MaxAnalysts)
	}
	return nil
}

// Map returns the input as the generic mapping sent on the wire.
func (in RunInput) Map() map[string]any {
	return map[string]any{
		"topic":                  in.Topic,
		"max_analysts":           in.MaxAnalysts,
		"human_analyst_feedback": in.HumanAnalystFeedback,
	}
}
