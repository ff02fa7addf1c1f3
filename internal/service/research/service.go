package research

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/research-desk/backend/internal/model/research"
	"github.com/zhouzirui/research-desk/backend/internal/model/session"
	"github.com/zhouzirui/research-desk/backend/internal/service/langgraph"
)

// DefaultAssistantID is the graph id the research workflow is deployed under.
const DefaultAssistantID = "research_assistant"

// Remote is the graph execution service the research workflow runs on.
type Remote interface {
	CreateThread(ctx context.Context) (langgraph.Thread, error)
	StreamRun(ctx context.Context, threadID string, req langgraph.RunRequest) (*schema.StreamReader[langgraph.StreamEvent], error)
}

// Storage is the key-value storage of one user session.
type Storage interface {
	Value(key string) (string, bool)
	SetValue(key, value string) error
}

// Observer receives a copy of the aggregated state after every merge.
type Observer func(state research.State)

// Config tunes the research service.
type Config struct {
	AssistantID string
	Timeout     time.Duration
}

// Result is the outcome of a completed run.
type Result struct {
	ThreadID string         `json:"threadId"`
	RunID    string         `json:"runId,omitempty"`
	State    research.State `json:"state"`
}

// Service runs the remote research workflow for a user session.
type Service struct {
	remote      Remote
	assistantID string
	timeout     time.Duration
}

// NewService creates a research service on top of remote.
func NewService(remote Remote, cfg Config) *Service {
	assistantID := cfg.AssistantID
	if assistantID == "" {
		assistantID = DefaultAssistantID
	}
	return &Service{
		remote:      remote,
		assistantID: assistantID,
		timeout:     cfg.Timeout,
	}
}

// AssistantID returns the workflow identifier runs are started against.
func (s *Service) AssistantID() string {
	return s.assistantID
}

// Run submits input on the session's thread, creating the thread on first
// use, and returns the state aggregated from the run's snapshots. On failure
// the partial state is discarded and the thread id is kept for a retry.
func (s *Service) Run(ctx context.Context, store Storage, input research.RunInput, observers ...Observer) (Result, error) {
	if err := input.Validate(); err != nil {
		return Result{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	threadID, err := s.ensureThread(ctx, store)
	if err != nil {
		return Result{}, err
	}

	stream, err := s.remote.StreamRun(ctx, threadID, langgraph.RunRequest{
		AssistantID: s.assistantID,
		Input:       input.Map(),
		StreamMode:  langgraph.StreamModeValues,
	})
	if err != nil {
		return Result{}, asServiceError("runs.stream", err)
	}
	defer stream.Close()

	result := Result{ThreadID: threadID}
	state := research.NewState()
	for {
		event, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			log.Printf("[research] run failed thread=%s: %v", threadID, recvErr)
			return Result{}, asServiceError("runs.stream", recvErr)
		}

		// Metadata describes the run itself, not the graph state.
		if event.Event == langgraph.EventMetadata {
			if runID := event.RunID(); runID != "" {
				result.RunID = runID
			}
			continue
		}
		if len(event.Data) == 0 {
			continue
		}

		if omitted := state.Merge(event.Data); len(omitted) > 0 {
			log.Printf("[research] snapshot on thread=%s omitted previously seen keys %v; values mode is expected to carry the full state", threadID, omitted)
		}
		for _, observe := range observers {
			observe(state.Clone())
		}
	}

	result.State = state
	log.Printf("[research] completed run thread=%s run=%s keys=%d", threadID, result.RunID, len(state))
	return result, nil
}

func (s *Service) ensureThread(ctx context.Context, store Storage) (string, error) {
	if threadID, ok := store.Value(session.KeyThreadID); ok && threadID != "" {
		return threadID, nil
	}

	thread, err := s.remote.CreateThread(ctx)
	if err != nil {
		return "", asServiceError("threads.create", err)
	}
	if err := store.SetValue(session.KeyThreadID, thread.ThreadID); err != nil {
		log.Printf("[research] failed to persist thread=%s: %v", thread.ThreadID, err)
	}
	log.Printf("[research] created thread=%s", thread.ThreadID)
	return thread.ThreadID, nil
}

func asServiceError(op string, err error) error {
	if langgraph.IsServiceError(err) {
		return err
	}
	reason := langgraph.ReasonMalformed
	if errors.Is(err, context.DeadlineExceeded) {
		reason = langgraph.ReasonTimeout
	} else if errors.Is(err, context.Canceled) {
		reason = langgraph.ReasonUnreachable
	}
	return &langgraph.ServiceError{Op: op, Reason: reason, Err: err}
}
