package research

import (
	"log"
	"net/http"
	"time"

	"github.com/zhouzirui/research-desk/backend/internal/model/research"
	"github.com/zhouzirui/research-desk/backend/pkg/utils"
)

// sseKeepAlive 等待远程快照期间发送心跳注释的间隔
var sseKeepAlive = 15 * time.Second

// StreamResponse SSE推送的进度事件内容
type StreamResponse struct {
	Event    string         `json:"event"`
	ThreadID string         `json:"threadId,omitempty"`
	State    research.State `json:"state,omitempty"`
	Outcome  *Outcome       `json:"outcome,omitempty"`
	Error    string         `json:"error,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// handleStream 通过SSE推送研究进度
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sub, err := parseQuery(r)
	if err != nil {
		utils.RespondErrorReason(w, http.StatusBadRequest, err.Error(), "invalid")
		return
	}

	ctx := r.Context()
	sessionID := h.sessions.ID(ctx)
	input := sub.Input()

	release, err := h.begin(sessionID, input)
	if err != nil {
		status, reason := classify(err)
		utils.RespondErrorReason(w, status, err.Error(), reason)
		return
	}
	defer release()

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[sse] opening research stream for session=%s", sessionID)
	send := func(resp StreamResponse) {
		if err := sse.Event(resp.Event, resp); err != nil {
			log.Printf("[sse] session=%s: %v", sessionID, err)
		}
	}
	send(StreamResponse{Event: "start"})

	stopKeepAlive := sse.KeepAlive(ctx, sseKeepAlive)
	outcome, err := h.run(ctx, input, func(state research.State) {
		send(StreamResponse{Event: "snapshot", State: state})
	})
	stopKeepAlive()
	if err != nil {
		_, reason := classify(err)
		log.Printf("[sse] session=%s run failed: %v", sessionID, err)
		send(StreamResponse{Event: "error", Error: err.Error(), Reason: reason})
		return
	}

	send(StreamResponse{Event: "result", ThreadID: outcome.ThreadID, Outcome: &outcome})
	log.Printf("[sse] completed research stream for session=%s thread=%s", sessionID, outcome.ThreadID)
}
