package research

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/research-desk/backend/internal/model/research"
)

const (
	wsWriteTimeout = 10 * time.Second
	// wsInboxSize 运行期间可排队的客户端消息数
	wsInboxSize = 8
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type errorPayload struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// handleWebSocket 处理WebSocket研究会话
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessions.ID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", sessionID)

	// 连接断开时取消 ctx，正在进行的研究随之结束并释放会话
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbox := make(chan inboundMessage, wsInboxSize)
	go h.readMessages(ctx, cancel, conn, sessionID, inbox)

	send := func(msgType string, data interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(outgoingMessage{
			Type:      msgType,
			SessionID: sessionID,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	for {
		var msg inboundMessage
		select {
		case <-ctx.Done():
			log.Printf("[ws] connection closed for session=%s", sessionID)
			return
		case msg = <-inbox:
		}

		switch msg.Type {
		case "ping":
			if err := send("pong", nil); err != nil {
				return
			}
		case "submit":
			var sub Submission
			if err := json.Unmarshal(msg.Data, &sub); err != nil {
				if err := send("error", errorPayload{Error: "invalid submit payload", Reason: "invalid"}); err != nil {
					return
				}
				continue
			}
			if err := h.serveSubmit(ctx, sessionID, sub, send); err != nil {
				log.Printf("[ws] session=%s: %v", sessionID, err)
				return
			}
		default:
			if err := send("error", errorPayload{Error: "unknown message type: " + msg.Type, Reason: "invalid"}); err != nil {
				return
			}
		}
	}
}

// readMessages 持续读取客户端消息；读取失败说明连接已断开，此时调用 cancel
func (h *Handler) readMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID string, inbox chan<- inboundMessage) {
	defer cancel()
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error for session=%s: %v", sessionID, err)
			}
			return
		}

		select {
		case inbox <- msg:
		case <-ctx.Done():
			return
		default:
			log.Printf("[ws] session=%s inbox full, dropping %q message", sessionID, msg.Type)
		}
	}
}

// serveSubmit 通过连接执行一次提交，只返回写入失败，运行失败会发送给客户端
func (h *Handler) serveSubmit(ctx context.Context, sessionID string, sub Submission, send func(string, interface{}) error) error {
	input := sub.Input()

	release, err := h.begin(sessionID, input)
	if err != nil {
		_, reason := classify(err)
		return send("error", errorPayload{Error: err.Error(), Reason: reason})
	}
	defer release()

	if err := send("busy", map[string]bool{"busy": true}); err != nil {
		return err
	}

	var writeErr error
	outcome, runErr := h.run(ctx, input, func(state research.State) {
		if writeErr == nil {
			writeErr = send("snapshot", state)
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, reason := classify(runErr)
		if err := send("error", errorPayload{Error: runErr.Error(), Reason: reason}); err != nil {
			return err
		}
	} else if err := send("result", outcome); err != nil {
		return err
	}

	return send("busy", map[string]bool{"busy": false})
}
