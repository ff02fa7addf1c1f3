package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	middlewarePkg "github.com/zhouzirui/research-desk/backend/internal/middleware"
	"github.com/zhouzirui/research-desk/backend/internal/model/research"
	"github.com/zhouzirui/research-desk/backend/internal/render"
	"github.com/zhouzirui/research-desk/backend/internal/service/langgraph"
	researchService "github.com/zhouzirui/research-desk/backend/internal/service/research"
	sessionService "github.com/zhouzirui/research-desk/backend/internal/service/session"
	"github.com/zhouzirui/research-desk/backend/pkg/utils"
)

// Runner 执行一次远程研究工作流
type Runner interface {
	Run(ctx context.Context, store researchService.Storage, input research.RunInput, observers ...researchService.Observer) (researchService.Result, error)
}

// Handler 研究表单的HTTP处理器
type Handler struct {
	runner   Runner
	sessions *sessionService.Service
	upgrader websocket.Upgrader
}

// New 创建研究处理器，WebSocket 握手按 origins 校验来源
func New(runner Runner, sessions *sessionService.Service, origins *middlewarePkg.OriginPolicy) *Handler {
	return &Handler{
		runner:   runner,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin:     origins.CheckOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册页面与JSON接口路由，需挂在会话保存中间件之后
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleFormPage)
	r.Post("/research", h.handleFormSubmit)
	r.Post("/api/research", h.handleRun)
}

// RegisterStreamRoutes 注册SSE与WebSocket长连接路由，需挂在只加载会话的中间件之后
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/api/research/stream", h.handleStream)
	r.Get("/api/research/ws", h.handleWebSocket)
}

// Submission 客户端提交的表单内容
type Submission struct {
	Topic       string `json:"topic"`
	MaxAnalysts *int   `json:"maxAnalysts"`
	Feedback    string `json:"feedback"`
}

// Input 转换为运行输入，未提供分析师数量时使用默认值
func (s Submission) Input() research.RunInput {
	n := research.DefaultMaxAnalysts
	if s.MaxAnalysts != nil {
		n = *s.MaxAnalysts
	}
	return research.NewRunInput(s.Topic, n, s.Feedback)
}

// Outcome 一次成功提交返回给客户端的结果
type Outcome struct {
	ThreadID    string             `json:"threadId"`
	RunID       string             `json:"runId,omitempty"`
	State       research.State     `json:"state"`
	Analysts    []research.Analyst `json:"analysts,omitempty"`
	FinalReport string             `json:"finalReport,omitempty"`

	view render.View
}

// begin 校验输入并将会话标记为忙碌，运行结束后必须调用返回的 release
func (h *Handler) begin(sessionID string, input research.RunInput) (func(), error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := h.sessions.Acquire(sessionID); err != nil {
		return nil, err
	}
	return func() { h.sessions.Release(sessionID) }, nil
}

// run 在 ctx 所加载的会话上执行研究并生成展示视图
func (h *Handler) run(ctx context.Context, input research.RunInput, observers ...researchService.Observer) (Outcome, error) {
	result, err := h.runner.Run(ctx, h.sessions.Scope(ctx), input, observers...)
	if err != nil {
		return Outcome{}, err
	}

	view, err := render.NewView(result.State)
	if err != nil {
		return Outcome{}, fmt.Errorf("render result: %w", err)
	}
	return Outcome{
		ThreadID:    result.ThreadID,
		RunID:       result.RunID,
		State:       result.State,
		Analysts:    view.Analysts,
		FinalReport: view.FinalReport,
		view:        view,
	}, nil
}

// submit 为会话完整执行一次研究提交
func (h *Handler) submit(ctx context.Context, sessionID string, input research.RunInput) (Outcome, error) {
	release, err := h.begin(sessionID, input)
	if err != nil {
		return Outcome{}, err
	}
	defer release()
	return h.run(ctx, input)
}

// handleRun 以JSON方式执行一次研究
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var payload Submission
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondErrorReason(w, http.StatusBadRequest, "invalid request body", "invalid")
		return
	}

	sessionID := h.sessions.ID(r.Context())
	outcome, err := h.submit(r.Context(), sessionID, payload.Input())
	if err != nil {
		status, reason := classify(err)
		log.Printf("[research] session=%s run failed: %v", sessionID, err)
		utils.RespondErrorReason(w, status, err.Error(), reason)
		return
	}

	utils.RespondJSON(w, http.StatusOK, outcome)
}

// classify 将提交错误映射为HTTP状态码与简短原因
func classify(err error) (int, string) {
	var se *langgraph.ServiceError
	switch {
	case errors.Is(err, research.ErrInvalidInput):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, sessionService.ErrSessionBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, sessionService.ErrSessionNotFound):
		return http.StatusUnauthorized, "session"
	case errors.As(err, &se):
		if se.Reason == langgraph.ReasonTimeout {
			return http.StatusGatewayTimeout, string(se.Reason)
		}
		return http.StatusBadGateway, string(se.Reason)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// parseForm 读取三个表单字段，分析师数量不是整数时视为无效输入
func parseForm(r *http.Request) (Submission, error) {
	if err := r.ParseForm(); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", research.ErrInvalidInput, err)
	}
	sub := Submission{
		Topic:    r.PostFormValue("topic"),
		Feedback: r.PostFormValue("feedback"),
	}
	raw := strings.TrimSpace(r.PostFormValue("max_analysts"))
	if raw == "" {
		return sub, fmt.Errorf("%w: max_analysts is required", research.ErrInvalidInput)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return sub, fmt.Errorf("%w: max_analysts must be an integer", research.ErrInvalidInput)
	}
	sub.MaxAnalysts = &n
	return sub, nil
}

// parseQuery 从URL查询参数读取提交内容
func parseQuery(r *http.Request) (Submission, error) {
	q := r.URL.Query()
	sub := Submission{Topic: q.Get("topic"), Feedback: q.Get("feedback")}
	if raw := strings.TrimSpace(q.Get("maxAnalysts")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sub, fmt.Errorf("%w: maxAnalysts must be an integer", research.ErrInvalidInput)
		}
		sub.MaxAnalysts = &n
	}
	return sub, nil
}
