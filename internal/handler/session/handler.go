package session

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionService "github.com/zhouzirui/research-desk/backend/internal/service/session"
	"github.com/zhouzirui/research-desk/backend/pkg/utils"
)

// Handler 用户会话的HTTP处理器
type Handler struct {
	sessions *sessionService.Service
}

// New 创建会话处理器
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册会话相关的路由，需挂在会话保存中间件之后
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/session", h.handleGetSession)
	r.Delete("/api/session", h.handleEndSession)
}

// handleGetSession 返回当前会话信息
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Info(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, info)
}

// handleEndSession 结束当前会话，Cookie 在写回响应时失效
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.End(r.Context())
	if err != nil && !errors.Is(err, sessionService.ErrSessionNotFound) {
		log.Printf("[session] failed to end session: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
