package middleware

import (
	"log"
	"net/http"

	sessionService "github.com/zhouzirui/research-desk/backend/internal/service/session"
	"github.com/zhouzirui/research-desk/backend/pkg/utils"
)

// Sessions 通过 scs 加载并保存浏览器会话，首次访问时为会话分配ID并下发 Cookie。
func Sessions(svc *sessionService.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		ensure := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc.Ensure(r.Context())
			next.ServeHTTP(w, r)
		})
		return svc.Manager().LoadAndSave(ensure)
	}
}

// LoadSessions 只加载已有会话，不包装 ResponseWriter，供 SSE 与 WebSocket 长连接使用。
// 会话写入由调用方显式提交；没有有效会话时返回 401。
func LoadSessions(svc *sessionService.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(svc.CookieName()); err == nil {
				token = c.Value
			}

			ctx, err := svc.Load(r.Context(), token)
			if err != nil {
				log.Printf("[session] failed to load session: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
				return
			}
			if svc.ID(ctx) == "" {
				utils.RespondErrorReason(w, http.StatusUnauthorized, "session required", "session")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
