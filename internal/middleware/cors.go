package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy 跨域来源白名单，同时用于 CORS 与 WebSocket 握手校验。
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy 根据配置的来源列表创建白名单，空列表表示只允许同源访问。
func NewOriginPolicy(origins []string) *OriginPolicy {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return &OriginPolicy{allowed: allowed}
}

// Allowed 判断来源是否在白名单中。
func (p *OriginPolicy) Allowed(origin string) bool {
	if p == nil {
		return false
	}
	_, ok := p.allowed[origin]
	return ok
}

// CheckOrigin 校验 WebSocket 握手：无 Origin、同源或白名单来源放行。
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return p.Allowed(origin)
}

// CORS 只为白名单来源返回跨域响应头，并直接响应预检请求。
func (p *OriginPolicy) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Add("Vary", "Origin")
		}
		if p.Allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
