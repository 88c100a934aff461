package middleware

import (
	"net/http"
	"strings"

	"github.com/hitoshi/retainerkit/internal/model"
)

// ParseAllowedOrigins はカンマ区切りのオリジン設定を分解する。空要素と末尾の"/"は除く。
func ParseAllowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewCORSMiddleware は許可リストのオリジンに対するCORSミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定できる。
// リクエストのOriginが許可リストにある場合だけ、そのOriginをエコーしてCookie付きの送信を許可する。
// 許可されないOriginからのプリフライトは403、空設定の場合は同一オリジンのみとしてヘッダーを付けない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, o := range ParseAllowedOrigins(allowedOrigins) {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if origin == "" || !allowed[origin] {
				if preflight {
					WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
						Code:     model.ErrCodeForbidden,
						Message:  "Origin not allowed.",
						Category: model.CategoryForbidden,
						Action:   "許可されたオリジンからアクセスしてください。",
					})
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if preflight {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeaderName)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
