package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

var requestInfoContextKey = contextKey("request_info")

// requestInfo は内側のミドルウェアが解決した値を外側のログに渡す。
type requestInfo struct {
	mu          sync.Mutex
	userID      string
	workspaceID string
}

func (ri *requestInfo) snapshot() (string, string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return ri.userID, ri.workspaceID
}

// recordUserID はログ用にユーザーIDを記録する。ロギングミドルウェア外では何もしない。
func recordUserID(ctx context.Context, userID string) {
	if ri, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		ri.mu.Lock()
		ri.userID = userID
		ri.mu.Unlock()
	}
}

// recordWorkspaceID はログ用にワークスペースIDを記録する。
func recordWorkspaceID(ctx context.Context, workspaceID string) {
	if ri, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		ri.mu.Lock()
		ri.workspaceID = workspaceID
		ri.mu.Unlock()
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id、workspace_id（解決済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			info := &requestInfo{}
			ctx := context.WithValue(r.Context(), requestInfoContextKey, info)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			userID, workspaceID := info.snapshot()
			if userID != "" {
				args = append(args, slog.String("user_id", userID))
			}
			if workspaceID != "" {
				args = append(args, slog.String("workspace_id", workspaceID))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
