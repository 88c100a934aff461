package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// newFrozenRateLimiter は時計を止めたRateLimiterを作る。トークンは補充されない。
func newFrozenRateLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *time.Time) {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	now := fixedNow
	rl.now = func() time.Time { return now }
	return rl, &now
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/generate", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_GeneralBurstThen429(t *testing.T) {
	rl, _ := newFrozenRateLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 3, InvoiceGenRate: 1, InvoiceGenBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if w := serve(handler, requestAs("user-1")); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := serve(handler, requestAs("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if ra, err := strconv.Atoi(w.Header().Get("Retry-After")); err != nil || ra < 1 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}

	// 別ユーザーは影響を受けない
	if w := serve(handler, requestAs("user-2")); w.Code != http.StatusOK {
		t.Errorf("other user: status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl, now := newFrozenRateLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 1, InvoiceGenRate: 1, InvoiceGenBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	serve(handler, requestAs("user-1"))
	if w := serve(handler, requestAs("user-1")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	*now = now.Add(time.Second)
	if w := serve(handler, requestAs("user-1")); w.Code != http.StatusOK {
		t.Errorf("after refill: status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_InvoiceGenerationIndependent(t *testing.T) {
	rl, _ := newFrozenRateLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 10, InvoiceGenRate: 1, InvoiceGenBurst: 2})
	// 実際のルーターと同じく全般 -> 請求書生成の順に重ねる
	handler := rl.GeneralMiddleware()(rl.InvoiceGenerationMiddleware()(okHandler()))
	general := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		if w := serve(handler, requestAs("user-1")); w.Code != http.StatusOK {
			t.Fatalf("generate %d: status = %d", i, w.Code)
		}
	}
	if w := serve(handler, requestAs("user-1")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("generate 3: status = %d, want 429", w.Code)
	}
	if w := serve(general, requestAs("user-1")); w.Code != http.StatusOK {
		t.Errorf("general route after generation limit: status = %d, want 200", w.Code)
	}
	if rl.InvoiceGenLimiterCount() != 1 || rl.GeneralLimiterCount() != 1 {
		t.Errorf("limiter counts = %d, %d", rl.GeneralLimiterCount(), rl.InvoiceGenLimiterCount())
	}
}

func TestRateLimiter_NoUserID_Returns401(t *testing.T) {
	rl, _ := newFrozenRateLimiter(t, DefaultRateLimiterConfig())
	for _, mw := range []func(http.Handler) http.Handler{rl.GeneralMiddleware(), rl.InvoiceGenerationMiddleware()} {
		if w := serve(mw(okHandler()), requestAs("")); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl, now := newFrozenRateLimiter(t, RateLimiterConfig{
		GeneralRate: 1, GeneralBurst: 5, InvoiceGenRate: 1, InvoiceGenBurst: 5,
		CleanupInterval: time.Minute,
	})
	serve(rl.GeneralMiddleware()(okHandler()), requestAs("idle"))
	serve(rl.InvoiceGenerationMiddleware()(okHandler()), requestAs("idle"))

	*now = now.Add(90 * time.Second)
	rl.cleanup()
	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("entry removed before TTL")
	}

	*now = now.Add(time.Minute)
	rl.cleanup()
	if rl.GeneralLimiterCount() != 0 || rl.InvoiceGenLimiterCount() != 0 {
		t.Errorf("counts after cleanup = %d, %d, want 0, 0", rl.GeneralLimiterCount(), rl.InvoiceGenLimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestPerMinuteRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralRate != 2.0 || cfg.GeneralBurst != 120 {
		t.Errorf("general = %v/%d, want 2/120", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.InvoiceGenBurst != 20 {
		t.Errorf("InvoiceGenBurst = %d, want 20", cfg.InvoiceGenBurst)
	}

	custom := PerMinuteRateLimiterConfig(30, 6)
	if custom.GeneralRate != 0.5 || custom.InvoiceGenRate != 0.1 || custom.InvoiceGenBurst != 6 {
		t.Errorf("custom = %+v", custom)
	}
}
