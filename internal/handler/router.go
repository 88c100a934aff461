package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/metrics"
	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	WorkspaceResolver middleware.WorkspaceResolver
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 認証
	AuthService AuthService
	AuthConfig  AuthHandlerConfig

	// 契約者向け
	ClientService    ClientService
	ContractService  ContractService
	TimeEntryService TimeEntryService
	InvoiceService   InvoiceService
	InvoiceGenerator InvoiceGenerator

	// クライアント向け
	PortalService PortalService

	// アカウント
	AccountService AccountService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  └ 認証が必要なルート: CSRF → Session → RateLimit(General) → Workspace
//
// /health、/api/csrf-token、OAuthフロー（/auth/*）はセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("Route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
			Code:     "METHOD_NOT_ALLOWED",
			Message:  "Method not allowed.",
			Category: model.CategoryValidation,
			Action:   "APIのメソッドを確認してください。",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	clientHandler := NewClientHandler(deps.ClientService)
	contractHandler := NewContractHandler(deps.ContractService)
	workLogHandler := NewWorkLogHandler(deps.TimeEntryService)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceService, deps.InvoiceGenerator)
	portalHandler := NewPortalHandler(deps.PortalService)

	// --- 認証不要のルート ---

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// OAuthフロー
	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Get("/login", authHandler.OAuthLogin)
		r.Get("/callback", authHandler.OAuthCallback)
	})

	// パスワード認証（CSRF検証のみ）
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Post("/api/register", authHandler.Register)
		r.Post("/api/login", authHandler.Login)
		r.Post("/api/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.AuthConfig.cookieOptions()))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewWorkspaceMiddleware(deps.WorkspaceResolver))

		r.Get("/api/me", Me)
		r.Delete("/api/me", NewWithdrawHandler(deps.AccountService, deps.AuthConfig))

		// クライアント管理
		r.Route("/api/clients", func(r chi.Router) {
			r.Get("/", clientHandler.List)
			r.Post("/", clientHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", clientHandler.Get)
				r.Patch("/", clientHandler.Rename)
				r.Delete("/", clientHandler.Delete)
			})
		})

		r.Route("/api/client-members", func(r chi.Router) {
			r.Get("/", clientHandler.ListMembers)
			r.Post("/", clientHandler.AddMember)
			r.Delete("/", clientHandler.RemoveMember)
		})

		// 契約
		r.Route("/api/contracts", func(r chi.Router) {
			r.Get("/", contractHandler.List)
			r.Post("/", contractHandler.Create)
			r.Patch("/{id}", contractHandler.Update)
			r.Delete("/{id}", contractHandler.Delete)
		})

		// ワークログ
		r.Route("/api/work-logs", func(r chi.Router) {
			r.Get("/", workLogHandler.List)
			r.Post("/", workLogHandler.Create)
			r.Delete("/{id}", workLogHandler.Delete)
		})

		// 請求書
		r.Route("/api/invoices", func(r chi.Router) {
			r.Get("/", invoiceHandler.List)
			r.Post("/", invoiceHandler.Create)
			// 請求書生成は専用のレート制限を追加
			r.With(deps.RateLimiter.InvoiceGenerationMiddleware()).Post("/generate", invoiceHandler.Generate)
			r.Patch("/{id}", invoiceHandler.Update)
			r.Delete("/{id}", invoiceHandler.Delete)
		})

		// クライアントポータル
		r.Route("/api/portal", func(r chi.Router) {
			r.Get("/overview", portalHandler.Overview)
			r.Get("/invoices", portalHandler.Invoices)
		})
	})

	return r
}
