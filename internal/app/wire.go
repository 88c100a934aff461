package app

import (
	"database/sql"
	"log/slog"

	"github.com/hitoshi/retainerkit/internal/auth"
	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/client"
	"github.com/hitoshi/retainerkit/internal/config"
	"github.com/hitoshi/retainerkit/internal/contract"
	"github.com/hitoshi/retainerkit/internal/handler"
	"github.com/hitoshi/retainerkit/internal/metrics"
	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/repository"
	"github.com/hitoshi/retainerkit/internal/security"
	"github.com/hitoshi/retainerkit/internal/timeentry"
	"github.com/hitoshi/retainerkit/internal/user"
	"github.com/hitoshi/retainerkit/internal/workspace"
)

// oauthProviders は資格情報が設定されたOAuthプロバイダーだけを返す。
func oauthProviders(cfg *config.Config) []auth.OAuthProvider {
	var providers []auth.OAuthProvider
	if cfg.GoogleEnabled() {
		providers = append(providers, auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}))
	}
	if cfg.GitHubEnabled() {
		providers = append(providers, auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
		}))
	}
	return providers
}

// rateLimiterConfig は設定値（req/min）からレート制限設定を組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	return middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitInvoiceGen)
}

// newRouterDeps はリポジトリ・サービスを組み立ててルーターの依存関係を返す。
// dbへの接続はリクエスト処理時まで行われない。
func newRouterDeps(
	cfg *config.Config,
	db *sql.DB,
	collector metrics.MetricsCollector,
	rateLimiter *middleware.RateLimiter,
	logger *slog.Logger,
) *handler.RouterDeps {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	accountRepo := repository.NewPostgresAccountRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tokenRepo := repository.NewPostgresVerificationTokenRepo(db)
	workspaceRepo := repository.NewPostgresWorkspaceRepo(db)
	clientRepo := repository.NewPostgresClientRepo(db)
	contractRepo := repository.NewPostgresContractRepo(db)
	timeEntryRepo := repository.NewPostgresTimeEntryRepo(db)
	invoiceRepo := repository.NewPostgresInvoiceRepo(db)

	// 2. 認証
	adapter := auth.NewRepositoryAdapter(userRepo, accountRepo, sessionRepo, tokenRepo)
	authService := auth.NewService(
		adapter,
		auth.NewBcryptHasher(cfg.BcryptCost),
		oauthProviders(cfg),
		collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// 3. ドメインサービス
	sanitizer := security.NewTextSanitizer()
	clientService := client.NewService(clientRepo, userRepo, sanitizer)
	contractService := contract.NewService(contractRepo, clientRepo, sanitizer)
	timeEntryService := timeentry.NewService(timeEntryRepo, contractRepo, sanitizer)
	invoiceService := billing.NewInvoiceService(invoiceRepo, contractRepo)
	engine := billing.NewEngine(contractRepo, timeEntryRepo, invoiceRepo, collector)
	portal := client.NewPortal(workspace.NewClientResolver(clientRepo), clientRepo)

	return &handler.RouterDeps{
		SessionFinder:     adapter,
		WorkspaceResolver: workspace.NewResolver(userRepo, workspaceRepo, collector),
		HealthChecker:     db,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		Logger:      logger,
		Metrics:     collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		ClientService:    clientService,
		ContractService:  contractService,
		TimeEntryService: timeEntryService,
		InvoiceService:   invoiceService,
		InvoiceGenerator: engine,
		PortalService:    portal,

		AccountService: user.NewService(userRepo),
	}
}
