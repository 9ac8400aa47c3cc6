package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/middleware"
)

// HealthChecker はヘルスチェックに必要な最小インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// インフラ依存
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// コレクション
	CollectionService CollectionServiceInterface
	ShareService      ShareServiceInterface

	// ブックマーク
	BookmarkService BookmarkServiceInterface

	// 公開閲覧
	PublicShareService PublicShareServiceInterface
	ShareVerifier      ShareVerifierInterface
	ShareConfig        ShareHandlerConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (ルートグループごとのミドルウェア)
//
// /api/* はセッション必須、/s/* は匿名アクセス可（セッションがあればActorに反映）。
// パスワード検証エンドポイントのみ、クライアントIP単位の専用レート制限をかける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(nil))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	collectionHandler := NewCollectionHandler(deps.CollectionService, deps.ShareService)
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService)
	shareHandler := NewShareHandler(deps.PublicShareService, deps.ShareVerifier, deps.ShareConfig)

	// --- 運用向けルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// CSRFトークン取得エンドポイント（フロントエンドの初期化用）
	r.Method(http.MethodGet, "/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証ルート ---
	// セッション未確立でも到達できる必要があるため、セッションミドルウェアの外に置く。
	// 状態変更エンドポイントにはCSRF検証を適用する。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			// 退会はセッション必須
			r.With(middleware.NewSessionMiddleware(deps.SessionFinder)).
				Delete("/me", authHandler.Withdraw)
		})
	})

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/collections", func(r chi.Router) {
			r.Post("/", collectionHandler.Create)
			r.Get("/", collectionHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", collectionHandler.Get)
				r.Patch("/", collectionHandler.UpdateInfo)
				r.Delete("/", collectionHandler.Delete)
				r.Put("/share", collectionHandler.UpdateShareMode)

				r.Route("/bookmarks", func(r chi.Router) {
					r.Post("/", bookmarkHandler.Create)
					r.Patch("/{bookmarkID}", bookmarkHandler.Update)
					r.Delete("/{bookmarkID}", bookmarkHandler.Delete)
				})
			})
		})
	})

	// --- 公開閲覧ルート ---
	// 匿名アクセス可。セッションがあればオーナー判定に使う。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))

		r.Route("/s/{slug}", func(r chi.Router) {
			r.Get("/", shareHandler.GetPublic)

			// パスワード検証はブルートフォース対策の専用レート制限をかける
			r.With(deps.RateLimiter.VerifyMiddleware()).
				Post("/verify", shareHandler.Verify)
		})
	})

	return r
}
