package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/collection"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// grantCookiePrefix は検証済みマーカーCookieの名前プレフィックス。
// スラグごとに別のCookieにすることで、あるコレクションの検証通過が
// 別のコレクションに波及しないようにする。
const grantCookiePrefix = "share_grant_"

// PublicShareServiceInterface は公開閲覧ハンドラーが必要とするサービスインターフェース。
type PublicShareServiceInterface interface {
	GetPublic(ctx context.Context, actor model.Actor, slug, grantToken string) (*collection.PublicView, error)
}

// ShareVerifierInterface はパスワード検証プロトコルのインターフェース。
type ShareVerifierInterface interface {
	Verify(ctx context.Context, slug, password string) (*model.ShareGrant, error)
}

// ShareHandlerConfig は共有閲覧ハンドラーの設定。
type ShareHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// ShareHandler はスラグURL経由の公開閲覧とパスワード検証のHTTPハンドラー。
type ShareHandler struct {
	service  PublicShareServiceInterface
	verifier ShareVerifierInterface
	config   ShareHandlerConfig
}

// NewShareHandler はShareHandlerを生成する。
func NewShareHandler(service PublicShareServiceInterface, verifier ShareVerifierInterface, config ShareHandlerConfig) *ShareHandler {
	return &ShareHandler{
		service:  service,
		verifier: verifier,
		config:   config,
	}
}

// verifyRequest はパスワード検証リクエストのボディ。
type verifyRequest struct {
	Password string `json:"password"`
}

// publicCollectionResponse は公開閲覧向けのコレクション情報。
// オーナーIDや内部IDは含めない。
type publicCollectionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	ShareMode   string `json:"share_mode"`
}

// publicViewResponse は公開閲覧のAPIレスポンス。
// Lockedがtrueの場合、Bookmarksは常に空となる（パスワードゲート画面用）。
type publicViewResponse struct {
	Collection publicCollectionResponse `json:"collection"`
	Locked     bool                     `json:"locked"`
	Bookmarks  []bookmarkResponse       `json:"bookmarks"`
}

// GetPublic はスラグURLでコレクションを閲覧する。
// 閲覧可否はリクエストごとにポリシーエンジンで再評価されるため、
// 非公開に戻されたコレクションは過去に検証を通過していても見えなくなる。
// GET /s/{slug}
func (h *ShareHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	grantToken := ""
	if cookie, err := r.Cookie(grantCookiePrefix + slug); err == nil {
		grantToken = cookie.Value
	}

	view, err := h.service.GetPublic(r.Context(), actor, slug, grantToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	bookmarks := make([]bookmarkResponse, 0, len(view.Bookmarks))
	for _, b := range view.Bookmarks {
		bookmarks = append(bookmarks, toBookmarkResponse(b))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(publicViewResponse{
		Collection: publicCollectionResponse{
			Name:        view.Collection.Name,
			Description: view.Collection.Description,
			Slug:        view.Collection.Slug,
			ShareMode:   string(view.Collection.ShareMode),
		},
		Locked:    view.Locked,
		Bookmarks: bookmarks,
	})
}

// Verify はパスワード検証を処理し、成功時に検証済みマーカーCookieを設定する。
// 失敗時はコレクション不存在・モード不一致・パスワード不一致のいずれでも
// 同一のレスポンスを返す。
// POST /s/{slug}/verify
func (h *ShareHandler) Verify(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	grant, err := h.verifier.Verify(r.Context(), slug, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	maxAge := int(time.Until(grant.ExpiresAt).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     grantCookiePrefix + slug,
		Value:    grant.ID,
		Path:     "/s/" + slug,
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"verified":   true,
		"expires_at": grant.ExpiresAt.Format(time.RFC3339),
	})
}
