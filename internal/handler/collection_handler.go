package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// CollectionServiceInterface はコレクションハンドラーが必要とするサービスインターフェース。
type CollectionServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, name, description string) (*model.CollectionMeta, error)
	List(ctx context.Context, actor model.Actor) ([]repository.CollectionWithCount, error)
	Get(ctx context.Context, actor model.Actor, id string) (*model.CollectionMeta, error)
	UpdateInfo(ctx context.Context, actor model.Actor, id, name, description string) (*model.CollectionMeta, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
}

// ShareServiceInterface は共有モード遷移のためのインターフェース。
type ShareServiceInterface interface {
	Transition(ctx context.Context, actor model.Actor, collectionID string, newMode model.ShareMode, password string) (*model.CollectionMeta, error)
}

// CollectionHandler はコレクション管理のHTTPハンドラー。
type CollectionHandler struct {
	service CollectionServiceInterface
	share   ShareServiceInterface
}

// NewCollectionHandler はCollectionHandlerを生成する。
func NewCollectionHandler(service CollectionServiceInterface, share ShareServiceInterface) *CollectionHandler {
	return &CollectionHandler{
		service: service,
		share:   share,
	}
}

// collectionRequest はコレクション作成・更新リクエストのボディ。
type collectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// shareModeRequest は共有モード変更リクエストのボディ。
type shareModeRequest struct {
	ShareMode string `json:"share_mode"`
	Password  string `json:"password,omitempty"`
}

// collectionResponse はコレクション情報のAPIレスポンス。
// パスワードハッシュはCollectionMetaの時点で存在しないため、漏れようがない。
type collectionResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Slug          string `json:"slug"`
	ShareMode     string `json:"share_mode"`
	BookmarkCount *int   `json:"bookmark_count,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Create はコレクション作成を処理する。新規コレクションは常に非公開で始まる。
// POST /api/collections
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	meta, err := h.service.Create(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCollectionResponse(meta))
}

// List はオーナーのコレクション一覧をブックマーク件数付きで返す。
// GET /api/collections
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	items, err := h.service.List(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]collectionResponse, 0, len(items))
	for i := range items {
		resp := toCollectionResponse(&items[i].CollectionMeta)
		count := items[i].BookmarkCount
		resp.BookmarkCount = &count
		responses = append(responses, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"collections": responses,
	})
}

// Get はコレクション詳細を取得する。
// GET /api/collections/{id}
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")

	meta, err := h.service.Get(r.Context(), actor, collectionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCollectionResponse(meta))
}

// UpdateInfo はコレクションの名前と説明を更新する。
// PATCH /api/collections/{id}
func (h *CollectionHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")

	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	meta, err := h.service.UpdateInfo(r.Context(), actor, collectionID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCollectionResponse(meta))
}

// Delete はコレクションと配下のブックマークをまとめて削除する。
// DELETE /api/collections/{id}
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), actor, collectionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateShareMode は共有モードを遷移させる。
// PUT /api/collections/{id}/share
func (h *CollectionHandler) UpdateShareMode(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")

	var req shareModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	meta, err := h.share.Transition(r.Context(), actor, collectionID, model.ShareMode(req.ShareMode), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCollectionResponse(meta))
}

func toCollectionResponse(meta *model.CollectionMeta) collectionResponse {
	return collectionResponse{
		ID:          meta.ID,
		Name:        meta.Name,
		Description: meta.Description,
		Slug:        meta.Slug,
		ShareMode:   string(meta.ShareMode),
		CreatedAt:   meta.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   meta.UpdatedAt.Format(time.RFC3339),
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 拒否を404として提示するケースはサービス層で既にNotFound系エラーに
// 変換済みのため、ここでのACCESS_DENIEDは稀。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeCollectionNotFound, model.ErrCodeBookmarkNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeAccessDenied:
		return http.StatusForbidden
	case model.ErrCodeValidationFailed, model.ErrCodePasswordRequired, model.ErrCodePasswordNotAllowed:
		return http.StatusBadRequest
	case model.ErrCodeShareVerifyFailed:
		// 不存在とパスワード不一致を区別させないため常に404を返す
		return http.StatusNotFound
	case model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeLoginFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func invalidRequestBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

func unauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
