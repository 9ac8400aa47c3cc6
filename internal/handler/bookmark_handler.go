package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, collectionID, title, rawURL, description string) (*model.Bookmark, error)
	Update(ctx context.Context, actor model.Actor, collectionID, bookmarkID, title, rawURL, description string) (*model.Bookmark, error)
	Delete(ctx context.Context, actor model.Actor, collectionID, bookmarkID string) error
}

// BookmarkHandler はブックマーク管理のHTTPハンドラー。
// ブックマークは常に親コレクション配下のリソースとして操作する。
type BookmarkHandler struct {
	service BookmarkServiceInterface
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
func NewBookmarkHandler(service BookmarkServiceInterface) *BookmarkHandler {
	return &BookmarkHandler{service: service}
}

// bookmarkRequest はブックマーク作成・更新リクエストのボディ。
type bookmarkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// bookmarkResponse はブックマーク情報のAPIレスポンス。
type bookmarkResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	HasFavicon  bool   `json:"has_favicon"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Create はブックマーク追加を処理する。
// POST /api/collections/{id}/bookmarks
func (h *BookmarkHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	bookmark, err := h.service.Create(r.Context(), actor, collectionID, req.Title, req.URL, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toBookmarkResponse(bookmark))
}

// Update はブックマーク更新を処理する。
// PATCH /api/collections/{id}/bookmarks/{bookmarkID}
func (h *BookmarkHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")
	bookmarkID := chi.URLParam(r, "bookmarkID")

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	bookmark, err := h.service.Update(r.Context(), actor, collectionID, bookmarkID, req.Title, req.URL, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookmarkResponse(bookmark))
}

// Delete はブックマーク削除を処理する。
// DELETE /api/collections/{id}/bookmarks/{bookmarkID}
func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	collectionID := chi.URLParam(r, "id")
	bookmarkID := chi.URLParam(r, "bookmarkID")

	if err := h.service.Delete(r.Context(), actor, collectionID, bookmarkID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toBookmarkResponse(b *model.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		ID:          b.ID,
		Title:       b.Title,
		URL:         b.URL,
		Description: b.Description,
		HasFavicon:  len(b.FaviconData) > 0,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}
