// Package bookmark はブックマーク管理のドメインロジックを提供する。
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/policy"
	"github.com/hitoshi/bukuma/internal/repository"
	"github.com/hitoshi/bukuma/internal/security"
)

// maxTitleLength はタイトルの最大長。
const maxTitleLength = 300

// maxDescriptionLength は説明の最大長。
const maxDescriptionLength = 2000

// Service はブックマークに関するビジネスロジックを提供する。
// ブックマークの作成・更新・削除の可否はすべて親コレクションに対する
// 同一操作のポリシー判定から導かれる。
type Service struct {
	bookmarks   repository.BookmarkRepository
	collections repository.CollectionRepository
	urlGuard    security.URLGuardService
	sanitizer   security.TextSanitizerService
	favicons    FaviconFetcherService
	metrics     metrics.Recorder
}

// NewService はServiceを生成する。faviconsとmetricsはnilでもよい。
func NewService(
	bookmarks repository.BookmarkRepository,
	collections repository.CollectionRepository,
	urlGuard security.URLGuardService,
	sanitizer security.TextSanitizerService,
	favicons FaviconFetcherService,
	m metrics.Recorder,
) *Service {
	return &Service{
		bookmarks:   bookmarks,
		collections: collections,
		urlGuard:    urlGuard,
		sanitizer:   sanitizer,
		favicons:    favicons,
		metrics:     m,
	}
}

// Create はコレクションにブックマークを追加する。
// faviconは登録時にベストエフォートで取得し、失敗しても登録は成功する。
func (s *Service) Create(ctx context.Context, actor model.Actor, collectionID, title, rawURL, description string) (*model.Bookmark, error) {
	parent, err := s.authorize(ctx, actor, collectionID, policy.OpCreate)
	if err != nil {
		return nil, err
	}

	title = s.sanitizer.Sanitize(title)
	description = s.sanitizer.Sanitize(description)
	if err := validateFields(title, description); err != nil {
		return nil, err
	}
	if err := s.urlGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	now := time.Now()
	b := &model.Bookmark{
		ID:           uuid.New().String(),
		CollectionID: parent.ID,
		Title:        title,
		URL:          rawURL,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.favicons != nil {
		data, mimeType, err := s.favicons.FetchForPage(ctx, rawURL)
		if err == nil && data != nil {
			b.FaviconData = data
			b.FaviconMime = mimeType
		}
	}

	if err := s.bookmarks.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}

	slog.Info("bookmark created",
		slog.String("bookmark_id", b.ID),
		slog.String("collection_id", parent.ID),
	)

	return b, nil
}

// Update はブックマークを更新する。
func (s *Service) Update(ctx context.Context, actor model.Actor, collectionID, bookmarkID, title, rawURL, description string) (*model.Bookmark, error) {
	if _, err := s.authorize(ctx, actor, collectionID, policy.OpUpdate); err != nil {
		return nil, err
	}

	b, err := s.findInCollection(ctx, collectionID, bookmarkID)
	if err != nil {
		return nil, err
	}

	title = s.sanitizer.Sanitize(title)
	description = s.sanitizer.Sanitize(description)
	if err := validateFields(title, description); err != nil {
		return nil, err
	}
	if err := s.urlGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	// URLが変わった場合はfaviconを取り直す
	if rawURL != b.URL && s.favicons != nil {
		data, mimeType, err := s.favicons.FetchForPage(ctx, rawURL)
		if err == nil {
			b.FaviconData = data
			b.FaviconMime = mimeType
		}
	}

	b.Title = title
	b.URL = rawURL
	b.Description = description

	updated, err := s.bookmarks.Update(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to update bookmark: %w", err)
	}
	if !updated {
		return nil, model.NewBookmarkNotFoundError(bookmarkID)
	}

	return b, nil
}

// Delete はブックマークを削除する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, collectionID, bookmarkID string) error {
	if _, err := s.authorize(ctx, actor, collectionID, policy.OpDelete); err != nil {
		return err
	}

	if _, err := s.findInCollection(ctx, collectionID, bookmarkID); err != nil {
		return err
	}

	deleted, err := s.bookmarks.Delete(ctx, bookmarkID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if !deleted {
		return model.NewBookmarkNotFoundError(bookmarkID)
	}

	slog.Info("bookmark deleted",
		slog.String("bookmark_id", bookmarkID),
		slog.String("collection_id", collectionID),
	)

	return nil
}

// authorize は親コレクションを取得し、指定操作のポリシー判定を行う。
// 非オーナーからはコレクションの存在を秘匿するためNotFoundを返す。
func (s *Service) authorize(ctx context.Context, actor model.Actor, collectionID string, op policy.Operation) (*model.CollectionMeta, error) {
	parent, err := s.collections.FindMetaByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if parent == nil {
		return nil, model.NewCollectionNotFoundError()
	}

	d := policy.DecideBookmark(actor, *parent, op)
	if s.metrics != nil {
		s.metrics.RecordPolicyDecision(string(d.Effect), string(d.Rule))
	}
	if !d.Allowed() {
		return nil, model.NewCollectionNotFoundError()
	}

	return parent, nil
}

// findInCollection はブックマークを取得し、指定コレクションへの所属を確認する。
func (s *Service) findInCollection(ctx context.Context, collectionID, bookmarkID string) (*model.Bookmark, error) {
	b, err := s.bookmarks.FindByID(ctx, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmark: %w", err)
	}
	if b == nil || b.CollectionID != collectionID {
		return nil, model.NewBookmarkNotFoundError(bookmarkID)
	}
	return b, nil
}

// validateFields はタイトルと説明の形式を検証する。
func validateFields(title, description string) error {
	if title == "" {
		return model.NewValidationError("タイトルは必須です")
	}
	if len([]rune(title)) > maxTitleLength {
		return model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	}
	if len([]rune(description)) > maxDescriptionLength {
		return model.NewValidationError(fmt.Sprintf("説明は%d文字以内で入力してください", maxDescriptionLength))
	}
	return nil
}
