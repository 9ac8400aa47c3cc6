// Package collection はコレクション管理のドメインロジックを提供する。
package collection

import (
	"context"
	"errors"
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

// maxNameLength はコレクション名の最大長。
const maxNameLength = 200

// maxDescriptionLength は説明の最大長。
const maxDescriptionLength = 2000

// slugRetryLimit はスラグ衝突時の再生成回数の上限。
const slugRetryLimit = 3

// GrantChecker は検証済みセッションマーカーの有効性確認に必要なインターフェース。
// share.Verifierの部分集合として定義する。
type GrantChecker interface {
	HasValidGrant(ctx context.Context, slug, token string) (bool, error)
}

// PublicView は公開共有ページに返すコレクションの閲覧結果。
// Lockedがtrueの場合、メタデータのみが開示されており
// Bookmarksは常にnil（パスワードゲート表示用）。
type PublicView struct {
	Collection model.CollectionMeta
	Bookmarks  []*model.Bookmark
	Locked     bool
}

// Service はコレクションに関するビジネスロジックを提供する。
// すべての操作はポリシーエンジンの判定を通過してから実行される。
type Service struct {
	collections repository.CollectionRepository
	bookmarks   repository.BookmarkRepository
	grants      GrantChecker
	sanitizer   security.TextSanitizerService
	metrics     metrics.Recorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	collections repository.CollectionRepository,
	bookmarks repository.BookmarkRepository,
	grants GrantChecker,
	sanitizer security.TextSanitizerService,
	m metrics.Recorder,
) *Service {
	return &Service{
		collections: collections,
		bookmarks:   bookmarks,
		grants:      grants,
		sanitizer:   sanitizer,
		metrics:     m,
	}
}

// Create はコレクションを作成する。共有モードはprivateで初期化される。
// スラグは乱数で生成し、衝突した場合は再生成してリトライする。
func (s *Service) Create(ctx context.Context, actor model.Actor, name, description string) (*model.CollectionMeta, error) {
	if actor.IsAnonymous() {
		return nil, model.NewAccessDeniedError()
	}

	name = s.sanitizer.Sanitize(name)
	description = s.sanitizer.Sanitize(description)
	if err := validateInfo(name, description); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		slug, err := NewSlug()
		if err != nil {
			return nil, err
		}

		now := time.Now()
		c := &model.Collection{
			ID:          uuid.New().String(),
			OwnerID:     actor.UserID,
			Name:        name,
			Description: description,
			Slug:        slug,
			ShareMode:   model.ShareModePrivate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = s.collections.Create(ctx, c)
		if errors.Is(err, repository.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create collection: %w", err)
		}

		slog.Info("collection created",
			slog.String("collection_id", c.ID),
			slog.String("owner_id", c.OwnerID),
		)

		meta := c.Meta()
		return &meta, nil
	}

	return nil, fmt.Errorf("failed to create collection: slug generation exhausted after %d attempts", slugRetryLimit)
}

// List はオーナー自身のコレクション一覧をブックマーク数付きで返す。
func (s *Service) List(ctx context.Context, actor model.Actor) ([]repository.CollectionWithCount, error) {
	if actor.IsAnonymous() {
		return nil, model.NewAccessDeniedError()
	}
	result, err := s.collections.ListByOwnerWithCounts(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return result, nil
}

// Get はコレクションをIDで取得する。読み取りはポリシーエンジンの判定に従う。
// 非公開コレクションへの非オーナーのアクセスは存在を秘匿するためNotFoundとして返す。
func (s *Service) Get(ctx context.Context, actor model.Actor, id string) (*model.CollectionMeta, error) {
	meta, err := s.collections.FindMetaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if meta == nil {
		return nil, model.NewCollectionNotFoundError()
	}

	d := policy.DecideCollection(actor, *meta, policy.OpRead)
	s.recordDecision(d)
	if !d.Allowed() {
		return nil, model.NewCollectionNotFoundError()
	}

	return meta, nil
}

// UpdateInfo は名前と説明を更新する。オーナーのみ実行できる。
func (s *Service) UpdateInfo(ctx context.Context, actor model.Actor, id, name, description string) (*model.CollectionMeta, error) {
	meta, err := s.collections.FindMetaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if meta == nil {
		return nil, model.NewCollectionNotFoundError()
	}

	d := policy.DecideCollection(actor, *meta, policy.OpUpdate)
	s.recordDecision(d)
	if !d.Allowed() {
		return nil, model.NewAccessDeniedError()
	}

	name = s.sanitizer.Sanitize(name)
	description = s.sanitizer.Sanitize(description)
	if err := validateInfo(name, description); err != nil {
		return nil, err
	}

	updated, err := s.collections.UpdateInfo(ctx, id, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	if !updated {
		return nil, model.NewCollectionNotFoundError()
	}

	meta.Name = name
	meta.Description = description
	return meta, nil
}

// Delete はコレクションを配下のブックマークごと削除する。
// ポリシーエンジンがDELETEを許可した場合のみリポジトリのカスケード削除に進む。
// 削除は取り消せない。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	meta, err := s.collections.FindMetaByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if meta == nil {
		return model.NewCollectionNotFoundError()
	}

	d := policy.DecideCollection(actor, *meta, policy.OpDelete)
	s.recordDecision(d)
	if !d.Allowed() {
		return model.NewAccessDeniedError()
	}

	count, err := s.bookmarks.CountByCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count bookmarks: %w", err)
	}

	deleted, err := s.collections.DeleteWithBookmarks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if !deleted {
		return model.NewCollectionNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordCascadeDelete(count)
	}
	slog.Info("collection deleted",
		slog.String("collection_id", id),
		slog.Int("bookmark_count", count),
	)

	return nil
}

// GetPublic はスラグでコレクションを公開共有ページ向けに取得する。
//
// 読み取りは2段階で行う。まずポリシーエンジンがメタデータの可視性を判定し、
// メタデータ限定の許可（passwordモード）の場合は、有効なShareGrantを
// 保持している場合に限りブックマーク本体を開示する。
// grantTokenはクライアントのCookieから渡されるトークンで、空でもよい。
func (s *Service) GetPublic(ctx context.Context, actor model.Actor, slug, grantToken string) (*PublicView, error) {
	meta, err := s.collections.FindMetaBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if meta == nil {
		return nil, model.NewCollectionNotFoundError()
	}

	d := policy.DecideCollection(actor, *meta, policy.OpRead)
	s.recordDecision(d)
	if !d.Allowed() {
		// 非公開コレクションの存在は秘匿する
		return nil, model.NewCollectionNotFoundError()
	}

	view := &PublicView{Collection: *meta}

	if d.Scope == policy.ScopeMeta {
		ok, err := s.grants.HasValidGrant(ctx, slug, grantToken)
		if err != nil {
			return nil, err
		}
		if !ok {
			// メタデータのみ開示（パスワードゲート表示用）
			view.Locked = true
			return view, nil
		}
	}

	bookmarks, err := s.bookmarks.ListByCollection(ctx, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	view.Bookmarks = bookmarks

	return view, nil
}

// recordDecision は認可判定をメトリクスに記録する。
func (s *Service) recordDecision(d policy.Decision) {
	if s.metrics != nil {
		s.metrics.RecordPolicyDecision(string(d.Effect), string(d.Rule))
	}
}

// validateInfo は名前と説明の形式を検証する。
func validateInfo(name, description string) error {
	if name == "" {
		return model.NewValidationError("コレクション名は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return model.NewValidationError(fmt.Sprintf("コレクション名は%d文字以内で入力してください", maxNameLength))
	}
	if len([]rune(description)) > maxDescriptionLength {
		return model.NewValidationError(fmt.Sprintf("説明は%d文字以内で入力してください", maxDescriptionLength))
	}
	return nil
}
