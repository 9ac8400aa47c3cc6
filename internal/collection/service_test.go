package collection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// --- モック定義 ---

type mockCollectionRepo struct {
	findMetaByIDFn        func(ctx context.Context, id string) (*model.CollectionMeta, error)
	findMetaBySlugFn      func(ctx context.Context, slug string) (*model.CollectionMeta, error)
	listByOwnerFn         func(ctx context.Context, ownerID string) ([]repository.CollectionWithCount, error)
	createFn              func(ctx context.Context, c *model.Collection) error
	updateInfoFn          func(ctx context.Context, id, name, description string) (bool, error)
	deleteWithBookmarksFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockCollectionRepo) FindMetaByID(ctx context.Context, id string) (*model.CollectionMeta, error) {
	if m.findMetaByIDFn != nil {
		return m.findMetaByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCollectionRepo) FindMetaBySlug(ctx context.Context, slug string) (*model.CollectionMeta, error) {
	if m.findMetaBySlugFn != nil {
		return m.findMetaBySlugFn(ctx, slug)
	}
	return nil, nil
}

func (m *mockCollectionRepo) ListByOwnerWithCounts(ctx context.Context, ownerID string) ([]repository.CollectionWithCount, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockCollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCollectionRepo) UpdateInfo(ctx context.Context, id, name, description string) (bool, error) {
	if m.updateInfoFn != nil {
		return m.updateInfoFn(ctx, id, name, description)
	}
	return true, nil
}

func (m *mockCollectionRepo) UpdateShareMode(_ context.Context, _ string, _ model.ShareMode, _ *string) (bool, error) {
	return true, nil
}

func (m *mockCollectionRepo) DeleteWithBookmarks(ctx context.Context, id string) (bool, error) {
	if m.deleteWithBookmarksFn != nil {
		return m.deleteWithBookmarksFn(ctx, id)
	}
	return true, nil
}

func (m *mockCollectionRepo) DeleteAllByOwner(_ context.Context, _ string) error {
	return nil
}

type mockBookmarkRepo struct {
	listByCollectionFn  func(ctx context.Context, collectionID string) ([]*model.Bookmark, error)
	countByCollectionFn func(ctx context.Context, collectionID string) (int, error)
}

func (m *mockBookmarkRepo) FindByID(_ context.Context, _ string) (*model.Bookmark, error) {
	return nil, nil
}

func (m *mockBookmarkRepo) ListByCollection(ctx context.Context, collectionID string) ([]*model.Bookmark, error) {
	if m.listByCollectionFn != nil {
		return m.listByCollectionFn(ctx, collectionID)
	}
	return nil, nil
}

func (m *mockBookmarkRepo) Create(_ context.Context, _ *model.Bookmark) error {
	return nil
}

func (m *mockBookmarkRepo) Update(_ context.Context, _ *model.Bookmark) (bool, error) {
	return true, nil
}

func (m *mockBookmarkRepo) Delete(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (m *mockBookmarkRepo) CountByCollection(ctx context.Context, collectionID string) (int, error) {
	if m.countByCollectionFn != nil {
		return m.countByCollectionFn(ctx, collectionID)
	}
	return 0, nil
}

type mockGrantChecker struct {
	hasValidGrantFn func(ctx context.Context, slug, token string) (bool, error)
}

func (m *mockGrantChecker) HasValidGrant(ctx context.Context, slug, token string) (bool, error) {
	if m.hasValidGrantFn != nil {
		return m.hasValidGrantFn(ctx, slug, token)
	}
	return false, nil
}

// passthroughSanitizer はトリムのみ行うテスト用サニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(input)
}

// --- テストヘルパー ---

func newTestService(collections *mockCollectionRepo, bookmarks *mockBookmarkRepo, grants *mockGrantChecker) *Service {
	if bookmarks == nil {
		bookmarks = &mockBookmarkRepo{}
	}
	if grants == nil {
		grants = &mockGrantChecker{}
	}
	return NewService(collections, bookmarks, grants, passthroughSanitizer{}, nil)
}

func testMeta(mode model.ShareMode) *model.CollectionMeta {
	return &model.CollectionMeta{
		ID:        "col-1",
		OwnerID:   "user-1",
		Name:      "技術記事",
		Slug:      "abc123def456",
		ShareMode: mode,
	}
}

// --- Createテスト ---

// 新規コレクションは常にprivateで作成される。
func TestService_Create_DefaultsToPrivate(t *testing.T) {
	var created *model.Collection
	repo := &mockCollectionRepo{
		createFn: func(_ context.Context, c *model.Collection) error {
			created = c
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	meta, err := svc.Create(context.Background(), model.ActorFor("user-1"), "お気に入り", "毎日見るサイト")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ShareMode != model.ShareModePrivate {
		t.Errorf("created mode = %q, want private", created.ShareMode)
	}
	if meta.ShareMode != model.ShareModePrivate {
		t.Errorf("returned mode = %q, want private", meta.ShareMode)
	}
	if created.OwnerID != "user-1" {
		t.Errorf("owner = %q, want user-1", created.OwnerID)
	}
	if created.Slug == "" {
		t.Error("slug must be generated")
	}
}

// スラグ衝突時は再生成してリトライする。
func TestService_Create_RetriesOnSlugCollision(t *testing.T) {
	attempts := 0
	var slugs []string
	repo := &mockCollectionRepo{
		createFn: func(_ context.Context, c *model.Collection) error {
			attempts++
			slugs = append(slugs, c.Slug)
			if attempts == 1 {
				return repository.ErrSlugTaken
			}
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	if _, err := svc.Create(context.Background(), model.ActorFor("user-1"), "リスト", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if attempts != 2 {
		t.Errorf("create attempts = %d, want 2", attempts)
	}
	if slugs[0] == slugs[1] {
		t.Error("slug must be regenerated on collision")
	}
}

func TestService_Create_DeniedForAnonymous(t *testing.T) {
	svc := newTestService(&mockCollectionRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), model.Anonymous(), "リスト", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAccessDenied {
		t.Errorf("Create() error = %v, want %s", err, model.ErrCodeAccessDenied)
	}
}

func TestService_Create_ValidatesName(t *testing.T) {
	svc := newTestService(&mockCollectionRepo{}, nil, nil)

	tests := map[string]string{
		"empty name":    "",
		"too long name": strings.Repeat("あ", maxNameLength+1),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), model.ActorFor("user-1"), input, "")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("Create() error = %v, want %s", err, model.ErrCodeValidationFailed)
			}
		})
	}
}

// --- Getテスト ---

// 非公開コレクションへの非オーナーアクセスは存在秘匿のためNotFoundになる。
func TestService_Get_HidesPrivateFromOthers(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaByIDFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModePrivate), nil
		},
	}
	svc := newTestService(repo, nil, nil)

	for name, actor := range map[string]model.Actor{
		"anonymous":  model.Anonymous(),
		"other_user": model.ActorFor("user-2"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Get(context.Background(), actor, "col-1")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCollectionNotFound {
				t.Errorf("Get() error = %v, want %s", err, model.ErrCodeCollectionNotFound)
			}
		})
	}
}

func TestService_Get_OwnerSeesPrivate(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaByIDFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModePrivate), nil
		},
	}
	svc := newTestService(repo, nil, nil)

	meta, err := svc.Get(context.Background(), model.ActorFor("user-1"), "col-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if meta.ID != "col-1" {
		t.Errorf("meta.ID = %q, want col-1", meta.ID)
	}
}

// --- Deleteテスト ---

// カスケード削除はポリシー許可後にのみ実行される。
func TestService_Delete_CascadesForOwner(t *testing.T) {
	deleted := false
	repo := &mockCollectionRepo{
		findMetaByIDFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModeLink), nil
		},
		deleteWithBookmarksFn: func(_ context.Context, id string) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		countByCollectionFn: func(_ context.Context, _ string) (int, error) {
			return 5, nil
		},
	}
	svc := newTestService(repo, bookmarks, nil)

	if err := svc.Delete(context.Background(), model.ActorFor("user-1"), "col-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("DeleteWithBookmarks was not called")
	}
}

// linkモードで読めるコレクションでも、削除はオーナー以外に許されない。
func TestService_Delete_DeniedForReader(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaByIDFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModeLink), nil
		},
		deleteWithBookmarksFn: func(_ context.Context, _ string) (bool, error) {
			t.Fatal("delete must not be called when denied")
			return false, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	err := svc.Delete(context.Background(), model.ActorFor("user-2"), "col-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAccessDenied {
		t.Errorf("Delete() error = %v, want %s", err, model.ErrCodeAccessDenied)
	}
}

// --- GetPublicテスト ---

// linkモードは匿名閲覧者にブックマーク本体まで開示する。
func TestService_GetPublic_LinkModeOpenToAnonymous(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaBySlugFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModeLink), nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		listByCollectionFn: func(_ context.Context, _ string) ([]*model.Bookmark, error) {
			return []*model.Bookmark{{ID: "bm-1", Title: "記事"}}, nil
		},
	}
	svc := newTestService(repo, bookmarks, nil)

	view, err := svc.GetPublic(context.Background(), model.Anonymous(), "abc123def456", "")
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}
	if view.Locked {
		t.Error("link mode must not be locked")
	}
	if len(view.Bookmarks) != 1 {
		t.Errorf("bookmarks = %d, want 1", len(view.Bookmarks))
	}
}

// 過去にリンク共有で閲覧できていたとしても、privateに戻された時点で
// 同じスラグへのアクセスはNotFoundになる（失効は読み取りごとの再評価で成立する）。
func TestService_GetPublic_RevokedAfterPrivateTransition(t *testing.T) {
	mode := model.ShareModeLink
	repo := &mockCollectionRepo{
		findMetaBySlugFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(mode), nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		listByCollectionFn: func(_ context.Context, _ string) ([]*model.Bookmark, error) {
			return []*model.Bookmark{{ID: "bm-1"}}, nil
		},
	}
	svc := newTestService(repo, bookmarks, nil)
	anon := model.Anonymous()

	if _, err := svc.GetPublic(context.Background(), anon, "abc123def456", ""); err != nil {
		t.Fatalf("GetPublic() before transition error = %v", err)
	}

	// オーナーがprivateに切り替えた後
	mode = model.ShareModePrivate

	_, err := svc.GetPublic(context.Background(), anon, "abc123def456", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCollectionNotFound {
		t.Errorf("GetPublic() after transition error = %v, want %s", err, model.ErrCodeCollectionNotFound)
	}
}

// passwordモードで有効なShareGrantがない場合、メタデータのみ開示される。
func TestService_GetPublic_PasswordModeLockedWithoutGrant(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaBySlugFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModePassword), nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		listByCollectionFn: func(_ context.Context, _ string) ([]*model.Bookmark, error) {
			t.Fatal("bookmarks must not be listed while locked")
			return nil, nil
		},
	}
	svc := newTestService(repo, bookmarks, &mockGrantChecker{})

	view, err := svc.GetPublic(context.Background(), model.Anonymous(), "abc123def456", "")
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}

	if !view.Locked {
		t.Error("view must be locked without a grant")
	}
	if len(view.Bookmarks) != 0 {
		t.Error("locked view must not contain bookmarks")
	}
	if view.Collection.Name == "" {
		t.Error("locked view must still carry collection metadata")
	}
}

// 有効なShareGrantを持つ閲覧者にはブックマーク本体まで開示される。
func TestService_GetPublic_PasswordModeUnlockedWithGrant(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaBySlugFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModePassword), nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		listByCollectionFn: func(_ context.Context, _ string) ([]*model.Bookmark, error) {
			return []*model.Bookmark{{ID: "bm-1"}, {ID: "bm-2"}}, nil
		},
	}
	grants := &mockGrantChecker{
		hasValidGrantFn: func(_ context.Context, slug, token string) (bool, error) {
			return token == "valid-token", nil
		},
	}
	svc := newTestService(repo, bookmarks, grants)

	view, err := svc.GetPublic(context.Background(), model.Anonymous(), "abc123def456", "valid-token")
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}

	if view.Locked {
		t.Error("view must be unlocked with a valid grant")
	}
	if len(view.Bookmarks) != 2 {
		t.Errorf("bookmarks = %d, want 2", len(view.Bookmarks))
	}
}

// オーナー自身はpasswordモードでもShareGrantなしで全開示される。
func TestService_GetPublic_OwnerBypassesPasswordGate(t *testing.T) {
	repo := &mockCollectionRepo{
		findMetaBySlugFn: func(_ context.Context, _ string) (*model.CollectionMeta, error) {
			return testMeta(model.ShareModePassword), nil
		},
	}
	bookmarks := &mockBookmarkRepo{
		listByCollectionFn: func(_ context.Context, _ string) ([]*model.Bookmark, error) {
			return []*model.Bookmark{{ID: "bm-1"}}, nil
		},
	}
	grants := &mockGrantChecker{
		hasValidGrantFn: func(_ context.Context, _, _ string) (bool, error) {
			t.Fatal("owner must not need a grant check")
			return false, nil
		},
	}
	svc := newTestService(repo, bookmarks, grants)

	view, err := svc.GetPublic(context.Background(), model.ActorFor("user-1"), "abc123def456", "")
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}
	if view.Locked {
		t.Error("owner view must not be locked")
	}
}
