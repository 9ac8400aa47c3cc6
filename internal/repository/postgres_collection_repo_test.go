package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresCollectionRepoはCollectionRepositoryインターフェースを満たすことを検証
func TestPostgresCollectionRepo_ImplementsInterface(t *testing.T) {
	var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
}

// パスワード検証経路用のShareCredentialFinderも同じ実装が満たす
func TestPostgresCollectionRepo_ImplementsCredentialFinder(t *testing.T) {
	var _ ShareCredentialFinder = (*PostgresCollectionRepo)(nil)
}

// NewPostgresCollectionRepoが正しく初期化されることを検証
func TestNewPostgresCollectionRepo_Initializes(t *testing.T) {
	repo := NewPostgresCollectionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Collectionモデルのフィールドが正しく構築されることを検証
func TestPostgresCollectionRepo_CollectionModel_Fields(t *testing.T) {
	now := time.Now()
	col := &model.Collection{
		ID:        "col-id-1",
		OwnerID:   "user-id-1",
		Name:      "技術記事まとめ",
		Slug:      "a1b2c3d4e5f6",
		ShareMode: model.ShareModeLink,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if col.ID != "col-id-1" {
		t.Errorf("col.ID = %q, want %q", col.ID, "col-id-1")
	}
	if col.OwnerID != "user-id-1" {
		t.Errorf("col.OwnerID = %q, want %q", col.OwnerID, "user-id-1")
	}
	if col.ShareMode != model.ShareModeLink {
		t.Errorf("col.ShareMode = %q, want %q", col.ShareMode, model.ShareModeLink)
	}
}

// CollectionWithCountがメタ射影と件数を保持することを検証
func TestCollectionWithCount_Fields(t *testing.T) {
	c := CollectionWithCount{
		CollectionMeta: model.CollectionMeta{
			ID:   "col-id-2",
			Name: "レシピ",
		},
		BookmarkCount: 7,
	}

	if c.ID != "col-id-2" {
		t.Errorf("c.ID = %q, want %q", c.ID, "col-id-2")
	}
	if c.BookmarkCount != 7 {
		t.Errorf("c.BookmarkCount = %d, want %d", c.BookmarkCount, 7)
	}
}
