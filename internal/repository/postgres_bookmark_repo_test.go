package repository

import (
	"testing"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresBookmarkRepoはBookmarkRepositoryインターフェースを満たすことを検証
func TestPostgresBookmarkRepo_ImplementsInterface(t *testing.T) {
	var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
}

// NewPostgresBookmarkRepoが正しく初期化されることを検証
func TestNewPostgresBookmarkRepo_Initializes(t *testing.T) {
	repo := NewPostgresBookmarkRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Bookmarkのfaviconフィールドがnil許容であることを検証
func TestPostgresBookmarkRepo_BookmarkModel_NilFavicon(t *testing.T) {
	bm := &model.Bookmark{
		ID:           "bm-id-1",
		CollectionID: "col-id-1",
		Title:        "Goの並行処理入門",
		URL:          "https://example.com/articles/go-concurrency",
	}

	if bm.FaviconData != nil {
		t.Error("favicon_data should be nil by default")
	}
	if bm.FaviconMime != "" {
		t.Error("favicon_mime should be empty by default")
	}
}
