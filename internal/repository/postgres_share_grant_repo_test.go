package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresShareGrantRepoはShareGrantRepositoryインターフェースを満たすことを検証
func TestPostgresShareGrantRepo_ImplementsInterface(t *testing.T) {
	var _ ShareGrantRepository = (*PostgresShareGrantRepo)(nil)
}

// NewPostgresShareGrantRepoが正しく初期化されることを検証
func TestNewPostgresShareGrantRepo_Initializes(t *testing.T) {
	repo := NewPostgresShareGrantRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ShareGrantモデルがスラグスコープを保持することを検証
func TestPostgresShareGrantRepo_GrantModel_Fields(t *testing.T) {
	now := time.Now()
	grant := &model.ShareGrant{
		ID:        "grant-token-1",
		Slug:      "a1b2c3d4e5f6",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}

	if grant.ID != "grant-token-1" {
		t.Errorf("grant.ID = %q, want %q", grant.ID, "grant-token-1")
	}
	if grant.Slug != "a1b2c3d4e5f6" {
		t.Errorf("grant.Slug = %q, want %q", grant.Slug, "a1b2c3d4e5f6")
	}
	if !grant.ExpiresAt.After(now) {
		t.Error("grant.ExpiresAt should be in the future")
	}
}
