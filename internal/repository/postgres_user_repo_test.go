package repository

import (
	"testing"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Userモデルのフィールドが正しく構築されることを検証
func TestPostgresUserRepo_UserModel_Fields(t *testing.T) {
	user := &model.User{
		ID:           "user-id-1",
		Email:        "hanako@example.com",
		Name:         "花子",
		PasswordHash: "$2a$10$dummyhashvalue",
	}

	if user.Email != "hanako@example.com" {
		t.Errorf("user.Email = %q, want %q", user.Email, "hanako@example.com")
	}
	if user.PasswordHash == "" {
		t.Error("user.PasswordHash should not be empty")
	}
}
