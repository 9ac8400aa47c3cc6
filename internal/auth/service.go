// Package auth はアカウント登録・ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// minPasswordLength はアカウントパスワードの最小長。
const minPasswordLength = 8

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // アカウントパスワードのハッシュコスト
}

// CollectionPurger は退会処理で全コレクションを削除するためのインターフェース。
// repository.CollectionRepositoryの部分集合として定義する。
type CollectionPurger interface {
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	collections CollectionPurger
	config      ServiceConfig
	dummyHash   []byte
}

// NewService はServiceを生成する。
// ログイン試行からのアカウント列挙を防ぐため、不存在ユーザーへの
// ログインでも比較に使うダミーハッシュを1回だけ生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	collections CollectionPurger,
	config ServiceConfig,
) (*Service, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("bukuma-dummy-credential"), config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}

	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		collections: collections,
		config:      config,
		dummyHash:   dummy,
	}, nil
}

// Signup はアカウントを登録し、セッションを発行する。
func (s *Service) Signup(ctx context.Context, email, name, password string) (*model.User, *model.Session, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if name == "" {
		return nil, nil, model.NewValidationError("表示名は必須です")
	}
	if len(password) < minPasswordLength {
		return nil, nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, nil, model.NewEmailTakenError()
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("new user signed up", slog.String("user_id", user.ID))
	return user, session, nil
}

// Login はメールアドレスとパスワードでログインし、セッションを発行する。
// メールアドレス不存在とパスワード不一致は同一のエラーを返し、
// 不存在の場合もダミーハッシュとの比較を行って所要時間を揃える。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if user == nil || cmpErr != nil {
		return nil, nil, model.NewLoginFailedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// Withdraw は退会処理を行う。
// 全コレクション（配下のブックマーク・ShareGrant含む）、全セッション、
// ユーザーレコードの順に削除する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.collections.DeleteAllByOwner(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete collections: %w", err)
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
