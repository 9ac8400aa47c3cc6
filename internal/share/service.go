// Package share は共有モードの状態遷移とパスワード検証プロトコルを提供する。
package share

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/policy"
	"github.com/hitoshi/bukuma/internal/repository"
)

// ServiceConfig は共有モード管理サービスの設定。
type ServiceConfig struct {
	BcryptCost int // 共有パスワードのハッシュコスト
}

// Service は共有モードの状態遷移を提供する。
//
// 3状態（private, link, password）間の6方向の遷移はすべて合法で、
// 禁止遷移は存在しない。遷移の副作用はパスワードハッシュの付与と
// 消去のみであり、どちらもモード変更と同一のUPDATEで適用される。
//
// privateへの遷移で発行済みShareGrantを能動的に破棄することはしない。
// 失効はポリシーエンジンが読み取りごとに現在のモードを再評価することで
// 成立する（privateでは規則3が無条件にDenyを返し、マーカーは参照されない）。
type Service struct {
	collections repository.CollectionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(collections repository.CollectionRepository, config ServiceConfig) *Service {
	return &Service{
		collections: collections,
		config:      config,
	}
}

// Transition はコレクションの共有モードを変更する。
//
// passwordモードへの遷移では平文パスワードの指定が必須で、
// bcryptでハッシュ化して保存する。平文は永続化もログ出力もしない。
// password以外のモードへの遷移でパスワードが指定された場合は
// ValidationErrorとして拒否する（黙って無視はしない）。
// passwordモードから離れる遷移ではハッシュが同一UPDATE内で消去される。
func (s *Service) Transition(ctx context.Context, actor model.Actor, collectionID string, newMode model.ShareMode, password string) (*model.CollectionMeta, error) {
	if !newMode.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("未知の共有モードです: %s", newMode))
	}

	meta, err := s.collections.FindMetaByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if meta == nil {
		return nil, model.NewCollectionNotFoundError()
	}

	if d := policy.DecideCollection(actor, *meta, policy.OpUpdate); !d.Allowed() {
		return nil, model.NewAccessDeniedError()
	}

	var passwordHash *string
	if newMode == model.ShareModePassword {
		if password == "" {
			return nil, model.NewPasswordRequiredError()
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		h := string(hashed)
		passwordHash = &h
	} else if password != "" {
		return nil, model.NewPasswordNotAllowedError()
	}

	updated, err := s.collections.UpdateShareMode(ctx, collectionID, newMode, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to transition share mode: %w", err)
	}
	if !updated {
		return nil, model.NewCollectionNotFoundError()
	}

	slog.Info("share mode transitioned",
		slog.String("collection_id", collectionID),
		slog.String("from", string(meta.ShareMode)),
		slog.String("to", string(newMode)),
	)

	meta.ShareMode = newMode
	return meta, nil
}
