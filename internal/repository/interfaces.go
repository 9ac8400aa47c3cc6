// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bukuma/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はログインセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CollectionRepository はコレクションデータの永続化インターフェース。
type CollectionRepository interface {
	// FindMetaByID は指定IDのコレクションをメタデータ射影で取得する。
	// パスワードハッシュは含まれない。見つからない場合はnilを返す。
	FindMetaByID(ctx context.Context, id string) (*model.CollectionMeta, error)

	// FindMetaBySlug はスラグでコレクションをメタデータ射影で検索する。
	// 見つからない場合はnilを返す。
	FindMetaBySlug(ctx context.Context, slug string) (*model.CollectionMeta, error)

	// ListByOwnerWithCounts はオーナーのコレクション一覧をブックマーク数付きで返す。
	ListByOwnerWithCounts(ctx context.Context, ownerID string) ([]CollectionWithCount, error)

	// Create はコレクションを作成する。スラグの一意制約違反は
	// ErrSlugTakenでラップして返す。
	Create(ctx context.Context, c *model.Collection) error

	// UpdateInfo は名前と説明を更新する。対象が存在しない場合はfalseを返す。
	UpdateInfo(ctx context.Context, id, name, description string) (bool, error)

	// UpdateShareMode は共有モードとパスワードハッシュを単一のUPDATE文で
	// 同時に更新する。ハッシュの有無と共有モードの整合はどの観測点でも崩れない。
	// passwordHashはShareModePasswordの場合のみ非nilを渡す。
	// 対象が存在しない場合はfalseを返す。
	UpdateShareMode(ctx context.Context, id string, mode model.ShareMode, passwordHash *string) (bool, error)

	// DeleteWithBookmarks はコレクションと配下の全ブックマーク、
	// スラグに紐づくShareGrantを単一トランザクションで削除する。
	// 部分的な削除状態は外部から観測されない。
	// 対象が存在しない場合はfalseを返す。
	DeleteWithBookmarks(ctx context.Context, id string) (bool, error)

	// DeleteAllByOwner はオーナーの全コレクションを配下のブックマーク・
	// ShareGrantごと単一トランザクションで削除する。退会処理で使用する。
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}

// ShareCredentialFinder はパスワード検証プロトコル専用の認証情報引き当て。
// CollectionRepositoryとは別インターフェースに分離し、
// ハッシュを読む経路が検証プロトコル以外に広がらないようにする。
type ShareCredentialFinder interface {
	// FindCredentialBySlug はスラグで認証情報射影を検索する。
	// 見つからない場合はnilを返す。
	FindCredentialBySlug(ctx context.Context, slug string) (*model.ShareCredential, error)
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
type BookmarkRepository interface {
	// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Bookmark, error)

	// ListByCollection はコレクションのブックマーク一覧を作成日時昇順で返す。
	ListByCollection(ctx context.Context, collectionID string) ([]*model.Bookmark, error)

	// Create はブックマークを作成する。
	Create(ctx context.Context, b *model.Bookmark) error

	// Update はブックマークを上書き更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, b *model.Bookmark) (bool, error)

	// Delete は指定IDのブックマークを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// CountByCollection はコレクションのブックマーク数を返す。
	CountByCollection(ctx context.Context, collectionID string) (int, error)
}

// ShareGrantRepository は検証済みセッションマーカーの永続化インターフェース。
type ShareGrantRepository interface {
	// Create はShareGrantを作成する。
	Create(ctx context.Context, grant *model.ShareGrant) error

	// FindValid はトークンとスラグの組で有効なShareGrantを検索する。
	// 期限切れまたはスラグ不一致の場合はnilを返す（エラーではない）。
	FindValid(ctx context.Context, id, slug string) (*model.ShareGrant, error)

	// DeleteBySlug は指定スラグの全ShareGrantを削除する。
	DeleteBySlug(ctx context.Context, slug string) error

	// DeleteExpired は期限切れのShareGrantを削除し件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CollectionWithCount はコレクションのメタデータ射影とブックマーク数を結合した構造体。
type CollectionWithCount struct {
	model.CollectionMeta
	BookmarkCount int
}
