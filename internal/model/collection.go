// Package model はドメインモデルを定義する。
package model

import "time"

// ShareMode はコレクションの共有モードを表す。
type ShareMode string

const (
	// ShareModePrivate はオーナーのみ閲覧可能な非公開モード。
	ShareModePrivate ShareMode = "private"
	// ShareModeLink はスラグURLを知っている全員が閲覧可能なモード。
	ShareModeLink ShareMode = "link"
	// ShareModePassword はパスワード検証を通過した閲覧者のみ
	// コンテンツを閲覧可能なモード。メタデータ（名前）はゲート画面に表示される。
	ShareModePassword ShareMode = "password"
)

// Valid は共有モードが定義済みの値かどうかを返す。
// モデル境界での検証に使用する。不正な値はここで弾き、
// ポリシーエンジンには決して到達させない。
func (m ShareMode) Valid() bool {
	switch m {
	case ShareModePrivate, ShareModeLink, ShareModePassword:
		return true
	}
	return false
}

// Collection はブックマークの共有単位を表す。
// PasswordHashはShareModePasswordの場合のみ非空（不変条件）であり、
// リポジトリの内部取得でのみ読み出される。外部へは常にCollectionMetaを渡すこと。
type Collection struct {
	ID           string
	OwnerID      string
	Name         string
	Description  string
	Slug         string
	ShareMode    ShareMode
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Meta はパスワードハッシュを除いた射影を返す。
func (c *Collection) Meta() CollectionMeta {
	return CollectionMeta{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		Description: c.Description,
		Slug:        c.Slug,
		ShareMode:   c.ShareMode,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CollectionMeta はコレクションの公開安全な射影。
// パスワードハッシュを型として持たないため、
// ハンドラーやポリシーエンジンに渡してもハッシュが漏れることはない。
type CollectionMeta struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Slug        string
	ShareMode   ShareMode
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShareCredential はパスワード検証プロトコル専用の射影。
// スラグからの認証情報引き当てでのみ使用し、他の読み取り経路とは分離する。
type ShareCredential struct {
	CollectionID string
	Slug         string
	ShareMode    ShareMode
	PasswordHash string
}
