// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（コレクションのオーナー）を表す。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ShareGrant はパスワード検証を通過した証（検証済みセッションマーカー）を表す。
// スラグ単位にスコープされるため、コレクションAの検証通過が
// コレクションBの閲覧権になることはない。
// IDはクライアントにCookieとして渡されるランダムトークン。
type ShareGrant struct {
	ID        string
	Slug      string
	ExpiresAt time.Time
	CreatedAt time.Time
}
