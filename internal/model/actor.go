// Package model はドメインモデルを定義する。
package model

// Actor は操作主体を表す。
// 認証済みユーザーの場合はUserIDにユーザーIDが入り、
// 未認証の場合はゼロ値（Anonymous）となる。
type Actor struct {
	UserID string
}

// Anonymous は未認証の操作主体を返す。
func Anonymous() Actor {
	return Actor{}
}

// ActorFor は指定ユーザーの操作主体を返す。
func ActorFor(userID string) Actor {
	return Actor{UserID: userID}
}

// IsAnonymous は未認証の操作主体かどうかを返す。
func (a Actor) IsAnonymous() bool {
	return a.UserID == ""
}
