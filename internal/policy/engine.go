// Package policy は認可判定のポリシーエンジンを提供する。
//
// Decide系の関数は (操作主体, リソース状態, 操作) のみから判定を導く純粋関数で、
// I/Oも副作用も持たない。任意のゴルーチンから並行に呼び出して安全である。
// 判定はリクエストごとに毎回評価すること。判定結果をリクエストを跨いで
// キャッシュすると、共有モード変更による即時失効が遅延して観測される。
package policy

import (
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// Operation はリソースに対する操作種別を表す。
type Operation string

const (
	// OpRead は読み取り操作。
	OpRead Operation = "read"
	// OpCreate は作成操作。
	OpCreate Operation = "create"
	// OpUpdate は更新操作。
	OpUpdate Operation = "update"
	// OpDelete は削除操作。
	OpDelete Operation = "delete"
)

// Effect は認可判定の結果を表す。
type Effect string

const (
	// Allow は許可。
	Allow Effect = "allow"
	// Deny は拒否。
	Deny Effect = "deny"
)

// Rule はどの規則が判定を導いたかを表す。
// テストと監査ログでのみ使用し、操作主体には決して公開しない。
type Rule string

const (
	// RuleOwner はオーナー絶対許可の規則。
	RuleOwner Rule = "owner"
	// RuleWriteDenied は非オーナーの書き込み一律拒否の規則。
	RuleWriteDenied Rule = "write_denied"
	// RulePrivateRead は非公開モードの読み取り拒否の規則。
	RulePrivateRead Rule = "private_read"
	// RuleLinkRead はリンク共有モードの読み取り許可の規則。
	RuleLinkRead Rule = "link_read"
	// RulePasswordGate はパスワード保護モードのメタデータ限定許可の規則。
	RulePasswordGate Rule = "password_gate"
)

// Scope は許可された読み取りの範囲を表す。
// パスワード保護モードの読み取りは2段階であり、単一の真偽値では表現しない。
type Scope string

const (
	// ScopeNone は拒否（範囲なし）。
	ScopeNone Scope = "none"
	// ScopeFull はメタデータとコンテンツの両方。
	ScopeFull Scope = "full"
	// ScopeMeta はメタデータのみ。コレクションの存在と名前は見えるが、
	// ブックマーク本体の開示には有効なShareGrantの検証が別途必要。
	ScopeMeta Scope = "meta"
)

// Decision は1回の認可評価の結果を表す。永続化はしない。
type Decision struct {
	Effect Effect
	Rule   Rule
	Scope  Scope
}

// Allowed は許可判定かどうかを返す。
func (d Decision) Allowed() bool {
	return d.Effect == Allow
}

// DecideCollection はコレクションに対する操作の可否を判定する。
// 規則は先勝ちで以下の順に評価される:
//  1. オーナーは全操作許可（モード非依存）
//  2. 非オーナーの書き込みは一律拒否
//  3. 読み取りは共有モードで決まる
//
// 共有モードが不正な場合はpanicする。不正値はモデル境界で弾かれるべき
// 実装欠陥であり、実行時のDenyとしては扱わない。
func DecideCollection(actor model.Actor, c model.CollectionMeta, op Operation) Decision {
	// 規則1: オーナーは絶対
	if !actor.IsAnonymous() && actor.UserID == c.OwnerID {
		return Decision{Effect: Allow, Rule: RuleOwner, Scope: ScopeFull}
	}

	// 規則2: 非オーナーに書き込み権はない
	if op != OpRead {
		return Decision{Effect: Deny, Rule: RuleWriteDenied, Scope: ScopeNone}
	}

	// 規則3: 読み取りは現在の共有モードを毎回評価する
	switch c.ShareMode {
	case model.ShareModePrivate:
		return Decision{Effect: Deny, Rule: RulePrivateRead, Scope: ScopeNone}
	case model.ShareModeLink:
		return Decision{Effect: Allow, Rule: RuleLinkRead, Scope: ScopeFull}
	case model.ShareModePassword:
		// メタデータのみ許可。コンテンツの開示は呼び出し側が
		// ShareGrantの有効性を確認してから行う。
		return Decision{Effect: Allow, Rule: RulePasswordGate, Scope: ScopeMeta}
	default:
		panic(fmt.Sprintf("policy: invalid share mode %q reached the engine", c.ShareMode))
	}
}

// DecideBookmark はブックマークに対する操作の可否を判定する。
// ブックマークは独自のアクセス属性を持たないため、
// 判定は親コレクションへの同一操作の判定と完全に一致する。
// これによりブックマークが親より緩い権限を持つことはない。
func DecideBookmark(actor model.Actor, parent model.CollectionMeta, op Operation) Decision {
	return DecideCollection(actor, parent, op)
}
