// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// コレクション・ブックマークの名前と説明の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去し、平文として安全な文字列を返す。
	// 前後の空白はトリムされる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 名前・説明は平文フィールドであり、許可タグは一切ない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去し、平文として安全な文字列を返す。
// StrictPolicyはエンティティ参照へのエスケープを行うため、
// 平文フィールドとして保存する前にアンエスケープして戻す。
func (s *textSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	stripped := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
