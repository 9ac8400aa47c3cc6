// Package collection はコレクション管理のドメインロジックを提供する。
package collection

import (
	"crypto/rand"
	"fmt"
)

// slugAlphabet はスラグに使用する文字集合。URL-safeな小文字英数字のみ。
const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// slugLength は生成するスラグの長さ。
// 36^12 ≈ 4.7e18 通りあり、総当たりでの推測は現実的でない。
const slugLength = 12

// NewSlug は暗号的に安全な乱数からスラグを生成する。
func NewSlug() (string, error) {
	b := make([]byte, slugLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate slug: %w", err)
	}
	for i := range b {
		b[i] = slugAlphabet[int(b[i])%len(slugAlphabet)]
	}
	return string(b), nil
}
