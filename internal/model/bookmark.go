// Package model はドメインモデルを定義する。
package model

import "time"

// Bookmark はコレクションに属するブックマークを表す。
// アクセス属性は一切持たず、可視性・変更可否はすべて
// 親コレクションの共有モードとオーナーから導出される。
type Bookmark struct {
	ID           string
	CollectionID string
	Title        string
	URL          string
	Description  string
	FaviconData  []byte
	FaviconMime  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
