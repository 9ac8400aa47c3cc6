package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

const bookmarkColumns = `id, collection_id, title, url, description, favicon_data, favicon_mime, created_at, updated_at`

// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
func (r *PostgresBookmarkRepo) FindByID(ctx context.Context, id string) (*model.Bookmark, error) {
	b := &model.Bookmark{}
	var faviconMime sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &b.CollectionID, &b.Title, &b.URL, &b.Description,
		&b.FaviconData, &faviconMime, &b.CreatedAt, &b.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bookmark: %w", err)
	}

	b.FaviconMime = faviconMime.String
	return b, nil
}

// ListByCollection はコレクションのブックマーク一覧を作成日時昇順で返す。
func (r *PostgresBookmarkRepo) ListByCollection(ctx context.Context, collectionID string) ([]*model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks
		 WHERE collection_id = $1
		 ORDER BY created_at ASC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var result []*model.Bookmark
	for rows.Next() {
		b := &model.Bookmark{}
		var faviconMime sql.NullString
		if err := rows.Scan(
			&b.ID, &b.CollectionID, &b.Title, &b.URL, &b.Description,
			&b.FaviconData, &faviconMime, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		b.FaviconMime = faviconMime.String
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return result, nil
}

// Create はブックマークを作成する。
func (r *PostgresBookmarkRepo) Create(ctx context.Context, b *model.Bookmark) error {
	var faviconMime *string
	if b.FaviconMime != "" {
		faviconMime = &b.FaviconMime
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, collection_id, title, url, description, favicon_data, favicon_mime, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.CollectionID, b.Title, b.URL, b.Description, b.FaviconData, faviconMime, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return nil
}

// Update はブックマークを上書き更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresBookmarkRepo) Update(ctx context.Context, b *model.Bookmark) (bool, error) {
	var faviconMime *string
	if b.FaviconMime != "" {
		faviconMime = &b.FaviconMime
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE bookmarks
		 SET title = $2, url = $3, description = $4, favicon_data = $5, favicon_mime = $6, updated_at = now()
		 WHERE id = $1`,
		b.ID, b.Title, b.URL, b.Description, b.FaviconData, faviconMime,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update bookmark: %w", err)
	}
	return affected(result)
}

// Delete は指定IDのブックマークを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresBookmarkRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return affected(result)
}

// CountByCollection はコレクションのブックマーク数を返す。
func (r *PostgresBookmarkRepo) CountByCollection(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM bookmarks WHERE collection_id = $1`,
		collectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
