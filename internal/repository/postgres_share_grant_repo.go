package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresShareGrantRepo はPostgreSQLを使用したShareGrantリポジトリ。
type PostgresShareGrantRepo struct {
	db *sql.DB
}

// NewPostgresShareGrantRepo はPostgresShareGrantRepoを生成する。
func NewPostgresShareGrantRepo(db *sql.DB) *PostgresShareGrantRepo {
	return &PostgresShareGrantRepo{db: db}
}

// Create はShareGrantを作成する。
func (r *PostgresShareGrantRepo) Create(ctx context.Context, grant *model.ShareGrant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO share_grants (id, slug, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		grant.ID, grant.Slug, grant.ExpiresAt, grant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share grant: %w", err)
	}
	return nil
}

// FindValid はトークンとスラグの組で有効なShareGrantを検索する。
// スラグをWHERE句に含めることでスコープ外のトークンは拾わない。
// 期限判定はSQL側で行い、期限切れは不存在と同一に扱う。
func (r *PostgresShareGrantRepo) FindValid(ctx context.Context, id, slug string) (*model.ShareGrant, error) {
	grant := &model.ShareGrant{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, expires_at, created_at
		 FROM share_grants
		 WHERE id = $1 AND slug = $2 AND expires_at > now()`,
		id, slug,
	).Scan(&grant.ID, &grant.Slug, &grant.ExpiresAt, &grant.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find share grant: %w", err)
	}

	return grant, nil
}

// DeleteBySlug は指定スラグの全ShareGrantを削除する。
func (r *PostgresShareGrantRepo) DeleteBySlug(ctx context.Context, slug string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM share_grants WHERE slug = $1`,
		slug,
	)
	if err != nil {
		return fmt.Errorf("failed to delete share grants: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのShareGrantを削除し件数を返す。
func (r *PostgresShareGrantRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM share_grants WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired share grants: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ShareGrantRepository = (*PostgresShareGrantRepo)(nil)
