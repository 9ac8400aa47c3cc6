package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// metaColumns はメタデータ射影で読み出すカラム。password_hashは含めない。
const metaColumns = `id, owner_id, name, description, slug, share_mode, created_at, updated_at`

// PostgresCollectionRepo はPostgreSQLを使用したコレクションリポジトリ。
type PostgresCollectionRepo struct {
	db *sql.DB
}

// NewPostgresCollectionRepo はPostgresCollectionRepoを生成する。
func NewPostgresCollectionRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db}
}

// FindMetaByID は指定IDのコレクションをメタデータ射影で取得する。見つからない場合はnilを返す。
func (r *PostgresCollectionRepo) FindMetaByID(ctx context.Context, id string) (*model.CollectionMeta, error) {
	return r.scanMeta(r.db.QueryRowContext(ctx,
		`SELECT `+metaColumns+` FROM collections WHERE id = $1`,
		id,
	))
}

// FindMetaBySlug はスラグでコレクションをメタデータ射影で検索する。見つからない場合はnilを返す。
func (r *PostgresCollectionRepo) FindMetaBySlug(ctx context.Context, slug string) (*model.CollectionMeta, error) {
	return r.scanMeta(r.db.QueryRowContext(ctx,
		`SELECT `+metaColumns+` FROM collections WHERE slug = $1`,
		slug,
	))
}

// scanMeta は1行をCollectionMetaに読み出す。
func (r *PostgresCollectionRepo) scanMeta(row *sql.Row) (*model.CollectionMeta, error) {
	meta := &model.CollectionMeta{}
	err := row.Scan(
		&meta.ID, &meta.OwnerID, &meta.Name, &meta.Description,
		&meta.Slug, &meta.ShareMode, &meta.CreatedAt, &meta.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}
	return meta, nil
}

// FindCredentialBySlug はスラグで認証情報射影を検索する。見つからない場合はnilを返す。
// password_hashを読み出す唯一のSELECT。
func (r *PostgresCollectionRepo) FindCredentialBySlug(ctx context.Context, slug string) (*model.ShareCredential, error) {
	cred := &model.ShareCredential{}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, share_mode, password_hash FROM collections WHERE slug = $1`,
		slug,
	).Scan(&cred.CollectionID, &cred.Slug, &cred.ShareMode, &hash)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find share credential: %w", err)
	}

	cred.PasswordHash = hash.String
	return cred, nil
}

// ListByOwnerWithCounts はオーナーのコレクション一覧をブックマーク数付きで返す。
func (r *PostgresCollectionRepo) ListByOwnerWithCounts(ctx context.Context, ownerID string) ([]CollectionWithCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.owner_id, c.name, c.description, c.slug, c.share_mode,
		        c.created_at, c.updated_at, count(b.id)
		 FROM collections c
		 LEFT JOIN bookmarks b ON b.collection_id = c.id
		 WHERE c.owner_id = $1
		 GROUP BY c.id
		 ORDER BY c.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var result []CollectionWithCount
	for rows.Next() {
		var cc CollectionWithCount
		if err := rows.Scan(
			&cc.ID, &cc.OwnerID, &cc.Name, &cc.Description, &cc.Slug,
			&cc.ShareMode, &cc.CreatedAt, &cc.UpdatedAt, &cc.BookmarkCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		result = append(result, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}

	return result, nil
}

// Create はコレクションを作成する。スラグ重複はErrSlugTakenでラップして返す。
func (r *PostgresCollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	var hash *string
	if c.PasswordHash != "" {
		hash = &c.PasswordHash
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (id, owner_id, name, description, slug, share_mode, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.OwnerID, c.Name, c.Description, c.Slug, c.ShareMode, hash, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "collections_slug_key") {
			return fmt.Errorf("failed to insert collection: %w", ErrSlugTaken)
		}
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

// UpdateInfo は名前と説明を更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresCollectionRepo) UpdateInfo(ctx context.Context, id, name, description string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE collections SET name = $2, description = $3, updated_at = now() WHERE id = $1`,
		id, name, description,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update collection info: %w", err)
	}
	return affected(result)
}

// UpdateShareMode は共有モードとパスワードハッシュを単一のUPDATE文で同時に更新する。
// 共有モードとハッシュの整合はスキーマのCHECK制約でも保証される。
func (r *PostgresCollectionRepo) UpdateShareMode(ctx context.Context, id string, mode model.ShareMode, passwordHash *string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE collections SET share_mode = $2, password_hash = $3, updated_at = now() WHERE id = $1`,
		id, mode, passwordHash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update share mode: %w", err)
	}
	return affected(result)
}

// DeleteWithBookmarks はコレクションと配下のブックマーク、スラグに紐づく
// ShareGrantを単一トランザクションで削除する。
// 子→マーカー→親の順に削除するため、ブックマークが存在しない
// コレクションを参照する耐久状態は生じない。
func (r *PostgresCollectionRepo) DeleteWithBookmarks(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE collection_id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmarks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM share_grants WHERE slug = (SELECT slug FROM collections WHERE id = $1)`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete share grants: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM collections WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete collection: %w", err)
	}
	deleted, err := affected(result)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return deleted, nil
}

// DeleteAllByOwner はオーナーの全コレクションを配下ごと単一トランザクションで削除する。
func (r *PostgresCollectionRepo) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE collection_id IN (SELECT id FROM collections WHERE owner_id = $1)`,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete bookmarks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM share_grants WHERE slug IN (SELECT slug FROM collections WHERE owner_id = $1)`,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete share grants: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM collections WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete collections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// affected はRowsAffectedが1以上かどうかを返す。
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
var _ ShareCredentialFinder = (*PostgresCollectionRepo)(nil)
