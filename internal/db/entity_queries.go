package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EntityRow is one parent content entity.
type EntityRow struct {
	EntityID  string
	Kind      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InsertEntity creates a parent entity row and returns its generated identifier.
func (p *Pool) InsertEntity(ctx context.Context, entityID, kind string, published bool, now time.Time) (string, error) {
	const q = `
INSERT INTO portfolio.entities (entity_id, kind, published, created_at, updated_at)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $4)
RETURNING entity_id::text
`

	var id string
	if err := p.QueryRow(ctx, q, strings.TrimSpace(entityID), kind, published, now.UTC()).Scan(&id); err != nil {
		return "", fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

// GetEntity fetches one parent entity row by identifier.
func (p *Pool) GetEntity(ctx context.Context, entityID string) (EntityRow, error) {
	const q = `
SELECT
	e.entity_id::text,
	e.kind,
	e.published,
	e.created_at,
	e.updated_at
FROM portfolio.entities e
WHERE e.entity_id = $1::uuid
LIMIT 1
`

	var row EntityRow
	err := p.QueryRow(ctx, q, strings.TrimSpace(entityID)).Scan(
		&row.EntityID,
		&row.Kind,
		&row.Published,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return EntityRow{}, ErrNoRows
		}
		return EntityRow{}, fmt.Errorf("query entity: %w", err)
	}
	return row, nil
}

// ListEntities returns entities of one kind, newest first.
func (p *Pool) ListEntities(ctx context.Context, kind string, publishedOnly bool, limit, offset int) ([]EntityRow, error) {
	const q = `
SELECT
	e.entity_id::text,
	e.kind,
	e.published,
	e.created_at,
	e.updated_at
FROM portfolio.entities e
WHERE e.kind = $1
  AND ($2 = false OR e.published = true)
ORDER BY e.updated_at DESC, e.entity_id DESC
LIMIT $3
OFFSET $4
`

	rows, err := p.Query(ctx, q, kind, publishedOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	items := make([]EntityRow, 0, limit)
	for rows.Next() {
		var row EntityRow
		if err := rows.Scan(&row.EntityID, &row.Kind, &row.Published, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}

	return items, nil
}

// CountEntities counts entities of one kind.
func (p *Pool) CountEntities(ctx context.Context, kind string, publishedOnly bool) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM portfolio.entities e
WHERE e.kind = $1
  AND ($2 = false OR e.published = true)
`

	var total int64
	if err := p.QueryRow(ctx, q, kind, publishedOnly).Scan(&total); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return total, nil
}

// SetEntityPublished flips the published flag and bumps updated_at.
func (p *Pool) SetEntityPublished(ctx context.Context, entityID string, published bool, now time.Time) error {
	const q = `
UPDATE portfolio.entities
SET published = $2, updated_at = $3
WHERE entity_id = $1::uuid
`

	tag, err := p.Exec(ctx, q, strings.TrimSpace(entityID), published, now.UTC())
	if err != nil {
		return fmt.Errorf("update entity published flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// TouchEntity bumps updated_at after a content change.
func (p *Pool) TouchEntity(ctx context.Context, entityID string, now time.Time) error {
	const q = `
UPDATE portfolio.entities
SET updated_at = $2
WHERE entity_id = $1::uuid
`

	if _, err := p.Exec(ctx, q, strings.TrimSpace(entityID), now.UTC()); err != nil {
		return fmt.Errorf("touch entity: %w", err)
	}
	return nil
}

// DeleteEntity removes the translation rows and the parent entity in one
// transaction. Returns the number of translation rows removed.
func (p *Pool) DeleteEntity(ctx context.Context, entityID string) (int64, error) {
	trimmedID := strings.TrimSpace(entityID)
	if trimmedID == "" {
		return 0, fmt.Errorf("entity ID is required")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const translationsQuery = `
DELETE FROM portfolio.entity_translations
WHERE entity_id = $1::uuid
`
	tag, err := tx.Exec(ctx, translationsQuery, trimmedID)
	if err != nil {
		return 0, fmt.Errorf("delete entity translations: %w", err)
	}
	translationCount := tag.RowsAffected()

	const entityQuery = `
DELETE FROM portfolio.entities
WHERE entity_id = $1::uuid
`
	entityTag, err := tx.Exec(ctx, entityQuery, trimmedID)
	if err != nil {
		return 0, fmt.Errorf("delete entity: %w", err)
	}
	if entityTag.RowsAffected() == 0 {
		return 0, ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return translationCount, nil
}
