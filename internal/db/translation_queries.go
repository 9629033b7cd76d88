package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EntityTranslationRow is one localized content row for an entity.
type EntityTranslationRow struct {
	EntityID     string
	Language     string
	Fields       json.RawMessage
	Derived      bool
	FallbackCopy bool
	ProviderName *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReplaceEntityTranslations writes the given language rows for one entity in a
// single transaction, upserting on the (entity_id, language) key. Languages not
// present in rows are left untouched.
func (p *Pool) ReplaceEntityTranslations(ctx context.Context, entityID string, rows []EntityTranslationRow) error {
	trimmedID := strings.TrimSpace(entityID)
	if trimmedID == "" {
		return fmt.Errorf("entity ID is required")
	}
	if len(rows) == 0 {
		return fmt.Errorf("at least one translation row is required")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
INSERT INTO portfolio.entity_translations (
	entity_id,
	language,
	fields,
	derived,
	fallback_copy,
	provider_name,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (entity_id, language)
DO UPDATE SET
	fields = EXCLUDED.fields,
	derived = EXCLUDED.derived,
	fallback_copy = EXCLUDED.fallback_copy,
	provider_name = EXCLUDED.provider_name,
	updated_at = now()
`

	for _, row := range rows {
		if _, err := tx.Exec(
			ctx,
			q,
			trimmedID,
			row.Language,
			string(row.Fields),
			row.Derived,
			row.FallbackCopy,
			row.ProviderName,
		); err != nil {
			return fmt.Errorf("upsert entity translation language=%q: %w", row.Language, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteEntityTranslations removes the rows for the given languages. Deleting
// zero matching rows is not an error.
func (p *Pool) DeleteEntityTranslations(ctx context.Context, entityID string, languages []string) (int64, error) {
	trimmedID := strings.TrimSpace(entityID)
	if trimmedID == "" {
		return 0, fmt.Errorf("entity ID is required")
	}
	if len(languages) == 0 {
		return 0, nil
	}

	var query strings.Builder
	query.WriteString("DELETE FROM portfolio.entity_translations WHERE entity_id = $1::uuid AND language IN (")
	args := make([]any, 0, len(languages)+1)
	args = append(args, trimmedID)
	for idx, lang := range languages {
		if idx > 0 {
			query.WriteString(", ")
		}
		fmt.Fprintf(&query, "$%d", idx+2)
		args = append(args, lang)
	}
	query.WriteString(")")

	tag, err := p.Exec(ctx, query.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("delete entity translations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListEntityTranslations returns the language rows for one entity, optionally
// filtered to a single language. A missing entity yields an empty slice.
func (p *Pool) ListEntityTranslations(ctx context.Context, entityID, language string) ([]EntityTranslationRow, error) {
	const q = `
SELECT
	t.entity_id::text,
	t.language,
	t.fields,
	t.derived,
	t.fallback_copy,
	t.provider_name,
	t.created_at,
	t.updated_at
FROM portfolio.entity_translations t
WHERE t.entity_id = $1::uuid
  AND ($2 = '' OR t.language = $2)
ORDER BY t.language
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(entityID), strings.TrimSpace(language))
	if err != nil {
		return nil, fmt.Errorf("query entity translations: %w", err)
	}
	defer rows.Close()

	items := make([]EntityTranslationRow, 0, 4)
	for rows.Next() {
		var (
			row       EntityTranslationRow
			rawFields []byte
		)
		if err := rows.Scan(
			&row.EntityID,
			&row.Language,
			&rawFields,
			&row.Derived,
			&row.FallbackCopy,
			&row.ProviderName,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entity translation row: %w", err)
		}
		row.Fields = json.RawMessage(rawFields)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity translations: %w", err)
	}

	return items, nil
}

// GetAuthoritativeTranslation returns the non-derived row for an entity. When
// several rows share an updated_at (a verbatim save writes the full set in one
// transaction) the preferred language wins, then the lowest language code.
func (p *Pool) GetAuthoritativeTranslation(ctx context.Context, entityID, preferredLanguage string) (EntityTranslationRow, error) {
	const q = `
SELECT
	t.entity_id::text,
	t.language,
	t.fields,
	t.derived,
	t.fallback_copy,
	t.provider_name,
	t.created_at,
	t.updated_at
FROM portfolio.entity_translations t
WHERE t.entity_id = $1::uuid
  AND t.derived = false
ORDER BY t.language
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(entityID))
	if err != nil {
		return EntityTranslationRow{}, fmt.Errorf("query authoritative translation: %w", err)
	}
	defer rows.Close()

	candidates := make([]EntityTranslationRow, 0, 4)
	for rows.Next() {
		var (
			row       EntityTranslationRow
			rawFields []byte
		)
		if err := rows.Scan(
			&row.EntityID,
			&row.Language,
			&rawFields,
			&row.Derived,
			&row.FallbackCopy,
			&row.ProviderName,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return EntityTranslationRow{}, fmt.Errorf("scan authoritative translation: %w", err)
		}
		row.Fields = json.RawMessage(rawFields)
		candidates = append(candidates, row)
	}
	if err := rows.Err(); err != nil {
		return EntityTranslationRow{}, fmt.Errorf("iterate authoritative translations: %w", err)
	}

	row, ok := pickAuthoritativeRow(candidates, preferredLanguage)
	if !ok {
		return EntityTranslationRow{}, ErrNoRows
	}
	return row, nil
}

// pickAuthoritativeRow selects the most recently updated row. Rows must be
// sorted by language so equal timestamps resolve the same way every call.
func pickAuthoritativeRow(rows []EntityTranslationRow, preferredLanguage string) (EntityTranslationRow, bool) {
	if len(rows) == 0 {
		return EntityTranslationRow{}, false
	}

	best := 0
	for i := 1; i < len(rows); i++ {
		switch {
		case rows[i].UpdatedAt.After(rows[best].UpdatedAt):
			best = i
		case rows[i].UpdatedAt.Equal(rows[best].UpdatedAt):
			if rows[i].Language == preferredLanguage && rows[best].Language != preferredLanguage {
				best = i
			}
		}
	}
	return rows[best], true
}
