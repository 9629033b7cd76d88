package db

import (
	"context"
	"fmt"
)

// KindCount is the number of entities stored for one content kind.
type KindCount struct {
	Kind  string
	Count int64
}

// LanguageStats summarizes the translation rows stored for one language.
type LanguageStats struct {
	Language     string
	Rows         int64
	Derived      int64
	FallbackCopy int64
}

func (p *Pool) CountEntitiesByKind(ctx context.Context) ([]KindCount, error) {
	const q = `
SELECT e.kind, count(*)
FROM portfolio.entities e
GROUP BY e.kind
ORDER BY e.kind
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query entity counts by kind: %w", err)
	}
	defer rows.Close()

	counts := make([]KindCount, 0, 8)
	for rows.Next() {
		var item KindCount
		if err := rows.Scan(&item.Kind, &item.Count); err != nil {
			return nil, fmt.Errorf("scan entity kind count row: %w", err)
		}
		counts = append(counts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity kind counts: %w", err)
	}

	return counts, nil
}

func (p *Pool) TranslationStatsByLanguage(ctx context.Context) ([]LanguageStats, error) {
	const q = `
SELECT
	t.language,
	count(*),
	count(*) FILTER (WHERE t.derived),
	count(*) FILTER (WHERE t.fallback_copy)
FROM portfolio.entity_translations t
GROUP BY t.language
ORDER BY t.language
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query translation stats: %w", err)
	}
	defer rows.Close()

	stats := make([]LanguageStats, 0, 4)
	for rows.Next() {
		var item LanguageStats
		if err := rows.Scan(&item.Language, &item.Rows, &item.Derived, &item.FallbackCopy); err != nil {
			return nil, fmt.Errorf("scan translation stats row: %w", err)
		}
		stats = append(stats, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation stats: %w", err)
	}

	return stats, nil
}
