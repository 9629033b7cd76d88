package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/language"
)

type translationView struct {
	Language     string          `json:"language"`
	Derived      bool            `json:"derived"`
	FallbackCopy bool            `json:"fallback_copy,omitempty"`
	Provider     *string         `json:"provider,omitempty"`
	Fields       json.RawMessage `json:"fields"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type contentItemView struct {
	EntityID         string            `json:"entity_id"`
	Kind             string            `json:"kind"`
	Published        bool              `json:"published"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	LanguageFallback bool              `json:"language_fallback,omitempty"`
	Translations     []translationView `json:"translations"`
}

func buildTranslationView(row db.EntityTranslationRow) translationView {
	return translationView{
		Language:     row.Language,
		Derived:      row.Derived,
		FallbackCopy: row.FallbackCopy,
		Provider:     row.ProviderName,
		Fields:       row.Fields,
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (s *Server) handleListContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}

	lang := language.NormalizeCode(c.QueryParam("lang"))
	if lang != "" && !s.supportedLanguage(lang) {
		return failValidation(c, map[string]string{"lang": "is not a supported language"})
	}
	if lang == "" {
		lang = s.opts.DefaultLanguage
	}

	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	publishedOnly := !s.isAdminRequest(c)
	ctx := c.Request().Context()

	total, err := s.pool.CountEntities(ctx, kind, publishedOnly)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("count entities failed")
		return internalError(c, "Failed to load content")
	}

	entities, err := s.pool.ListEntities(ctx, kind, publishedOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("list entities failed")
		return internalError(c, "Failed to load content")
	}

	items := make([]contentItemView, 0, len(entities))
	for _, entity := range entities {
		item, err := s.buildContentItem(ctx, entity, lang)
		if err != nil {
			s.logger.Error().Err(err).Str("entity_id", entity.EntityID).Msg("load entity translations failed")
			return internalError(c, "Failed to load content")
		}
		items = append(items, item)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
		"language": lang,
	})
}

func (s *Server) handleGetContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}

	entityID, err := parseEntityID(c.Param("entity_id"))
	if err != nil {
		return failValidation(c, map[string]string{"entity_id": err.Error()})
	}

	lang := language.NormalizeCode(c.QueryParam("lang"))
	if lang != "" && !s.supportedLanguage(lang) {
		return failValidation(c, map[string]string{"lang": "is not a supported language"})
	}

	ctx := c.Request().Context()
	entity, err := s.pool.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content not found")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity failed")
		return internalError(c, "Failed to load content")
	}
	if entity.Kind != kind {
		return failNotFound(c, "Content not found")
	}
	if !entity.Published && !s.isAdminRequest(c) {
		return failNotFound(c, "Content not found")
	}

	if lang == "" {
		// All language rows.
		rows, err := s.pool.ListEntityTranslations(ctx, entityID, "")
		if err != nil {
			s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity translations failed")
			return internalError(c, "Failed to load content")
		}
		views := make([]translationView, 0, len(rows))
		for _, row := range rows {
			views = append(views, buildTranslationView(row))
		}
		return success(c, contentItemView{
			EntityID:     entity.EntityID,
			Kind:         entity.Kind,
			Published:    entity.Published,
			CreatedAt:    entity.CreatedAt.UTC(),
			UpdatedAt:    entity.UpdatedAt.UTC(),
			Translations: views,
		})
	}

	item, err := s.buildContentItem(ctx, entity, lang)
	if err != nil {
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity translations failed")
		return internalError(c, "Failed to load content")
	}
	return success(c, item)
}

// buildContentItem picks the row for the requested language, falling back to
// the default language, then to any stored row.
func (s *Server) buildContentItem(ctx context.Context, entity db.EntityRow, lang string) (contentItemView, error) {
	rows, err := s.pool.ListEntityTranslations(ctx, entity.EntityID, "")
	if err != nil {
		return contentItemView{}, err
	}

	item := contentItemView{
		EntityID:     entity.EntityID,
		Kind:         entity.Kind,
		Published:    entity.Published,
		CreatedAt:    entity.CreatedAt.UTC(),
		UpdatedAt:    entity.UpdatedAt.UTC(),
		Translations: []translationView{},
	}

	chosen, found := pickTranslationRow(rows, lang, s.opts.DefaultLanguage)
	if !found {
		return item, nil
	}

	item.LanguageFallback = chosen.Language != lang
	item.Translations = []translationView{buildTranslationView(chosen)}
	return item, nil
}

func pickTranslationRow(rows []db.EntityTranslationRow, lang, defaultLang string) (db.EntityTranslationRow, bool) {
	if len(rows) == 0 {
		return db.EntityTranslationRow{}, false
	}
	for _, row := range rows {
		if row.Language == lang {
			return row, true
		}
	}
	for _, row := range rows {
		if row.Language == defaultLang {
			return row, true
		}
	}
	return rows[0], true
}

func parseEntityID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("is required")
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("must be a UUID")
	}
	return parsed.String(), nil
}

// isAdminRequest reports whether a valid admin token accompanies the request.
// Used to widen read endpoints to unpublished rows.
func (s *Server) isAdminRequest(c echo.Context) bool {
	if s.opts.AdminToken == "" {
		return false
	}
	supplied := strings.TrimSpace(c.Request().Header.Get(adminTokenHeader))
	if supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.opts.AdminToken)) == 1
}
