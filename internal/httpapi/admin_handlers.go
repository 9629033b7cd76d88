package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/globaltime"
	"github.com/habibiahmada/portfolio-api/internal/langdetect"
	"github.com/habibiahmada/portfolio-api/internal/reader"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

const adminTokenHeader = "X-Admin-Token"

var errIncompleteLanguageSet = errors.New("translations must cover exactly one language or all supported languages")

func (s *Server) requireAdminToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AdminToken == "" {
				return fail(c, http.StatusForbidden, "Admin API is disabled", nil)
			}
			supplied := strings.TrimSpace(c.Request().Header.Get(adminTokenHeader))
			if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(s.opts.AdminToken)) != 1 {
				return fail(c, http.StatusUnauthorized, "Invalid admin token", nil)
			}
			return next(c)
		}
	}
}

func (s *Server) handleCreateContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}

	body, err := readRequestBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	payload, err := parseMutationPayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	published := false
	if payload.Published != nil {
		published = *payload.Published
	}

	ctx := c.Request().Context()
	entityID, err := s.pool.InsertEntity(ctx, "", kind, published, globaltime.UTC())
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("insert entity failed")
		return internalError(c, "Failed to create content")
	}

	records, fieldErrors := s.resolveRecords(payload, entityID)
	if fieldErrors != nil {
		s.discardEntity(c, entityID)
		return failValidation(c, fieldErrors)
	}

	result, err := s.applyMutation(c, kind, records, payload.Provider)
	if err != nil {
		s.discardEntity(c, entityID)
		return s.syncErrorResponse(c, err)
	}

	return successWithStatus(c, http.StatusCreated, s.buildSyncResponse(ctx, entityID, kind, result))
}

func (s *Server) handleUpdateContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}
	entityID, err := parseEntityID(c.Param("entity_id"))
	if err != nil {
		return failValidation(c, map[string]string{"entity_id": err.Error()})
	}

	ctx := c.Request().Context()
	entity, err := s.pool.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content not found")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity failed")
		return internalError(c, "Failed to update content")
	}
	if entity.Kind != kind {
		return failNotFound(c, "Content not found")
	}

	body, err := readRequestBody(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	payload, err := parseMutationPayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	records, fieldErrors := s.resolveRecords(payload, entityID)
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	result, err := s.applyMutation(c, kind, records, payload.Provider)
	if err != nil {
		return s.syncErrorResponse(c, err)
	}

	now := globaltime.UTC()
	if payload.Published != nil && *payload.Published != entity.Published {
		if err := s.pool.SetEntityPublished(ctx, entityID, *payload.Published, now); err != nil {
			s.logger.Error().Err(err).Str("entity_id", entityID).Msg("set published failed")
			return internalError(c, "Failed to update content")
		}
	} else if err := s.pool.TouchEntity(ctx, entityID, now); err != nil {
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("touch entity failed")
	}

	return success(c, s.buildSyncResponse(ctx, entityID, kind, result))
}

func (s *Server) handleDeleteContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}
	entityID, err := parseEntityID(c.Param("entity_id"))
	if err != nil {
		return failValidation(c, map[string]string{"entity_id": err.Error()})
	}

	ctx := c.Request().Context()
	entity, err := s.pool.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content not found")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity failed")
		return internalError(c, "Failed to delete content")
	}
	if entity.Kind != kind {
		return failNotFound(c, "Content not found")
	}

	deleted, err := s.pool.DeleteEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content not found")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("delete entity failed")
		return internalError(c, "Failed to delete content")
	}

	return success(c, map[string]any{
		"entity_id":            entityID,
		"translations_deleted": deleted,
	})
}

func (s *Server) handleResyncContent(c echo.Context) error {
	kind := content.NormalizeKind(c.Param("kind"))
	if !content.IsKind(kind) {
		return failValidation(c, map[string]string{"kind": "is not a known content kind"})
	}
	entityID, err := parseEntityID(c.Param("entity_id"))
	if err != nil {
		return failValidation(c, map[string]string{"entity_id": err.Error()})
	}

	ctx := c.Request().Context()
	entity, err := s.pool.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content not found")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load entity failed")
		return internalError(c, "Failed to resync content")
	}
	if entity.Kind != kind {
		return failNotFound(c, "Content not found")
	}

	authoritative, err := s.pool.GetAuthoritativeTranslation(ctx, entityID, s.opts.DefaultLanguage)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Content has no authoritative translation")
		}
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("load authoritative translation failed")
		return internalError(c, "Failed to resync content")
	}

	record, err := content.ParseRecord(authoritative.EntityID, authoritative.Language, authoritative.Fields)
	if err != nil {
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("parse stored fields failed")
		return internalError(c, "Failed to resync content")
	}

	provider := ""
	var importPayload struct {
		Provider string `json:"provider,omitempty"`
	}
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &importPayload); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		provider = importPayload.Provider
	}

	result, err := s.syncer.Sync(ctx, kind, record, content.SyncOptions{Provider: provider})
	if err != nil {
		return s.syncErrorResponse(c, err)
	}

	return success(c, s.buildSyncResponse(ctx, entityID, kind, result))
}

func (s *Server) handleImportArticle(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.URL) == "" {
		return failValidation(c, map[string]string{"url": "is required"})
	}

	draft, err := reader.FetchArticle(c.Request().Context(), req.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", req.URL).Msg("article import failed")
		return fail(c, http.StatusBadGateway, "Failed to fetch article", nil)
	}

	lang := langdetect.DetectISO6391(draft.Content)
	if !s.supportedLanguage(lang) {
		lang = ""
	}

	return success(c, map[string]any{
		"article":  draft,
		"language": lang,
	})
}

func (s *Server) handleAdminStats(c echo.Context) error {
	ctx := c.Request().Context()

	kinds, err := s.pool.CountEntitiesByKind(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("query entity counts failed")
		return internalError(c, "Failed to load stats")
	}
	languages, err := s.pool.TranslationStatsByLanguage(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("query translation stats failed")
		return internalError(c, "Failed to load stats")
	}

	kindCounts := make(map[string]int64, len(kinds))
	for _, row := range kinds {
		kindCounts[row.Kind] = row.Count
	}

	languageStats := make([]map[string]any, 0, len(languages))
	var fallbackTotal int64
	for _, row := range languages {
		fallbackTotal += row.FallbackCopy
		languageStats = append(languageStats, map[string]any{
			"language":      row.Language,
			"rows":          row.Rows,
			"derived":       row.Derived,
			"fallback_copy": row.FallbackCopy,
		})
	}

	return success(c, map[string]any{
		"entities_by_kind":     kindCounts,
		"translation_rows":     languageStats,
		"fallback_copies":      fallbackTotal,
		"supported_languages":  s.opts.Languages,
		"default_language":     s.opts.DefaultLanguage,
		"translation_provider": s.registry.DefaultProvider(),
	})
}

// resolveRecords binds payload translations to the entity and fills in any
// missing language via detection over the record's text fields.
func (s *Server) resolveRecords(payload *mutationPayload, entityID string) ([]content.Record, map[string]string) {
	records, err := payload.toRecords(entityID)
	if err != nil {
		return nil, map[string]string{"translations": err.Error()}
	}

	for idx := range records {
		detected := langdetect.DetectISO6391(recordText(records[idx]))

		if records[idx].Language == "" {
			if !s.supportedLanguage(detected) {
				return nil, map[string]string{"translations": "language is required and could not be detected"}
			}
			records[idx].Language = detected
			continue
		}

		if !s.supportedLanguage(records[idx].Language) {
			return nil, map[string]string{"translations": "language " + records[idx].Language + " is not supported"}
		}
		if detected != "" && detected != records[idx].Language && s.supportedLanguage(detected) {
			s.logger.Warn().
				Str("entity_id", entityID).
				Str("declared", records[idx].Language).
				Str("detected", detected).
				Msg("declared language disagrees with detection")
		}
	}

	return records, nil
}

// applyMutation routes one-translation payloads through the synchronizer and
// full language sets through the verbatim path.
func (s *Server) applyMutation(c echo.Context, kind string, records []content.Record, provider string) (*content.SyncResult, error) {
	ctx := c.Request().Context()

	if len(records) == 1 {
		return s.syncer.Sync(ctx, kind, records[0], content.SyncOptions{Provider: provider})
	}

	supplied := make(map[string]bool, len(records))
	for _, record := range records {
		supplied[record.Language] = true
	}
	for _, lang := range s.opts.Languages {
		if !supplied[lang] {
			return nil, errIncompleteLanguageSet
		}
	}

	return s.syncer.SyncVerbatim(ctx, kind, records)
}

func (s *Server) buildSyncResponse(ctx context.Context, entityID, kind string, result *content.SyncResult) map[string]any {
	rows, err := s.pool.ListEntityTranslations(ctx, entityID, "")
	if err == nil && len(rows) > 0 {
		views := make([]translationView, 0, len(rows))
		for _, row := range rows {
			views = append(views, buildTranslationView(row))
		}
		return map[string]any{
			"entity_id":              entityID,
			"kind":                   kind,
			"authoritative_language": result.AuthoritativeLanguage,
			"translations":           views,
		}
	}

	// Fall back to the in-memory result when the read-back fails.
	views := make([]translationView, 0, len(result.Rows))
	for _, row := range result.Rows {
		encoded, encodeErr := row.Record.Fields.MarshalJSON()
		if encodeErr != nil {
			continue
		}
		view := translationView{
			Language:     row.Record.Language,
			Derived:      row.Derived,
			FallbackCopy: row.FallbackCopy,
			Fields:       encoded,
			UpdatedAt:    globaltime.UTC(),
		}
		if row.Provider != "" {
			providerName := row.Provider
			view.Provider = &providerName
		}
		views = append(views, view)
	}
	return map[string]any{
		"entity_id":              entityID,
		"kind":                   kind,
		"authoritative_language": result.AuthoritativeLanguage,
		"translations":           views,
	}
}

func (s *Server) syncErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, content.ErrUnknownKind),
		errors.Is(err, content.ErrUnsupportedLanguage),
		errors.Is(err, content.ErrInvalidRecord):
		return failValidation(c, map[string]string{"translations": err.Error()})
	case errors.Is(err, translation.ErrUnavailable):
		return fail(c, http.StatusBadGateway, "Translation provider unavailable", nil)
	case errors.Is(err, content.ErrForeignKeyViolation):
		return failNotFound(c, "Content not found")
	case errors.Is(err, errIncompleteLanguageSet):
		return failValidation(c, map[string]string{"translations": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("content sync failed")
		return internalError(c, "Failed to save content")
	}
}

func (s *Server) discardEntity(c echo.Context, entityID string) {
	if _, err := s.pool.DeleteEntity(c.Request().Context(), entityID); err != nil && !errors.Is(err, db.ErrNoRows) {
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("cleanup entity after failed create")
	}
}

func recordText(record content.Record) string {
	var parts []string
	for _, name := range record.Fields.Names() {
		value, _ := record.Fields.Get(name)
		switch value.Kind() {
		case content.TextValue:
			parts = append(parts, value.Text())
		case content.ListValue:
			parts = append(parts, value.List()...)
		}
	}
	return strings.Join(parts, "\n")
}
