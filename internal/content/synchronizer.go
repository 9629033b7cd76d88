package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

// Store persists translation rows. *db.Pool satisfies it.
type Store interface {
	ReplaceEntityTranslations(ctx context.Context, entityID string, rows []db.EntityTranslationRow) error
	DeleteEntityTranslations(ctx context.Context, entityID string, languages []string) (int64, error)
	ListEntityTranslations(ctx context.Context, entityID, language string) ([]db.EntityTranslationRow, error)
}

// ProviderResolver resolves a translation provider by name. An empty name
// resolves the configured default. *translation.Registry satisfies it.
type ProviderResolver interface {
	Provider(name string) (translation.Provider, error)
}

// SyncerConfig carries the language set and failure policy of a Syncer.
type SyncerConfig struct {
	// Languages is the full supported language set, default language first.
	Languages []string
	// FallbackVerbatim copies the authoritative text into a derived row when
	// the provider is unavailable instead of aborting the sync.
	FallbackVerbatim bool
	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration
}

// SyncOptions tunes one Sync call.
type SyncOptions struct {
	// Provider overrides the default translation provider.
	Provider string
}

// SyncedRow is one persisted language row together with its provenance.
type SyncedRow struct {
	Record       Record
	Derived      bool
	FallbackCopy bool
	Provider     string
}

// SyncResult reports every row persisted by one Sync call.
type SyncResult struct {
	EntityID              string
	AuthoritativeLanguage string
	Rows                  []SyncedRow
}

// Row returns the persisted row for one language.
func (r *SyncResult) Row(language string) (SyncedRow, bool) {
	if r == nil {
		return SyncedRow{}, false
	}
	for _, row := range r.Rows {
		if row.Record.Language == language {
			return row, true
		}
	}
	return SyncedRow{}, false
}

// Syncer derives and persists the full language row set for an entity from
// one authoritative row. Calls for the same entity are serialized.
type Syncer struct {
	store     Store
	providers ProviderResolver
	log       zerolog.Logger
	cfg       SyncerConfig
	locks     *keyedMutex
}

func NewSyncer(store Store, providers ProviderResolver, log zerolog.Logger, cfg SyncerConfig) (*Syncer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider resolver is required")
	}
	if len(cfg.Languages) < 2 {
		return nil, fmt.Errorf("at least two supported languages are required")
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 20 * time.Second
	}

	return &Syncer{
		store:     store,
		providers: providers,
		log:       log,
		cfg:       cfg,
		locks:     newKeyedMutex(),
	}, nil
}

// Languages returns the supported language set.
func (s *Syncer) Languages() []string {
	copied := make([]string, len(s.cfg.Languages))
	copy(copied, s.cfg.Languages)
	return copied
}

func (s *Syncer) supportsLanguage(language string) bool {
	for _, lang := range s.cfg.Languages {
		if lang == language {
			return true
		}
	}
	return false
}

// Sync derives one row per non-authoritative language and persists the whole
// language set in a single transaction. Re-running with the same authoritative
// row replaces the previous derived rows rather than accumulating them.
func (s *Syncer) Sync(ctx context.Context, kind string, authoritative Record, opts SyncOptions) (*SyncResult, error) {
	spec, ok := FieldSpec(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := validateRecord(authoritative); err != nil {
		return nil, err
	}
	if !s.supportsLanguage(authoritative.Language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, authoritative.Language)
	}

	provider, err := s.providers.Provider(opts.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve translation provider: %w", err)
	}

	s.locks.Lock(authoritative.EntityID)
	defer s.locks.Unlock(authoritative.EntityID)

	projected := Project(authoritative, spec)

	result := &SyncResult{
		EntityID:              authoritative.EntityID,
		AuthoritativeLanguage: authoritative.Language,
		Rows: []SyncedRow{{
			Record: authoritative.Clone(),
		}},
	}

	for _, targetLang := range s.cfg.Languages {
		if targetLang == authoritative.Language {
			continue
		}
		derived, err := s.deriveRow(ctx, provider, authoritative, projected, targetLang)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, derived)
	}

	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// SyncVerbatim persists caller-supplied rows for every language without
// invoking the provider. Used when a mutation already carries all languages.
func (s *Syncer) SyncVerbatim(ctx context.Context, kind string, records []Record) (*SyncResult, error) {
	if !IsKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows supplied", ErrInvalidRecord)
	}

	entityID := records[0].EntityID
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		if err := validateRecord(record); err != nil {
			return nil, err
		}
		if record.EntityID != entityID {
			return nil, fmt.Errorf("%w: rows span multiple entities", ErrInvalidRecord)
		}
		if !s.supportsLanguage(record.Language) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, record.Language)
		}
		if seen[record.Language] {
			return nil, fmt.Errorf("%w: duplicate language %q", ErrInvalidRecord, record.Language)
		}
		seen[record.Language] = true
	}

	s.locks.Lock(entityID)
	defer s.locks.Unlock(entityID)

	result := &SyncResult{
		EntityID:              entityID,
		AuthoritativeLanguage: records[0].Language,
	}
	for _, record := range records {
		result.Rows = append(result.Rows, SyncedRow{Record: record.Clone()})
	}

	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes every stored language row for the entity.
func (s *Syncer) Delete(ctx context.Context, entityID string) (int64, error) {
	s.locks.Lock(entityID)
	defer s.locks.Unlock(entityID)

	count, err := s.store.DeleteEntityTranslations(ctx, entityID, s.cfg.Languages)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return count, nil
}

func (s *Syncer) deriveRow(ctx context.Context, provider translation.Provider, authoritative Record, projected *Fields, targetLang string) (SyncedRow, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	translated, err := TranslateFields(callCtx, provider, projected, authoritative.Language, targetLang)
	cancel()

	if err != nil {
		if !errors.Is(err, translation.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
			return SyncedRow{}, fmt.Errorf("derive %s row for entity %s: %w", targetLang, authoritative.EntityID, err)
		}
		if !s.cfg.FallbackVerbatim {
			return SyncedRow{}, fmt.Errorf("derive %s row for entity %s: %w", targetLang, authoritative.EntityID, err)
		}

		s.log.Warn().
			Err(err).
			Str("entity_id", authoritative.EntityID).
			Str("source_lang", authoritative.Language).
			Str("target_lang", targetLang).
			Str("provider", provider.Name()).
			Msg("translation unavailable, storing verbatim copy")

		fallback := authoritative.Clone()
		fallback.Language = targetLang
		return SyncedRow{
			Record:       fallback,
			Derived:      true,
			FallbackCopy: true,
			Provider:     provider.Name(),
		}, nil
	}

	derived := Record{
		EntityID: authoritative.EntityID,
		Language: targetLang,
		Fields:   Merge(authoritative.Fields, translated),
	}
	return SyncedRow{
		Record:   derived,
		Derived:  true,
		Provider: provider.Name(),
	}, nil
}

func (s *Syncer) persist(ctx context.Context, result *SyncResult) error {
	rows := make([]db.EntityTranslationRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		encoded, err := row.Record.Fields.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode fields for language %s: %w", row.Record.Language, err)
		}
		dbRow := db.EntityTranslationRow{
			EntityID:     result.EntityID,
			Language:     row.Record.Language,
			Fields:       encoded,
			Derived:      row.Derived,
			FallbackCopy: row.FallbackCopy,
		}
		if row.Provider != "" {
			providerName := row.Provider
			dbRow.ProviderName = &providerName
		}
		rows = append(rows, dbRow)
	}

	if err := s.store.ReplaceEntityTranslations(ctx, result.EntityID, rows); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func classifyStoreError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrForeignKeyViolation, err)
	default:
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
}

func validateRecord(record Record) error {
	if record.EntityID == "" {
		return fmt.Errorf("%w: entity ID is required", ErrInvalidRecord)
	}
	if record.Language == "" {
		return fmt.Errorf("%w: language is required", ErrInvalidRecord)
	}
	if record.Fields.Len() == 0 {
		return fmt.Errorf("%w: fields are required", ErrInvalidRecord)
	}
	return nil
}
