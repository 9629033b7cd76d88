package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

type memoryStore struct {
	mu   sync.Mutex
	rows map[string]map[string]db.EntityTranslationRow

	replaceErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]map[string]db.EntityTranslationRow)}
}

func (s *memoryStore) ReplaceEntityTranslations(_ context.Context, entityID string, rows []db.EntityTranslationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	byLang, ok := s.rows[entityID]
	if !ok {
		byLang = make(map[string]db.EntityTranslationRow)
		s.rows[entityID] = byLang
	}
	for _, row := range rows {
		byLang[row.Language] = row
	}
	return nil
}

func (s *memoryStore) DeleteEntityTranslations(_ context.Context, entityID string, languages []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byLang := s.rows[entityID]
	var count int64
	for _, lang := range languages {
		if _, ok := byLang[lang]; ok {
			delete(byLang, lang)
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) ListEntityTranslations(_ context.Context, entityID, language string) ([]db.EntityTranslationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]db.EntityTranslationRow, 0, 4)
	for _, lang := range []string{"en", "id", "jv"} {
		row, ok := s.rows[entityID][lang]
		if !ok {
			continue
		}
		if language != "" && lang != language {
			continue
		}
		items = append(items, row)
	}
	return items, nil
}

func (s *memoryStore) row(t *testing.T, entityID, language string) db.EntityTranslationRow {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[entityID][language]
	if !ok {
		t.Fatalf("no stored row for entity %s language %s", entityID, language)
	}
	return row
}

type markerProvider struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (p *markerProvider) Translate(_ context.Context, req translation.TranslateRequest) (*translation.TranslateResponse, error) {
	p.mu.Lock()
	p.calls++
	fail := p.fail
	p.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("provider timed out: %w", translation.ErrUnavailable)
	}
	return &translation.TranslateResponse{
		Text:         req.TargetLang + ":" + req.Text,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: "marker",
	}, nil
}

func (p *markerProvider) Name() string { return "marker" }

func (p *markerProvider) SupportedLanguages() []string { return []string{"en", "id", "jv"} }

type stubResolver struct {
	provider translation.Provider
}

func (r *stubResolver) Provider(string) (translation.Provider, error) {
	return r.provider, nil
}

func newTestSyncer(t *testing.T, store Store, provider translation.Provider, languages []string, fallback bool) *Syncer {
	t.Helper()
	syncer, err := NewSyncer(store, &stubResolver{provider: provider}, zerolog.Nop(), SyncerConfig{
		Languages:        languages,
		FallbackVerbatim: fallback,
		ProviderTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}
	return syncer
}

func projectRecord(entityID string) Record {
	record := NewRecord(entityID, "id")
	record.Fields.
		Set("title", Text("Situs Web")).
		Set("description", Text("Deskripsi")).
		Set("technologies", Raw(json.RawMessage(`["React","Node"]`))).
		Set("year", Raw(json.RawMessage(`2024`))).
		Set("image_url", Text("https://example.com/shot.png"))
	return record
}

func decodeStoredFields(t *testing.T, row db.EntityTranslationRow) *Fields {
	t.Helper()
	fields := NewFields()
	if err := fields.UnmarshalJSON(row.Fields); err != nil {
		t.Fatalf("decode stored fields: %v", err)
	}
	return fields
}

func TestSyncCreatesOneRowPerLanguage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	result, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-1"), SyncOptions{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("got %d result rows, want 2", len(result.Rows))
	}

	derived := decodeStoredFields(t, store.row(t, "e-1", "en"))
	title, _ := derived.Get("title")
	if title.Text() != "en:Situs Web" {
		t.Fatalf("derived title = %q, want translated value", title.Text())
	}
	desc, _ := derived.Get("description")
	if desc.Text() != "en:Deskripsi" {
		t.Fatalf("derived description = %q, want translated value", desc.Text())
	}

	// Passthrough fields stay byte-identical across languages.
	authoritative := decodeStoredFields(t, store.row(t, "e-1", "id"))
	for _, name := range []string{"technologies", "year", "image_url"} {
		got, _ := derived.Get(name)
		want, _ := authoritative.Get(name)
		if !got.Equal(want) {
			t.Fatalf("field %q differs between language rows", name)
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	record := projectRecord("e-2")
	for run := 0; run < 3; run++ {
		if _, err := syncer.Sync(context.Background(), KindProject, record, SyncOptions{}); err != nil {
			t.Fatalf("sync run %d: %v", run, err)
		}
	}

	rows, err := store.ListEntityTranslations(context.Background(), "e-2", "")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d stored rows after repeated sync, want 2", len(rows))
	}
}

func TestSyncFallbackCopiesAuthoritativeText(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{fail: true}, []string{"en", "id"}, true)

	result, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-3"), SyncOptions{})
	if err != nil {
		t.Fatalf("sync with failing provider: %v", err)
	}

	row, ok := result.Row("en")
	if !ok {
		t.Fatal("derived row missing from result")
	}
	if !row.FallbackCopy || !row.Derived {
		t.Fatalf("fallback row flags derived=%v fallback=%v", row.Derived, row.FallbackCopy)
	}

	stored := store.row(t, "e-3", "en")
	if !stored.FallbackCopy {
		t.Fatal("stored row not marked as fallback copy")
	}
	fields := decodeStoredFields(t, stored)
	title, _ := fields.Get("title")
	if title.Text() != "Situs Web" {
		t.Fatalf("fallback title = %q, want verbatim copy", title.Text())
	}
	if stored.Language != "en" {
		t.Fatalf("fallback row language = %q, want en", stored.Language)
	}
}

func TestSyncFallbackDisabledAbortsWithoutWriting(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{fail: true}, []string{"en", "id"}, false)

	_, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-4"), SyncOptions{})
	if !errors.Is(err, translation.ErrUnavailable) {
		t.Fatalf("got %v, want translation.ErrUnavailable", err)
	}

	rows, _ := store.ListEntityTranslations(context.Background(), "e-4", "")
	if len(rows) != 0 {
		t.Fatalf("got %d stored rows after aborted sync, want 0", len(rows))
	}
}

func TestSyncTranslatesListFieldsElementwise(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	record := NewRecord("e-5", "id")
	record.Fields.
		Set("title", Text("Insinyur")).
		Set("description", Text("Deskripsi")).
		Set("location_type", Text("Jarak jauh")).
		Set("highlights", List("Memimpin tim", "Membangun API"))

	if _, err := syncer.Sync(context.Background(), KindExperience, record, SyncOptions{}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	fields := decodeStoredFields(t, store.row(t, "e-5", "en"))
	value, _ := fields.Get("highlights")
	if value.Kind() != ListValue {
		t.Fatalf("highlights kind = %d, want list", value.Kind())
	}
	items := value.List()
	want := []string{"en:Memimpin tim", "en:Membangun API"}
	if len(items) != len(want) {
		t.Fatalf("got %d highlights, want %d", len(items), len(want))
	}
	for idx := range want {
		if items[idx] != want[idx] {
			t.Fatalf("highlights[%d] = %q, want %q", idx, items[idx], want[idx])
		}
	}
}

func TestSyncRegeneratesDerivedRow(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	first := NewRecord("e-6", "en")
	first.Fields.
		Set("title", Text("Old Title")).
		Set("excerpt", Text("Old excerpt")).
		Set("content", Text("Old body"))
	if _, err := syncer.Sync(context.Background(), KindArticle, first, SyncOptions{}); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	updated := NewRecord("e-6", "en")
	updated.Fields.
		Set("title", Text("New Title")).
		Set("excerpt", Text("New excerpt")).
		Set("content", Text("New body"))
	if _, err := syncer.Sync(context.Background(), KindArticle, updated, SyncOptions{}); err != nil {
		t.Fatalf("update sync: %v", err)
	}

	fields := decodeStoredFields(t, store.row(t, "e-6", "id"))
	title, _ := fields.Get("title")
	if title.Text() != "id:New Title" {
		t.Fatalf("derived title = %q, want regenerated from new content", title.Text())
	}
	content, _ := fields.Get("content")
	if content.Text() != "id:New body" {
		t.Fatalf("derived content = %q, want regenerated from new content", content.Text())
	}
}

func TestSyncGeneralizedLanguageSet(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id", "jv"}, true)

	if _, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-7"), SyncOptions{}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	rows, _ := store.ListEntityTranslations(context.Background(), "e-7", "")
	if len(rows) != 3 {
		t.Fatalf("got %d stored rows, want one per supported language", len(rows))
	}
}

func TestSyncRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	cases := []struct {
		name    string
		kind    string
		record  Record
		wantErr error
	}{
		{name: "unknown kind", kind: "banner", record: projectRecord("e-8"), wantErr: ErrUnknownKind},
		{name: "unsupported language", kind: KindProject, record: func() Record {
			r := projectRecord("e-8")
			r.Language = "fr"
			return r
		}(), wantErr: ErrUnsupportedLanguage},
		{name: "missing entity id", kind: KindProject, record: func() Record {
			r := projectRecord("")
			return r
		}(), wantErr: ErrInvalidRecord},
		{name: "empty fields", kind: KindProject, record: NewRecord("e-8", "id"), wantErr: ErrInvalidRecord},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := syncer.Sync(context.Background(), tc.kind, tc.record, SyncOptions{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSyncClassifiesStoreErrors(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.replaceErr = errors.New("connection reset")
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	_, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-9"), SyncOptions{})
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("got %v, want ErrPersistenceFailed", err)
	}
}

func TestSyncVerbatimBypassesProvider(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	provider := &markerProvider{}
	syncer := newTestSyncer(t, store, provider, []string{"en", "id"}, true)

	idRecord := NewRecord("e-10", "id")
	idRecord.Fields.Set("title", Text("Judul")).Set("description", Text("Deskripsi"))
	enRecord := NewRecord("e-10", "en")
	enRecord.Fields.Set("title", Text("Title")).Set("description", Text("Description"))

	result, err := syncer.SyncVerbatim(context.Background(), KindService, []Record{idRecord, enRecord})
	if err != nil {
		t.Fatalf("verbatim sync: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("got %d result rows, want 2", len(result.Rows))
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times, want 0", provider.calls)
	}

	stored := store.row(t, "e-10", "en")
	if stored.Derived {
		t.Fatal("verbatim row marked as derived")
	}
	fields := decodeStoredFields(t, stored)
	title, _ := fields.Get("title")
	if title.Text() != "Title" {
		t.Fatalf("stored en title = %q, want caller-supplied value", title.Text())
	}
}

func TestSyncVerbatimRejectsDuplicateLanguage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	record := NewRecord("e-11", "id")
	record.Fields.Set("title", Text("Judul")).Set("description", Text("Deskripsi"))

	_, err := syncer.SyncVerbatim(context.Background(), KindService, []Record{record, record})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("got %v, want ErrInvalidRecord", err)
	}
}

func TestConcurrentSyncsLeaveConsistentRows(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	titles := []string{"Versi Satu", "Versi Dua"}
	var wg sync.WaitGroup
	for _, title := range titles {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			record := NewRecord("e-race", "id")
			record.Fields.Set("title", Text(title)).Set("description", Text("Deskripsi "+title))
			if _, err := syncer.Sync(context.Background(), KindProject, record, SyncOptions{}); err != nil {
				t.Errorf("concurrent sync %q: %v", title, err)
			}
		}(title)
	}
	wg.Wait()

	rows, _ := store.ListEntityTranslations(context.Background(), "e-race", "")
	if len(rows) != 2 {
		t.Fatalf("got %d stored rows, want 2", len(rows))
	}

	idFields := decodeStoredFields(t, store.row(t, "e-race", "id"))
	enFields := decodeStoredFields(t, store.row(t, "e-race", "en"))
	idTitle, _ := idFields.Get("title")
	enTitle, _ := enFields.Get("title")
	if enTitle.Text() != "en:"+idTitle.Text() {
		t.Fatalf("torn state: id title %q, en title %q", idTitle.Text(), enTitle.Text())
	}
}

func TestDeleteRemovesAllLanguageRows(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	syncer := newTestSyncer(t, store, &markerProvider{}, []string{"en", "id"}, true)

	if _, err := syncer.Sync(context.Background(), KindProject, projectRecord("e-del"), SyncOptions{}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	count, err := syncer.Delete(context.Background(), "e-del")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count != 2 {
		t.Fatalf("deleted %d rows, want 2", count)
	}

	// Deleting again is idempotent.
	count, err = syncer.Delete(context.Background(), "e-del")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("second delete removed %d rows, want 0", count)
	}
}
