package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

type recordingStore struct {
	mu      sync.Mutex
	batches [][]db.EntityTranslationRow
}

func (s *recordingStore) ReplaceEntityTranslations(_ context.Context, _ string, rows []db.EntityTranslationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, rows)
	return nil
}

func (s *recordingStore) DeleteEntityTranslations(context.Context, string, []string) (int64, error) {
	return 0, nil
}

func (s *recordingStore) ListEntityTranslations(context.Context, string, string) ([]db.EntityTranslationRow, error) {
	return nil, nil
}

type countingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *countingProvider) Translate(_ context.Context, req translation.TranslateRequest) (*translation.TranslateResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return &translation.TranslateResponse{
		Text:       req.TargetLang + ":" + req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}, nil
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) SupportedLanguages() []string { return []string{"en", "id", "jv"} }

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixedResolver struct {
	provider translation.Provider
}

func (r fixedResolver) Provider(string) (translation.Provider, error) {
	return r.provider, nil
}

func newMutationTestServer(t *testing.T, languages []string) (*Server, *recordingStore, *countingProvider) {
	t.Helper()

	store := &recordingStore{}
	provider := &countingProvider{}
	syncer, err := content.NewSyncer(store, fixedResolver{provider: provider}, zerolog.Nop(), content.SyncerConfig{
		Languages:        languages,
		FallbackVerbatim: true,
	})
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}

	server := NewServer(nil, syncer, nil, zerolog.Nop(), Options{
		DefaultLanguage: languages[0],
		Languages:       languages,
	})
	return server, store, provider
}

func mutationRecord(entityID, language, title string) content.Record {
	record := content.NewRecord(entityID, language)
	record.Fields.Set("title", content.Text(title))
	record.Fields.Set("description", content.Text(title+" description"))
	return record
}

func mutationContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/content/project", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestApplyMutationRejectsIncompleteLanguageSet(t *testing.T) {
	t.Parallel()

	server, store, provider := newMutationTestServer(t, []string{"id", "en", "jv"})
	entityID := "c56a4180-65aa-42ec-a945-5fd21dec0538"

	records := []content.Record{
		mutationRecord(entityID, "id", "Judul"),
		mutationRecord(entityID, "en", "Title"),
	}

	_, err := server.applyMutation(mutationContext(), content.KindProject, records, "")
	if !errors.Is(err, errIncompleteLanguageSet) {
		t.Fatalf("err = %v, want incomplete language set", err)
	}
	if len(store.batches) != 0 {
		t.Fatalf("store written despite rejection: %d batches", len(store.batches))
	}
	if provider.callCount() != 0 {
		t.Fatalf("provider called despite rejection: %d calls", provider.callCount())
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/admin/content/project", nil), rec)
	if respErr := server.syncErrorResponse(c, err); respErr != nil {
		t.Fatalf("error response: %v", respErr)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestApplyMutationFullLanguageSetBypassesProvider(t *testing.T) {
	t.Parallel()

	server, store, provider := newMutationTestServer(t, []string{"id", "en", "jv"})
	entityID := "c56a4180-65aa-42ec-a945-5fd21dec0538"

	records := []content.Record{
		mutationRecord(entityID, "id", "Judul"),
		mutationRecord(entityID, "en", "Title"),
		mutationRecord(entityID, "jv", "Irah-irahan"),
	}

	result, err := server.applyMutation(mutationContext(), content.KindProject, records, "")
	if err != nil {
		t.Fatalf("apply mutation: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("result rows = %d, want 3", len(result.Rows))
	}
	if provider.callCount() != 0 {
		t.Fatalf("provider called on verbatim path: %d calls", provider.callCount())
	}

	if len(store.batches) != 1 {
		t.Fatalf("store batches = %d, want 1", len(store.batches))
	}
	for _, row := range store.batches[0] {
		if row.Derived {
			t.Fatalf("verbatim row marked derived: %+v", row)
		}
	}
}

func TestApplyMutationSingleTranslationDerivesTheRest(t *testing.T) {
	t.Parallel()

	server, store, provider := newMutationTestServer(t, []string{"id", "en", "jv"})
	entityID := "c56a4180-65aa-42ec-a945-5fd21dec0538"

	records := []content.Record{mutationRecord(entityID, "id", "Judul")}

	result, err := server.applyMutation(mutationContext(), content.KindProject, records, "")
	if err != nil {
		t.Fatalf("apply mutation: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("result rows = %d, want 3", len(result.Rows))
	}
	if provider.callCount() == 0 {
		t.Fatal("provider never called on derive path")
	}

	if len(store.batches) != 1 {
		t.Fatalf("store batches = %d, want 1", len(store.batches))
	}
	derived := 0
	for _, row := range store.batches[0] {
		if row.Derived {
			derived++
		}
	}
	if derived != 2 {
		t.Fatalf("derived rows = %d, want 2", derived)
	}
}
