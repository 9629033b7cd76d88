package content

import (
	"context"
	"errors"
	"testing"

	"github.com/habibiahmada/portfolio-api/internal/translation"
)

func TestTranslateFieldsRejectsSameLanguage(t *testing.T) {
	t.Parallel()

	fields := NewFields().Set("title", Text("Judul"))
	if _, err := TranslateFields(context.Background(), &markerProvider{}, fields, "id", "id"); err == nil {
		t.Fatal("expected error for identical source and target language")
	}
}

func TestTranslateFieldsSkipsEmptyText(t *testing.T) {
	t.Parallel()

	provider := &markerProvider{}
	fields := NewFields().
		Set("title", Text("")).
		Set("description", Text("Deskripsi"))

	translated, err := TranslateFields(context.Background(), provider, fields, "id", "en")
	if err != nil {
		t.Fatalf("translate fields: %v", err)
	}

	title, _ := translated.Get("title")
	if title.Text() != "" {
		t.Fatalf("empty text must pass through, got %q", title.Text())
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestTranslateFieldsWrapsProviderFailure(t *testing.T) {
	t.Parallel()

	fields := NewFields().Set("title", Text("Judul"))
	_, err := TranslateFields(context.Background(), &markerProvider{fail: true}, fields, "id", "en")
	if !errors.Is(err, translation.ErrUnavailable) {
		t.Fatalf("got %v, want translation.ErrUnavailable", err)
	}
}
