package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/habibiahmada/portfolio-api/internal/db"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, nil, zerolog.Nop(), Options{})
	if server.opts.Host != "0.0.0.0" {
		t.Fatalf("host = %q", server.opts.Host)
	}
	if server.opts.Port != 8085 {
		t.Fatalf("port = %d", server.opts.Port)
	}
	if server.opts.DefaultLanguage != "id" {
		t.Fatalf("default language = %q", server.opts.DefaultLanguage)
	}
	if len(server.opts.Languages) != 2 {
		t.Fatalf("languages = %v", server.opts.Languages)
	}
}

func TestRequireAdminToken(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, nil, zerolog.Nop(), Options{AdminToken: "sekrit"})
	handler := server.requireAdminToken()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	cases := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "valid token", token: "sekrit", wantStatus: http.StatusNoContent},
		{name: "missing token", token: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", token: "nope", wantStatus: http.StatusUnauthorized},
	}

	e := echo.New()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tc.token != "" {
				req.Header.Set(adminTokenHeader, tc.token)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestRequireAdminTokenDisabledWithoutConfiguredToken(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, nil, zerolog.Nop(), Options{})
	handler := server.requireAdminToken()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set(adminTokenHeader, "anything")
	rec := httptest.NewRecorder()

	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestPickTranslationRow(t *testing.T) {
	t.Parallel()

	rows := []db.EntityTranslationRow{
		{Language: "en"},
		{Language: "id"},
	}

	row, ok := pickTranslationRow(rows, "en", "id")
	if !ok || row.Language != "en" {
		t.Fatalf("requested language not picked: %+v", row)
	}

	row, ok = pickTranslationRow(rows, "jv", "id")
	if !ok || row.Language != "id" {
		t.Fatalf("default language fallback not picked: %+v", row)
	}

	row, ok = pickTranslationRow(rows, "jv", "su")
	if !ok || row.Language != "en" {
		t.Fatalf("first-row fallback not picked: %+v", row)
	}

	if _, ok := pickTranslationRow(nil, "en", "id"); ok {
		t.Fatal("expected no row for empty input")
	}
}

func TestParseEntityID(t *testing.T) {
	t.Parallel()

	if _, err := parseEntityID("  "); err == nil {
		t.Fatal("expected error for blank id")
	}
	if _, err := parseEntityID("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed id")
	}
	id, err := parseEntityID("C56A4180-65AA-42EC-A945-5FD21DEC0538")
	if err != nil {
		t.Fatalf("parse entity id: %v", err)
	}
	if id != "c56a4180-65aa-42ec-a945-5fd21dec0538" {
		t.Fatalf("id not canonicalized: %q", id)
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 25, 1, 200); err != nil || got != 25 {
		t.Fatalf("default: got %d err %v", got, err)
	}
	if got, err := parsePositiveInt("40", 25, 1, 200); err != nil || got != 40 {
		t.Fatalf("value: got %d err %v", got, err)
	}
	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatal("expected range error")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatal("expected parse error")
	}
}
