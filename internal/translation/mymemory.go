package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultMyMemoryEndpoint is the public MyMemory translation API.
const DefaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"

// MyMemoryProvider translates text via the MyMemory HTTP API.
type MyMemoryProvider struct {
	endpointURL string
	email       string
	client      *http.Client
}

// NewMyMemoryProviderFromEnv builds a MyMemory provider from env vars.
//   - MYMEMORY_ENDPOINT (default: https://api.mymemory.translated.net/get)
//   - MYMEMORY_EMAIL (optional, raises the daily quota)
func NewMyMemoryProviderFromEnv() *MyMemoryProvider {
	return NewMyMemoryProvider(os.Getenv("MYMEMORY_ENDPOINT"), os.Getenv("MYMEMORY_EMAIL"))
}

// NewMyMemoryProvider builds a MyMemory provider for the given endpoint.
func NewMyMemoryProvider(endpoint, email string) *MyMemoryProvider {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = DefaultMyMemoryEndpoint
	}
	return &MyMemoryProvider{
		endpointURL: trimmedEndpoint,
		email:       strings.TrimSpace(email),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *MyMemoryProvider) Name() string {
	return "mymemory"
}

func (p *MyMemoryProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *MyMemoryProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("mymemory provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	sourceLang := normalizeLangCode(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)
	if sourceLang == "" {
		return nil, fmt.Errorf("source language is required")
	}
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", sourceLang+"|"+targetLang)
	if p.email != "" {
		query.Set("de", p.email)
	}
	requestURL := p.endpointURL + "?" + query.Encode()

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send translation request: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translation response: %w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("translation endpoint status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(respBody)), ErrUnavailable)
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode translation response: %w: %v", ErrUnavailable, err)
	}
	if parsed.ResponseStatus != 0 && parsed.ResponseStatus != http.StatusOK {
		return nil, fmt.Errorf("translation response status %d: %s: %w", parsed.ResponseStatus, strings.TrimSpace(parsed.ResponseDetails), ErrUnavailable)
	}

	translated := strings.TrimSpace(parsed.ResponseData.TranslatedText)
	if translated == "" {
		return nil, fmt.Errorf("translation response was empty: %w", ErrUnavailable)
	}

	latency := time.Since(started).Milliseconds()
	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    latency,
	}, nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  int    `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
}
