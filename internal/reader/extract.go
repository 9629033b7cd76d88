package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	// ExcerptMaxChars caps the generated excerpt length.
	ExcerptMaxChars = 280

	defaultUserAgent = "PortfolioAPI-ArticleImport/1.0 (+https://github.com/habibiahmada/portfolio-api)"
)

// FetchOptions controls HTTP behavior for article text extraction.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// ArticleDraft is the extracted text of an imported page, shaped for an
// article payload.
type ArticleDraft struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// FetchArticle retrieves a page and extracts a readable article draft.
func FetchArticle(ctx context.Context, pageURL string) (*ArticleDraft, error) {
	return FetchArticleWithOptions(ctx, pageURL, FetchOptions{})
}

// FetchArticleWithOptions retrieves a page and extracts a readable article draft.
func FetchArticleWithOptions(ctx context.Context, pageURL string, opts FetchOptions) (*ArticleDraft, error) {
	text, err := FetchTextWithOptions(ctx, pageURL, "", opts)
	if err != nil {
		return nil, err
	}
	return draftFromText(pageURL, text), nil
}

func draftFromText(pageURL, text string) *ArticleDraft {
	paragraphs := strings.Split(text, "\n\n")

	title := ""
	if len(paragraphs) > 0 {
		title, _ = TruncateText(paragraphs[0], 160)
	}

	body := text
	if len(paragraphs) > 1 {
		body = strings.Join(paragraphs[1:], "\n\n")
	}

	excerpt, _ := TruncateText(body, ExcerptMaxChars)

	return &ArticleDraft{
		Title:   title,
		Excerpt: excerpt,
		Content: body,
		URL:     strings.TrimSpace(pageURL),
	}
}

// FetchText retrieves and extracts readable text content for a page URL.
func FetchText(ctx context.Context, pageURL string, fallbackTitle string) (string, error) {
	return FetchTextWithOptions(ctx, pageURL, fallbackTitle, FetchOptions{})
}

// FetchTextWithOptions retrieves and extracts readable text content for a page URL.
func FetchTextWithOptions(ctx context.Context, pageURL string, fallbackTitle string, opts FetchOptions) (string, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return "", fmt.Errorf("page URL is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8,id;q=0.7")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		return CleanText(string(body)), nil
	}

	parsedURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		text = strings.TrimSpace(fallbackTitle)
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}

	return text, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}
