package content

import (
	"context"
	"fmt"

	"github.com/habibiahmada/portfolio-api/internal/translation"
)

// TranslateFields derives the target-language values for a projected bag.
// List values are translated element-wise, preserving order and length. The
// returned bag contains exactly the names of the input bag; passthrough
// values never reach this function.
func TranslateFields(ctx context.Context, provider translation.Provider, fields *Fields, sourceLang, targetLang string) (*Fields, error) {
	if provider == nil {
		return nil, fmt.Errorf("translation provider is required")
	}
	if sourceLang == targetLang {
		return nil, fmt.Errorf("source and target language are both %q", sourceLang)
	}

	translated := NewFields()
	for _, name := range fields.Names() {
		value, _ := fields.Get(name)
		switch value.Kind() {
		case TextValue:
			text, err := translateText(ctx, provider, value.Text(), sourceLang, targetLang)
			if err != nil {
				return nil, fmt.Errorf("translate field %q: %w", name, err)
			}
			translated.Set(name, Text(text))
		case ListValue:
			items := value.List()
			translatedItems := make([]string, len(items))
			for idx, item := range items {
				text, err := translateText(ctx, provider, item, sourceLang, targetLang)
				if err != nil {
					return nil, fmt.Errorf("translate field %q element %d: %w", name, idx, err)
				}
				translatedItems[idx] = text
			}
			translated.Set(name, List(translatedItems...))
		default:
			return nil, fmt.Errorf("field %q is not translatable", name)
		}
	}
	return translated, nil
}

func translateText(ctx context.Context, provider translation.Provider, text, sourceLang, targetLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	resp, err := provider.Translate(ctx, translation.TranslateRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Text == "" {
		return "", fmt.Errorf("%w: provider %s returned empty output", translation.ErrUnavailable, provider.Name())
	}
	return resp.Text, nil
}
