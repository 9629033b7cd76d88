package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/language"
)

//go:embed content_mutation.schema.json
var contentMutationSchemaJSON string

const maxMutationBodyBytes = 1 * 1024 * 1024

type mutationTranslation struct {
	Language string          `json:"language,omitempty"`
	Fields   json.RawMessage `json:"fields"`
}

type mutationPayload struct {
	Published    *bool                 `json:"published,omitempty"`
	Provider     string                `json:"provider,omitempty"`
	Translations []mutationTranslation `json:"translations"`
}

var (
	mutationSchemaOnce sync.Once
	mutationSchema     *jsonschema.Schema
	mutationSchemaErr  error
)

func loadMutationSchema() (*jsonschema.Schema, error) {
	mutationSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("content_mutation.schema.json", strings.NewReader(contentMutationSchemaJSON)); err != nil {
			mutationSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("content_mutation.schema.json")
		if err != nil {
			mutationSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		mutationSchema = schema
	})

	if mutationSchemaErr != nil {
		return nil, mutationSchemaErr
	}
	if mutationSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return mutationSchema, nil
}

// parseMutationPayload validates a raw mutation body against the embedded
// schema and decodes it. Field order inside each translation's field bag is
// preserved through the raw JSON.
func parseMutationPayload(body []byte) (*mutationPayload, error) {
	value, err := decodeStrictJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadMutationSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var payload mutationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	for idx := range payload.Translations {
		payload.Translations[idx].Language = language.NormalizeCode(payload.Translations[idx].Language)
	}

	seen := make(map[string]bool, len(payload.Translations))
	for idx, tr := range payload.Translations {
		if tr.Language == "" {
			continue
		}
		if seen[tr.Language] {
			return nil, fmt.Errorf("translations[%d]: duplicate language %q", idx, tr.Language)
		}
		seen[tr.Language] = true
	}

	return &payload, nil
}

// toRecords converts the payload translations into content records bound to
// one entity.
func (p *mutationPayload) toRecords(entityID string) ([]content.Record, error) {
	records := make([]content.Record, 0, len(p.Translations))
	for idx, tr := range p.Translations {
		record, err := content.ParseRecord(entityID, tr.Language, tr.Fields)
		if err != nil {
			return nil, fmt.Errorf("translations[%d]: %w", idx, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func readRequestBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxMutationBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxMutationBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxMutationBodyBytes)
	}
	return body, nil
}

func decodeJSONBody(c echo.Context, target any) error {
	body, err := readRequestBody(c)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("request body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body contains trailing content")
	}
	return nil
}
