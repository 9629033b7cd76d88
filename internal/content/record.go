package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind discriminates the three value shapes a field can hold.
type ValueKind int

const (
	// TextValue is plain translatable text.
	TextValue ValueKind = iota
	// ListValue is an array of strings translated element-wise.
	ListValue
	// RawValue is opaque passthrough JSON (URLs, numbers, nested objects).
	RawValue
)

// Value is one field value. Only text and list values are eligible for
// translation; raw values pass through untouched.
type Value struct {
	kind ValueKind
	text string
	list []string
	raw  json.RawMessage
}

func Text(text string) Value {
	return Value{kind: TextValue, text: text}
}

func List(items ...string) Value {
	copied := make([]string, len(items))
	copy(copied, items)
	return Value{kind: ListValue, list: copied}
}

func Raw(raw json.RawMessage) Value {
	copied := make(json.RawMessage, len(raw))
	copy(copied, raw)
	return Value{kind: RawValue, raw: copied}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Text() string { return v.text }

func (v Value) List() []string {
	copied := make([]string, len(v.list))
	copy(copied, v.list)
	return copied
}

func (v Value) RawJSON() json.RawMessage {
	copied := make(json.RawMessage, len(v.raw))
	copy(copied, v.raw)
	return copied
}

// Equal reports whether two values hold identical content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case TextValue:
		return v.text == other.text
	case ListValue:
		if len(v.list) != len(other.list) {
			return false
		}
		for idx := range v.list {
			if v.list[idx] != other.list[idx] {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.raw, other.raw)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case TextValue:
		return json.Marshal(v.text)
	case ListValue:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	}
}

// Fields is an ordered field-name to value mapping. JSON round-trips preserve
// insertion order.
type Fields struct {
	names  []string
	values map[string]Value
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores a value under name, appending the name on first use and keeping
// its original position on overwrite.
func (f *Fields) Set(name string, value Value) *Fields {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, exists := f.values[name]; !exists {
		f.names = append(f.names, name)
	}
	f.values[name] = value
	return f
}

func (f *Fields) Get(name string) (Value, bool) {
	if f == nil || f.values == nil {
		return Value{}, false
	}
	value, ok := f.values[name]
	return value, ok
}

func (f *Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the field names in insertion order.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	copied := make([]string, len(f.names))
	copy(copied, f.names)
	return copied
}

func (f *Fields) Clone() *Fields {
	clone := NewFields()
	if f == nil {
		return clone
	}
	for _, name := range f.names {
		clone.Set(name, f.values[name])
	}
	return clone
}

func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil || len(f.names) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, name := range f.names {
		if idx > 0 {
			buf.WriteByte(',')
		}
		encodedName, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("encode field name %q: %w", name, err)
		}
		buf.Write(encodedName)
		buf.WriteByte(':')
		encodedValue, err := f.values[name].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	if f == nil {
		return fmt.Errorf("fields receiver is nil")
	}
	f.names = nil
	f.values = make(map[string]Value)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	open, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read fields object: %w", err)
	}
	if delim, ok := open.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields must be a JSON object")
	}

	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read field name: %w", err)
		}
		name, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("field name must be a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read field %q: %w", name, err)
		}
		f.Set(name, decodeValue(raw))
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close fields object: %w", err)
	}
	return nil
}

func decodeValue(raw json.RawMessage) Value {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Raw(nil)
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return Text(text)
		}
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return List(items...)
		}
	}
	return Raw(trimmed)
}

// Record is one (entity_id, language) row of localized content.
type Record struct {
	EntityID string
	Language string
	Fields   *Fields
}

func NewRecord(entityID, language string) Record {
	return Record{
		EntityID: strings.TrimSpace(entityID),
		Language: strings.TrimSpace(language),
		Fields:   NewFields(),
	}
}

func (r Record) Clone() Record {
	return Record{
		EntityID: r.EntityID,
		Language: r.Language,
		Fields:   r.Fields.Clone(),
	}
}

// ParseRecord builds a record from a stored jsonb field bag.
func ParseRecord(entityID, language string, rawFields json.RawMessage) (Record, error) {
	record := NewRecord(entityID, language)
	if len(rawFields) == 0 {
		return record, nil
	}
	if err := record.Fields.UnmarshalJSON(rawFields); err != nil {
		return Record{}, fmt.Errorf("parse fields for entity %s language %s: %w", entityID, language, err)
	}
	return record, nil
}
