package content

import (
	"sort"
	"strings"
)

// Content kinds. The set is closed; unknown kinds are rejected before any
// translation or persistence happens.
const (
	KindProject     = "project"
	KindArticle     = "article"
	KindService     = "service"
	KindTestimonial = "testimonial"
	KindCertificate = "certificate"
	KindExperience  = "experience"
	KindHero        = "hero"
)

// fieldSpecs lists, per kind, the field names eligible for auto-translation.
// Everything else in a record passes through verbatim.
var fieldSpecs = map[string][]string{
	KindProject:     {"title", "description"},
	KindArticle:     {"title", "excerpt", "content"},
	KindService:     {"title", "description"},
	KindTestimonial: {"role", "message"},
	KindCertificate: {"title", "description"},
	KindExperience:  {"title", "description", "location_type", "highlights"},
	KindHero:        {"title", "subtitle", "description"},
}

// FieldSpec returns the translatable field names for a kind.
func FieldSpec(kind string) ([]string, bool) {
	spec, ok := fieldSpecs[NormalizeKind(kind)]
	if !ok {
		return nil, false
	}
	copied := make([]string, len(spec))
	copy(copied, spec)
	return copied, true
}

func IsKind(kind string) bool {
	_, ok := fieldSpecs[NormalizeKind(kind)]
	return ok
}

func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// Kinds returns the closed kind set in alphabetical order.
func Kinds() []string {
	kinds := make([]string, 0, len(fieldSpecs))
	for kind := range fieldSpecs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
