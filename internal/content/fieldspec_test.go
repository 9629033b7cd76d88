package content

import "testing"

func TestFieldSpecKnownKinds(t *testing.T) {
	t.Parallel()

	spec, ok := FieldSpec("project")
	if !ok {
		t.Fatal("project kind missing")
	}
	if len(spec) != 2 || spec[0] != "title" || spec[1] != "description" {
		t.Fatalf("unexpected project spec: %v", spec)
	}

	spec, ok = FieldSpec(" Article ")
	if !ok {
		t.Fatal("kind lookup must normalize case and whitespace")
	}
	if len(spec) != 3 {
		t.Fatalf("unexpected article spec: %v", spec)
	}

	if _, ok := FieldSpec("banner"); ok {
		t.Fatal("unknown kind must not resolve")
	}
}

func TestFieldSpecCopyIsIsolated(t *testing.T) {
	t.Parallel()

	spec, _ := FieldSpec("hero")
	spec[0] = "mutated"

	fresh, _ := FieldSpec("hero")
	if fresh[0] != "title" {
		t.Fatal("FieldSpec must return a copy")
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	if len(kinds) != 7 {
		t.Fatalf("got %d kinds, want 7", len(kinds))
	}
	for idx := 1; idx < len(kinds); idx++ {
		if kinds[idx-1] >= kinds[idx] {
			t.Fatalf("kinds not sorted: %v", kinds)
		}
	}
	if !IsKind("testimonial") {
		t.Fatal("testimonial must be a known kind")
	}
}
