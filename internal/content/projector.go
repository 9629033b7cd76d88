package content

// Project extracts the named translatable fields from a record into a fresh
// bag. Names absent from the record, and names bound to passthrough values,
// are skipped rather than rejected since entity schemas evolve. The input
// record is never mutated.
func Project(record Record, fieldNames []string) *Fields {
	projected := NewFields()
	if record.Fields == nil {
		return projected
	}
	for _, name := range fieldNames {
		value, ok := record.Fields.Get(name)
		if !ok {
			continue
		}
		if value.Kind() == RawValue {
			continue
		}
		projected.Set(name, value)
	}
	return projected
}

// Merge builds a full field bag for a derived record: every field of base in
// its original order, with the names present in translated replaced by their
// translated values.
func Merge(base *Fields, translated *Fields) *Fields {
	merged := NewFields()
	if base == nil {
		return merged
	}
	for _, name := range base.Names() {
		if value, ok := translated.Get(name); ok {
			merged.Set(name, value)
			continue
		}
		value, _ := base.Get(name)
		merged.Set(name, value)
	}
	return merged
}
