package content

import "errors"

var (
	// ErrUnknownKind reports a content kind outside the closed set.
	ErrUnknownKind = errors.New("unknown content kind")
	// ErrUnsupportedLanguage reports a language outside the configured set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrInvalidRecord reports a record missing its entity ID or fields.
	ErrInvalidRecord = errors.New("invalid content record")
	// ErrConstraintViolation reports a duplicate (entity, language) row.
	ErrConstraintViolation = errors.New("translation row already exists")
	// ErrForeignKeyViolation reports a translation row referencing a missing entity.
	ErrForeignKeyViolation = errors.New("entity does not exist")
	// ErrPersistenceFailed reports a store failure while writing rows.
	ErrPersistenceFailed = errors.New("persisting translation rows failed")
)
