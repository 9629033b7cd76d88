package db

import (
	"encoding/json"
	"time"
)

// Entity maps portfolio.entities. One row per content entity, regardless of kind.
type Entity struct {
	EntityID  string    `gorm:"column:entity_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind      string    `gorm:"column:kind;type:text;not null"`
	Published bool      `gorm:"column:published;type:boolean;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Entity) TableName() string { return "portfolio.entities" }

// EntityTranslation maps portfolio.entity_translations. The composite primary
// key guarantees at most one row per (entity_id, language).
type EntityTranslation struct {
	EntityID     string          `gorm:"column:entity_id;type:uuid;primaryKey"`
	Language     string          `gorm:"column:language;type:text;primaryKey"`
	Fields       json.RawMessage `gorm:"column:fields;type:jsonb;not null"`
	Derived      bool            `gorm:"column:derived;type:boolean;not null;default:false"`
	FallbackCopy bool            `gorm:"column:fallback_copy;type:boolean;not null;default:false"`
	ProviderName *string         `gorm:"column:provider_name;type:text"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (EntityTranslation) TableName() string { return "portfolio.entity_translations" }

func autoMigrateModels() []any {
	return []any{
		&Entity{},
		&EntityTranslation{},
	}
}
