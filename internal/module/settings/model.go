package settings

import (
	"time"

	"github.com/google/uuid"
)

// Setting is a store-scoped configuration blob. Value holds the JSON
// serialization of a typed settings struct; Name identifies the struct.
// StoreID is empty for the default (all stores) scope.
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StoreID   string    `gorm:"uniqueIndex:idx_store_name;size:64"`
	Name      string    `gorm:"uniqueIndex:idx_store_name;not null"`
	Value     string    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (Setting) TableName() string {
	return "settings"
}
