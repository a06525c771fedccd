package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for settings data access.
type Repository interface {
	Get(ctx context.Context, storeID, name string) (string, error)
	Save(ctx context.Context, storeID, name, value string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, storeID, name string) (string, error) {
	var setting Setting
	err := r.db.WithContext(ctx).
		First(&setting, "store_id = ? AND name = ?", storeID, name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return setting.Value, nil
}

func (r *repository) Save(ctx context.Context, storeID, name, value string) error {
	setting := Setting{
		StoreID:   storeID,
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}
