package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealplanner/backend/internal/models"
)

// Store persists catalog rows in the food_items table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store instance
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load reads every row and builds a catalog ordered by name.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	var items []models.FoodItem
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load food items: %w", err)
	}
	return New(items)
}

// Upsert inserts items, updating nutrients of rows whose name already exists.
func (s *Store) Upsert(ctx context.Context, items []models.FoodItem) error {
	if len(items) == 0 {
		return nil
	}
	// Validate the batch as a whole before touching the table, then write
	// the normalised rows.
	validated, err := New(items)
	if err != nil {
		return err
	}
	rows := validated.Items()
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "calories", "protein", "fat", "carbs", "sodium", "sugar", "fiber", "spice_level", "updated_at",
		}),
	}).CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert food items: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.FoodItem{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
