package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/models"
)

// Migrate creates or updates the catalog schema. The food_items table is
// the only one the service owns, so gorm's auto-migration covers both
// postgres and sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.FoodItem{}); err != nil {
		return fmt.Errorf("failed to migrate food_items: %w", err)
	}
	return nil
}
