package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/types"
)

// FoodItem is one row of the food catalog. Nutrients are per serving.
type FoodItem struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"-"`
	Name       string           `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Category   types.Category   `gorm:"size:30;not null;index" json:"category"`
	Calories   float64          `gorm:"not null" json:"kcal"`
	Protein    float64          `gorm:"not null" json:"protein_g"`
	Fat        float64          `gorm:"not null" json:"fat_g"`
	Carbs      float64          `gorm:"not null" json:"carb_g"`
	Sodium     float64          `gorm:"not null" json:"sodium_mg"`
	Sugar      float64          `gorm:"not null" json:"sugar_g"`
	Fiber      float64          `gorm:"not null;default:0" json:"fiber_g"`
	SpiceLevel types.SpiceLevel `gorm:"size:10" json:"spice_level,omitempty"`
	CreatedAt  time.Time        `json:"-"`
	UpdatedAt  time.Time        `json:"-"`
}

func (FoodItem) TableName() string {
	return "food_items"
}

// BeforeCreate assigns an ID when the row has none. sqlite has no
// gen_random_uuid() so the default cannot live in the schema.
func (f *FoodItem) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Amount returns the item's value for the given nutrient.
func (f FoodItem) Amount(n types.Nutrient) float64 {
	switch n {
	case types.NutrientCalories:
		return f.Calories
	case types.NutrientProtein:
		return f.Protein
	case types.NutrientFat:
		return f.Fat
	case types.NutrientCarbs:
		return f.Carbs
	case types.NutrientSodium:
		return f.Sodium
	case types.NutrientSugar:
		return f.Sugar
	case types.NutrientFiber:
		return f.Fiber
	}
	return 0
}

// Spice returns the item's spice tier. Unrated items count as low.
func (f FoodItem) Spice() types.SpiceLevel {
	if f.SpiceLevel == "" {
		return types.SpiceLow
	}
	return f.SpiceLevel
}
