package testhelpers

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// SampleFoodItems returns a small catalog with three main dishes, one item
// in each capped group and a mix of spice levels. "red bean bread" is
// unrated.
func SampleFoodItems() []models.FoodItem {
	return []models.FoodItem{
		{Name: "bibimbap", Category: types.CategoryRice, Calories: 550, Protein: 18, Fat: 14, Carbs: 85, Sodium: 300, Sugar: 6, Fiber: 5, SpiceLevel: types.SpiceMedium},
		{Name: "cold noodles", Category: types.CategoryNoodle, Calories: 480, Protein: 16, Fat: 8, Carbs: 84, Sodium: 350, Sugar: 8, Fiber: 2, SpiceLevel: types.SpiceLow},
		{Name: "kimchi fried rice", Category: types.CategoryRice, Calories: 600, Protein: 14, Fat: 20, Carbs: 88, Sodium: 400, Sugar: 5, Fiber: 3, SpiceLevel: types.SpiceHigh},
		{Name: "seaweed soup", Category: types.CategorySoup, Calories: 60, Protein: 5, Fat: 3, Carbs: 4, Sodium: 180, Sugar: 1, Fiber: 1, SpiceLevel: types.SpiceLow},
		{Name: "bulgogi", Category: types.CategoryMeat, Calories: 280, Protein: 22, Fat: 14, Carbs: 12, Sodium: 150, Sugar: 8, Fiber: 1, SpiceLevel: types.SpiceLow},
		{Name: "spicy pork", Category: types.CategoryMeat, Calories: 320, Protein: 20, Fat: 20, Carbs: 14, Sodium: 200, Sugar: 9, Fiber: 1, SpiceLevel: types.SpiceHigh},
		{Name: "green salad", Category: types.CategorySalad, Calories: 80, Protein: 2, Fat: 5, Carbs: 8, Sodium: 60, Sugar: 3, Fiber: 4, SpiceLevel: types.SpiceLow},
		{Name: "apple", Category: types.CategoryFruitVeg, Calories: 95, Protein: 0.5, Fat: 0.3, Carbs: 25, Sodium: 2, Sugar: 19, Fiber: 4, SpiceLevel: types.SpiceLow},
		{Name: "kimchi", Category: types.CategorySideFerment, Calories: 30, Protein: 2, Fat: 0.5, Carbs: 5, Sodium: 250, Sugar: 2, Fiber: 2, SpiceLevel: types.SpiceHigh},
		{Name: "red bean bread", Category: types.CategoryBreadDessert, Calories: 250, Protein: 6, Fat: 5, Carbs: 45, Sodium: 120, Sugar: 18, Fiber: 3},
	}
}

// SampleCatalog builds a catalog from SampleFoodItems.
func SampleCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(SampleFoodItems())
	require.NoError(t, err)
	return c
}

type calorieRange struct{ lo, hi float64 }

var generatedCalories = map[types.Category]calorieRange{
	types.CategorySoup:         {40, 200},
	types.CategoryRice:         {400, 750},
	types.CategoryMeat:         {200, 400},
	types.CategoryNoodle:       {400, 700},
	types.CategorySalad:        {50, 150},
	types.CategoryFruitVeg:     {40, 120},
	types.CategorySeafood:      {150, 350},
	types.CategorySideFerment:  {20, 80},
	types.CategoryBreadDessert: {150, 350},
	types.CategoryFriedSnack:   {200, 400},
	types.CategorySushiRoll:    {300, 600},
	types.CategoryEtc:          {50, 250},
}

// GeneratedFoodItems returns n items that cycle through every category,
// with nutrients drawn from seed. The same arguments always give the same
// catalog.
func GeneratedFoodItems(n int, seed int64) []models.FoodItem {
	rng := rand.New(rand.NewSource(seed))
	between := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
	spices := []types.SpiceLevel{types.SpiceLow, types.SpiceMedium, types.SpiceHigh}
	cats := types.Categories()

	items := make([]models.FoodItem, n)
	for i := range items {
		cat := cats[i%len(cats)]
		r := generatedCalories[cat]
		kcal := between(r.lo, r.hi)
		carbShare := between(0.3, 0.7)
		proteinShare := between(0.1, 0.3)
		fatShare := math.Max(0.05, 1-carbShare-proteinShare)

		sugar := between(0, 6)
		if cat == types.CategoryBreadDessert || cat == types.CategoryFruitVeg {
			sugar = between(8, 18)
		}
		items[i] = models.FoodItem{
			Name:       fmt.Sprintf("%s %03d", cat, i),
			Category:   cat,
			Calories:   math.Round(kcal),
			Protein:    math.Round(kcal*proteinShare/4*10) / 10,
			Carbs:      math.Round(kcal*carbShare/4*10) / 10,
			Fat:        math.Round(kcal*fatShare/9*10) / 10,
			Sodium:     math.Round(between(20, 300)),
			Sugar:      math.Round(sugar*10) / 10,
			Fiber:      math.Round(between(0, 6)*10) / 10,
			SpiceLevel: spices[rng.Intn(len(spices))],
		}
	}
	return items
}

// ReferenceProfile is a 70 kg, 175 cm, 30 year old moderately active man
// maintaining weight.
func ReferenceProfile() types.Profile {
	return types.Profile{
		WeightKg: 70,
		HeightCm: 175,
		Age:      30,
		Gender:   types.GenderMale,
		Activity: 3,
		Goal:     types.GoalMaintain,
	}
}

// ReferenceTargets are the meal targets of ReferenceProfile.
func ReferenceTargets() types.NutrientTargets {
	meal := 1648.75 * 1.55 * 0.4
	return types.NutrientTargets{
		Calories: meal,
		Carbs:    meal * 0.60 / 4,
		Protein:  meal * 0.15 / 4,
		Fat:      meal * 0.25 / 9,
		Fiber:    meal / 100,
		Sodium:   800,
		Sugar:    meal * 0.10 / 4,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
