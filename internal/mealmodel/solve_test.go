package mealmodel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/constraints"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/testhelpers"
	"github.com/pageza/mealplanner/backend/internal/types"
)

func solve(t *testing.T, cat *catalog.Catalog, d *constraints.Directives) (*types.MealSolution, error) {
	t.Helper()
	mm, err := Build(cat, testhelpers.ReferenceTargets(), d)
	require.NoError(t, err)

	values, err := solver.NewAdapter(solver.NewBranchAndBound(0), 0, nil).Solve(context.Background(), mm.Model)
	if err != nil {
		return nil, err
	}
	require.True(t, mm.Model.Satisfied(values, 1e-3))
	return mm.Extract(values)
}

// assertMealStructure checks the properties every optimal meal has.
func assertMealStructure(t *testing.T, sol *types.MealSolution, mainDishes int) {
	t.Helper()
	targets := testhelpers.ReferenceTargets()

	assert.GreaterOrEqual(t, len(sol.Items), MinItems)
	assert.LessOrEqual(t, len(sol.Items), MaxItems)

	counts := make(map[types.Category]int)
	mains := 0
	for _, it := range sol.Items {
		counts[it.Category]++
		if it.Category.IsMainDish() {
			mains++
		}
	}
	assert.Equal(t, mainDishes, mains)
	assert.LessOrEqual(t, counts[types.CategoryFruitVeg], 1)
	assert.LessOrEqual(t, counts[types.CategorySalad], 1)
	assert.LessOrEqual(t, counts[types.CategoryBreadDessert]+counts[types.CategoryFriedSnack], 1)

	assert.GreaterOrEqual(t, sol.Totals.Kcal, 0.8*targets.Calories-0.05)
	assert.LessOrEqual(t, sol.Totals.Kcal, 1.2*targets.Calories+0.05)
	assert.LessOrEqual(t, sol.Totals.SodiumMg, 1.2*targets.Sodium+0.05)
	assert.LessOrEqual(t, sol.Totals.SugarG, 1.2*targets.Sugar+0.05)
}

func names(sol *types.MealSolution) []string {
	out := make([]string, len(sol.Items))
	for i, it := range sol.Items {
		out[i] = it.Name
	}
	return out
}

func TestSolveWithoutConstraints(t *testing.T) {
	sol, err := solve(t, testhelpers.SampleCatalog(t), nil)
	require.NoError(t, err)
	assertMealStructure(t, sol, 1)
	assert.Equal(t, Totals(sol.Items), sol.Totals)
}

func TestSolveIsDeterministic(t *testing.T) {
	cat := testhelpers.SampleCatalog(t)
	a, err := solve(t, cat, nil)
	require.NoError(t, err)
	b, err := solve(t, cat, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSolveHonoursHardItems(t *testing.T) {
	cat := testhelpers.SampleCatalog(t)
	d := translate(t, cat,
		hardInclude("kimchi"),
		types.DietConstraint{Intent: types.IntentExcludeItem, Strength: types.StrengthHard, FoodItem: ptr("bulgogi")},
	)

	sol, err := solve(t, cat, d)
	require.NoError(t, err)
	assertMealStructure(t, sol, 1)
	assert.Contains(t, names(sol), "kimchi")
	assert.NotContains(t, names(sol), "bulgogi")
}

func TestSolveHardMainFoodGroup(t *testing.T) {
	cat := testhelpers.SampleCatalog(t)
	sol, err := solve(t, cat, translate(t, cat, hardGroup(types.CategoryNoodle)))
	require.NoError(t, err)
	assertMealStructure(t, sol, 1)
	assert.Contains(t, names(sol), "cold noodles")
}

func TestSolveHardNutrientBounds(t *testing.T) {
	cat := testhelpers.SampleCatalog(t)
	sodium, kcal := 700.0, 900.0
	d := translate(t, cat,
		types.DietConstraint{Intent: types.IntentNutrient, Strength: types.StrengthHard, Nutrient: ptr("sodium"), BoundType: ptr("lower"), BoundValue: &sodium},
		types.DietConstraint{Intent: types.IntentNutrient, Strength: types.StrengthHard, Nutrient: ptr("calorie"), BoundType: ptr("equal"), BoundValue: &kcal},
	)

	sol, err := solve(t, cat, d)
	require.NoError(t, err)
	assertMealStructure(t, sol, 1)
	assert.LessOrEqual(t, sol.Totals.SodiumMg, 700.0)
	assert.InDelta(t, 900, sol.Totals.Kcal, constraints.EqualTolerance(900)+0.05)
}

func TestSolveInfeasible(t *testing.T) {
	// Without main dishes the remaining items cannot reach the calorie
	// band while staying under the sugar and sodium caps.
	cat := testhelpers.SampleCatalog(t)
	_, err := solve(t, cat, translate(t, cat, hardGroup(types.CategoryMeat)))
	assert.ErrorIs(t, err, solver.ErrInfeasible)
}

// nearTieCatalog forces rice bowl, grilled fish and miso soup plus exactly
// one fruit. The fruits differ only in protein and pear lands closer to
// the target.
func nearTieCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]models.FoodItem{
		{Name: "rice bowl", Category: types.CategoryRice, Calories: 600, Protein: 20, Fat: 15, Carbs: 95, Sodium: 300, Sugar: 3},
		{Name: "grilled fish", Category: types.CategorySeafood, Calories: 200, Protein: 15, Fat: 8, Carbs: 2, Sodium: 150},
		{Name: "miso soup", Category: types.CategorySoup, Calories: 60, Protein: 3, Fat: 2, Carbs: 6, Sodium: 200, Sugar: 1},
		{Name: "pear", Category: types.CategoryFruitVeg, Calories: 100, Protein: 0.5, Fat: 0.2, Carbs: 26, Sodium: 2, Sugar: 17},
		{Name: "plum", Category: types.CategoryFruitVeg, Calories: 100, Protein: 0.6, Fat: 0.2, Carbs: 26, Sodium: 2, Sugar: 17},
	})
	require.NoError(t, err)
	return cat
}

func TestSolveSoftItemsBreakNearTies(t *testing.T) {
	cat := nearTieCatalog(t)
	soft := func(intent types.Intent, name string) types.DietConstraint {
		return types.DietConstraint{Intent: intent, Strength: types.StrengthSoft, FoodItem: ptr(name)}
	}

	tests := []struct {
		name    string
		d       *constraints.Directives
		want    string
		dropped string
	}{
		{name: "no preference", d: nil, want: "pear", dropped: "plum"},
		{name: "soft include", d: translate(t, cat, soft(types.IntentIncludeItem, "plum")), want: "plum", dropped: "pear"},
		{name: "soft exclude", d: translate(t, cat, soft(types.IntentExcludeItem, "pear")), want: "plum", dropped: "pear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := solve(t, cat, tt.d)
			require.NoError(t, err)
			assertMealStructure(t, sol, 1)
			assert.ElementsMatch(t, []string{"rice bowl", "grilled fish", "miso soup", tt.want}, names(sol))
			assert.NotContains(t, names(sol), tt.dropped)
		})
	}
}

func TestSolveLargeGeneratedCatalog(t *testing.T) {
	for _, n := range []int{150, 200} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			cat, err := catalog.New(testhelpers.GeneratedFoodItems(n, 42))
			require.NoError(t, err)
			for _, c := range types.Categories() {
				require.NotEmpty(t, cat.ByCategory(c), c)
			}

			mm, err := Build(cat, testhelpers.ReferenceTargets(), nil)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), solver.DefaultTimeout)
			defer cancel()
			start := time.Now()
			status, values, err := solver.NewBranchAndBound(0).Solve(ctx, mm.Model)
			require.NoError(t, err)
			assert.Less(t, time.Since(start), solver.DefaultTimeout)
			assert.Contains(t, []solver.Status{solver.StatusOptimal, solver.StatusFeasible}, status)
			require.True(t, mm.Model.Satisfied(values, 1e-3))

			sol, err := mm.Extract(values)
			require.NoError(t, err)
			assertMealStructure(t, sol, 1)

			// The default adapter reaches the same kind of meal end to end.
			sol, err = solve(t, cat, nil)
			require.NoError(t, err)
			assertMealStructure(t, sol, 1)
		})
	}
}
