package mealmodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/pageza/mealplanner/backend/internal/types"
)

var ErrEmptyResult = errors.New("solver reported an optimal meal with no items")

// selectedThreshold separates chosen from unchosen binaries in solver output.
const selectedThreshold = 0.5

// Extract turns an optimal assignment into the selected meal. Items keep
// catalog order.
func (mm *MealModel) Extract(values []float64) (*types.MealSolution, error) {
	if len(values) < mm.NumItems() {
		return nil, fmt.Errorf("assignment has %d values for %d items", len(values), mm.NumItems())
	}

	var items []types.SelectedItem
	for i := 0; i < mm.NumItems(); i++ {
		if values[i] <= selectedThreshold {
			continue
		}
		f := mm.catalog.Item(i)
		items = append(items, types.SelectedItem{
			Name:     f.Name,
			Category: f.Category,
			Kcal:     f.Calories,
			ProteinG: f.Protein,
			FatG:     f.Fat,
			CarbG:    f.Carbs,
			SodiumMg: f.Sodium,
			SugarG:   f.Sugar,
			FiberG:   f.Fiber,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyResult
	}

	return &types.MealSolution{
		Status: types.SolutionOptimal,
		Items:  items,
		Totals: Totals(items),
	}, nil
}

// Totals sums the nutrients of items and rounds each sum to one decimal.
func Totals(items []types.SelectedItem) types.NutrientTotals {
	var t types.NutrientTotals
	for _, it := range items {
		t.Kcal += it.Kcal
		t.ProteinG += it.ProteinG
		t.FatG += it.FatG
		t.CarbG += it.CarbG
		t.SodiumMg += it.SodiumMg
		t.SugarG += it.SugarG
		t.FiberG += it.FiberG
	}
	t.Kcal = round1(t.Kcal)
	t.ProteinG = round1(t.ProteinG)
	t.FatG = round1(t.FatG)
	t.CarbG = round1(t.CarbG)
	t.SodiumMg = round1(t.SodiumMg)
	t.SugarG = round1(t.SugarG)
	t.FiberG = round1(t.FiberG)
	return t
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
