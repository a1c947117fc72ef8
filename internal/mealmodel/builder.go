package mealmodel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/constraints"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/types"
)

var (
	ErrEmptyCatalog           = errors.New("food catalog is empty")
	ErrUnsatisfiableStructure = errors.New("meal structure cannot be satisfied")
)

const (
	MinItems = 4
	MaxItems = 8

	calorieBandLow  = 0.8
	calorieBandHigh = 1.2
	sodiumCap       = 1.2
	sugarCap        = 1.2
)

// deviationTargets are the nutrients whose distance from target drives the
// objective, with their weights.
var deviationTargets = []struct {
	nutrient types.Nutrient
	weight   float64
}{
	{types.NutrientCalories, 1.0},
	{types.NutrientProtein, 1.5},
	{types.NutrientCarbs, 0.5},
	{types.NutrientFat, 0.5},
}

// cappedGroups may contribute at most one item each.
var cappedGroups = []struct {
	name       string
	categories []types.Category
}{
	{"fruit_veg", []types.Category{types.CategoryFruitVeg}},
	{"salad", []types.Category{types.CategorySalad}},
	{"dessert_snack", []types.Category{types.CategoryBreadDessert, types.CategoryFriedSnack}},
}

// MealModel is the optimization model of one request. Variable i is the
// selection of catalog item i; auxiliary variables follow the items.
type MealModel struct {
	Model   *solver.Model
	Targets types.NutrientTargets

	catalog *catalog.Catalog
}

// NumItems returns the number of item variables.
func (mm *MealModel) NumItems() int {
	return mm.catalog.Len()
}

type builder struct {
	cat     *catalog.Catalog
	targets types.NutrientTargets
	d       *constraints.Directives
	m       *solver.Model
	pinned  map[int]float64
}

// Build constructs the meal model for the catalog, targets and translated
// directives. Structure that cannot be met whatever the solver does is
// reported as ErrUnsatisfiableStructure without building anything.
func Build(cat *catalog.Catalog, targets types.NutrientTargets, d *constraints.Directives) (*MealModel, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if d == nil {
		d = &constraints.Directives{}
	}

	b := &builder{cat: cat, targets: targets, d: d, m: &solver.Model{}, pinned: make(map[int]float64)}
	if err := b.pin(); err != nil {
		return nil, err
	}
	if err := b.checkStructure(); err != nil {
		return nil, err
	}

	for i := 0; i < cat.Len(); i++ {
		b.m.AddBinary("x[" + cat.Item(i).Name + "]")
	}
	for i, v := range b.pinned {
		b.m.Fix(i, v)
	}

	b.addStructure()
	b.addNutrientRanges()
	b.addDeviationObjective()
	b.addHardBounds()
	b.addSoftBounds()
	b.addItemWeights()

	return &MealModel{Model: b.m, Targets: targets, catalog: cat}, nil
}

func (b *builder) pin() error {
	for _, i := range b.d.Include {
		if i < 0 || i >= b.cat.Len() {
			return fmt.Errorf("included item %d is not in the catalog", i)
		}
		b.pinned[i] = 1
	}
	for _, i := range b.d.Exclude {
		if i < 0 || i >= b.cat.Len() {
			return fmt.Errorf("excluded item %d is not in the catalog", i)
		}
		if b.included(i) {
			return fmt.Errorf("%w: %q is both required and forbidden", ErrUnsatisfiableStructure, b.cat.Item(i).Name)
		}
		b.pinned[i] = 0
	}
	if g := b.d.FoodGroup; g != "" {
		for i := 0; i < b.cat.Len(); i++ {
			if !constraints.RuledOutByFoodGroup(g, b.cat.Item(i).Category) {
				continue
			}
			if v, ok := b.pinned[i]; ok && v == 1 {
				return fmt.Errorf("%w: %q is ruled out by food group %s", ErrUnsatisfiableStructure, b.cat.Item(i).Name, g)
			}
			b.pinned[i] = 0
		}
	}
	return nil
}

func (b *builder) selectable(i int) bool {
	v, ok := b.pinned[i]
	return !ok || v == 1
}

func (b *builder) included(i int) bool {
	v, ok := b.pinned[i]
	return ok && v == 1
}

// mainQuotaWaived reports whether a hard non-main food group replaces the
// main-dish slot.
func (b *builder) mainQuotaWaived() bool {
	return b.d.FoodGroup != "" && !b.d.FoodGroup.IsMainDish()
}

func (b *builder) checkStructure() error {
	var selectable, included, mainCandidates, mainIncluded, groupCandidates int
	for i := 0; i < b.cat.Len(); i++ {
		item := b.cat.Item(i)
		if !b.selectable(i) {
			continue
		}
		selectable++
		if b.included(i) {
			included++
		}
		if item.Category.IsMainDish() {
			mainCandidates++
			if b.included(i) {
				mainIncluded++
			}
		}
		if item.Category == b.d.FoodGroup {
			groupCandidates++
		}
	}

	if selectable < MinItems {
		return fmt.Errorf("%w: only %d selectable items, need at least %d", ErrUnsatisfiableStructure, selectable, MinItems)
	}
	if included > MaxItems {
		return fmt.Errorf("%w: %d required items exceed the limit of %d", ErrUnsatisfiableStructure, included, MaxItems)
	}
	if b.mainQuotaWaived() {
		if groupCandidates == 0 {
			return fmt.Errorf("%w: no %s item available", ErrUnsatisfiableStructure, b.d.FoodGroup)
		}
	} else {
		if mainCandidates == 0 {
			return fmt.Errorf("%w: no main dish available", ErrUnsatisfiableStructure)
		}
		if mainIncluded > 1 {
			return fmt.Errorf("%w: %d main dishes required, a meal has exactly one", ErrUnsatisfiableStructure, mainIncluded)
		}
	}
	for _, g := range cappedGroups {
		n := 0
		for i := 0; i < b.cat.Len(); i++ {
			if b.included(i) && inCategories(b.cat.Item(i).Category, g.categories) {
				n++
			}
		}
		if n > 1 {
			return fmt.Errorf("%w: %d %s items required, at most one allowed", ErrUnsatisfiableStructure, n, g.name)
		}
	}
	return nil
}

func (b *builder) addStructure() {
	all := make([]solver.Term, 0, b.cat.Len())
	for i := 0; i < b.cat.Len(); i++ {
		all = append(all, solver.Term{Var: i, Coef: 1})
	}
	b.m.AddConstraint("min_items", all, solver.GreaterEq, MinItems)
	b.m.AddConstraint("max_items", all, solver.LessEq, MaxItems)

	if b.mainQuotaWaived() {
		b.m.AddConstraint("food_group_"+string(b.d.FoodGroup), b.categoryTerms(b.d.FoodGroup), solver.GreaterEq, 1)
	} else {
		var mains []solver.Term
		for i := 0; i < b.cat.Len(); i++ {
			if b.cat.Item(i).Category.IsMainDish() {
				mains = append(mains, solver.Term{Var: i, Coef: 1})
			}
		}
		b.m.AddConstraint("main_dish", mains, solver.Equal, 1)
	}

	for _, g := range cappedGroups {
		terms := b.categoryTerms(g.categories...)
		if len(terms) > 0 {
			b.m.AddConstraint("cap_"+g.name, terms, solver.LessEq, 1)
		}
	}
}

func (b *builder) addNutrientRanges() {
	kcal := b.nutrientTerms(types.NutrientCalories)
	b.m.AddConstraint("calories_min", kcal, solver.GreaterEq, calorieBandLow*b.targets.Calories)
	b.m.AddConstraint("calories_max", kcal, solver.LessEq, calorieBandHigh*b.targets.Calories)
	b.m.AddConstraint("sodium_max", b.nutrientTerms(types.NutrientSodium), solver.LessEq, sodiumCap*b.targets.Sodium)
	b.m.AddConstraint("sugar_max", b.nutrientTerms(types.NutrientSugar), solver.LessEq, sugarCap*b.targets.Sugar)
}

// addDeviationObjective adds sum - target = surplus - deficit for each
// tracked nutrient and charges both sides in the objective.
func (b *builder) addDeviationObjective() {
	for _, dt := range deviationTargets {
		b.addDeviation("target_"+string(dt.nutrient), dt.nutrient, b.targets.Value(dt.nutrient), dt.weight)
	}
}

func (b *builder) addDeviation(name string, n types.Nutrient, target, weight float64) {
	surplus := b.m.AddContinuous(name+"_surplus", 0, math.Inf(1))
	deficit := b.m.AddContinuous(name+"_deficit", 0, math.Inf(1))
	terms := append(b.nutrientTerms(n),
		solver.Term{Var: surplus, Coef: -1},
		solver.Term{Var: deficit, Coef: 1},
	)
	b.m.AddConstraint(name, terms, solver.Equal, target)
	b.m.AddObjective(solver.Term{Var: surplus, Coef: weight}, solver.Term{Var: deficit, Coef: weight})
}

func (b *builder) addHardBounds() {
	for k, hb := range b.d.HardBounds {
		name := fmt.Sprintf("bound%d_%s_%s", k, hb.Nutrient, hb.Bound)
		terms := b.nutrientTerms(hb.Nutrient)
		switch hb.Bound {
		case types.BoundLower:
			b.m.AddConstraint(name, terms, solver.LessEq, hb.Value)
		case types.BoundGreater:
			b.m.AddConstraint(name, terms, solver.GreaterEq, hb.Value)
		case types.BoundEqual:
			tol := constraints.EqualTolerance(hb.Value)
			b.m.AddConstraint(name+"_min", terms, solver.GreaterEq, hb.Value-tol)
			b.m.AddConstraint(name+"_max", terms, solver.LessEq, hb.Value+tol)
		}
	}
}

func (b *builder) addSoftBounds() {
	for k, sb := range b.d.SoftBounds {
		name := fmt.Sprintf("soft%d_%s_%s", k, sb.Nutrient, sb.Bound)
		w := constraints.DeviationWeight(sb.Nutrient)
		switch sb.Bound {
		case types.BoundLower:
			excess := b.m.AddContinuous(name+"_excess", 0, math.Inf(1))
			terms := append(b.nutrientTerms(sb.Nutrient), solver.Term{Var: excess, Coef: -1})
			b.m.AddConstraint(name, terms, solver.LessEq, sb.Value)
			b.m.AddObjective(solver.Term{Var: excess, Coef: w})
		case types.BoundGreater:
			shortfall := b.m.AddContinuous(name+"_shortfall", 0, math.Inf(1))
			terms := append(b.nutrientTerms(sb.Nutrient), solver.Term{Var: shortfall, Coef: 1})
			b.m.AddConstraint(name, terms, solver.GreaterEq, sb.Value)
			b.m.AddObjective(solver.Term{Var: shortfall, Coef: w})
		case types.BoundEqual:
			b.addDeviation(name, sb.Nutrient, sb.Value, w)
		}
	}
}

func (b *builder) addItemWeights() {
	idx := make([]int, 0, len(b.d.ItemWeights))
	for i := range b.d.ItemWeights {
		if i >= 0 && i < b.cat.Len() {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	for _, i := range idx {
		b.m.AddObjective(solver.Term{Var: i, Coef: b.d.ItemWeights[i]})
	}
}

func (b *builder) nutrientTerms(n types.Nutrient) []solver.Term {
	terms := make([]solver.Term, 0, b.cat.Len())
	for i := 0; i < b.cat.Len(); i++ {
		if v := b.cat.Item(i).Amount(n); v != 0 {
			terms = append(terms, solver.Term{Var: i, Coef: v})
		}
	}
	return terms
}

func (b *builder) categoryTerms(cats ...types.Category) []solver.Term {
	var terms []solver.Term
	for i := 0; i < b.cat.Len(); i++ {
		if inCategories(b.cat.Item(i).Category, cats) {
			terms = append(terms, solver.Term{Var: i, Coef: 1})
		}
	}
	return terms
}

func inCategories(c types.Category, cats []types.Category) bool {
	for _, x := range cats {
		if c == x {
			return true
		}
	}
	return false
}
