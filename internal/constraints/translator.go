package constraints

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/types"
)

var (
	ErrInvalidConstraint      = errors.New("invalid constraint")
	ErrUnknownFoodItem        = errors.New("unknown food item")
	ErrConflictingConstraints = errors.New("conflicting constraints")
)

// Objective coefficients for soft rules. The solver minimizes, so rewards
// are negative.
const (
	IncludeReward     = -50.0
	ExcludePenalty    = 50.0
	SpiceBonus        = -20.0
	FoodGroupBonus    = -30.0
	equalToleranceAbs = 1.0
	equalToleranceRel = 0.05
)

var deviationWeights = map[types.Nutrient]float64{
	types.NutrientCalories: 1.0,
	types.NutrientProtein:  1.5,
	types.NutrientCarbs:    0.5,
	types.NutrientFat:      0.5,
	types.NutrientSodium:   0.05,
	types.NutrientSugar:    0.5,
	types.NutrientFiber:    1.0,
}

// DeviationWeight is the objective weight per unit of deviation from a
// soft nutrient bound.
func DeviationWeight(n types.Nutrient) float64 {
	return deviationWeights[n]
}

// EqualTolerance is the half-width of the band a hard "equal" bound allows
// around value.
func EqualTolerance(value float64) float64 {
	return math.Max(equalToleranceAbs, equalToleranceRel*value)
}

// RuledOutByFoodGroup reports whether a hard food-group preference for
// group removes items of category cat from the candidate set. Only main
// dishes are affected: the main slot is either restricted to the group or,
// for a non-main group, given up in favour of it.
func RuledOutByFoodGroup(group, cat types.Category) bool {
	return cat.IsMainDish() && cat != group
}

// Rule is a validated constraint. The concrete types are IncludeItem,
// ExcludeItem, NutrientBound, SpicePreference and FoodGroupPreference.
type Rule interface {
	IsHard() bool
}

type IncludeItem struct {
	Item int
	Name string
	Hard bool
}

type ExcludeItem struct {
	Item int
	Name string
	Hard bool
}

type NutrientBound struct {
	Nutrient types.Nutrient
	Bound    types.BoundType
	Value    float64
	Hard     bool
}

type SpicePreference struct {
	Level types.SpiceLevel
	Hard  bool
}

type FoodGroupPreference struct {
	Group types.Category
	Hard  bool
}

func (r IncludeItem) IsHard() bool         { return r.Hard }
func (r ExcludeItem) IsHard() bool         { return r.Hard }
func (r NutrientBound) IsHard() bool       { return r.Hard }
func (r SpicePreference) IsHard() bool     { return r.Hard }
func (r FoodGroupPreference) IsHard() bool { return r.Hard }

// Directives is the translated form of a request's constraints, ready to be
// merged into a meal model. Item references are catalog indices.
type Directives struct {
	// Include and Exclude are the variables pinned to 1 and 0, sorted.
	// Exclude also carries items outside a hard spice tier.
	Include []int
	Exclude []int

	HardBounds []NutrientBound
	SoftBounds []NutrientBound

	// ItemWeights are soft objective coefficients on item variables.
	ItemWeights map[int]float64

	// SpiceLevel and FoodGroup are set by hard preferences.
	SpiceLevel types.SpiceLevel
	FoodGroup  types.Category
}

// Empty reports whether the directives change nothing.
func (d *Directives) Empty() bool {
	return len(d.Include) == 0 && len(d.Exclude) == 0 &&
		len(d.HardBounds) == 0 && len(d.SoftBounds) == 0 &&
		len(d.ItemWeights) == 0 && d.SpiceLevel == "" && d.FoodGroup == ""
}

// Validate checks one raw constraint against the catalog and returns its
// closed form.
func Validate(cat *catalog.Catalog, raw types.DietConstraint) (Rule, error) {
	hard, err := parseStrength(raw.Strength)
	if err != nil {
		return nil, err
	}

	switch raw.Intent {
	case types.IntentIncludeItem, types.IntentExcludeItem:
		idx, name, err := resolveItem(cat, raw.FoodItem)
		if err != nil {
			return nil, err
		}
		if raw.Intent == types.IntentIncludeItem {
			return IncludeItem{Item: idx, Name: name, Hard: hard}, nil
		}
		return ExcludeItem{Item: idx, Name: name, Hard: hard}, nil

	case types.IntentNutrient:
		if raw.Nutrient == nil || raw.BoundType == nil || raw.BoundValue == nil {
			return nil, fmt.Errorf("%w: NUTRIENT needs nutrient, bound_type and bound_value", ErrInvalidConstraint)
		}
		n, err := types.ParseNutrient(*raw.Nutrient)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
		}
		bound := types.BoundType(*raw.BoundType)
		switch bound {
		case types.BoundLower, types.BoundGreater, types.BoundEqual:
		default:
			return nil, fmt.Errorf("%w: unknown bound_type %q", ErrInvalidConstraint, *raw.BoundType)
		}
		v := *raw.BoundValue
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: bound_value must be a non-negative number, got %v", ErrInvalidConstraint, v)
		}
		return NutrientBound{Nutrient: n, Bound: bound, Value: v, Hard: hard}, nil

	case types.IntentPreference:
		if raw.PreferenceType == nil {
			return nil, fmt.Errorf("%w: PREFERENCE needs preference_type", ErrInvalidConstraint)
		}
		switch types.PreferenceType(*raw.PreferenceType) {
		case types.PreferenceSpiceLevel:
			if raw.SpiceLevel == nil {
				return nil, fmt.Errorf("%w: spice_level preference needs spice_level", ErrInvalidConstraint)
			}
			level, err := types.ParseSpiceLevel(*raw.SpiceLevel)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
			}
			return SpicePreference{Level: level, Hard: hard}, nil
		case types.PreferenceFoodGroup:
			if raw.FoodGroup == nil {
				return nil, fmt.Errorf("%w: food_group preference needs food_group", ErrInvalidConstraint)
			}
			group, err := types.ParseCategory(*raw.FoodGroup)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
			}
			return FoodGroupPreference{Group: group, Hard: hard}, nil
		}
		return nil, fmt.Errorf("%w: unknown preference_type %q", ErrInvalidConstraint, *raw.PreferenceType)
	}
	return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidConstraint, raw.Intent)
}

// Translate validates raw constraints, detects contradictions between hard
// ones and folds everything into Directives. The catalog is only read.
func Translate(cat *catalog.Catalog, raw []types.DietConstraint) (*Directives, error) {
	d := &Directives{ItemWeights: make(map[int]float64)}
	include := make(map[int]string)
	exclude := make(map[int]string)
	var softSpice []types.SpiceLevel
	var softGroups []types.Category

	for i, rc := range raw {
		rule, err := Validate(cat, rc)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}

		switch r := rule.(type) {
		case IncludeItem:
			if r.Hard {
				include[r.Item] = r.Name
			} else {
				d.ItemWeights[r.Item] += IncludeReward
			}
		case ExcludeItem:
			if r.Hard {
				exclude[r.Item] = r.Name
			} else {
				d.ItemWeights[r.Item] += ExcludePenalty
			}
		case NutrientBound:
			if r.Hard {
				d.HardBounds = append(d.HardBounds, r)
			} else {
				d.SoftBounds = append(d.SoftBounds, r)
			}
		case SpicePreference:
			if !r.Hard {
				softSpice = append(softSpice, r.Level)
				continue
			}
			if d.SpiceLevel != "" && d.SpiceLevel != r.Level {
				return nil, fmt.Errorf("%w: hard spice levels %q and %q", ErrConflictingConstraints, d.SpiceLevel, r.Level)
			}
			d.SpiceLevel = r.Level
		case FoodGroupPreference:
			if !r.Hard {
				softGroups = append(softGroups, r.Group)
				continue
			}
			if d.FoodGroup != "" && d.FoodGroup != r.Group {
				return nil, fmt.Errorf("%w: hard food groups %q and %q", ErrConflictingConstraints, d.FoodGroup, r.Group)
			}
			d.FoodGroup = r.Group
		}
	}

	for _, idx := range sortedKeys(include) {
		item, name := cat.Item(idx), include[idx]
		if _, ok := exclude[idx]; ok {
			return nil, fmt.Errorf("%w: %q is both required and forbidden", ErrConflictingConstraints, name)
		}
		if d.SpiceLevel != "" && item.Spice() != d.SpiceLevel {
			return nil, fmt.Errorf("%w: required %q is %s, outside spice level %s", ErrConflictingConstraints, name, item.Spice(), d.SpiceLevel)
		}
		if d.FoodGroup != "" && RuledOutByFoodGroup(d.FoodGroup, item.Category) {
			return nil, fmt.Errorf("%w: required %q (%s) is ruled out by food group %s", ErrConflictingConstraints, name, item.Category, d.FoodGroup)
		}
	}

	if d.SpiceLevel != "" {
		for i := 0; i < cat.Len(); i++ {
			if cat.Item(i).Spice() != d.SpiceLevel {
				exclude[i] = cat.Item(i).Name
			}
		}
	}

	for i := 0; i < cat.Len(); i++ {
		item := cat.Item(i)
		for _, level := range softSpice {
			if item.Spice() == level {
				d.ItemWeights[i] += SpiceBonus
			}
		}
		for _, group := range softGroups {
			if item.Category == group {
				d.ItemWeights[i] += FoodGroupBonus
			}
		}
	}
	for i, w := range d.ItemWeights {
		if w == 0 {
			delete(d.ItemWeights, i)
		}
	}

	d.Include = sortedKeys(include)
	d.Exclude = sortedKeys(exclude)
	return d, nil
}

func parseStrength(s types.Strength) (bool, error) {
	switch s {
	case "", types.StrengthSoft:
		return false, nil
	case types.StrengthHard:
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown strength %q", ErrInvalidConstraint, s)
}

func resolveItem(cat *catalog.Catalog, name *string) (int, string, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return 0, "", fmt.Errorf("%w: food_item is required", ErrInvalidConstraint)
	}
	n := strings.TrimSpace(*name)
	idx, ok := cat.Lookup(n)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownFoodItem, n)
	}
	return idx, n, nil
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
