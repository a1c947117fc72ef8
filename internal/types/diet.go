package types

import "fmt"

// Category is the closed set of food groups a catalog item can belong to.
type Category string

const (
	CategorySoup         Category = "soup"
	CategoryRice         Category = "rice"
	CategoryMeat         Category = "meat"
	CategoryNoodle       Category = "noodle"
	CategorySalad        Category = "salad"
	CategoryFruitVeg     Category = "fruit_veg"
	CategorySeafood      Category = "seafood"
	CategorySideFerment  Category = "side_ferment"
	CategoryBreadDessert Category = "bread_dessert"
	CategoryFriedSnack   Category = "fried_snack"
	CategorySushiRoll    Category = "sushi_roll"
	CategoryEtc          Category = "etc"
)

var categories = map[Category]struct{}{
	CategorySoup: {}, CategoryRice: {}, CategoryMeat: {}, CategoryNoodle: {},
	CategorySalad: {}, CategoryFruitVeg: {}, CategorySeafood: {}, CategorySideFerment: {},
	CategoryBreadDessert: {}, CategoryFriedSnack: {}, CategorySushiRoll: {}, CategoryEtc: {},
}

// ParseCategory returns the Category named by s or an error for unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("unknown food category %q", s)
	}
	return c, nil
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return []Category{
		CategorySoup, CategoryRice, CategoryMeat, CategoryNoodle,
		CategorySalad, CategoryFruitVeg, CategorySeafood, CategorySideFerment,
		CategoryBreadDessert, CategoryFriedSnack, CategorySushiRoll, CategoryEtc,
	}
}

// IsMainDish reports whether the category fills the single main-dish slot of a meal.
func (c Category) IsMainDish() bool {
	return c == CategoryRice || c == CategoryNoodle || c == CategorySushiRoll
}

// SpiceLevel is the spice tier of a catalog item.
type SpiceLevel string

const (
	SpiceLow    SpiceLevel = "low"
	SpiceMedium SpiceLevel = "medium"
	SpiceHigh   SpiceLevel = "high"
)

// ParseSpiceLevel returns the SpiceLevel named by s or an error for unknown values.
func ParseSpiceLevel(s string) (SpiceLevel, error) {
	switch l := SpiceLevel(s); l {
	case SpiceLow, SpiceMedium, SpiceHigh:
		return l, nil
	}
	return "", fmt.Errorf("unknown spice level %q", s)
}

// Nutrient names a tracked nutrient column. The string values are the
// parser's wire names ("calorie", "carbon", ...).
type Nutrient string

const (
	NutrientCalories Nutrient = "calorie"
	NutrientProtein  Nutrient = "protein"
	NutrientFat      Nutrient = "fat"
	NutrientCarbs    Nutrient = "carbon"
	NutrientSodium   Nutrient = "sodium"
	NutrientSugar    Nutrient = "sugar"
	NutrientFiber    Nutrient = "fiber"
)

// ParseNutrient returns the Nutrient named by s or an error for unknown values.
func ParseNutrient(s string) (Nutrient, error) {
	switch n := Nutrient(s); n {
	case NutrientCalories, NutrientProtein, NutrientFat, NutrientCarbs,
		NutrientSodium, NutrientSugar, NutrientFiber:
		return n, nil
	}
	return "", fmt.Errorf("unknown nutrient %q", s)
}

// Intent is the variant tag of a DietConstraint.
type Intent string

const (
	IntentIncludeItem Intent = "INCLUDE_ITEM"
	IntentExcludeItem Intent = "EXCLUDE_ITEM"
	IntentNutrient    Intent = "NUTRIENT"
	IntentPreference  Intent = "PREFERENCE"
)

// Strength says whether a constraint must hold (hard) or only shapes the objective (soft).
type Strength string

const (
	StrengthSoft Strength = "soft"
	StrengthHard Strength = "hard"
)

// BoundType is the direction of a nutrient bound. "lower" means the total
// must stay below the value, "greater" above it.
type BoundType string

const (
	BoundLower   BoundType = "lower"
	BoundGreater BoundType = "greater"
	BoundEqual   BoundType = "equal"
)

// PreferenceType selects which attribute a preference refers to.
type PreferenceType string

const (
	PreferenceSpiceLevel PreferenceType = "spice_level"
	PreferenceFoodGroup  PreferenceType = "food_group"
)

// DietConstraint is a structured constraint as produced by the constraint
// parser. It is untrusted: the constraint translator validates every field
// before anything reaches the model builder.
type DietConstraint struct {
	Intent         Intent   `json:"intent"`
	Strength       Strength `json:"strength,omitempty"`
	FoodItem       *string  `json:"food_item,omitempty"`
	Nutrient       *string  `json:"nutrient,omitempty"`
	BoundType      *string  `json:"bound_type,omitempty"`
	BoundValue     *float64 `json:"bound_value,omitempty"`
	PreferenceType *string  `json:"preference_type,omitempty"`
	SpiceLevel     *string  `json:"spice_level,omitempty"`
	FoodGroup      *string  `json:"food_group,omitempty"`
}

// IsHard reports whether the constraint was marked hard.
func (c DietConstraint) IsHard() bool {
	return c.Strength == StrengthHard
}
