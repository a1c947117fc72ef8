package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pageza/mealplanner/backend/internal/types"
)

var ErrInvalidProfile = errors.New("invalid profile")

// MealShare is the fraction of daily calories assigned to one meal.
const MealShare = 0.40

const (
	carbShare    = 0.60
	proteinShare = 0.15
	fatShare     = 0.25
	sugarShare   = 0.10

	kcalPerGramCarb    = 4.0
	kcalPerGramProtein = 4.0
	kcalPerGramFat     = 9.0
	kcalPerGramSugar   = 4.0

	minFiberGrams = 8.0
	// 40% of a 2000 mg daily allowance.
	mealSodiumMg = 800.0
)

var activityFactors = map[int]float64{
	1: 1.20,
	2: 1.375,
	3: 1.55,
	4: 1.725,
	5: 1.90,
}

var goalMultipliers = map[types.Goal]float64{
	types.GoalMaintain: 1.00,
	types.GoalLoss:     0.85,
	types.GoalGain:     1.15,
}

// ValidateProfile checks every profile field against its domain.
func ValidateProfile(p types.Profile) error {
	var problems []string
	if !(p.WeightKg > 0) || math.IsInf(p.WeightKg, 0) {
		problems = append(problems, fmt.Sprintf("weight must be > 0, got %v", p.WeightKg))
	}
	if !(p.HeightCm > 0) || math.IsInf(p.HeightCm, 0) {
		problems = append(problems, fmt.Sprintf("height must be > 0, got %v", p.HeightCm))
	}
	if p.Age <= 0 {
		problems = append(problems, fmt.Sprintf("age must be > 0, got %d", p.Age))
	}
	if p.Gender != types.GenderMale && p.Gender != types.GenderFemale {
		problems = append(problems, fmt.Sprintf("unknown gender %q", p.Gender))
	}
	if _, ok := activityFactors[p.Activity]; !ok {
		problems = append(problems, fmt.Sprintf("activity must be 1-5, got %d", p.Activity))
	}
	if _, ok := goalMultipliers[p.Goal]; !ok {
		problems = append(problems, fmt.Sprintf("unknown goal %q", p.Goal))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(problems, "; "))
	}
	return nil
}

// BMR returns the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p types.Profile) float64 {
	s := 5.0
	if p.Gender == types.GenderFemale {
		s = -161.0
	}
	return 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age) + s
}

// DailyCalories returns the goal-adjusted daily energy requirement.
func DailyCalories(p types.Profile) (float64, error) {
	if err := ValidateProfile(p); err != nil {
		return 0, err
	}
	bmr := BMR(p)
	if bmr <= 0 {
		return 0, fmt.Errorf("%w: basal metabolic rate %.1f is not positive", ErrInvalidProfile, bmr)
	}
	return bmr * activityFactors[p.Activity] * goalMultipliers[p.Goal], nil
}

// CalculateMealTargets derives the nutrient targets for a single meal.
func CalculateMealTargets(p types.Profile) (types.NutrientTargets, error) {
	daily, err := DailyCalories(p)
	if err != nil {
		return types.NutrientTargets{}, err
	}
	return TargetsForMeal(daily * MealShare), nil
}

// TargetsForMeal splits a meal's calories into macro, fiber, sodium and
// sugar targets.
func TargetsForMeal(mealCalories float64) types.NutrientTargets {
	return types.NutrientTargets{
		Calories: mealCalories,
		Carbs:    mealCalories * carbShare / kcalPerGramCarb,
		Protein:  mealCalories * proteinShare / kcalPerGramProtein,
		Fat:      mealCalories * fatShare / kcalPerGramFat,
		Fiber:    math.Max(minFiberGrams, mealCalories/100),
		Sodium:   mealSodiumMg,
		Sugar:    mealCalories * sugarShare / kcalPerGramSugar,
	}
}
