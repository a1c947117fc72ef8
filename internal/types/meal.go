package types

// Gender selects the Mifflin-St Jeor sex constant.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Goal scales daily calories for maintenance, loss or gain.
type Goal string

const (
	GoalMaintain Goal = "maintain"
	GoalLoss     Goal = "loss"
	GoalGain     Goal = "gain"
)

// Profile is the biometric input of a recommendation request.
type Profile struct {
	WeightKg float64 `json:"weight" form:"weight"`
	HeightCm float64 `json:"height" form:"height"`
	Age      int     `json:"age" form:"age"`
	Gender   Gender  `json:"gender" form:"gender"`
	Activity int     `json:"activity" form:"activity"`
	Goal     Goal    `json:"goal" form:"goal"`
}

// NutrientTargets are the per-meal targets derived from a profile.
type NutrientTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
	Sodium   float64 `json:"sodium"`
	Sugar    float64 `json:"sugar"`
}

// Value returns the target for the given nutrient.
func (t NutrientTargets) Value(n Nutrient) float64 {
	switch n {
	case NutrientCalories:
		return t.Calories
	case NutrientProtein:
		return t.Protein
	case NutrientFat:
		return t.Fat
	case NutrientCarbs:
		return t.Carbs
	case NutrientFiber:
		return t.Fiber
	case NutrientSodium:
		return t.Sodium
	case NutrientSugar:
		return t.Sugar
	}
	return 0
}

// SelectedItem is one food of a recommended meal with its catalog nutrients.
type SelectedItem struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Kcal     float64  `json:"kcal"`
	ProteinG float64  `json:"protein_g"`
	FatG     float64  `json:"fat_g"`
	CarbG    float64  `json:"carb_g"`
	SodiumMg float64  `json:"sodium_mg"`
	SugarG   float64  `json:"sugar_g"`
	FiberG   float64  `json:"fiber_g"`
}

// NutrientTotals are the summed nutrients of a meal, rounded to one decimal.
type NutrientTotals struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbG    float64 `json:"carb_g"`
	SodiumMg float64 `json:"sodium_mg"`
	SugarG   float64 `json:"sugar_g"`
	FiberG   float64 `json:"fiber_g"`
}

// SolutionStatus is the feasibility status carried by a MealSolution.
type SolutionStatus string

const (
	SolutionOptimal    SolutionStatus = "optimal"
	SolutionInfeasible SolutionStatus = "infeasible"
)

// MealSolution is the selected meal returned by the engine.
type MealSolution struct {
	Status SolutionStatus `json:"status"`
	Items  []SelectedItem `json:"items"`
	Totals NutrientTotals `json:"totals"`
}

// ResponseStatus is the outcome reported to API clients.
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseFail    ResponseStatus = "fail"
	ResponseError   ResponseStatus = "error"
)

// RecommendationResponse is the body of a recommendation reply. "fail"
// means no meal satisfies the hard constraints; "error" carries a message.
type RecommendationResponse struct {
	Status  ResponseStatus  `json:"status"`
	Items   []SelectedItem  `json:"items,omitempty"`
	Totals  *NutrientTotals `json:"totals,omitempty"`
	Message string          `json:"message,omitempty"`
}
