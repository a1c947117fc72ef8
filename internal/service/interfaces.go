package service

import (
	"context"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// ConstraintParser turns free text into structured constraints. Its output
// is untrusted and is validated against the catalog before use.
type ConstraintParser interface {
	Parse(ctx context.Context, text string) ([]types.DietConstraint, error)
}

// IRecommendationService defines the interface for meal recommendation operations
type IRecommendationService interface {
	Recommend(ctx context.Context, req RecommendRequest) (*types.MealSolution, error)
	Targets(profile types.Profile) (*TargetsResult, error)
	ParseConstraints(ctx context.Context, text string) ([]ParsedConstraint, error)
	Catalog() *catalog.Catalog
}
