package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// MockSolver is a mock implementation of solver.Solver
type MockSolver struct {
	mock.Mock
}

func (m *MockSolver) Solve(ctx context.Context, model *solver.Model) (solver.Status, []float64, error) {
	args := m.Called(ctx, model)
	values, _ := args.Get(1).([]float64)
	return args.Get(0).(solver.Status), values, args.Error(2)
}

// MockParser is a mock implementation of service.ConstraintParser
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(ctx context.Context, text string) ([]types.DietConstraint, error) {
	args := m.Called(ctx, text)
	out, _ := args.Get(0).([]types.DietConstraint)
	return out, args.Error(1)
}

// MockRecommendationService is a mock implementation of service.IRecommendationService
type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) Recommend(ctx context.Context, req service.RecommendRequest) (*types.MealSolution, error) {
	args := m.Called(ctx, req)
	sol, _ := args.Get(0).(*types.MealSolution)
	return sol, args.Error(1)
}

func (m *MockRecommendationService) Targets(profile types.Profile) (*service.TargetsResult, error) {
	args := m.Called(profile)
	res, _ := args.Get(0).(*service.TargetsResult)
	return res, args.Error(1)
}

func (m *MockRecommendationService) ParseConstraints(ctx context.Context, text string) ([]service.ParsedConstraint, error) {
	args := m.Called(ctx, text)
	out, _ := args.Get(0).([]service.ParsedConstraint)
	return out, args.Error(1)
}

func (m *MockRecommendationService) Catalog() *catalog.Catalog {
	args := m.Called()
	cat, _ := args.Get(0).(*catalog.Catalog)
	return cat
}

var (
	_ solver.Solver                  = (*MockSolver)(nil)
	_ service.ConstraintParser       = (*MockParser)(nil)
	_ service.IRecommendationService = (*MockRecommendationService)(nil)
)
