package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/constraints"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/mealmodel"
	"github.com/pageza/mealplanner/backend/internal/nutrition"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/types"
)

var (
	ErrParserUnavailable = errors.New("constraint parser is not configured")
	ErrParserFailure     = errors.New("constraint parser failed")
)

// Options tune a RecommendationService.
type Options struct {
	// SolverTimeout bounds each solver attempt; zero means solver.DefaultTimeout.
	SolverTimeout time.Duration
	// MaxConcurrentSolves caps simultaneous solver runs; zero means unlimited.
	MaxConcurrentSolves int
}

// RecommendRequest is one recommendation: a profile, structured
// constraints and optional free text for the parser.
type RecommendRequest struct {
	Profile     types.Profile          `json:"profile"`
	Constraints []types.DietConstraint `json:"constraints,omitempty"`
	Text        string                 `json:"text,omitempty"`
}

// TargetsResult reports the targets derived from a profile.
type TargetsResult struct {
	DailyCalories float64               `json:"daily_calories"`
	Meal          types.NutrientTargets `json:"meal"`
}

// ParsedConstraint is one parser record with its validation outcome.
type ParsedConstraint struct {
	Constraint types.DietConstraint `json:"constraint"`
	Valid      bool                 `json:"valid"`
	Error      string               `json:"error,omitempty"`
}

// RecommendationService runs the meal optimization pipeline over a shared
// read-only catalog.
type RecommendationService struct {
	catalog *catalog.Catalog
	solver  *solver.Adapter
	parser  ConstraintParser
	sem     *semaphore.Weighted
	log     *logger.Logger
}

var _ IRecommendationService = (*RecommendationService)(nil)

// NewRecommendationService creates a new RecommendationService instance.
// parser may be nil, in which case requests with free text are rejected.
func NewRecommendationService(cat *catalog.Catalog, s solver.Solver, parser ConstraintParser, opts Options, log *logger.Logger) *RecommendationService {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("recommendation")

	svc := &RecommendationService{
		catalog: cat,
		solver:  solver.NewAdapter(s, opts.SolverTimeout, log.Logger),
		parser:  parser,
		log:     log,
	}
	if opts.MaxConcurrentSolves > 0 {
		svc.sem = semaphore.NewWeighted(int64(opts.MaxConcurrentSolves))
	}
	return svc
}

// Catalog returns the catalog recommendations are drawn from.
func (s *RecommendationService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Targets derives daily calories and meal targets from a profile.
func (s *RecommendationService) Targets(profile types.Profile) (*TargetsResult, error) {
	daily, err := nutrition.DailyCalories(profile)
	if err != nil {
		return nil, err
	}
	return &TargetsResult{
		DailyCalories: daily,
		Meal:          nutrition.TargetsForMeal(daily * nutrition.MealShare),
	}, nil
}

// Recommend selects one meal for the request. Input problems are returned
// before any model is built; solver.ErrInfeasible means no meal satisfies
// the hard constraints.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendRequest) (*types.MealSolution, error) {
	start := time.Now()

	targets, err := nutrition.CalculateMealTargets(req.Profile)
	if err != nil {
		return nil, err
	}

	raw := req.Constraints
	if req.Text != "" {
		parsed, err := s.parse(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		raw = append(append([]types.DietConstraint(nil), raw...), parsed...)
	}

	directives, err := constraints.Translate(s.catalog, raw)
	if err != nil {
		return nil, err
	}

	mm, err := mealmodel.Build(s.catalog, targets, directives)
	if err != nil {
		return nil, err
	}

	values, err := s.solve(ctx, mm.Model)
	if err != nil {
		s.log.Info("recommendation without meal",
			"error", err,
			"constraints", len(raw),
			"duration", time.Since(start),
		)
		return nil, err
	}

	sol, err := mm.Extract(values)
	if err != nil {
		return nil, err
	}

	s.log.Info("recommendation solved",
		"items", len(sol.Items),
		"kcal", sol.Totals.Kcal,
		"target_kcal", targets.Calories,
		"constraints", len(raw),
		"duration", time.Since(start),
	)
	return sol, nil
}

// ParseConstraints runs the parser on text and validates every record
// against the catalog without failing on the invalid ones.
func (s *RecommendationService) ParseConstraints(ctx context.Context, text string) ([]ParsedConstraint, error) {
	raw, err := s.parse(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]ParsedConstraint, len(raw))
	for i, c := range raw {
		out[i] = ParsedConstraint{Constraint: c, Valid: true}
		if _, err := constraints.Validate(s.catalog, c); err != nil {
			out[i].Valid = false
			out[i].Error = err.Error()
		}
	}
	return out, nil
}

func (s *RecommendationService) parse(ctx context.Context, text string) ([]types.DietConstraint, error) {
	if s.parser == nil {
		return nil, ErrParserUnavailable
	}
	parsed, err := s.parser.Parse(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ErrParserFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParserFailure, err)
	}
	return parsed, nil
}

func (s *RecommendationService) solve(ctx context.Context, m *solver.Model) ([]float64, error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.sem.Release(1)
	}
	return s.solver.Solve(ctx, m)
}

// IsInputError reports whether err was caused by the request rather than
// by the service.
func IsInputError(err error) bool {
	return errors.Is(err, nutrition.ErrInvalidProfile) ||
		errors.Is(err, constraints.ErrInvalidConstraint) ||
		errors.Is(err, constraints.ErrUnknownFoodItem) ||
		errors.Is(err, constraints.ErrConflictingConstraints) ||
		errors.Is(err, mealmodel.ErrUnsatisfiableStructure) ||
		errors.Is(err, ErrParserUnavailable)
}

// NewRecommendationResponse maps a recommendation outcome to the reply
// format: a meal is "success", infeasibility is "fail" and every other
// error is "error" with its message.
func NewRecommendationResponse(sol *types.MealSolution, err error) types.RecommendationResponse {
	switch {
	case err == nil && sol != nil:
		totals := sol.Totals
		return types.RecommendationResponse{Status: types.ResponseSuccess, Items: sol.Items, Totals: &totals}
	case errors.Is(err, solver.ErrInfeasible):
		return types.RecommendationResponse{Status: types.ResponseFail, Message: err.Error()}
	case err == nil:
		return types.RecommendationResponse{Status: types.ResponseError, Message: "no recommendation produced"}
	}
	return types.RecommendationResponse{Status: types.ResponseError, Message: err.Error()}
}
