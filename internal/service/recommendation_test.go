package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/mealplanner/backend/internal/constraints"
	"github.com/pageza/mealplanner/backend/internal/mealmodel"
	"github.com/pageza/mealplanner/backend/internal/nutrition"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/testhelpers"
	"github.com/pageza/mealplanner/backend/internal/testhelpers/mocks"
	"github.com/pageza/mealplanner/backend/internal/types"
)

var ptr = testhelpers.Ptr[string]

func newService(t *testing.T, s solver.Solver, p service.ConstraintParser, opts service.Options) *service.RecommendationService {
	t.Helper()
	return service.NewRecommendationService(testhelpers.SampleCatalog(t), s, p, opts, nil)
}

func itemNames(sol *types.MealSolution) []string {
	names := make([]string, len(sol.Items))
	for i, it := range sol.Items {
		names[i] = it.Name
	}
	return names
}

func TestRecommendWithoutConstraints(t *testing.T) {
	svc := newService(t, solver.NewBranchAndBound(0), nil, service.Options{})

	sol, err := svc.Recommend(context.Background(), service.RecommendRequest{Profile: testhelpers.ReferenceProfile()})
	require.NoError(t, err)
	assert.Equal(t, types.SolutionOptimal, sol.Status)
	assert.GreaterOrEqual(t, len(sol.Items), mealmodel.MinItems)
	assert.LessOrEqual(t, len(sol.Items), mealmodel.MaxItems)

	target := testhelpers.ReferenceTargets().Calories
	assert.GreaterOrEqual(t, sol.Totals.Kcal, 0.8*target-0.1)
	assert.LessOrEqual(t, sol.Totals.Kcal, 1.2*target+0.1)
}

func TestRecommendMergesParsedConstraints(t *testing.T) {
	parser := new(mocks.MockParser)
	parser.On("Parse", mock.Anything, "must have kimchi, no bulgogi").Return([]types.DietConstraint{
		{Intent: types.IntentIncludeItem, Strength: types.StrengthHard, FoodItem: ptr("kimchi")},
	}, nil).Once()

	svc := newService(t, solver.NewBranchAndBound(0), parser, service.Options{})
	sol, err := svc.Recommend(context.Background(), service.RecommendRequest{
		Profile: testhelpers.ReferenceProfile(),
		Constraints: []types.DietConstraint{
			{Intent: types.IntentExcludeItem, Strength: types.StrengthHard, FoodItem: ptr("bulgogi")},
		},
		Text: "must have kimchi, no bulgogi",
	})
	require.NoError(t, err)
	assert.Contains(t, itemNames(sol), "kimchi")
	assert.NotContains(t, itemNames(sol), "bulgogi")
	parser.AssertExpectations(t)
}

func TestRecommendInputErrors(t *testing.T) {
	failing := new(mocks.MockParser)
	failing.On("Parse", mock.Anything, "anything").Return(nil, errors.New("connection refused"))

	tests := []struct {
		name   string
		parser service.ConstraintParser
		req    service.RecommendRequest
		want   error
		input  bool
	}{
		{
			name: "invalid profile",
			req:  service.RecommendRequest{Profile: types.Profile{WeightKg: -1}},
			want: nutrition.ErrInvalidProfile, input: true,
		},
		{
			name: "unknown food item",
			req: service.RecommendRequest{
				Profile:     testhelpers.ReferenceProfile(),
				Constraints: []types.DietConstraint{{Intent: types.IntentIncludeItem, FoodItem: ptr("pizza")}},
			},
			want: constraints.ErrUnknownFoodItem, input: true,
		},
		{
			name: "conflicting constraints",
			req: service.RecommendRequest{
				Profile: testhelpers.ReferenceProfile(),
				Constraints: []types.DietConstraint{
					{Intent: types.IntentIncludeItem, Strength: types.StrengthHard, FoodItem: ptr("apple")},
					{Intent: types.IntentExcludeItem, Strength: types.StrengthHard, FoodItem: ptr("apple")},
				},
			},
			want: constraints.ErrConflictingConstraints, input: true,
		},
		{
			name: "text without parser",
			req:  service.RecommendRequest{Profile: testhelpers.ReferenceProfile(), Text: "spicy please"},
			want: service.ErrParserUnavailable, input: true,
		},
		{
			name:   "parser failure",
			parser: failing,
			req:    service.RecommendRequest{Profile: testhelpers.ReferenceProfile(), Text: "anything"},
			want:   service.ErrParserFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(mocks.MockSolver)
			svc := newService(t, s, tt.parser, service.Options{})

			sol, err := svc.Recommend(context.Background(), tt.req)
			assert.Nil(t, sol)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.input, service.IsInputError(err))
			s.AssertNotCalled(t, "Solve", mock.Anything, mock.Anything)
		})
	}
}

func TestRecommendInfeasible(t *testing.T) {
	s := new(mocks.MockSolver)
	s.On("Solve", mock.Anything, mock.Anything).Return(solver.StatusInfeasible, nil, nil).Once()
	svc := newService(t, s, nil, service.Options{})

	sol, err := svc.Recommend(context.Background(), service.RecommendRequest{Profile: testhelpers.ReferenceProfile()})
	assert.Nil(t, sol)
	assert.ErrorIs(t, err, solver.ErrInfeasible)
	assert.False(t, service.IsInputError(err))

	resp := service.NewRecommendationResponse(sol, err)
	assert.Equal(t, types.ResponseFail, resp.Status)
	assert.Empty(t, resp.Items)
	s.AssertExpectations(t)
}

// countingSolver records how many solves run at once.
type countingSolver struct {
	inner    solver.Solver
	inflight atomic.Int32
	peak     atomic.Int32
}

func (c *countingSolver) Solve(ctx context.Context, m *solver.Model) (solver.Status, []float64, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.inner.Solve(ctx, m)
}

func TestRecommendLimitsConcurrentSolves(t *testing.T) {
	cs := &countingSolver{inner: solver.NewBranchAndBound(0)}
	svc := newService(t, cs, nil, service.Options{MaxConcurrentSolves: 1})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Recommend(context.Background(), service.RecommendRequest{Profile: testhelpers.ReferenceProfile()})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, cs.peak.Load())
}

func TestRecommendCancelledWhileWaiting(t *testing.T) {
	s := new(mocks.MockSolver)
	started := make(chan struct{})
	block := make(chan struct{})
	s.On("Solve", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-block
	}).
		Return(solver.StatusInfeasible, nil, nil).Once()
	svc := newService(t, s, nil, service.Options{MaxConcurrentSolves: 1})

	first := make(chan error, 1)
	go func() {
		_, err := svc.Recommend(context.Background(), service.RecommendRequest{Profile: testhelpers.ReferenceProfile()})
		first <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Recommend(ctx, service.RecommendRequest{Profile: testhelpers.ReferenceProfile()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	assert.ErrorIs(t, <-first, solver.ErrInfeasible)
	s.AssertExpectations(t)
}

func TestTargets(t *testing.T) {
	svc := newService(t, new(mocks.MockSolver), nil, service.Options{})

	res, err := svc.Targets(testhelpers.ReferenceProfile())
	require.NoError(t, err)
	assert.InDelta(t, 2555.6, res.DailyCalories, 0.05)
	assert.InDelta(t, testhelpers.ReferenceTargets().Calories, res.Meal.Calories, 1e-9)
	assert.InDelta(t, testhelpers.ReferenceTargets().Protein, res.Meal.Protein, 1e-9)

	_, err = svc.Targets(types.Profile{})
	assert.ErrorIs(t, err, nutrition.ErrInvalidProfile)
}

func TestParseConstraintsReportsValidity(t *testing.T) {
	parser := new(mocks.MockParser)
	parser.On("Parse", mock.Anything, "kimchi and pizza, low sodium").Return([]types.DietConstraint{
		{Intent: types.IntentIncludeItem, FoodItem: ptr("kimchi")},
		{Intent: types.IntentIncludeItem, FoodItem: ptr("pizza")},
		{Intent: types.IntentNutrient, Nutrient: ptr("sodium"), BoundType: ptr("lower"), BoundValue: testhelpers.Ptr(600.0)},
		{Intent: types.IntentNutrient, Nutrient: ptr("sodium"), BoundType: ptr("sideways"), BoundValue: testhelpers.Ptr(600.0)},
	}, nil)

	svc := newService(t, new(mocks.MockSolver), parser, service.Options{})
	out, err := svc.ParseConstraints(context.Background(), "kimchi and pizza, low sodium")
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.True(t, out[0].Valid)
	assert.False(t, out[1].Valid)
	assert.Contains(t, out[1].Error, "pizza")
	assert.True(t, out[2].Valid)
	assert.False(t, out[3].Valid)
	assert.NotEmpty(t, out[3].Error)
}

func TestParseConstraintsWithoutParser(t *testing.T) {
	svc := newService(t, new(mocks.MockSolver), nil, service.Options{})
	_, err := svc.ParseConstraints(context.Background(), "anything")
	assert.ErrorIs(t, err, service.ErrParserUnavailable)
}

func TestNewRecommendationResponse(t *testing.T) {
	sol := &types.MealSolution{
		Status: types.SolutionOptimal,
		Items:  []types.SelectedItem{{Name: "bibimbap", Kcal: 550}},
		Totals: types.NutrientTotals{Kcal: 550},
	}

	ok := service.NewRecommendationResponse(sol, nil)
	assert.Equal(t, types.ResponseSuccess, ok.Status)
	require.NotNil(t, ok.Totals)
	assert.Equal(t, 550.0, ok.Totals.Kcal)
	assert.Len(t, ok.Items, 1)

	failed := service.NewRecommendationResponse(nil, solver.ErrSolverFailure)
	assert.Equal(t, types.ResponseError, failed.Status)
	assert.Equal(t, solver.ErrSolverFailure.Error(), failed.Message)
	assert.Nil(t, failed.Totals)
}
