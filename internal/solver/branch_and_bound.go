package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrNodeLimit = errors.New("branch-and-bound node limit reached")

const (
	defaultMaxNodes    = 100000
	defaultRelativeGap = 1e-4
	integralityTol     = 1e-6
	feasibilityTol     = 1e-7
	pruneTol           = 1e-9
	fixedVariableWidth = 1e-12
	// deadlineShare is the part of a context deadline the search may use
	// before it settles for its incumbent.
	deadlineShare = 0.8
)

// BranchAndBound is the default Solver: depth-first branch-and-bound over
// binary variables. Relaxations run on a bounded-variable simplex, so a
// branch only tightens one column bound.
//
// The search dives into the "take it" branch of the largest fractional
// binary first, which reaches a first incumbent within a few nodes. When
// the node cap or time budget runs out with an incumbent in hand the
// result is StatusFeasible rather than an error.
type BranchAndBound struct {
	// MaxNodes caps explored nodes; zero means the default.
	MaxNodes int
	// TimeLimit bounds the search; zero leaves it to the context deadline.
	TimeLimit time.Duration
	// RelativeGap prunes nodes that cannot improve the incumbent by more
	// than this fraction of its objective; zero means the default.
	RelativeGap float64
}

var _ Solver = (*BranchAndBound)(nil)

// NewBranchAndBound creates a solver with the given node cap.
func NewBranchAndBound(maxNodes int) *BranchAndBound {
	return &BranchAndBound{MaxNodes: maxNodes}
}

type node struct {
	lower []float64
	upper []float64
	// bound is the parent's relaxation objective, a lower bound for the node.
	bound float64
}

// Solve implements Solver.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (Status, []float64, error) {
	if err := m.Validate(); err != nil {
		return StatusError, nil, fmt.Errorf("invalid model: %w", err)
	}
	maxNodes := b.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}
	stopAt := b.stopTime(ctx, time.Now())

	root := node{
		lower: make([]float64, len(m.Variables)),
		upper: make([]float64, len(m.Variables)),
		bound: math.Inf(-1),
	}
	for i, v := range m.Variables {
		root.lower[i] = v.Lower
		root.upper[i] = v.Upper
		if v.Kind == Binary {
			root.lower[i] = math.Ceil(v.Lower - integralityTol)
			root.upper[i] = math.Floor(v.Upper + integralityTol)
			if root.lower[i] > root.upper[i] {
				return StatusInfeasible, nil, nil
			}
		}
	}

	var (
		best      = math.Inf(1)
		incumbent []float64
		stack     = []node{root}
		explored  int
		// exhaustive turns false when a node is dropped without a verdict.
		exhaustive = true
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return StatusError, nil, err
		}
		if explored >= maxNodes {
			if incumbent != nil {
				return StatusFeasible, incumbent, nil
			}
			return StatusError, nil, ErrNodeLimit
		}
		if incumbent != nil && !stopAt.IsZero() && time.Now().After(stopAt) {
			return StatusFeasible, incumbent, nil
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.bound >= best-b.gap(best) {
			continue
		}
		explored++

		status, x, obj, err := solveRelaxation(m, n.lower, n.upper)
		switch status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			return StatusUnbounded, nil, nil
		case StatusError:
			if explored == 1 {
				return StatusError, nil, err
			}
			exhaustive = false
			continue
		}
		if obj >= best-b.gap(best) {
			continue
		}

		branch := -1
		for i, v := range m.Variables {
			if v.Kind != Binary {
				continue
			}
			if math.Abs(x[i]-math.Round(x[i])) <= integralityTol {
				continue
			}
			if branch < 0 || x[i] > x[branch] {
				branch = i
			}
		}
		if branch < 0 {
			if v, value, ok := polish(m, x); ok && value < best {
				best, incumbent = value, v
			}
			continue
		}

		down := node{lower: cloneFloats(n.lower), upper: cloneFloats(n.upper), bound: obj}
		down.upper[branch] = 0
		up := node{lower: cloneFloats(n.lower), upper: cloneFloats(n.upper), bound: obj}
		up.lower[branch] = 1
		// LIFO: the up branch is explored first.
		stack = append(stack, down, up)
	}

	switch {
	case incumbent == nil && exhaustive:
		return StatusInfeasible, nil, nil
	case incumbent == nil:
		return StatusError, nil, errors.New("branch-and-bound dropped every open node")
	case !exhaustive:
		return StatusFeasible, incumbent, nil
	}
	return StatusOptimal, incumbent, nil
}

func (b *BranchAndBound) gap(best float64) float64 {
	if math.IsInf(best, 1) {
		return 0
	}
	rel := b.RelativeGap
	if rel <= 0 {
		rel = defaultRelativeGap
	}
	return math.Max(pruneTol, rel*math.Abs(best))
}

func (b *BranchAndBound) stopTime(ctx context.Context, start time.Time) time.Time {
	var stop time.Time
	if b.TimeLimit > 0 {
		stop = start.Add(b.TimeLimit)
	}
	if dl, ok := ctx.Deadline(); ok {
		soft := start.Add(time.Duration(float64(dl.Sub(start)) * deadlineShare))
		if stop.IsZero() || soft.Before(stop) {
			stop = soft
		}
	}
	return stop
}

// polish fixes the binaries of an integral relaxation at their rounded
// values and re-solves for the continuous variables, so the incumbent
// carries exact 0/1 values and matching continuous ones.
func polish(m *Model, x []float64) ([]float64, float64, bool) {
	lower := make([]float64, len(m.Variables))
	upper := make([]float64, len(m.Variables))
	for i, v := range m.Variables {
		lower[i], upper[i] = v.Lower, v.Upper
		if v.Kind == Binary {
			lower[i] = math.Round(x[i])
			upper[i] = lower[i]
		}
	}
	status, values, obj, _ := solveRelaxation(m, lower, upper)
	if status != StatusOptimal {
		return nil, 0, false
	}
	return values, obj, true
}

// solveRelaxation solves the LP relaxation of m under the given bounds.
func solveRelaxation(m *Model, lower, upper []float64) (status Status, x []float64, obj float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, x, obj, err = StatusError, nil, 0, fmt.Errorf("simplex panic: %v", r)
		}
	}()

	tb, ok := newTableau(m, lower, upper)
	if !ok {
		return StatusInfeasible, nil, 0, nil
	}
	status, err = tb.solve()
	if status != StatusOptimal {
		return status, nil, 0, err
	}
	x = tb.values()
	return StatusOptimal, x, m.ObjectiveValue(x), nil
}

func constantRowHolds(sense Sense, rhs float64) bool {
	switch sense {
	case LessEq:
		return rhs >= -feasibilityTol
	case GreaterEq:
		return rhs <= feasibilityTol
	default:
		return math.Abs(rhs) <= feasibilityTol
	}
}

func cloneFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
