package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errIterationLimit = errors.New("simplex iteration limit reached")

const (
	pivotTol  = 1e-9
	costTol   = 1e-9
	ratioTol  = 1e-12
	phaseOne  = 1e-8
	blandRun  = 50
	iterScale = 50
)

type varState int8

const (
	atLower varState = iota
	atUpper
	inBasis
)

// tableau is a dense bounded-variable primal simplex for
//
//	min cost·x  s.t.  rows of A x (<=, >=, ==) b,  lower <= x <= upper.
//
// Column bounds are enforced by the ratio test rather than by extra rows,
// so tightening bounds never changes the row count or the rank of A. Each
// inequality row owns a slack column and every row owns an artificial
// column, which keeps the starting basis an identity.
type tableau struct {
	rows, cols int
	structural int
	artificial int // index of the first artificial column

	t     *mat.Dense // B⁻¹A, one row per constraint
	d     []float64  // reduced costs for the current phase
	cost  []float64
	lower []float64
	upper []float64
	state []varState
	basis []int
	xb    []float64
	bmax  float64
}

// newTableau builds the phase one starting point. ok is false when a
// constraint without any coefficients cannot hold.
func newTableau(m *Model, lower, upper []float64) (tb *tableau, ok bool) {
	nv := len(m.Variables)
	var keep []Constraint
	slacks := 0
	for _, c := range m.Constraints {
		empty := true
		for _, t := range c.Terms {
			if t.Coef != 0 {
				empty = false
				break
			}
		}
		if empty {
			if !constantRowHolds(c.Sense, c.RHS) {
				return nil, false
			}
			continue
		}
		keep = append(keep, c)
		if c.Sense != Equal {
			slacks++
		}
	}

	rows := len(keep)
	cols := nv + slacks + rows
	tb = &tableau{
		rows:       rows,
		cols:       cols,
		structural: nv,
		artificial: nv + slacks,
		d:          make([]float64, cols),
		cost:       make([]float64, cols),
		lower:      make([]float64, cols),
		upper:      make([]float64, cols),
		state:      make([]varState, cols),
		basis:      make([]int, rows),
		xb:         make([]float64, rows),
	}
	copy(tb.lower, lower)
	copy(tb.upper, upper)
	for j := nv; j < cols; j++ {
		tb.upper[j] = math.Inf(1)
	}
	for _, t := range m.Objective {
		tb.cost[t.Var] += t.Coef
	}
	if rows == 0 {
		return tb, true
	}

	tb.t = mat.NewDense(rows, cols, nil)
	slack := nv
	for r, c := range keep {
		row := tb.t.RawRowView(r)
		for _, t := range c.Terms {
			row[t.Var] += t.Coef
		}
		residual := c.RHS - floats.Dot(row[:nv], lower)
		tb.bmax = math.Max(tb.bmax, math.Abs(c.RHS))

		art := tb.artificial + r
		if c.Sense != Equal {
			sigma := 1.0
			if c.Sense == GreaterEq {
				sigma = -1.0
			}
			row[slack] = sigma
			if residual*sigma >= 0 {
				// The slack absorbs the residual; this row needs no artificial.
				floats.Scale(sigma, row)
				tb.basis[r] = slack
				tb.state[slack] = inBasis
				tb.xb[r] = residual * sigma
				tb.upper[art] = 0
				slack++
				continue
			}
			slack++
		}
		sign := 1.0
		if residual < 0 {
			sign = -1.0
		}
		row[art] = 1
		floats.Scale(sign, row)
		row[art] = 1
		tb.basis[r] = art
		tb.state[art] = inBasis
		tb.xb[r] = math.Abs(residual)
	}
	return tb, true
}

// solve runs both phases and returns the status of the LP.
func (tb *tableau) solve() (Status, error) {
	if tb.rows == 0 {
		for j := 0; j < tb.cols; j++ {
			switch {
			case tb.cost[j] >= 0:
			case math.IsInf(tb.upper[j], 1):
				return StatusUnbounded, nil
			default:
				tb.state[j] = atUpper
			}
		}
		return StatusOptimal, nil
	}

	// Phase one minimizes the sum of basic artificials.
	needed := false
	for j := tb.artificial; j < tb.cols; j++ {
		tb.d[j] = 1
	}
	for r, j := range tb.basis {
		if j >= tb.artificial {
			needed = true
			floats.AddScaled(tb.d, -1, tb.t.RawRowView(r))
		}
	}
	if needed {
		if status, err := tb.iterate(); err != nil || status != StatusOptimal {
			return statusOrError(status, err)
		}
		infeasibility := 0.0
		for r, j := range tb.basis {
			if j >= tb.artificial {
				infeasibility += tb.xb[r]
			}
		}
		if infeasibility > phaseOne*(1+tb.bmax) {
			return StatusInfeasible, nil
		}
	}

	// Artificials are pinned at zero for phase two; any still basic sit on
	// a redundant row and leave as soon as a pivot touches them.
	for j := tb.artificial; j < tb.cols; j++ {
		tb.upper[j] = 0
	}
	for r, j := range tb.basis {
		if j >= tb.artificial {
			tb.xb[r] = 0
		}
	}

	copy(tb.d, tb.cost)
	for r, j := range tb.basis {
		if c := tb.cost[j]; c != 0 {
			floats.AddScaled(tb.d, -c, tb.t.RawRowView(r))
		}
	}
	status, err := tb.iterate()
	return statusOrError(status, err)
}

func statusOrError(status Status, err error) (Status, error) {
	if err != nil {
		return StatusError, err
	}
	return status, nil
}

// iterate pivots until no reduced cost improves the objective. Pricing is
// Dantzig's rule; a long run of degenerate pivots switches to Bland's rule
// until the objective moves again.
func (tb *tableau) iterate() (Status, error) {
	limit := iterScale * (tb.rows + tb.cols)
	degenerate := 0
	for it := 0; it < limit; it++ {
		bland := degenerate > blandRun
		q := tb.entering(bland)
		if q < 0 {
			return StatusOptimal, nil
		}

		dir := 1.0
		if tb.state[q] == atUpper {
			dir = -1.0
		}

		step := tb.upper[q] - tb.lower[q]
		leave := -1
		var pivot float64
		for r := 0; r < tb.rows; r++ {
			alpha := dir * tb.t.At(r, q)
			j := tb.basis[r]
			var ratio float64
			switch {
			case alpha > pivotTol:
				ratio = (tb.xb[r] - tb.lower[j]) / alpha
			case alpha < -pivotTol && !math.IsInf(tb.upper[j], 1):
				ratio = (tb.upper[j] - tb.xb[r]) / -alpha
			default:
				continue
			}
			if ratio < 0 {
				ratio = 0
			}
			better := ratio < step-ratioTol
			if !better && leave >= 0 && ratio <= step+ratioTol {
				if bland {
					better = j < tb.basis[leave]
				} else {
					better = math.Abs(alpha) > math.Abs(pivot)
				}
			}
			if better {
				step, leave, pivot = ratio, r, alpha
			}
		}
		if math.IsInf(step, 1) {
			return StatusUnbounded, nil
		}

		if step > ratioTol {
			degenerate = 0
			for r := 0; r < tb.rows; r++ {
				tb.xb[r] -= dir * step * tb.t.At(r, q)
			}
		} else {
			degenerate++
		}

		if leave < 0 {
			if tb.state[q] == atLower {
				tb.state[q] = atUpper
			} else {
				tb.state[q] = atLower
			}
			continue
		}

		out := tb.basis[leave]
		if pivot > 0 {
			tb.state[out] = atLower
		} else {
			tb.state[out] = atUpper
		}
		entered := tb.lower[q]
		if dir < 0 {
			entered = tb.upper[q]
		}
		tb.xb[leave] = entered + dir*step
		tb.basis[leave] = q
		tb.state[q] = inBasis
		tb.pivot(leave, q)
	}
	return StatusError, fmt.Errorf("%w after %d pivots", errIterationLimit, limit)
}

// entering picks the nonbasic column to bring in, or -1 at optimality.
// Artificials never re-enter and fixed columns cannot move.
func (tb *tableau) entering(bland bool) int {
	best, score := -1, 0.0
	for j := 0; j < tb.artificial; j++ {
		if tb.state[j] == inBasis || tb.upper[j]-tb.lower[j] <= fixedVariableWidth {
			continue
		}
		var s float64
		switch {
		case tb.state[j] == atLower && tb.d[j] < -costTol:
			s = -tb.d[j]
		case tb.state[j] == atUpper && tb.d[j] > costTol:
			s = tb.d[j]
		default:
			continue
		}
		if bland {
			return j
		}
		if s > score {
			best, score = j, s
		}
	}
	return best
}

func (tb *tableau) pivot(r, q int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < tb.rows; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, pr)
		tb.d[q] = 0
	}
}

// values returns the structural part of the current basic solution,
// clamped into the variable bounds.
func (tb *tableau) values() []float64 {
	x := make([]float64, tb.structural)
	for j := range x {
		if tb.state[j] == atUpper {
			x[j] = tb.upper[j]
		} else {
			x[j] = tb.lower[j]
		}
	}
	for r, j := range tb.basis {
		if j < tb.structural {
			x[j] = math.Min(math.Max(tb.xb[r], tb.lower[j]), tb.upper[j])
		}
	}
	return x
}
