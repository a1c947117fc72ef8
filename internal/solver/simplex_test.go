package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relax(t *testing.T, m *Model) (Status, []float64, float64) {
	t.Helper()
	lower := make([]float64, len(m.Variables))
	upper := make([]float64, len(m.Variables))
	for i, v := range m.Variables {
		lower[i], upper[i] = v.Lower, v.Upper
	}
	status, x, obj, err := solveRelaxation(m, lower, upper)
	require.NoError(t, err)
	return status, x, obj
}

func TestRelaxationUsesColumnBounds(t *testing.T) {
	// min -x - y  s.t.  x + y <= 1.2,  0 <= x <= 0.5,  0 <= y <= 1
	m := &Model{}
	x := m.AddContinuous("x", 0, 0.5)
	y := m.AddContinuous("y", 0, 1)
	m.AddConstraint("sum", []Term{{x, 1}, {y, 1}}, LessEq, 1.2)
	m.AddObjective(Term{x, -1}, Term{y, -1})

	status, v, obj := relax(t, m)
	require.Equal(t, StatusOptimal, status)
	assert.InDelta(t, -1.2, obj, 1e-9)
	assert.LessOrEqual(t, v[x], 0.5+1e-12)
	assert.LessOrEqual(t, v[y], 1+1e-12)
}

func TestRelaxationPhaseOne(t *testing.T) {
	// min x + 2y  s.t.  x + y >= 3,  x - y == 1,  x, y >= 1
	m := &Model{}
	x := m.AddContinuous("x", 1, math.Inf(1))
	y := m.AddContinuous("y", 1, math.Inf(1))
	m.AddConstraint("cover", []Term{{x, 1}, {y, 1}}, GreaterEq, 3)
	m.AddConstraint("diff", []Term{{x, 1}, {y, -1}}, Equal, 1)
	m.AddObjective(Term{x, 1}, Term{y, 2})

	status, v, obj := relax(t, m)
	require.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 2, v[x], 1e-9)
	assert.InDelta(t, 1, v[y], 1e-9)
	assert.InDelta(t, 4, obj, 1e-9)
}

func TestRelaxationRedundantEqualities(t *testing.T) {
	m := &Model{}
	x := m.AddContinuous("x", 0, 10)
	y := m.AddContinuous("y", 0, 10)
	for i := 0; i < 3; i++ {
		m.AddConstraint("sum", []Term{{x, 1}, {y, 1}}, Equal, 4)
	}
	m.AddConstraint("sum doubled", []Term{{x, 2}, {y, 2}}, Equal, 8)
	m.AddObjective(Term{x, 1}, Term{y, 3})

	status, v, obj := relax(t, m)
	require.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 4, v[x], 1e-9)
	assert.InDelta(t, 0, v[y], 1e-9)
	assert.InDelta(t, 4, obj, 1e-9)
	assert.True(t, m.Satisfied(v, 1e-9))
}

func TestRelaxationInfeasibleAndUnbounded(t *testing.T) {
	m := &Model{}
	x := m.AddContinuous("x", 0, 1)
	m.AddConstraint("too big", []Term{{x, 1}}, GreaterEq, 2)
	status, _, _ := relax(t, m)
	assert.Equal(t, StatusInfeasible, status)

	m = &Model{}
	x = m.AddContinuous("x", 0, math.Inf(1))
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddConstraint("diff", []Term{{x, 1}, {y, -1}}, LessEq, 1)
	m.AddObjective(Term{x, -1})
	status, _, _ = relax(t, m)
	assert.Equal(t, StatusUnbounded, status)
}

func TestRelaxationEmptyRows(t *testing.T) {
	m := &Model{}
	x := m.AddContinuous("x", 0, 1)
	m.AddConstraint("nothing", []Term{{x, 0}}, LessEq, 1)
	m.AddObjective(Term{x, -1})
	status, v, _ := relax(t, m)
	require.Equal(t, StatusOptimal, status)
	assert.Equal(t, 1.0, v[x])

	m.AddConstraint("impossible", nil, GreaterEq, 1)
	status, _, _ = relax(t, m)
	assert.Equal(t, StatusInfeasible, status)
}
