package solver

import (
	"context"
	"fmt"
	"math"
)

// Kind is the domain of a decision variable.
type Kind int

const (
	Continuous Kind = iota
	Binary
)

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	}
	return "?"
}

// Status is the outcome reported by a solver. StatusFeasible means the
// search stopped at its node or time budget and the values are the best
// assignment found so far.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "error"
)

// Variable is a decision variable. Lower must be finite; Upper may be +Inf.
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
}

// Term is coef * variable.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(terms) <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a mixed binary linear program: minimize sum(Objective) subject
// to Constraints and variable bounds.
type Model struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   []Term
}

// Solver is the contract every MILP backend implements. On StatusOptimal
// and StatusFeasible values holds one entry per model variable. A non-nil error accompanies
// StatusError only.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Status, []float64, error)
}

// AddBinary appends a binary variable and returns its index.
func (m *Model) AddBinary(name string) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(m.Variables) - 1
}

// AddContinuous appends a continuous variable with the given bounds.
func (m *Model) AddContinuous(name string, lower, upper float64) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return len(m.Variables) - 1
}

// AddConstraint appends a constraint.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// AddObjective adds terms to the objective.
func (m *Model) AddObjective(terms ...Term) {
	m.Objective = append(m.Objective, terms...)
}

// Fix pins variable i to value.
func (m *Model) Fix(i int, value float64) {
	m.Variables[i].Lower = value
	m.Variables[i].Upper = value
}

// Validate checks indices, bounds and coefficients.
func (m *Model) Validate() error {
	for i, v := range m.Variables {
		if math.IsNaN(v.Lower) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %d (%s): lower bound must be finite", i, v.Name)
		}
		if math.IsNaN(v.Upper) || v.Upper < v.Lower {
			return fmt.Errorf("variable %d (%s): bounds [%v, %v] are empty", i, v.Name, v.Lower, v.Upper)
		}
		if v.Kind == Binary && (v.Lower < 0 || v.Upper > 1) {
			return fmt.Errorf("variable %d (%s): binary bounds must lie in [0, 1]", i, v.Name)
		}
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= len(m.Variables) {
				return fmt.Errorf("%s: unknown variable %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s: coefficient of variable %d is not finite", where, t.Var)
			}
		}
		return nil
	}
	for _, c := range m.Constraints {
		if err := check("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %s: right-hand side is not finite", c.Name)
		}
	}
	return check("objective", m.Objective)
}

// ObjectiveValue evaluates the objective at values.
func (m *Model) ObjectiveValue(values []float64) float64 {
	var sum float64
	for _, t := range m.Objective {
		sum += t.Coef * values[t.Var]
	}
	return sum
}

// Satisfied reports whether values meet every bound and constraint within tol.
func (m *Model) Satisfied(values []float64, tol float64) bool {
	if len(values) != len(m.Variables) {
		return false
	}
	for i, v := range m.Variables {
		if values[i] < v.Lower-tol || values[i] > v.Upper+tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		switch c.Sense {
		case LessEq:
			if lhs > c.RHS+tol {
				return false
			}
		case GreaterEq:
			if lhs < c.RHS-tol {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}
