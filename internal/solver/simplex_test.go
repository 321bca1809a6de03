package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveLPOptimum(t *testing.T) {
	// min 2x + 3y  s.t.  x + y = 10,  x in [0,6],  y in [0,inf)
	p := NewProblem()
	x := p.AddVar("x", 0, 6, 2)
	y := p.AddVar("y", 0, 1e9, 3)
	bal := p.AddEq("bal", 10, Term{Var: x, Coef: 1}, Term{Var: y, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 6, sol.Value(x), 1e-6)
	assert.InDelta(t, 4, sol.Value(y), 1e-6)
	assert.InDelta(t, 24, sol.Objective, 1e-6)
	// y is the marginal variable, so the balance shadow price is its cost.
	assert.InDelta(t, 3, sol.Dual(bal), 1e-6)
}

func TestSolveLPShiftedLowerBounds(t *testing.T) {
	// min x  s.t.  x + y = 12, x in [2,10], y in [3,5]
	p := NewProblem()
	x := p.AddVar("x", 2, 10, 1)
	y := p.AddVar("y", 3, 5, 0)
	p.AddEq("bal", 12, Term{Var: x, Coef: 1}, Term{Var: y, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 7, sol.Value(x), 1e-6)
	assert.InDelta(t, 5, sol.Value(y), 1e-6)
	assert.InDelta(t, 7, sol.Objective, 1e-6)
}

func TestSolveLPDispatchDuals(t *testing.T) {
	// Two-unit merit order: the expensive unit sets the price.
	p := NewProblem()
	a := p.AddVar("cheap", 0, 70, 18)
	b := p.AddVar("dear", 0, 1000, 80)
	bal := p.AddEq("bal", 100, Term{Var: a, Coef: 1}, Term{Var: b, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 70, sol.Value(a), 1e-6)
	assert.InDelta(t, 30, sol.Value(b), 1e-6)
	assert.InDelta(t, 80, sol.Dual(bal), 1e-6)
}

func TestSolveLPLeRows(t *testing.T) {
	// min -x - y  s.t.  x + 2y <= 8, 3x + y <= 9, x,y >= 0
	p := NewProblem()
	x := p.AddVar("x", 0, 100, -1)
	y := p.AddVar("y", 0, 100, -1)
	p.AddLe("r1", 8, Term{Var: x, Coef: 1}, Term{Var: y, Coef: 2})
	p.AddLe("r2", 9, Term{Var: x, Coef: 3}, Term{Var: y, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 2, sol.Value(x), 1e-6)
	assert.InDelta(t, 3, sol.Value(y), 1e-6)
	assert.InDelta(t, -5, sol.Objective, 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	p := NewProblem()
	x := p.AddVar("x", 0, 1, 1)
	p.AddEq("bal", 5, Term{Var: x, Coef: 1})

	_, err := NewSimplex().Solve(p)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveUnbounded(t *testing.T) {
	p := NewProblem()
	x := p.AddVar("x", 0, math.Inf(1), -1)
	y := p.AddVar("y", 0, math.Inf(1), 0)
	p.AddEq("link", 0, Term{Var: x, Coef: 1}, Term{Var: y, Coef: -1})

	_, err := NewSimplex().Solve(p)
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestValidateRejectsEmptyBounds(t *testing.T) {
	p := NewProblem()
	p.AddVar("x", 5, 1, 0)
	_, err := NewSimplex().Solve(p)
	assert.Error(t, err)
}

func TestBranchAndBoundKnapsack(t *testing.T) {
	// max 5x + 4y + 3z  s.t.  2x + 3y + z <= 4, binaries.
	p := NewProblem()
	x := p.AddBinary("x", -5)
	y := p.AddBinary("y", -4)
	z := p.AddBinary("z", -3)
	p.AddLe("cap", 4, Term{Var: x, Coef: 2}, Term{Var: y, Coef: 3}, Term{Var: z, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 1, sol.Value(x), 1e-6)
	assert.InDelta(t, 0, sol.Value(y), 1e-6)
	assert.InDelta(t, 1, sol.Value(z), 1e-6)
	assert.InDelta(t, -8, sol.Objective, 1e-6)
}

func TestBranchAndBoundRestrictedDuals(t *testing.T) {
	// Commitment-style problem: fixed cost to switch the unit on, then the
	// equality dual from the restricted LP equals the marginal cost.
	p := NewProblem()
	u := p.AddBinary("u", 100)
	pw := p.AddVar("p", 0, 50, 1)
	p.AddLe("gate", 0, Term{Var: pw, Coef: 1}, Term{Var: u, Coef: -50})
	bal := p.AddEq("bal", 30, Term{Var: pw, Coef: 1})

	sol, err := NewSimplex().Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 1, sol.Value(u), 1e-6)
	assert.InDelta(t, 30, sol.Value(pw), 1e-6)
	assert.InDelta(t, 130, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Dual(bal), 1e-6)
}

func TestBranchAndBoundInfeasible(t *testing.T) {
	p := NewProblem()
	x := p.AddBinary("x", 0)
	p.AddEq("half", 0.5, Term{Var: x, Coef: 1})

	_, err := NewSimplex().Solve(p)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveDeterministic(t *testing.T) {
	build := func() *Problem {
		p := NewProblem()
		x := p.AddBinary("x", -5)
		y := p.AddBinary("y", -4)
		p.AddLe("cap", 1, Term{Var: x, Coef: 1}, Term{Var: y, Coef: 1})
		return p
	}
	a, err := NewSimplex().Solve(build())
	require.NoError(t, err)
	b, err := NewSimplex().Solve(build())
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Objective, b.Objective)
}
