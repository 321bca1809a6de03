// Package solver provides the linear/mixed-integer programming capability
// the clearing formulations are written against: build a problem, solve it,
// read primal values and equality-row duals. The implementation is a dense
// two-phase primal simplex with a branch-and-bound layer for binaries.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInfeasible means the constraint set admits no solution.
	ErrInfeasible = errors.New("solver: problem is infeasible")
	// ErrUnbounded means the objective can decrease without limit.
	ErrUnbounded = errors.New("solver: problem is unbounded")
	// ErrIterationLimit means the simplex did not converge in MaxIter pivots.
	ErrIterationLimit = errors.New("solver: iteration limit reached")
)

// VarID identifies a decision variable within one Problem.
type VarID int

// RowID identifies a constraint row within one Problem.
type RowID int

// Term is one coefficient of a constraint row.
type Term struct {
	Var  VarID
	Coef float64
}

type rowKind int

const (
	rowEq rowKind = iota
	rowLe
)

type row struct {
	kind  rowKind
	terms []Term
	rhs   float64
	name  string
}

// Problem is a linear program in minimization form with optional binary
// variable markers. Variables have finite lower bounds; upper bounds may be
// +Inf.
type Problem struct {
	names  []string
	costs  []float64
	lo     []float64
	up     []float64
	binary []bool
	rows   []row
}

func NewProblem() *Problem { return &Problem{} }

// AddVar adds a variable with bounds [lo, up] and objective coefficient
// cost. lo must be finite.
func (p *Problem) AddVar(name string, lo, up, cost float64) VarID {
	p.names = append(p.names, name)
	p.costs = append(p.costs, cost)
	p.lo = append(p.lo, lo)
	p.up = append(p.up, up)
	p.binary = append(p.binary, false)
	return VarID(len(p.costs) - 1)
}

// AddBinary adds a {0,1} variable.
func (p *Problem) AddBinary(name string, cost float64) VarID {
	v := p.AddVar(name, 0, 1, cost)
	p.binary[v] = true
	return v
}

// AddEq adds an equality row. Its dual value is available on the Solution.
func (p *Problem) AddEq(name string, rhs float64, terms ...Term) RowID {
	p.rows = append(p.rows, row{kind: rowEq, terms: terms, rhs: rhs, name: name})
	return RowID(len(p.rows) - 1)
}

// AddLe adds a row of the form terms <= rhs.
func (p *Problem) AddLe(name string, rhs float64, terms ...Term) RowID {
	p.rows = append(p.rows, row{kind: rowLe, terms: terms, rhs: rhs, name: name})
	return RowID(len(p.rows) - 1)
}

func (p *Problem) NumVars() int { return len(p.costs) }
func (p *Problem) NumRows() int { return len(p.rows) }

func (p *Problem) hasBinaries() bool {
	for _, b := range p.binary {
		if b {
			return true
		}
	}
	return false
}

func (p *Problem) validate() error {
	for i := range p.costs {
		if math.IsInf(p.lo[i], 0) || math.IsNaN(p.lo[i]) {
			return fmt.Errorf("solver: variable %s has non-finite lower bound", p.names[i])
		}
		if p.up[i] < p.lo[i] {
			return fmt.Errorf("solver: variable %s has empty bound interval [%g, %g]", p.names[i], p.lo[i], p.up[i])
		}
	}
	for _, r := range p.rows {
		for _, t := range r.terms {
			if int(t.Var) < 0 || int(t.Var) >= len(p.costs) {
				return fmt.Errorf("solver: row %s references unknown variable %d", r.name, t.Var)
			}
		}
	}
	return nil
}

// Solution holds the primal optimum and the duals of every row.
type Solution struct {
	X         []float64
	Objective float64
	duals     []float64
}

// Value returns the optimal value of variable v.
func (s *Solution) Value(v VarID) float64 { return s.X[v] }

// Dual returns the dual value (shadow price) of row r. For the power-balance
// equality of a clearing formulation this is the clearing price.
func (s *Solution) Dual(r RowID) float64 { return s.duals[r] }

// Solver is the capability the clearing formulations depend on.
type Solver interface {
	Solve(p *Problem) (*Solution, error)
}
