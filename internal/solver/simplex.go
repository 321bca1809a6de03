package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Simplex solves LPs with a dense two-phase primal simplex (Bland's rule, so
// pivoting is deterministic and cycle-free) and MILPs by branch-and-bound on
// the binary variables.
type Simplex struct {
	// Tol is the feasibility/optimality tolerance.
	Tol float64
	// MaxIter bounds the number of pivots per LP solve.
	MaxIter int
}

func NewSimplex() *Simplex {
	return &Simplex{Tol: 1e-7, MaxIter: 20000}
}

// Solve solves the problem. When binary variables are present it runs
// branch-and-bound and prices the result from the restricted LP (binaries
// fixed at their optimal values), so equality duals are always well defined.
func (s *Simplex) Solve(p *Problem) (*Solution, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.hasBinaries() {
		return s.branchAndBound(p)
	}
	return s.solveLP(p, nil)
}

// bounds overrides, used by branch-and-bound. nil means the problem's own
// bounds.
type boundsOverride struct {
	lo, up []float64
}

// standard-form working state for one LP solve.
type tableau struct {
	T     *mat.Dense // m x n constraint matrix, Gauss-Jordan updated in place
	b     []float64  // rhs, kept >= 0
	cost  []float64  // phase-2 costs per column
	basis []int      // basic column per row
	m, n  int

	artStart int   // first artificial column; columns >= artStart never re-enter in phase 2
	rowSign  []int // +1/-1 per original problem row (rows beyond are bound rows)
	offset   float64
	relaxBin bool
}

func (s *Simplex) solveLP(p *Problem, ov *boundsOverride) (*Solution, error) {
	lo, up := p.lo, p.up
	if ov != nil {
		lo, up = ov.lo, ov.up
	}

	nv := p.NumVars()
	nRows := p.NumRows()

	// Count columns: originals + slacks (Le rows + finite upper bounds) +
	// one artificial per row.
	nSlack := 0
	for _, r := range p.rows {
		if r.kind == rowLe {
			nSlack++
		}
	}
	boundRows := 0
	for j := 0; j < nv; j++ {
		if !math.IsInf(up[j], 1) {
			boundRows++
		}
	}
	m := nRows + boundRows
	artStart := nv + nSlack + boundRows
	n := artStart + m

	tb := &tableau{
		T:        mat.NewDense(m, n, nil),
		b:        make([]float64, m),
		cost:     make([]float64, n),
		basis:    make([]int, m),
		m:        m,
		n:        n,
		artStart: artStart,
		rowSign:  make([]int, m),
	}

	// Shifted objective: minimize c*y with y = x - lo.
	for j := 0; j < nv; j++ {
		tb.cost[j] = p.costs[j]
		tb.offset += p.costs[j] * lo[j]
	}

	slack := nv
	for i, r := range p.rows {
		rhs := r.rhs
		for _, t := range r.terms {
			tb.T.Set(i, int(t.Var), tb.T.At(i, int(t.Var))+t.Coef)
			rhs -= t.Coef * lo[t.Var]
		}
		if r.kind == rowLe {
			tb.T.Set(i, slack, 1)
			slack++
		}
		tb.b[i] = rhs
	}
	ri := nRows
	for j := 0; j < nv; j++ {
		if math.IsInf(up[j], 1) {
			continue
		}
		tb.T.Set(ri, j, 1)
		tb.T.Set(ri, slack, 1)
		slack++
		tb.b[ri] = up[j] - lo[j]
		ri++
	}

	// Normalize rhs >= 0 and install artificials as the starting basis.
	for i := 0; i < m; i++ {
		tb.rowSign[i] = 1
		if tb.b[i] < 0 {
			tb.rowSign[i] = -1
			tb.b[i] = -tb.b[i]
			row := tb.T.RawRowView(i)
			for j := range row {
				row[j] = -row[j]
			}
		}
		tb.T.Set(i, artStart+i, 1)
		tb.basis[i] = artStart + i
	}

	// Phase 1: minimize the sum of artificials.
	phase1 := make([]float64, n)
	for j := artStart; j < n; j++ {
		phase1[j] = 1
	}
	if err := s.pivotLoop(tb, phase1, n); err != nil {
		return nil, err
	}
	if s.phaseObjective(tb, phase1) > s.Tol*(1+norm1(tb.b)) {
		return nil, ErrInfeasible
	}
	s.driveOutArtificials(tb)

	// Phase 2: artificial columns are banned from entering.
	if err := s.pivotLoop(tb, tb.cost, artStart); err != nil {
		return nil, err
	}

	return s.extract(p, tb, lo)
}

// pivotLoop runs Bland's-rule pivots until no column below enterLimit has a
// negative reduced cost.
func (s *Simplex) pivotLoop(tb *tableau, cost []float64, enterLimit int) error {
	for iter := 0; iter < s.MaxIter; iter++ {
		enter := -1
		for j := 0; j < enterLimit; j++ {
			if s.reducedCost(tb, cost, j) < -s.Tol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return nil
		}

		// Ratio test, ties broken by smallest basis variable index.
		leave := -1
		bestRatio := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			a := tb.T.At(i, enter)
			if a <= s.Tol {
				continue
			}
			ratio := tb.b[i] / a
			if ratio < bestRatio-s.Tol || (math.Abs(ratio-bestRatio) <= s.Tol && (leave < 0 || tb.basis[i] < tb.basis[leave])) {
				bestRatio = ratio
				leave = i
			}
		}
		if leave < 0 {
			return ErrUnbounded
		}
		s.pivot(tb, leave, enter)
	}
	return ErrIterationLimit
}

func (s *Simplex) reducedCost(tb *tableau, cost []float64, j int) float64 {
	// Skip columns already basic.
	for i := 0; i < tb.m; i++ {
		if tb.basis[i] == j {
			return 0
		}
	}
	r := cost[j]
	for i := 0; i < tb.m; i++ {
		cb := cost[tb.basis[i]]
		if cb != 0 {
			r -= cb * tb.T.At(i, j)
		}
	}
	return r
}

func (s *Simplex) phaseObjective(tb *tableau, cost []float64) float64 {
	z := 0.0
	for i := 0; i < tb.m; i++ {
		z += cost[tb.basis[i]] * tb.b[i]
	}
	return z
}

func (s *Simplex) pivot(tb *tableau, leave, enter int) {
	piv := tb.T.At(leave, enter)
	prow := tb.T.RawRowView(leave)
	inv := 1 / piv
	for j := range prow {
		prow[j] *= inv
	}
	tb.b[leave] *= inv
	for i := 0; i < tb.m; i++ {
		if i == leave {
			continue
		}
		f := tb.T.At(i, enter)
		if f == 0 {
			continue
		}
		row := tb.T.RawRowView(i)
		for j := range row {
			row[j] -= f * prow[j]
		}
		tb.b[i] -= f * tb.b[leave]
	}
	tb.basis[leave] = enter
}

// driveOutArtificials pivots zero-valued basic artificials onto structural
// columns where possible; rows with no structural coefficient are redundant
// and keep their artificial basic at zero.
func (s *Simplex) driveOutArtificials(tb *tableau) {
	for i := 0; i < tb.m; i++ {
		if tb.basis[i] < tb.artStart {
			continue
		}
		for j := 0; j < tb.artStart; j++ {
			if math.Abs(tb.T.At(i, j)) > s.Tol {
				s.pivot(tb, i, j)
				break
			}
		}
	}
}

func (s *Simplex) extract(p *Problem, tb *tableau, lo []float64) (*Solution, error) {
	y := make([]float64, tb.n)
	for i := 0; i < tb.m; i++ {
		y[tb.basis[i]] = tb.b[i]
	}
	x := make([]float64, p.NumVars())
	obj := tb.offset
	for j := range x {
		x[j] = lo[j] + y[j]
		obj += p.costs[j] * y[j]
	}

	// The reduced cost of row i's artificial column equals -pi_i, so duals
	// fall out of the final tableau without keeping an explicit inverse.
	duals := make([]float64, p.NumRows())
	for i := range duals {
		pi := -s.reducedCost(tb, tb.cost, tb.artStart+i)
		duals[i] = float64(tb.rowSign[i]) * pi
	}
	return &Solution{X: x, Objective: obj, duals: duals}, nil
}

func norm1(v []float64) float64 {
	t := 0.0
	for _, x := range v {
		t += math.Abs(x)
	}
	return t
}
