package solver

import (
	"math"
)

// branchAndBound searches over the binary variables by depth-first
// branch-and-bound on LP relaxations. The returned solution comes from the
// restricted LP with binaries fixed at their optimal values, which is what
// makes the equality duals meaningful for pricing.
func (s *Simplex) branchAndBound(p *Problem) (*Solution, error) {
	root := &boundsOverride{
		lo: append([]float64(nil), p.lo...),
		up: append([]float64(nil), p.up...),
	}

	intTol := 1e-6
	bestObj := math.Inf(1)
	var bestAssign []float64

	type node struct{ ov *boundsOverride }
	stack := []node{{ov: root}}

	for len(stack) > 0 {
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sol, err := s.solveLP(p, nd.ov)
		if err == ErrInfeasible {
			continue
		}
		if err != nil {
			return nil, err
		}
		if sol.Objective >= bestObj-1e-9 {
			continue
		}

		// Branch on the lowest-index fractional binary; deterministic.
		frac := -1
		for j := range p.binary {
			if !p.binary[j] {
				continue
			}
			v := sol.X[j]
			if v > intTol && v < 1-intTol {
				frac = j
				break
			}
		}
		if frac < 0 {
			bestObj = sol.Objective
			bestAssign = make([]float64, len(p.binary))
			for j := range p.binary {
				if p.binary[j] {
					bestAssign[j] = math.Round(sol.X[j])
				}
			}
			continue
		}

		down := cloneOverride(nd.ov)
		down.up[frac] = 0
		up := cloneOverride(nd.ov)
		up.lo[frac] = 1
		// Explore the rounded-nearest side first.
		if sol.X[frac] >= 0.5 {
			stack = append(stack, node{ov: down}, node{ov: up})
		} else {
			stack = append(stack, node{ov: up}, node{ov: down})
		}
	}

	if bestAssign == nil {
		return nil, ErrInfeasible
	}

	// Restricted LP: fix every binary, re-solve, report its duals.
	fixed := cloneOverride(root)
	for j := range p.binary {
		if p.binary[j] {
			fixed.lo[j] = bestAssign[j]
			fixed.up[j] = bestAssign[j]
		}
	}
	return s.solveLP(p, fixed)
}

func cloneOverride(ov *boundsOverride) *boundsOverride {
	return &boundsOverride{
		lo: append([]float64(nil), ov.lo...),
		up: append([]float64(nil), ov.up...),
	}
}
