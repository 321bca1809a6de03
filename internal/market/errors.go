package market

import (
	"errors"
	"fmt"

	"storage-market/internal/solver"
)

// InfeasibleError marks a clearing pass whose optimization admits no
// feasible solution. It is fatal for the sweep point that produced it: a
// silent default would corrupt the comparative analysis downstream.
type InfeasibleError struct {
	Stage string // "DA" or "RT"
	Step  int    // 0-based period for RT, -1 for whole-horizon DA
	Err   error
}

func (e *InfeasibleError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("market: %s clearing infeasible at period %d: %v", e.Stage, e.Step, e.Err)
	}
	return fmt.Sprintf("market: %s clearing infeasible: %v", e.Stage, e.Err)
}

func (e *InfeasibleError) Unwrap() error { return e.Err }

// wrapSolve classifies a solver failure for stage/step context.
func wrapSolve(stage string, step int, err error) error {
	if errors.Is(err, solver.ErrInfeasible) {
		return &InfeasibleError{Stage: stage, Step: step, Err: err}
	}
	return fmt.Errorf("market: %s clearing solve failed (period %d): %w", stage, step, err)
}
