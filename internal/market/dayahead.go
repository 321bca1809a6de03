// Package market holds the two clearing formulations: the day-ahead unit
// commitment over the full horizon and the rolling-horizon real-time
// economic dispatch. Both are written against the solver capability
// interface and expose clearing prices as duals of the power-balance rows.
package market

import (
	"errors"
	"fmt"
	"math"

	"storage-market/internal/model"
	"storage-market/internal/solver"
)

// StorageMode selects how storage participates in the day-ahead clearing.
type StorageMode int

const (
	// StorageNone clears the market without a storage resource.
	StorageNone StorageMode = iota
	// StorageCoOptimized makes storage a free decision inside the MILP
	// (price-making).
	StorageCoOptimized
	// StorageBid clears storage as a price taker against its value-function
	// bid curve; no storage integers are introduced.
	StorageBid
)

// DayAheadOptions configures one day-ahead clearing pass.
type DayAheadOptions struct {
	Mode    StorageMode
	Storage model.StorageSpec
	// VF is required in StorageBid mode.
	VF     *model.ValueFunction
	Solver solver.Solver
}

// DayAhead solves the unit-commitment clearing for the full horizon.
// Prices come from the restricted LP (integers fixed at their optimum), the
// standard settlement convention.
func DayAhead(snap *model.SystemSnapshot, opts DayAheadOptions) (*model.ClearingResult, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("market: day-ahead: %w", err)
	}
	if opts.Mode != StorageNone {
		if err := opts.Storage.Validate(); err != nil {
			return nil, fmt.Errorf("market: day-ahead storage: %w", err)
		}
		if !opts.Storage.Enabled() {
			opts.Mode = StorageNone
		}
	}
	if opts.Mode == StorageBid && opts.VF == nil {
		return nil, errors.New("market: day-ahead bid mode requires a value function")
	}
	slv := opts.Solver
	if slv == nil {
		slv = solver.NewSimplex()
	}

	T := snap.Horizon
	dt := snap.StepHours
	gens := snap.Generators

	p := solver.NewProblem()

	// Generator variables.
	pw := make([][]solver.VarID, len(gens))   // dispatch MW
	on := make([][]solver.VarID, len(gens))   // commitment
	up := make([][]solver.VarID, len(gens))   // startup
	down := make([][]solver.VarID, len(gens)) // shutdown
	for g, gen := range gens {
		pw[g] = make([]solver.VarID, T)
		on[g] = make([]solver.VarID, T)
		up[g] = make([]solver.VarID, T)
		down[g] = make([]solver.VarID, T)
		for t := 0; t < T; t++ {
			pw[g][t] = p.AddVar(fmt.Sprintf("p[%d,%d]", g, t), 0, gen.MaxOutputMW, gen.MarginalCost*dt)
			on[g][t] = p.AddBinary(fmt.Sprintf("u[%d,%d]", g, t), 0)
			up[g][t] = p.AddBinary(fmt.Sprintf("v[%d,%d]", g, t), gen.StartupCost)
			down[g][t] = p.AddBinary(fmt.Sprintf("w[%d,%d]", g, t), 0)
		}
	}

	spill := make([]solver.VarID, T)
	for t := 0; t < T; t++ {
		spill[t] = p.AddVar(fmt.Sprintf("spill[%d]", t), 0, math.Max(0, snap.WindForecastMW[t]), 0)
	}

	st := addDayAheadStorage(p, snap, opts)

	for g, gen := range gens {
		su := math.Max(gen.MinOutputMW, gen.RampUpMW*dt)
		sd := math.Max(gen.MinOutputMW, gen.RampDownMW*dt)
		u0 := 0.0
		if gen.InitialOn {
			u0 = 1
		}
		for t := 0; t < T; t++ {
			// Commitment-gated capacity.
			p.AddLe("", 0,
				solver.Term{Var: pw[g][t], Coef: 1},
				solver.Term{Var: on[g][t], Coef: -gen.MaxOutputMW})
			p.AddLe("", 0,
				solver.Term{Var: pw[g][t], Coef: -1},
				solver.Term{Var: on[g][t], Coef: gen.MinOutputMW})

			// Startup/shutdown logic: u[t] - u[t-1] = v[t] - w[t].
			if t == 0 {
				p.AddEq("", u0,
					solver.Term{Var: on[g][t], Coef: 1},
					solver.Term{Var: up[g][t], Coef: -1},
					solver.Term{Var: down[g][t], Coef: 1})
			} else {
				p.AddEq("", 0,
					solver.Term{Var: on[g][t], Coef: 1},
					solver.Term{Var: on[g][t-1], Coef: -1},
					solver.Term{Var: up[g][t], Coef: -1},
					solver.Term{Var: down[g][t], Coef: 1})
			}
			p.AddLe("", 1,
				solver.Term{Var: up[g][t], Coef: 1},
				solver.Term{Var: down[g][t], Coef: 1})

			// Ramps, relaxed through starts and stops.
			if t == 0 {
				p.AddLe("", gen.InitialOutputMW+gen.RampUpMW*dt*u0,
					solver.Term{Var: pw[g][t], Coef: 1},
					solver.Term{Var: up[g][t], Coef: -su})
				p.AddLe("", -gen.InitialOutputMW,
					solver.Term{Var: pw[g][t], Coef: -1},
					solver.Term{Var: on[g][t], Coef: -gen.RampDownMW * dt},
					solver.Term{Var: down[g][t], Coef: -sd})
			} else {
				p.AddLe("", 0,
					solver.Term{Var: pw[g][t], Coef: 1},
					solver.Term{Var: pw[g][t-1], Coef: -1},
					solver.Term{Var: on[g][t-1], Coef: -gen.RampUpMW * dt},
					solver.Term{Var: up[g][t], Coef: -su})
				p.AddLe("", 0,
					solver.Term{Var: pw[g][t-1], Coef: 1},
					solver.Term{Var: pw[g][t], Coef: -1},
					solver.Term{Var: on[g][t], Coef: -gen.RampDownMW * dt},
					solver.Term{Var: down[g][t], Coef: -sd})
			}

			// Minimum up/down windows (within-horizon starts only).
			if gen.MinUp > 1 {
				terms := []solver.Term{{Var: on[g][t], Coef: -1}}
				for tau := t - gen.MinUp + 1; tau <= t; tau++ {
					if tau >= 0 {
						terms = append(terms, solver.Term{Var: up[g][tau], Coef: 1})
					}
				}
				p.AddLe("", 0, terms...)
			}
			if gen.MinDown > 1 {
				terms := []solver.Term{{Var: on[g][t], Coef: 1}}
				for tau := t - gen.MinDown + 1; tau <= t; tau++ {
					if tau >= 0 {
						terms = append(terms, solver.Term{Var: down[g][tau], Coef: 1})
					}
				}
				p.AddLe("", 1, terms...)
			}
		}
	}

	// Power balance per period; the dual is the clearing price.
	balance := make([]solver.RowID, T)
	for t := 0; t < T; t++ {
		terms := make([]solver.Term, 0, len(gens)+3)
		for g := range gens {
			terms = append(terms, solver.Term{Var: pw[g][t], Coef: 1})
		}
		terms = append(terms, solver.Term{Var: spill[t], Coef: -1})
		if st != nil {
			terms = append(terms,
				solver.Term{Var: st.dis[t], Coef: 1},
				solver.Term{Var: st.ch[t], Coef: -1})
		}
		balance[t] = p.AddEq(fmt.Sprintf("balance[%d]", t), snap.NetForecastMW(t), terms...)
	}
	if st != nil {
		st.addDynamics(p, snap, opts.Storage)
	}

	sol, err := slv.Solve(p)
	if err != nil {
		return nil, wrapSolve("DA", -1, err)
	}

	res := &model.ClearingResult{
		Stage:      "DA",
		Mode:       storageModeTag(opts.Mode),
		Committed:  make([][]bool, len(gens)),
		DispatchMW: make([][]float64, len(gens)),
		Prices:     make([]float64, T),
		SpillMW:    make([]float64, T),
		Objective:  sol.Objective,
	}
	for g := range gens {
		res.Committed[g] = make([]bool, T)
		res.DispatchMW[g] = make([]float64, T)
		for t := 0; t < T; t++ {
			res.Committed[g][t] = sol.Value(on[g][t]) > 0.5
			res.DispatchMW[g][t] = sol.Value(pw[g][t])
		}
	}
	for t := 0; t < T; t++ {
		res.Prices[t] = sol.Dual(balance[t]) / dt
		res.SpillMW[t] = sol.Value(spill[t])
	}
	if st != nil {
		res.ChargeMW = make([]float64, T)
		res.DischargeMW = make([]float64, T)
		res.SoC = make([]float64, T)
		for t := 0; t < T; t++ {
			res.ChargeMW[t] = sol.Value(st.ch[t])
			res.DischargeMW[t] = sol.Value(st.dis[t])
			res.SoC[t] = model.Clamp01(st.socAt(sol, t))
		}
	}
	return res, nil
}

func storageModeTag(m StorageMode) string {
	switch m {
	case StorageCoOptimized:
		return "coopt"
	case StorageBid:
		return "bid"
	default:
		return "none"
	}
}

// daStorage carries the storage variables of a day-ahead formulation.
type daStorage struct {
	mode StorageMode
	vf   *model.ValueFunction

	ch, dis []solver.VarID
	soc     []solver.VarID   // co-optimized mode
	seg     [][]solver.VarID // bid mode: SoC segment decomposition
}

func addDayAheadStorage(p *solver.Problem, snap *model.SystemSnapshot, opts DayAheadOptions) *daStorage {
	if opts.Mode == StorageNone {
		return nil
	}
	spec := opts.Storage
	T := snap.Horizon
	dt := snap.StepHours
	st := &daStorage{
		mode: opts.Mode,
		vf:   opts.VF,
		ch:   make([]solver.VarID, T),
		dis:  make([]solver.VarID, T),
	}
	for t := 0; t < T; t++ {
		st.ch[t] = p.AddVar(fmt.Sprintf("ch[%d]", t), 0, spec.PowerMW, 0)
		st.dis[t] = p.AddVar(fmt.Sprintf("dis[%d]", t), 0, spec.PowerMW, spec.DegradationCost*dt)
	}

	switch opts.Mode {
	case StorageCoOptimized:
		st.soc = make([]solver.VarID, T)
		for t := 0; t < T; t++ {
			st.soc[t] = p.AddVar(fmt.Sprintf("soc[%d]", t), 0, 1, 0)
		}
	case StorageBid:
		// Energy added in period t is valued at that period's marginal bid
		// curve; the per-segment coefficients telescope across periods.
		energy := spec.EnergyMWh()
		nseg := len(opts.VF.Marginal[0])
		width := 1.0 / float64(nseg)
		st.seg = make([][]solver.VarID, T)
		for t := 0; t < T; t++ {
			st.seg[t] = make([]solver.VarID, nseg)
			for k := 0; k < nseg; k++ {
				cost := -energy * opts.VF.Marginal[t][k]
				if t+1 < T {
					cost += energy * opts.VF.Marginal[t+1][k]
				}
				st.seg[t][k] = p.AddVar(fmt.Sprintf("s[%d,%d]", t, k), 0, width, cost)
			}
		}
	}
	return st
}

// addDynamics wires the SoC evolution rows:
// soc[t] = soc[t-1] + (eta*ch - dis/eta) * dt / E.
func (st *daStorage) addDynamics(p *solver.Problem, snap *model.SystemSnapshot, spec model.StorageSpec) {
	T := snap.Horizon
	dt := snap.StepHours
	energy := spec.EnergyMWh()
	chCoef := spec.Efficiency * dt / energy
	disCoef := dt / (spec.Efficiency * energy)

	for t := 0; t < T; t++ {
		rhs := 0.0
		if t == 0 {
			rhs = spec.InitialSoC
		}
		terms := []solver.Term{
			{Var: st.ch[t], Coef: -chCoef},
			{Var: st.dis[t], Coef: disCoef},
		}
		if st.mode == StorageCoOptimized {
			terms = append(terms, solver.Term{Var: st.soc[t], Coef: 1})
			if t > 0 {
				terms = append(terms, solver.Term{Var: st.soc[t-1], Coef: -1})
			}
		} else {
			for _, v := range st.seg[t] {
				terms = append(terms, solver.Term{Var: v, Coef: 1})
			}
			if t > 0 {
				for _, v := range st.seg[t-1] {
					terms = append(terms, solver.Term{Var: v, Coef: -1})
				}
			}
		}
		p.AddEq(fmt.Sprintf("socdyn[%d]", t), rhs, terms...)
	}

	// Hard terminal target is only meaningful when storage is a free
	// decision; in bid mode the value function already carries it.
	if st.mode == StorageCoOptimized && spec.TerminalSoC != nil {
		p.AddEq("socterm", *spec.TerminalSoC, solver.Term{Var: st.soc[T-1], Coef: 1})
	}
}

func (st *daStorage) socAt(sol *solver.Solution, t int) float64 {
	if st.mode == StorageCoOptimized {
		return sol.Value(st.soc[t])
	}
	total := 0.0
	for _, v := range st.seg[t] {
		total += sol.Value(v)
	}
	return total
}
