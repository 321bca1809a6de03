package market

import (
	"errors"
	"fmt"
	"math"

	"storage-market/internal/model"
	"storage-market/internal/solver"
)

// BidSource selects which value function prices storage in a DA+RT pass:
// the refreshed (with-storage) one, or the original no-storage one. See the
// PinnedSchedule doc below for how the two interact with the pinned path.
type BidSource int

const (
	// BidSourceRefreshed (default) bids the value function supplied in
	// RealTimeOptions.VF, re-derived from with-storage day-ahead prices.
	BidSourceRefreshed BidSource = iota
	// BidSourceDayAhead bids AltVF, the curve from the no-storage day-ahead
	// pass, using VF's run only to initialize the SoC path.
	BidSourceDayAhead
)

// DefaultWindow is the rolling look-ahead length in periods.
const DefaultWindow = 4

// RealTimeOptions configures the rolling-horizon dispatch.
//
// With PinnedSchedule set (DA+RT participation) the day-ahead storage
// schedule is executed as committed, the SoC path is taken from the
// day-ahead trajectory, and only the residual power headroom
// (P - scheduled) remains biddable against the value function. Without it
// (S-ED) the SoC path evolves endogenously step by step.
type RealTimeOptions struct {
	Storage model.StorageSpec
	// VF prices storage bids; required whenever storage is enabled.
	VF *model.ValueFunction
	// AltVF is the no-storage pass's value function, consulted only when
	// Bids == BidSourceDayAhead.
	AltVF *model.ValueFunction
	Bids  BidSource

	WindowSize     int
	PinnedSchedule *model.ClearingResult
	// UseExternalSoCPath, only meaningful with PinnedSchedule, re-anchors
	// each step's entry SoC to the day-ahead trajectory instead of
	// accumulating residual deviations.
	UseExternalSoCPath bool

	Solver solver.Solver
}

// RealTime runs T sequential economic-dispatch solves against the fixed
// day-ahead commitment, substituting the wind realization for the forecast
// in the current period and committing only the first period of each
// rolling window. The per-period clearing price is the dual of the first
// balance row.
func RealTime(snap *model.SystemSnapshot, commitment *model.ClearingResult, opts RealTimeOptions) (*model.ClearingResult, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("market: real-time: %w", err)
	}
	if commitment == nil || len(commitment.Committed) != len(snap.Generators) {
		return nil, errors.New("market: real-time requires a day-ahead commitment")
	}
	withStorage := opts.Storage.Enabled()
	if withStorage {
		if err := opts.Storage.Validate(); err != nil {
			return nil, fmt.Errorf("market: real-time storage: %w", err)
		}
		if opts.VF == nil {
			return nil, errors.New("market: real-time storage requires a value function")
		}
		if opts.Bids == BidSourceDayAhead && opts.AltVF == nil {
			return nil, errors.New("market: BidSourceDayAhead requires AltVF")
		}
	}
	window := opts.WindowSize
	if window <= 0 {
		window = DefaultWindow
	}
	slv := opts.Solver
	if slv == nil {
		slv = solver.NewSimplex()
	}

	T := snap.Horizon
	dt := snap.StepHours
	gens := snap.Generators

	res := &model.ClearingResult{
		Stage:      "RT",
		Mode:       rtModeTag(withStorage, opts.PinnedSchedule != nil),
		DispatchMW: make([][]float64, len(gens)),
		Prices:     make([]float64, T),
		SpillMW:    make([]float64, T),
	}
	for g := range gens {
		res.DispatchMW[g] = make([]float64, T)
	}
	if withStorage {
		res.ChargeMW = make([]float64, T)
		res.DischargeMW = make([]float64, T)
		res.SoC = make([]float64, T)
	}

	prevOut := make([]float64, len(gens))
	prevOn := make([]bool, len(gens))
	for g, gen := range gens {
		prevOut[g] = gen.InitialOutputMW
		prevOn[g] = gen.InitialOn
	}
	soc := opts.Storage.InitialSoC

	for t := 0; t < T; t++ {
		if withStorage && opts.PinnedSchedule != nil && opts.UseExternalSoCPath {
			if t == 0 {
				soc = opts.Storage.InitialSoC
			} else {
				soc = opts.PinnedSchedule.SoC[t-1]
			}
		}

		end := t + window
		if end > T {
			end = T
		}
		step, err := solveWindow(snap, commitment, opts, slv, t, end, prevOut, prevOn, soc)
		if err != nil {
			return nil, err
		}

		for g := range gens {
			res.DispatchMW[g][t] = step.dispatch[g]
			prevOut[g] = step.dispatch[g]
			prevOn[g] = commitment.Committed[g][t]
		}
		res.Prices[t] = step.price
		res.SpillMW[t] = step.spill
		if withStorage {
			res.ChargeMW[t] = step.charge
			res.DischargeMW[t] = step.discharge
			soc += (opts.Storage.Efficiency*step.charge - step.discharge/opts.Storage.Efficiency) * dt / opts.Storage.EnergyMWh()
			soc = model.Clamp01(soc)
			res.SoC[t] = soc
		}
		res.Objective += step.cost
	}
	return res, nil
}

func rtModeTag(withStorage, pinned bool) string {
	switch {
	case !withStorage:
		return "none"
	case pinned:
		return "pinned"
	default:
		return "bid"
	}
}

type stepResult struct {
	dispatch  []float64
	price     float64
	spill     float64
	charge    float64
	discharge float64
	cost      float64
}

// solveWindow builds and solves the LP for periods [t, end) and returns the
// committed first-period decision.
func solveWindow(snap *model.SystemSnapshot, commitment *model.ClearingResult, opts RealTimeOptions, slv solver.Solver, t, end int, prevOut []float64, prevOn []bool, soc float64) (*stepResult, error) {
	dt := snap.StepHours
	gens := snap.Generators
	spec := opts.Storage
	withStorage := spec.Enabled()

	p := solver.NewProblem()
	w := end - t

	pw := make([][]solver.VarID, len(gens))
	for g, gen := range gens {
		pw[g] = make([]solver.VarID, w)
		for i := 0; i < w; i++ {
			tau := t + i
			lo, hi := 0.0, 0.0
			if commitment.Committed[g][tau] {
				lo, hi = gen.MinOutputMW, gen.MaxOutputMW
			}
			pw[g][i] = p.AddVar(fmt.Sprintf("p[%d,%d]", g, tau), lo, hi, gen.MarginalCost*dt)
		}
		// Ramp rows, skipped across commitment changes (the jump to or from
		// zero output is governed by the start/stop, not the ramp rate).
		for i := 0; i < w; i++ {
			tau := t + i
			onNow := commitment.Committed[g][tau]
			var onPrev bool
			if i == 0 {
				onPrev = prevOn[g]
			} else {
				onPrev = commitment.Committed[g][tau-1]
			}
			if !onNow || !onPrev {
				continue
			}
			if i == 0 {
				p.AddLe("", prevOut[g]+gen.RampUpMW*dt, solver.Term{Var: pw[g][i], Coef: 1})
				p.AddLe("", -prevOut[g]+gen.RampDownMW*dt, solver.Term{Var: pw[g][i], Coef: -1})
			} else {
				p.AddLe("", gen.RampUpMW*dt,
					solver.Term{Var: pw[g][i], Coef: 1},
					solver.Term{Var: pw[g][i-1], Coef: -1})
				p.AddLe("", gen.RampDownMW*dt,
					solver.Term{Var: pw[g][i], Coef: -1},
					solver.Term{Var: pw[g][i-1], Coef: 1})
			}
		}
	}

	spill := make([]solver.VarID, w)
	for i := 0; i < w; i++ {
		tau := t + i
		wind := snap.WindForecastMW[tau]
		if i == 0 {
			wind = snap.WindActualMW[tau]
		}
		spill[i] = p.AddVar(fmt.Sprintf("spill[%d]", tau), 0, math.Max(0, wind), 0)
	}

	var st *rtStorage
	if withStorage {
		st = addRealTimeStorage(p, opts, t, end, soc, dt)
	}

	balance := make([]solver.RowID, w)
	for i := 0; i < w; i++ {
		tau := t + i
		net := snap.DemandMW[tau] - snap.WindForecastMW[tau]
		if i == 0 {
			net = snap.NetActualMW(tau)
		}
		terms := make([]solver.Term, 0, len(gens)+3)
		for g := range gens {
			terms = append(terms, solver.Term{Var: pw[g][i], Coef: 1})
		}
		terms = append(terms, solver.Term{Var: spill[i], Coef: -1})
		if st != nil {
			terms = append(terms,
				solver.Term{Var: st.dis[i], Coef: 1},
				solver.Term{Var: st.ch[i], Coef: -1})
			net -= st.pinnedNet[i]
		}
		balance[i] = p.AddEq(fmt.Sprintf("balance[%d]", tau), net, terms...)
	}
	if st != nil {
		st.addDynamics(p, spec, dt, soc)
	}

	sol, err := slv.Solve(p)
	if err != nil {
		return nil, wrapSolve("RT", t, err)
	}

	out := &stepResult{
		dispatch: make([]float64, len(gens)),
		price:    sol.Dual(balance[0]) / dt,
		spill:    sol.Value(spill[0]),
	}
	cost := 0.0
	for g, gen := range gens {
		out.dispatch[g] = sol.Value(pw[g][0])
		cost += gen.MarginalCost * out.dispatch[g] * dt
	}
	if st != nil {
		out.charge = sol.Value(st.ch[0]) + st.pinnedCh[0]
		out.discharge = sol.Value(st.dis[0]) + st.pinnedDis[0]
		cost += spec.DegradationCost * out.discharge * dt
	}
	out.cost = cost
	return out, nil
}

// rtStorage carries the storage variables of one window LP. In pinned mode
// the variables are the residual headroom on top of the day-ahead schedule;
// otherwise pinned* slices are zero and the variables are the full action.
type rtStorage struct {
	ch, dis   []solver.VarID
	seg       [][]solver.VarID
	pinnedCh  []float64
	pinnedDis []float64
	pinnedNet []float64
}

func addRealTimeStorage(p *solver.Problem, opts RealTimeOptions, t, end int, soc float64, dt float64) *rtStorage {
	spec := opts.Storage
	w := end - t
	vf := opts.VF
	if opts.Bids == BidSourceDayAhead {
		vf = opts.AltVF
	}

	st := &rtStorage{
		ch:        make([]solver.VarID, w),
		dis:       make([]solver.VarID, w),
		seg:       make([][]solver.VarID, w),
		pinnedCh:  make([]float64, w),
		pinnedDis: make([]float64, w),
		pinnedNet: make([]float64, w),
	}
	for i := 0; i < w; i++ {
		tau := t + i
		chCap, disCap := spec.PowerMW, spec.PowerMW
		if opts.PinnedSchedule != nil {
			st.pinnedCh[i] = opts.PinnedSchedule.ChargeMW[tau]
			st.pinnedDis[i] = opts.PinnedSchedule.DischargeMW[tau]
			st.pinnedNet[i] = st.pinnedDis[i] - st.pinnedCh[i]
			chCap = math.Max(0, chCap-st.pinnedCh[i])
			disCap = math.Max(0, disCap-st.pinnedDis[i])
		}
		st.ch[i] = p.AddVar(fmt.Sprintf("ch[%d]", tau), 0, chCap, 0)
		st.dis[i] = p.AddVar(fmt.Sprintf("dis[%d]", tau), 0, disCap, spec.DegradationCost*dt)

		// SoC segment decomposition priced at the period's marginal curve;
		// coefficients telescope so each MWh added is valued at the period
		// it was added in, and window-final holdings at the continuation
		// curve of the last look-ahead period.
		curve := vf.Marginal[tau]
		nseg := len(curve)
		width := 1.0 / float64(nseg)
		energy := spec.EnergyMWh()
		st.seg[i] = make([]solver.VarID, nseg)
		for k := 0; k < nseg; k++ {
			cost := -energy * curve[k]
			if tau+1 < len(vf.Marginal) && i+1 < w {
				cost += energy * vf.Marginal[tau+1][k]
			}
			st.seg[i][k] = p.AddVar(fmt.Sprintf("s[%d,%d]", tau, k), 0, width, cost)
		}
	}
	return st
}

// addDynamics ties SoC evolution across the window, pinned actions
// included; entry state is the realized SoC at the window start.
func (st *rtStorage) addDynamics(p *solver.Problem, spec model.StorageSpec, dt, soc float64) {
	energy := spec.EnergyMWh()
	chCoef := spec.Efficiency * dt / energy
	disCoef := dt / (spec.Efficiency * energy)

	for i := range st.ch {
		rhs := 0.0
		if i == 0 {
			rhs = soc
		}
		rhs += chCoef*st.pinnedCh[i] - disCoef*st.pinnedDis[i]
		terms := []solver.Term{
			{Var: st.ch[i], Coef: -chCoef},
			{Var: st.dis[i], Coef: disCoef},
		}
		for _, v := range st.seg[i] {
			terms = append(terms, solver.Term{Var: v, Coef: 1})
		}
		if i > 0 {
			for _, v := range st.seg[i-1] {
				terms = append(terms, solver.Term{Var: v, Coef: -1})
			}
		}
		p.AddEq("", rhs, terms...)
	}
}
