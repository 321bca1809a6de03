package valuefn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-market/internal/model"
)

func testSpec() model.StorageSpec {
	return model.StorageSpec{
		PowerMW:        10,
		DurationHours:  4,
		Efficiency:     0.9,
		GridResolution: 0.25,
		InitialSoC:     0.5,
	}
}

func TestBuildInputErrors(t *testing.T) {
	spec := testSpec()

	_, err := Build(nil, spec, 1, Options{})
	assert.Error(t, err)

	_, err = Build([]float64{20}, spec, 0, Options{})
	assert.Error(t, err)

	bad := spec
	bad.Efficiency = 0
	_, err = Build([]float64{20}, bad, 1, Options{})
	assert.Error(t, err)

	bad = spec
	bad.GridResolution = -1
	_, err = Build([]float64{20}, bad, 1, Options{})
	assert.Error(t, err)
}

func TestBuildRejectsDisabledUnit(t *testing.T) {
	// A zero energy rating has no SoC to value; building a curve for it
	// would divide by zero segment energy.
	spec := testSpec()
	spec.PowerMW = 0
	_, err := Build([]float64{20, 80}, spec, 1, Options{})
	assert.Error(t, err)

	spec = testSpec()
	spec.DurationHours = 0
	_, err = Build([]float64{20, 80}, spec, 1, Options{})
	assert.Error(t, err)
}

func TestBuildSinglePeriodExact(t *testing.T) {
	// One period, price 50: the value of stored energy is what the unit can
	// deliver before the power bound binds.
	vf, err := Build([]float64{50}, testSpec(), 1, Options{})
	require.NoError(t, err)

	// E = 40 MWh, eta = 0.9: soc 0.25 delivers 9 MWh, soc >= 0.5 hits the
	// 10 MW power cap.
	want := []float64{0, 450, 500, 500, 500}
	require.Len(t, vf.Value[0], len(want))
	for i, v := range want {
		assert.InDelta(t, v, vf.Value[0][i], 1e-9, "sample %d", i)
	}
}

func TestBuildMarginalCurveExact(t *testing.T) {
	vf, err := Build([]float64{20, 50}, testSpec(), 1, Options{})
	require.NoError(t, err)

	// Marginal[0] is the finite difference of the period-1 value, over
	// segment energy 0.25 * 40 = 10 MWh.
	want := []float64{45, 5, 0, 0}
	require.Len(t, vf.Marginal[0], len(want))
	for k, v := range want {
		assert.InDelta(t, v, vf.Marginal[0][k], 1e-9, "segment %d", k)
	}
}

func TestBuildMonotoneConcave(t *testing.T) {
	prices := []float64{20, 55, 15, 70, 30, 25, 60, 40}
	spec := testSpec()
	spec.GridResolution = 0.05
	spec.DegradationCost = 2

	vf, err := Build(prices, spec, 1, Options{})
	require.NoError(t, err)

	for tt := range vf.Value {
		row := vf.Value[tt]
		for i := 0; i+1 < len(row); i++ {
			assert.GreaterOrEqual(t, row[i+1]+1e-6, row[i], "value must be non-decreasing in SoC (t=%d, i=%d)", tt, i)
		}
	}
	for tt := range vf.Marginal {
		m := vf.Marginal[tt]
		for k := 0; k+1 < len(m); k++ {
			assert.GreaterOrEqual(t, m[k]+1e-6, m[k+1], "marginal must be non-increasing in SoC (t=%d, k=%d)", tt, k)
		}
	}
}

func TestBuildTerminalTarget(t *testing.T) {
	target := 0.5
	spec := testSpec()
	spec.TerminalSoC = &target

	vf, err := Build([]float64{30, 30}, spec, 1, Options{})
	require.NoError(t, err)

	term := vf.Value[len(vf.Value)-1]
	// The penalty peaks (at zero) exactly at the target sample.
	assert.InDelta(t, 0, term[2], 1e-9)
	for i, v := range term {
		if i != 2 {
			assert.Less(t, v, 0.0, "sample %d", i)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	prices := []float64{20, 55, 15, 70}
	a, err := Build(prices, testSpec(), 1, Options{})
	require.NoError(t, err)
	b, err := Build(prices, testSpec(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Value, b.Value)
	assert.Equal(t, a.Marginal, b.Marginal)
}

func TestBuildTwoSampleGrid(t *testing.T) {
	spec := testSpec()
	spec.GridResolution = 1

	vf, err := Build([]float64{20, 50}, spec, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, vf.Grid.Len())
	for tt := range vf.Marginal {
		assert.Len(t, vf.Marginal[tt], 1)
	}
}

func TestBuildSegmentsCompression(t *testing.T) {
	spec := testSpec()
	spec.GridResolution = 0.05

	vf, err := Build([]float64{20, 55, 15, 70}, spec, 1, Options{Segments: 4})
	require.NoError(t, err)
	for tt := range vf.Marginal {
		m := vf.Marginal[tt]
		require.Len(t, m, 4)
		for k := 0; k+1 < len(m); k++ {
			assert.GreaterOrEqual(t, m[k]+1e-6, m[k+1])
		}
	}
}

func TestBuildSegmentsUnevenCompression(t *testing.T) {
	// 4 grid segments onto 3 tiers: each tier is the width-weighted average
	// of the segments it overlaps, so the value of a full charge is the same
	// under either curve.
	vf, err := Build([]float64{20, 50}, testSpec(), 1, Options{Segments: 3})
	require.NoError(t, err)

	// Full-resolution curve for period 0 is [45, 5, 0, 0].
	m := vf.Marginal[0]
	require.Len(t, m, 3)
	assert.InDelta(t, (3*45.0+5)/4, m[0], 1e-9)
	assert.InDelta(t, (5.0+0)/2, m[1], 1e-9)
	assert.InDelta(t, 0, m[2], 1e-9)

	full := 0.0
	for _, v := range m {
		full += v / 3
	}
	assert.InDelta(t, (45.0+5)/4, full, 1e-9)
}

func TestMarginalAtSteps(t *testing.T) {
	vf, err := Build([]float64{20, 50}, testSpec(), 1, Options{})
	require.NoError(t, err)

	m := vf.Marginal[0]
	assert.Equal(t, m[0], vf.MarginalAt(0, 0))
	assert.Equal(t, m[0], vf.MarginalAt(0, 0.1))
	assert.Equal(t, m[1], vf.MarginalAt(0, 0.3))
	assert.Equal(t, m[len(m)-1], vf.MarginalAt(0, 1))
	// Out-of-range SoC clamps instead of panicking.
	assert.Equal(t, m[0], vf.MarginalAt(0, -0.5))
	assert.Equal(t, m[len(m)-1], vf.MarginalAt(0, 1.5))
}
