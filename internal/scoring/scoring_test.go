package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distressscan/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestNDVISlopeScenario2(t *testing.T) {
	points := []YearNDVI{
		{2014, 0.30}, {2016, 0.33}, {2018, 0.38}, {2020, 0.45}, {2022, 0.50},
	}
	slope := NDVISlope(points)
	require.NotNil(t, slope)
	assert.InDelta(t, 0.026, *slope, 0.002)
}

func TestNDVISlopeInsufficientPoints(t *testing.T) {
	assert.Nil(t, NDVISlope([]YearNDVI{{2020, 0.4}}))
}

func TestPercentileRankDenseAndMonotone(t *testing.T) {
	slopes := []RankedSlope{
		{"p1", -0.01}, {"p2", 0.02}, {"p3", 0.00}, {"p4", 0.05},
	}
	pctiles := PercentileRank(slopes)
	assert.Equal(t, 0.0, pctiles["p1"])
	assert.InDelta(t, 100.0, pctiles["p4"], 0.0001)
	assert.Less(t, pctiles["p3"], pctiles["p2"])
}

func TestDistressCompositeZoneX(t *testing.T) {
	pctile := 40.0
	composite := DistressComposite(&pctile, domain.FEMALow, false, true, 0.70, 0.30)
	require.NotNil(t, composite)
	assert.InDelta(t, 0.70*(40.0/10)+0.30*2, *composite, 0.001)
}

func TestDistressCompositeNilWhenNoInputs(t *testing.T) {
	assert.Nil(t, DistressComposite(nil, "", false, false, 0.70, 0.30))
}

func TestFuseConvictionDSOnlyScenario5(t *testing.T) {
	c := FuseConviction(f(6.0), 0, 0, false, nil, false)
	require.NotNil(t, c.Score)
	assert.InDelta(t, 6.00, *c.Score, 0.001)
	assert.ElementsMatch(t, []string{"DS"}, c.Components.Ordered())
}

func TestFuseConvictionMCOnlyPlusVacancyScenario6(t *testing.T) {
	vacConf := 0.9
	c := FuseConviction(nil, 4.2, 3, true, &vacConf, false)
	require.NotNil(t, c.Score)
	assert.InDelta(t, 8.25, *c.Score, 0.001)
	assert.ElementsMatch(t, []string{"MC", "VAC"}, c.Components.Ordered())
}

func TestFuseConvictionNullWhenNothingPresent(t *testing.T) {
	c := FuseConviction(nil, 0, 0, false, nil, false)
	assert.Nil(t, c.Score)
	assert.True(t, c.Components.Empty())
}
