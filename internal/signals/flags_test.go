package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"distressscan/internal/domain"
)

func TestEvaluateVegetationNeglectScenario1(t *testing.T) {
	naip := AerialSignal{Valid: true, CurrentNDVI: 0.23}
	flag := EvaluateVegetationNeglect(naip, FloodSignal{Valid: true, Risk: domain.FEMALow})
	assert.True(t, flag.Triggered)
	assert.InDelta(t, 0.55, flag.Confidence, 0.001)
}

func TestEvaluateVegetationNeglectOutsideBand(t *testing.T) {
	naip := AerialSignal{Valid: true, CurrentNDVI: 0.60}
	flag := EvaluateVegetationNeglect(naip, FloodSignal{})
	assert.False(t, flag.Triggered)
}

func TestEvaluateFloodRiskHigh(t *testing.T) {
	flag := EvaluateFloodRisk(FloodSignal{Valid: true, Risk: domain.FEMAHigh})
	assert.True(t, flag.Triggered)
	assert.Equal(t, 1.0, flag.Confidence)
}

func TestEvaluateVegetationOvergrowthStrongNoBaseline(t *testing.T) {
	naip := AerialSignal{Valid: true, CurrentNDVI: 0.70}
	flag := EvaluateVegetationOvergrowth(naip, TrendSignal{})
	assert.True(t, flag.Triggered)
	assert.InDelta(t, 0.6, flag.Confidence, 0.0001)
}

func TestEvaluateVegetationOvergrowthBothSourcesAgree(t *testing.T) {
	naip := AerialSignal{Valid: true, CurrentNDVI: 0.70, HasHistoricalMean: true, HistoricalMean: 0.40}
	sentinel := TrendSignal{Valid: true, Direction: domain.TrendIncreasing, Slope: 0.02, Latest: 0.55, HasLatest: true}
	flag := EvaluateVegetationOvergrowth(naip, sentinel)
	assert.True(t, flag.Triggered)
	assert.Equal(t, "naip_and_sentinel", flag.Evidence["agreement"])
}

func TestEvaluateUSPSVacancyDPVConfirmed(t *testing.T) {
	flag := EvaluateUSPSVacancy(USPSSignal{Valid: true, Vacant: true, HasVacant: true, DPVConfirmed: true, HasDPV: true})
	assert.True(t, flag.Triggered)
	assert.Equal(t, 0.90, flag.Confidence)
}

func TestEvaluateUSPSVacancyMismatchCapped(t *testing.T) {
	flag := EvaluateUSPSVacancy(USPSSignal{Valid: true, Vacant: true, HasVacant: true, DPVConfirmed: true, HasDPV: true, AddressMismatch: true})
	assert.True(t, flag.Triggered)
	assert.Equal(t, 0.70, flag.Confidence)
}

func TestGenerateAllFlagsOnlyReturnsTriggered(t *testing.T) {
	flags := GenerateAllFlags(AerialSignal{}, TrendSignal{}, FloodSignal{}, USPSSignal{})
	assert.Empty(t, flags)
}
