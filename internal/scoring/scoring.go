// Package scoring implements the per-pass derived metrics (C6): NDVI
// slope via least squares, county-scoped percentile rank, the bulk-risk
// distress composite, the distress_score flag roll-up, and the v1.0
// conviction fusion. Grounded on spec.md §4.6 (which itself resolves an
// Open Question by moving this arithmetic out of SQL — the Python
// original computed percentile with a PERCENT_RANK() window function in
// original_source/src/db.py — into Go, since spec.md keeps C1 and C6 as
// separate components) and on
// original_source/scripts/batch_conviction_score.py for the conviction
// constants.
package scoring

import (
	"math"
	"sort"

	"distressscan/internal/domain"
	"distressscan/internal/signals"
)

// YearNDVI is one historical NAIP observation.
type YearNDVI struct {
	Year int
	NDVI float64
}

// NDVISlope computes the least-squares slope of NDVI over year, rounded to
// 6 decimals. Returns nil when fewer than two points are given.
func NDVISlope(points []YearNDVI) *float64 {
	n := float64(len(points))
	if n < 2 {
		return nil
	}
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.Year)
		sumX += x
		sumY += p.NDVI
		sumXY += x * p.NDVI
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		zero := 0.0
		return &zero
	}
	slope := round(((n*sumXY)-(sumX*sumY))/denom, 6)
	return &slope
}

// RankedSlope pairs a parcel identifier with its computed slope, used by
// PercentileRank to attach the result back to the right row.
type RankedSlope struct {
	ParcelKey string
	Slope     float64
}

// PercentileRank assigns each parcel's slope a 0-100 percentile within its
// county, ascending on slope (higher slope = higher percentile = more
// overgrowth, per spec.md §4.6). Ties keep stable relative order. Returns a
// map keyed by ParcelKey.
func PercentileRank(slopes []RankedSlope) map[string]float64 {
	out := make(map[string]float64, len(slopes))
	if len(slopes) == 0 {
		return out
	}
	if len(slopes) == 1 {
		out[slopes[0].ParcelKey] = 0
		return out
	}
	ordered := make([]RankedSlope, len(slopes))
	copy(ordered, slopes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Slope < ordered[j].Slope })

	count := float64(len(ordered))
	for rank, s := range ordered {
		out[s.ParcelKey] = float64(rank) / (count - 1) * 100
	}
	return out
}

// femaWeight maps a flood classification to the composite's FEMA term.
func femaWeight(risk domain.FEMARisk, sfha bool) float64 {
	switch {
	case sfha || risk == domain.FEMAHigh:
		return 10
	case risk == domain.FEMAModerate:
		return 6
	case risk == domain.FEMALow:
		return 2
	default:
		return 0
	}
}

// DistressComposite computes the bulk-risk composite from a percentile
// rank and/or FEMA classification. Returns nil if neither input is known.
func DistressComposite(pctile *float64, risk domain.FEMARisk, sfha, feamKnown bool, wNDVI, wFEMA float64) *float64 {
	if pctile == nil && !feamKnown {
		return nil
	}
	var ndviTerm float64
	if pctile != nil {
		ndviTerm = wNDVI * (*pctile / 10)
	}
	var femaTerm float64
	if feamKnown {
		femaTerm = wFEMA * femaWeight(risk, sfha)
	}
	composite := round(ndviTerm+femaTerm, 2)
	return &composite
}

// distressFlagWeights rolls triggered evaluator flags up into distress_score.
var distressFlagWeights = map[string]float64{
	"vegetation_overgrowth": 2.0,
	"vegetation_neglect":    1.5,
	"flood_risk":            1.5,
	"structural_change":     2.5,
	"usps_vacancy":          2.5,
}

// FuseDistressScore sums weight·confidence over triggered flags, clamped
// to [0,10] and rounded to 2 decimals.
func FuseDistressScore(flags []signals.Flag) float64 {
	var sum float64
	for _, f := range flags {
		w, ok := distressFlagWeights[f.Code]
		if !ok {
			continue
		}
		sum += w * f.Confidence
	}
	if sum > 10 {
		sum = 10
	}
	if sum < 0 {
		sum = 0
	}
	return round(sum, 2)
}

const (
	convictionWDS    = 0.35
	convictionWMC    = 0.40
	convictionMCCap  = 7.0
	convictionVacMax = 2.5
)

// Conviction is the v1.0 fusion result.
type Conviction struct {
	Score      *float64
	Base       *float64
	VacBonus   float64
	Components *domain.FlagSet
}

// FuseConviction implements the Implementation Contract v1.0 reweighted
// average: missing components are excluded from the weight sum rather
// than scored as zero, and the vacancy bonus only applies when the parcel
// is flagged vacant and the USPS lookup did not error.
func FuseConviction(dsComposite *float64, mcRaw float64, mcCount int, flagVacancy bool, vacConf *float64, uspsError bool) Conviction {
	var dsComp *float64
	if dsComposite != nil {
		v := clamp(*dsComposite/10, 0, 1)
		dsComp = &v
	}

	var mcComp *float64
	if mcCount > 0 {
		v := clamp(mcRaw/convictionMCCap, 0, 1)
		mcComp = &v
	}

	vacBonus := 0.0
	if flagVacancy && !uspsError {
		vc := 0.8
		if vacConf != nil {
			vc = clamp(*vacConf, 0, 1)
		}
		vacBonus = round(convictionVacMax*vc, 2)
	}

	denom := 0.0
	if dsComp != nil {
		denom += convictionWDS
	}
	if mcComp != nil {
		denom += convictionWMC
	}

	components := domain.NewConvictionComponentSet()
	if dsComp != nil {
		components.Add("DS")
	}
	if mcComp != nil {
		components.Add("MC")
	}
	if vacBonus > 0 {
		components.Add("VAC")
	}

	if denom == 0 && vacBonus == 0 {
		return Conviction{VacBonus: vacBonus, Components: components}
	}

	var base float64
	if denom > 0 {
		ds := 0.0
		if dsComp != nil {
			ds = *dsComp
		}
		mc := 0.0
		if mcComp != nil {
			mc = *mcComp
		}
		base = 10 * (convictionWDS*ds + convictionWMC*mc) / denom
	}
	base = round(base, 2)
	score := round(clamp(base+vacBonus, 0, 10), 2)

	return Conviction{Score: &score, Base: &base, VacBonus: vacBonus, Components: components}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
