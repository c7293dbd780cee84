// Package orchestrator wires the store (C1), collectors (C2), rate governor
// (C3), scheduler (C4), address resolver (C5), scoring engine (C6) and
// signal evaluators (C7) into the six pass entry points named in spec.md
// §4.8: pass1, pass1.5-slope, pass1.75-trend, pass2-scene, pass2.25-vacancy,
// pass2.5-conviction. Each pass follows the same startup sequence — select
// eligible parcels, schedule collector work, fuse results, flush — that
// original_source's batch_*.py scripts hand-roll per script; here it is a
// shared shape parameterized by the per-pass collector and fusion logic.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"distressscan/internal/address"
	"distressscan/internal/checkpoint"
	"distressscan/internal/collectors/aerial"
	"distressscan/internal/collectors/flood"
	"distressscan/internal/collectors/scene"
	"distressscan/internal/collectors/trend"
	"distressscan/internal/domain"
	"distressscan/internal/journal"
	"distressscan/internal/ratelimit"
	"distressscan/internal/scheduler"
	"distressscan/internal/scoring"
	"distressscan/internal/signals"
	"distressscan/internal/store"
)

// Summary is the run-end report described in spec.md §7 ("user-visible
// failure" section): totals per tag, per-component coverage, the conviction
// component distribution, and any journal path produced.
type Summary struct {
	Processed           int
	OK                  int
	Transient           int
	Permanent           int
	Skipped             int
	ComponentCoverage   map[string]int // "DS", "MC", "VAC" -> count of parcels carrying that component
	ConvictionBuckets   map[string]int // e.g. "DS,MC,VAC" -> count
	JournalPath         string
	CircuitAborted      bool
}

func newSummary() Summary {
	return Summary{ComponentCoverage: map[string]int{}, ConvictionBuckets: map[string]int{}}
}

// Pass1Deps are the collaborators Pass1 needs.
type Pass1Deps struct {
	Store  *store.Store
	Aerial *aerial.Client
	Flood  *flood.Client
}

// Pass1Options mirrors the `pass1` CLI row in spec.md §6.
type Pass1Options struct {
	County        string
	State         string
	PropertyClass string
	Limit         int
	Workers       int
	FlushEvery    int
	DryRun        bool
	CheckpointDir string
}

// RunPass1 scans unscanned parcels for NDVI + FEMA flood status, fuses the
// Pass 1 distress flags, and writes distress_score/flags/sentinel_worthy.
func RunPass1(ctx context.Context, deps Pass1Deps, opts Pass1Options) (Summary, error) {
	summary := newSummary()
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}

	parcels, err := deps.Store.SelectUnscanned(ctx, opts.County, opts.State, opts.PropertyClass, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass1 select: %w", err)
	}
	if len(parcels) == 0 {
		return summary, nil
	}

	type unit struct {
		parcel domain.Parcel
		result store.ScanResult
	}

	cfg := scheduler.Config{Workers: opts.Workers}
	results := scheduler.RunShapeA(ctx, parcels, cfg, func(ctx context.Context, p domain.Parcel) (unit, error) {
		if !p.HasCoords {
			return unit{parcel: p}, nil
		}
		point := domain.Point{Lat: p.Lat, Lng: p.Lng}

		naipRes := deps.Aerial.ComputeNDVI(ctx, point)
		floodRes := deps.Flood.QueryFloodZone(ctx, point)

		// A collector-level TagError (5xx, network, decode failure) is
		// transient per spec.md §7: leave scan_date unset so the parcel
		// stays eligible for the next pass1 run, rather than stamping it
		// scanned with a degraded result.
		if naipRes.Tag.Class() == "transient" || floodRes.Tag.Class() == "transient" {
			return unit{parcel: p}, fmt.Errorf("transient collector failure: naip=%s flood=%s", naipRes.Tag, floodRes.Tag)
		}

		aerialSig := signals.AerialSignal{Valid: naipRes.Tag == aerial.TagOK, CurrentNDVI: naipRes.NDVI}
		floodSig := signals.FloodSignal{Valid: floodRes.Tag == flood.TagOK, Risk: floodRes.RiskLevel, SFHA: floodRes.IsSFHA}

		flags := signals.GenerateAllFlags(aerialSig, signals.TrendSignal{}, floodSig, signals.USPSSignal{})
		distressScore := scoring.FuseDistressScore(flags)

		flagSet := domain.NewDistressFlagSet()
		var vegOver, vegNeg, floodFlag, structural bool
		var vegOverConf, vegNegConf, floodConf, structConf *float64
		for _, f := range flags {
			conf := f.Confidence
			switch f.Code {
			case "vegetation_overgrowth":
				vegOver, vegOverConf = true, &conf
				flagSet.Add("veg_overgrowth")
			case "vegetation_neglect":
				vegNeg, vegNegConf = true, &conf
				flagSet.Add("veg_neglect")
			case "flood_risk":
				floodFlag, floodConf = true, &conf
				flagSet.Add("flood")
			case "structural_change":
				structural, structConf = true, &conf
				flagSet.Add("structural")
			}
		}

		var ndviPtr *float64
		if naipRes.Tag == aerial.TagOK {
			ndvi := naipRes.NDVI
			ndviPtr = &ndvi
		}
		category := ""
		if naipRes.Tag == aerial.TagOK {
			category = string(domain.CategorizeNDVI(naipRes.NDVI))
		} else {
			category = string(domain.NDVINoData)
		}

		res := store.ScanResult{
			ParcelID: p.ParcelID, NDVIScore: ndviPtr, NDVICategory: category,
			FEMAZone: floodRes.FloodZone, FEMARisk: string(floodRes.RiskLevel), FEMASFHA: floodRes.IsSFHA,
			DistressScore: &distressScore, DistressFlags: strings.Join(flagSet.Ordered(), ","),
			FlagVegOvergrowth: vegOver, FlagVegNeglect: vegNeg, FlagFlood: floodFlag, FlagStructural: structural,
			VegOvergrowthConfidence: vegOverConf, VegNeglectConfidence: vegNegConf, FloodConfidence: floodConf, StructuralConfidence: structConf,
			ScanDate: time.Now(), ScanPass: domain.ScanPass1, SentinelWorthy: !flagSet.Empty(),
		}
		if d, err := time.Parse("2006-01-02", naipRes.AcquisitionDate); err == nil {
			res.NDVIDate = &d
		}
		return unit{parcel: p, result: res}, nil
	})

	batch := make([]store.ScanResult, 0, opts.FlushEvery)
	flush := func() error {
		if opts.DryRun || len(batch) == 0 {
			batch = batch[:0]
			return nil
		}
		n, err := deps.Store.UpdateBatch(ctx, opts.County, batch)
		summary.OK += n
		batch = batch[:0]
		return err
	}

	for _, r := range results {
		summary.Processed++
		if r.Err != nil {
			summary.Transient++
			continue
		}
		if r.Value.parcel.HasCoords {
			batch = append(batch, r.Value.result)
		} else {
			summary.Skipped++
		}
		if len(batch) >= opts.FlushEvery {
			if err := flush(); err != nil {
				return summary, err
			}
		}
		_ = checkpoint.Save(opts.CheckpointDir, "pass1_"+opts.County, len(parcels), map[string]int{"processed": summary.Processed, "ok": summary.OK})
	}
	if err := flush(); err != nil {
		return summary, err
	}
	_ = checkpoint.Clear(opts.CheckpointDir, "pass1_"+opts.County)
	return summary, nil
}

// Pass1_5Deps are the collaborators for the historical-slope pass.
type Pass1_5Deps struct {
	Store  *store.Store
	Aerial *aerial.Client
}

// Pass1_5Options mirrors the `pass1.5-slope` CLI row.
type Pass1_5Options struct {
	County         string
	State          string
	Limit          int
	Workers        int
	CompositeOnly  bool
	NDVIWeight     float64
	FEMAWeight     float64
	DryRun         bool
}

// RunPass1_5Slope computes the NDVI slope from the NAIP history years in
// aerial.NAIPYearsToCheck, its percentile, and the bulk-risk
// distress_composite.
func RunPass1_5Slope(ctx context.Context, deps Pass1_5Deps, opts Pass1_5Options) (Summary, error) {
	summary := newSummary()
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.NDVIWeight == 0 && opts.FEMAWeight == 0 {
		opts.NDVIWeight, opts.FEMAWeight = 0.70, 0.30
	}

	parcels, err := deps.Store.SelectNeedingSlope(ctx, opts.County, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass1.5 select: %w", err)
	}
	if len(parcels) == 0 {
		return summary, nil
	}

	type slopeUnit struct {
		parcel domain.Parcel
		slope  *float64
		years  []int
	}

	cfg := scheduler.Config{Workers: opts.Workers}
	results := scheduler.RunShapeA(ctx, parcels, cfg, func(ctx context.Context, p domain.Parcel) (slopeUnit, error) {
		if !p.HasCoords || opts.CompositeOnly {
			return slopeUnit{parcel: p}, nil
		}
		point := domain.Point{Lat: p.Lat, Lng: p.Lng}
		var points []scoring.YearNDVI
		var years []int
		for _, year := range aerial.NAIPYearsToCheck {
			res := deps.Aerial.NDVIForYear(ctx, point, year)
			if res.Tag == aerial.TagOK {
				points = append(points, scoring.YearNDVI{Year: year, NDVI: res.NDVI})
				years = append(years, year)
			}
		}
		return slopeUnit{parcel: p, slope: scoring.NDVISlope(points), years: years}, nil
	})

	ranked := make([]scoring.RankedSlope, 0, len(results))
	byParcel := map[string]slopeUnit{}
	for _, r := range results {
		summary.Processed++
		if r.Err != nil {
			summary.Transient++
			continue
		}
		u := r.Value
		byParcel[u.parcel.ParcelID] = u
		if u.slope != nil {
			ranked = append(ranked, scoring.RankedSlope{ParcelKey: u.parcel.ParcelID, Slope: *u.slope})
		} else {
			summary.Skipped++
		}
	}
	pctiles := scoring.PercentileRank(ranked)

	slopeResults := make([]store.SlopeResult, 0, len(byParcel))
	for pid, u := range byParcel {
		var pctile *float64
		if v, ok := pctiles[pid]; ok {
			pctile = &v
		}
		femaKnown := u.parcel.FEMARisk != "" && u.parcel.FEMARisk != domain.FEMAUnknown
		composite := scoring.DistressComposite(pctile, u.parcel.FEMARisk, u.parcel.FEMASFHA, femaKnown, opts.NDVIWeight, opts.FEMAWeight)

		yearsStrs := make([]string, len(u.years))
		for i, y := range u.years {
			yearsStrs[i] = strconv.Itoa(y)
		}
		slopeResults = append(slopeResults, store.SlopeResult{
			ParcelID: pid, SlopePerYear: u.slope, SlopePercentile: pctile,
			HistoryCount: len(u.years), HistoryYears: strings.Join(yearsStrs, ","),
			DistressComposite: composite, CompositeDate: time.Now(),
		})
		if composite != nil {
			summary.OK++
		}
	}

	if !opts.DryRun {
		if _, err := deps.Store.UpdateBatchSlope(ctx, opts.County, slopeResults); err != nil {
			return summary, fmt.Errorf("orchestrator: pass1.5 flush: %w", err)
		}
	}
	return summary, nil
}

// Pass1_75Deps are the collaborators for the Sentinel trend enrichment pass.
type Pass1_75Deps struct {
	Store   *store.Store
	Trend   *trend.Client
	Aerial  *aerial.Client // when set, non-OK trend results are tagged TrendSourceFallback; no NAIP query is made
}

// Pass1_75Options mirrors the `pass1.75-trend` CLI row.
type Pass1_75Options struct {
	County     string
	Limit      int
	Months     int
	MaxRequests int
	DryRun     bool
}

// RunPass1_75Trend enriches sentinel-worthy parcels with a multi-month
// Sentinel-2 NDVI trend. Only successful Sentinel results are written. There
// is no fallback source: when Sentinel credentials are not configured (see
// trend.Client.Available) or Sentinel returns no data, the parcel is counted
// as skipped and nothing is written for it.
func RunPass1_75Trend(ctx context.Context, deps Pass1_75Deps, opts Pass1_75Options) (Summary, error) {
	summary := newSummary()
	if opts.Months <= 0 {
		opts.Months = 12
	}

	parcels, err := deps.Store.SelectSentinelWorthy(ctx, opts.County, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass1.75 select: %w", err)
	}

	requests := 0
	now := time.Now()
	var results []store.TrendResult
	for _, p := range parcels {
		if opts.MaxRequests > 0 && requests >= opts.MaxRequests {
			break
		}
		summary.Processed++
		if !p.HasCoords {
			summary.Skipped++
			continue
		}
		point := domain.Point{Lat: p.Lat, Lng: p.Lng}

		var source domain.TrendSource
		var res trend.Result
		if deps.Trend != nil && deps.Trend.Available() {
			res = deps.Trend.MonthlyTrend(ctx, point, opts.Months)
			source = domain.TrendSourcePrimary
			requests++
		} else {
			res.Tag = trend.TagCredentialsMissing
		}

		if res.Tag != trend.TagOK && deps.Aerial != nil {
			source = domain.TrendSourceFallback
		}

		switch res.Tag {
		case trend.TagOK:
			summary.OK++
			results = append(results, store.TrendResult{
				ParcelID: p.ParcelID, TrendDirection: res.TrendDirection, TrendSlope: res.TrendSlope,
				LatestNDVI: res.LatestNDVI, MonthsData: len(res.Monthly), DataSource: source, ScanDate: now,
			})
		case trend.TagCredentialsMissing, trend.TagNoData:
			summary.Skipped++
		default:
			summary.Transient++
		}
	}

	if !opts.DryRun && len(results) > 0 {
		if _, err := deps.Store.UpdateBatchTrend(ctx, opts.County, results); err != nil {
			return summary, fmt.Errorf("orchestrator: pass1.75 flush: %w", err)
		}
	}
	return summary, nil
}

// Pass2Deps are the collaborators for the scene-comparison pass.
type Pass2Deps struct {
	Store *store.Store
	Scene *scene.Client
}

// Pass2Options mirrors the `pass2-scene` CLI row.
type Pass2Options struct {
	County string
	Limit  int
	Force  bool
	DryRun bool
}

const planetRecencyWindow = 60 * 24 * time.Hour

// RunPass2Scene refines the parcels returned by SelectSentinelWorthy with a
// Planet Labs latest/historical scene-brightness comparison, skipping
// parcels scanned within the last 60 days unless Force is set.
func RunPass2Scene(ctx context.Context, deps Pass2Deps, opts Pass2Options) (Summary, error) {
	summary := newSummary()
	parcels, err := deps.Store.SelectSentinelWorthy(ctx, opts.County, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass2 select: %w", err)
	}

	now := time.Now()
	var results []store.SceneResult
	for _, p := range parcels {
		summary.Processed++
		if !p.HasCoords {
			summary.Skipped++
			continue
		}
		if !opts.Force && p.PlanetScanDate != nil && time.Since(*p.PlanetScanDate) < planetRecencyWindow {
			summary.Skipped++
			continue
		}
		if deps.Scene == nil || !deps.Scene.Available() {
			summary.Skipped++
			continue
		}
		res := deps.Scene.Refine(ctx, domain.Point{Lat: p.Lat, Lng: p.Lng})
		switch res.Tag {
		case scene.TagOK:
			summary.OK++
			results = append(results, store.SceneResult{
				ParcelID: p.ParcelID, SceneCount: res.SceneCount, ChangeScore: res.ChangeScore,
				TemporalSpanDays: res.TemporalSpanDays, LatestDate: res.LatestDate, EarliestDate: res.EarliestDate,
				ThumbLatestURL: res.ThumbLatestURL, ThumbEarliestURL: res.ThumbEarliestURL, ScanDate: now,
			})
		case scene.TagNoData:
			summary.Skipped++
		default:
			summary.Transient++
		}
	}

	if !opts.DryRun && len(results) > 0 {
		if _, err := deps.Store.UpdateBatchScene(ctx, opts.County, results); err != nil {
			return summary, fmt.Errorf("orchestrator: pass2 flush: %w", err)
		}
	}
	return summary, nil
}

// Pass2_25Deps are the collaborators for the USPS vacancy pass. Checkers is
// one Checker per credential account; all of them pull from one shared work
// queue (Shape B, spec.md §4.4).
type Pass2_25Deps struct {
	Store    *store.Store
	Checkers []*address.Checker
	Governors []*ratelimit.Governor
	JournalDir string
}

// Pass2_25Options mirrors the `pass2.25-vacancy` CLI row.
type Pass2_25Options struct {
	County       string
	MinComposite float64
	CacheDays    int
	Limit        int
	FlushEvery   int
	DryRun       bool
}

// uspsTransientErrors is the transient error vocabulary spec.md §4.1 names
// for update_batch_usps's three-way split: these leave usps_check_date NULL
// so the parcel stays eligible for the next pass2.25-vacancy run. Anything
// else (a 4xx, a decode failure, a bare network error) is treated as
// permanent — it stamps usps_check_date and is not retried.
var uspsTransientErrors = map[string]bool{
	"rate_limited": true,
	"http_500":     true,
	"http_501":     true,
	"http_502":     true,
	"http_503":     true,
	"http_504":     true,
}

// RunPass2_25Vacancy checks USPS-confirmed vacancy for high-composite
// parcels. All credential accounts run concurrently, each pulling parcels
// off one shared queue (spec.md §4.4 Shape B) so a paused or backed-off
// credential doesn't stall the others. Results flush to the store every
// FlushEvery rows; a flush failure falls back to the local journal and the
// run continues rather than aborting, per the §4.4 flush policy.
func RunPass2_25Vacancy(ctx context.Context, deps Pass2_25Deps, opts Pass2_25Options) (Summary, error) {
	summary := newSummary()
	if opts.CacheDays <= 0 {
		opts.CacheDays = 60
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 50
	}
	if len(deps.Checkers) == 0 {
		return summary, fmt.Errorf("orchestrator: pass2.25 requires at least one credential")
	}

	parcels, err := deps.Store.SelectNeedingUSPS(ctx, opts.County, opts.MinComposite, opts.CacheDays, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass2.25 select: %w", err)
	}
	if len(parcels) == 0 {
		return summary, nil
	}

	queue := make(chan domain.Parcel, len(parcels))
	for _, p := range parcels {
		queue <- p
	}
	close(queue)

	var journ *journal.Journal
	if deps.JournalDir != "" {
		journ, _ = journal.Open(deps.JournalDir, "usps")
	}

	var (
		mu      sync.Mutex
		batch   []store.USPSResult
		aborted bool
	)

	flush := func() {
		if opts.DryRun || len(batch) == 0 {
			batch = batch[:0]
			return
		}
		if _, err := deps.Store.UpdateBatchUSPS(ctx, opts.County, batch); err != nil {
			if journ != nil {
				now := time.Now()
				for _, r := range batch {
					_ = journ.Append(now, r)
				}
				summary.JournalPath = journ.Path(now)
			}
		}
		batch = batch[:0]
	}

	schedCfg := scheduler.DefaultConfig()
	var wg sync.WaitGroup
	for i := range deps.Checkers {
		checker := deps.Checkers[i]
		gov := deps.Governors[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			state := scheduler.RunShapeBQueue(ctx, queue, gov, schedCfg,
				func(ctx context.Context, p domain.Parcel) (store.USPSResult, error) {
					vac := checker.CheckAddress(ctx, p)
					flagVacancy := vac.Vacant != nil && *vac.Vacant
					var vacConf *float64
					uspsError := vac.Err != ""
					flag := signals.EvaluateUSPSVacancy(signals.USPSSignal{
						Valid: !uspsError, Vacant: flagVacancy, HasVacant: vac.Vacant != nil,
						DPVConfirmed: vac.DPVConfirmed != nil && *vac.DPVConfirmed, HasDPV: vac.DPVConfirmed != nil,
						AddressMismatch: vac.AddressMismatch,
					})
					if flag.Triggered {
						c := flag.Confidence
						vacConf = &c
					}
					var checkDate *time.Time
					if !uspsTransientErrors[vac.Err] {
						now := time.Now()
						checkDate = &now
					}
					return store.USPSResult{
						ParcelID: p.ParcelID, Vacant: vac.Vacant,
						DPVConfirmed: vac.DPVConfirmed != nil && *vac.DPVConfirmed,
						CanonicalCity: vac.USPSCity, CanonicalState: vac.USPSState, CanonicalZip: vac.USPSZip,
						AddressMismatch: vac.AddressMismatch, CheckDate: checkDate, Err: vac.Err,
						FlagVacancy: flag.Triggered, VacancyConfidence: vacConf,
					}, nil
				},
				func(r scheduler.Result[store.USPSResult]) {
					mu.Lock()
					defer mu.Unlock()
					summary.Processed++
					switch {
					case r.Err != nil || uspsTransientErrors[r.Value.Err]:
						summary.Transient++
					case r.Value.Err != "":
						summary.Permanent++
					default:
						summary.OK++
					}
					batch = append(batch, r.Value)
					if len(batch) >= opts.FlushEvery {
						flush()
					}
				})
			if state.Aborted {
				mu.Lock()
				aborted = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	flush()
	summary.CircuitAborted = aborted
	mu.Unlock()

	return summary, nil
}

// Pass2_5Deps are the collaborators for the conviction-fusion pass.
type Pass2_5Deps struct {
	Store *store.Store
}

// Pass2_5Options mirrors the `pass2.5-conviction` CLI row.
type Pass2_5Options struct {
	County          string
	State           string
	DryRun          bool
	SkipMotivation  bool
}

// MotivationLookup resolves external curator-signal aggregates for a parcel
// (mc_raw, mc_count); supplied by the caller since the producer lives
// outside this system (domain.MotivationSignal's doc comment).
type MotivationLookup func(ctx context.Context, p domain.Parcel) (mcRaw float64, mcCount int)

// RunPass2_5Conviction re-fuses the v1.0 conviction score for every parcel
// carrying a distress_composite or a vacancy flag. Idempotent: may be
// re-run freely, and SkipMotivation leaves the MC component out of the
// fusion for a deterministic DS/VAC-only run.
func RunPass2_5Conviction(ctx context.Context, deps Pass2_5Deps, opts Pass2_5Options, lookup MotivationLookup) (Summary, error) {
	summary := newSummary()

	parcels, err := deps.Store.SelectForConviction(ctx, opts.County, opts.State)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: pass2.5 select: %w", err)
	}

	results := make([]store.USPSResult, 0, len(parcels))
	for _, p := range parcels {
		summary.Processed++
		mcRaw, mcCount := 0.0, 0
		if !opts.SkipMotivation && lookup != nil {
			mcRaw, mcCount = lookup(ctx, p)
		}
		uspsError := p.USPSError != ""
		conviction := scoring.FuseConviction(p.DistressComposite, mcRaw, mcCount, p.FlagVacancy, p.VacancyConfidence, uspsError)

		if conviction.Score != nil {
			summary.OK++
			for _, c := range conviction.Components.Ordered() {
				summary.ComponentCoverage[c]++
			}
			bucket := strings.Join(conviction.Components.Ordered(), ",")
			if bucket == "" {
				bucket = "none"
			}
			summary.ConvictionBuckets[bucket]++
		} else {
			summary.Skipped++
		}

		results = append(results, store.USPSResult{
			ParcelID: p.ParcelID, Vacant: p.USPSVacant, DPVConfirmed: p.USPSDPVConfirmed,
			CanonicalCity: p.USPSCanonicalCity, CanonicalState: p.USPSCanonicalState, CanonicalZip: p.USPSCanonicalZip,
			AddressMismatch: p.USPSAddressMismatch, CheckDate: p.USPSCheckDate, Err: p.USPSError,
			FlagVacancy: p.FlagVacancy, VacancyConfidence: p.VacancyConfidence,
			ConvictionScore: conviction.Score, ConvictionBase: conviction.Base, ConvictionVacancyBonus: conviction.VacBonus,
			ConvictionComponents: strings.Join(conviction.Components.Ordered(), ","),
			MCRaw: mcRaw, MCCount: mcCount, ConvictionDate: time.Now(),
		})
	}

	if !opts.DryRun {
		if _, err := deps.Store.UpdateBatchUSPS(ctx, opts.County, results); err != nil {
			return summary, fmt.Errorf("orchestrator: pass2.5 flush: %w", err)
		}
	}
	return summary, nil
}
