// Package domain holds the shared entity types that flow between the store,
// collectors, scoring engine and evaluators. Nothing here talks to a network
// or a database; it is the vocabulary the rest of the packages share.
package domain

import "time"

// Point is a WGS84 coordinate pair used as the unit of work for every collector.
type Point struct {
	Lat float64
	Lng float64
}

// NDVICategory buckets a raw NDVI value for display and eligibility purposes.
type NDVICategory string

const (
	NDVIBare     NDVICategory = "bare"
	NDVIMinimal  NDVICategory = "minimal"
	NDVISparse   NDVICategory = "sparse"
	NDVIModerate NDVICategory = "moderate"
	NDVIDense    NDVICategory = "dense"
	NDVINoData   NDVICategory = "no_data"
	NDVIError    NDVICategory = "error"
)

// CategorizeNDVI derives the display bucket for a raw NDVI value.
func CategorizeNDVI(ndvi float64) NDVICategory {
	switch {
	case ndvi < 0.10:
		return NDVIBare
	case ndvi < 0.30:
		return NDVIMinimal
	case ndvi < 0.50:
		return NDVISparse
	case ndvi < 0.65:
		return NDVIModerate
	default:
		return NDVIDense
	}
}

// FEMARisk is the coarse flood-hazard tier used both for eligibility and scoring.
type FEMARisk string

const (
	FEMAHigh     FEMARisk = "high"
	FEMAModerate FEMARisk = "moderate"
	FEMALow      FEMARisk = "low"
	FEMAUnknown  FEMARisk = "unknown"
)

// TrendDirection summarizes a multi-month NDVI series.
type TrendDirection string

const (
	TrendIncreasing      TrendDirection = "increasing"
	TrendDecreasing      TrendDirection = "decreasing"
	TrendStable          TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendSource distinguishes the primary satellite archive from its fallback.
type TrendSource string

const (
	TrendSourcePrimary  TrendSource = "primary"
	TrendSourceFallback TrendSource = "fallback"
)

// ScanPass is the monotonic major-pass marker. It only ever takes the three
// values below; sub-passes (1.75, 2.25, 2.5) are tracked by their own date
// columns (sentinel_scan_date, usps_check_date, conviction_date) instead of
// by a finer-grained ScanPass value.
type ScanPass float64

const (
	ScanPassNone ScanPass = 0
	ScanPass1    ScanPass = 1
	ScanPass1_5  ScanPass = 1.5
	ScanPass2    ScanPass = 2
)

// MaxScanPass implements the store's monotonic max(current, new) contract.
func MaxScanPass(current, next ScanPass) ScanPass {
	if next > current {
		return next
	}
	return current
}

// Parcel is the primary entity: one row of the parcels table.
type Parcel struct {
	// Identity
	ID           string // not read or written by internal/store
	County       string
	State        string
	ParcelID     string
	Lat          float64
	Lng          float64
	HasCoords    bool
	SitusAddress string
	MailingCity  string
	MailingState string
	MailingZip   string
	PropertyClass string
	TotalValue   float64
	SqFt         float64

	// Pass 1 (aerial)
	NDVICurrent    *float64
	NDVIDate       *time.Time
	NDVICategory   NDVICategory
	FEMAZone       string
	FEMARisk       FEMARisk
	FEMASFHA       bool

	// Pass 1 fusion
	DistressScore    *float64
	VegOvergrowth    bool
	VegOvergrowthConf float64
	VegNeglect       bool
	VegNeglectConf   float64
	Flood            bool
	FloodConf        float64
	Structural       bool
	StructuralConf   float64
	DistressFlags    *FlagSet
	ScanDate         *time.Time
	ScanPass         ScanPass
	SentinelWorthy   bool

	// Pass 1.5 (historical slope)
	NDVISlopePerYear   *float64
	NDVIHistoryCount   int
	NDVIHistoryYears   []int
	NDVISlopePctile    *float64
	DistressComposite  *float64
	CompositeDate      *time.Time

	// Pass 1.75 (trend enrichment)
	SentinelTrendDirection TrendDirection
	SentinelTrendSlope     *float64
	SentinelLatestNDVI     *float64
	SentinelMonthsData     int
	SentinelDataSource     TrendSource
	SentinelScanDate       *time.Time

	// Pass 2 (scene comparison)
	PlanetSceneCount       int
	PlanetChangeScore      *float64
	PlanetTemporalSpanDays int
	PlanetLatestDate       *time.Time
	PlanetEarliestDate     *time.Time
	PlanetThumbLatestURL   string
	PlanetThumbEarliestURL string
	PlanetScanDate         *time.Time

	// Pass 2.25 (vacancy)
	USPSVacant           *bool
	USPSDPVConfirmed     bool
	USPSCanonicalCity    string
	USPSCanonicalState   string
	USPSCanonicalZip     string
	USPSAddressMismatch  bool
	USPSCheckDate        *time.Time
	USPSError            string
	FlagVacancy          bool
	VacancyConfidence    *float64

	// Pass 2.5 (conviction)
	ConvictionScore        *float64
	ConvictionBaseScore    *float64
	ConvictionVacancyBonus float64
	ConvictionComponents   *FlagSet
	MCRaw                  float64
	MCCount                int
	ConvictionDate         *time.Time
}

// Key returns the store's natural unique key.
func (p Parcel) Key() (county, state, parcelID string) {
	return p.County, p.State, p.ParcelID
}

// Scanned reports whether Pass 1 has ever written this parcel.
func (p Parcel) Scanned() bool { return p.ScanDate != nil }

// SentinelEnrichable reports eligibility for Pass 1.75.
func (p Parcel) SentinelEnrichable() bool {
	return p.SentinelWorthy && p.SentinelScanDate == nil
}

// MotivationSignal is the external, read-only input the scoring engine
// aggregates into mc_raw / mc_count. Producer lives outside this system.
type MotivationSignal struct {
	ParcelRef  string
	Weight     float64
	Confidence float64
	Code       string
	Active     bool
	ExpiresAt  *time.Time
}
