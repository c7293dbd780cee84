// Package store implements the parcel persistence layer (C1): schema
// migration, the per-pass selection queries, and the batched result writes.
// Grounded on original_source/src/db.py, which keeps every scan column on
// one flat table (gis_parcels_core) rather than a normalized schema — this
// package keeps that shape, renamed to "parcels", and swaps psycopg2's
// execute_batch chunking for pgx/v5's native batch protocol (pgx.Batch),
// following the connection-pool pattern in
// Outblock-flowindex/backend/internal/repository/postgres.go.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"distressscan/internal/domain"
)

// Store wraps a pgxpool connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the pool and verifies connectivity with a ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Migrate runs the idempotent schema migration. Mirrors the
// migrate_add_*_columns functions in db.py: ALTER TABLE ... ADD COLUMN IF NOT
// EXISTS wrapped so repeated runs are safe, plus the partial indexes spec.md
// §4.1 names for the hot selection queries.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS parcels (
			county               TEXT NOT NULL,
			state                TEXT NOT NULL,
			parcel_id            TEXT NOT NULL,
			latitude             DOUBLE PRECISION,
			longitude            DOUBLE PRECISION,
			situs_address        TEXT,
			mailing_city         TEXT,
			mailing_state        TEXT,
			mailing_zip          TEXT,
			property_class       TEXT,
			total_value          DOUBLE PRECISION,
			sq_ft                DOUBLE PRECISION,
			PRIMARY KEY (county, state, parcel_id)
		)`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_score REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_category TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS fema_zone TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS fema_risk TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS fema_sfha BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS distress_score REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS distress_flags TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flag_veg_overgrowth BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flag_veg_neglect BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flag_flood BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flag_structural BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS veg_overgrowth_confidence REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS veg_neglect_confidence REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flood_confidence REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS structural_confidence REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS scan_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS scan_pass REAL DEFAULT 0`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_worthy BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_slope_5yr REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_slope_pctile REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_history_count SMALLINT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS ndvi_history_years TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS distress_composite REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS composite_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_trend_direction TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_trend_slope REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_latest_ndvi REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_months_data SMALLINT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_data_source TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS sentinel_scan_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_scene_count SMALLINT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_change_score REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_temporal_span_days SMALLINT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_latest_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_earliest_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_thumb_latest_url TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_thumb_earliest_url TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS planet_scan_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_vacant BOOLEAN`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_dpv_confirmed BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_canonical_city TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_canonical_state TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_canonical_zip TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_address_mismatch BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_check_date TIMESTAMPTZ`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS usps_error TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS flag_vacancy BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS vacancy_confidence REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS conviction_score REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS conviction_base_score REAL`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS conviction_vacancy_bonus REAL DEFAULT 0`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS conviction_components TEXT`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS mc_raw REAL DEFAULT 0`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS mc_count SMALLINT DEFAULT 0`,
		`ALTER TABLE parcels ADD COLUMN IF NOT EXISTS conviction_date TIMESTAMPTZ`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_distress_score ON parcels (distress_score)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_distress_composite ON parcels (distress_composite)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_conviction_score ON parcels (conviction_score)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_unscanned ON parcels (county, state) WHERE scan_date IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_slope_pending ON parcels (county) WHERE ndvi_score IS NOT NULL AND ndvi_slope_5yr IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_sentinel_pending ON parcels (county) WHERE sentinel_worthy = TRUE AND sentinel_scan_date IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_usps_pending ON parcels (county) WHERE distress_composite IS NOT NULL AND usps_check_date IS NULL`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %s: %w", stmt, err)
		}
	}
	return nil
}

func scanParcel(row pgx.Rows) (domain.Parcel, error) {
	var p domain.Parcel
	var lat, lng *float64
	var femaRisk *string
	err := row.Scan(
		&p.County, &p.State, &p.ParcelID, &lat, &lng,
		&p.SitusAddress, &p.MailingCity, &p.MailingState, &p.MailingZip,
		&p.PropertyClass, &p.TotalValue, &p.SqFt,
		&p.NDVICurrent, &p.DistressScore, &p.ScanPass,
		&p.SentinelWorthy, &p.DistressComposite,
		&femaRisk, &p.FEMASFHA, &p.PlanetScanDate,
		&p.USPSVacant, &p.USPSDPVConfirmed, &p.USPSCanonicalCity, &p.USPSCanonicalState, &p.USPSCanonicalZip,
		&p.USPSAddressMismatch, &p.USPSCheckDate, &p.USPSError,
		&p.FlagVacancy, &p.VacancyConfidence,
	)
	if err != nil {
		return p, err
	}
	if lat != nil && lng != nil {
		p.Lat, p.Lng, p.HasCoords = *lat, *lng, true
	}
	if femaRisk == nil || *femaRisk == "" {
		p.FEMARisk = domain.FEMAUnknown
	} else {
		p.FEMARisk = domain.FEMARisk(*femaRisk)
	}
	return p, nil
}

const selectColumns = `county, state, parcel_id, latitude, longitude,
	situs_address, mailing_city, mailing_state, mailing_zip,
	property_class, total_value, sq_ft,
	ndvi_score, distress_score, scan_pass,
	sentinel_worthy, distress_composite,
	fema_risk, fema_sfha, planet_scan_date,
	usps_vacant, usps_dpv_confirmed, usps_canonical_city, usps_canonical_state, usps_canonical_zip,
	usps_address_mismatch, usps_check_date, usps_error,
	flag_vacancy, vacancy_confidence`

// SelectUnscanned returns parcels whose scan_date is still NULL, ordered by
// md5(parcel_id) in SQL to give a stable-but-shuffled traversal order across
// repeated runs without an ORDER BY RANDOM() full sort.
func (s *Store) SelectUnscanned(ctx context.Context, county, state, propertyClass string, limit int) ([]domain.Parcel, error) {
	query := `SELECT ` + selectColumns + ` FROM parcels WHERE county = $1 AND scan_date IS NULL`
	args := []any{county}
	idx := 2
	if state != "" {
		query += fmt.Sprintf(" AND state = $%d", idx)
		args = append(args, state)
		idx++
	}
	if propertyClass != "" {
		query += fmt.Sprintf(" AND property_class = $%d", idx)
		args = append(args, propertyClass)
		idx++
	}
	query += " ORDER BY md5(parcel_id)"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, limit)
	}
	return s.queryParcels(ctx, query, args...)
}

// SelectNeedingSlope returns scanned parcels with an NDVI reading but no
// slope computed yet.
func (s *Store) SelectNeedingSlope(ctx context.Context, county string, limit int) ([]domain.Parcel, error) {
	query := `SELECT ` + selectColumns + ` FROM parcels
		WHERE county = $1 AND ndvi_score IS NOT NULL AND ndvi_slope_5yr IS NULL
		ORDER BY md5(parcel_id)`
	args := []any{county}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryParcels(ctx, query, args...)
}

// SelectSentinelWorthy returns parcels flagged sentinel_worthy in Pass 1
// that have not yet been trend-enriched, highest distress_score first.
func (s *Store) SelectSentinelWorthy(ctx context.Context, county string, limit int) ([]domain.Parcel, error) {
	query := `SELECT ` + selectColumns + ` FROM parcels
		WHERE county = $1 AND sentinel_worthy = TRUE AND sentinel_scan_date IS NULL
		ORDER BY distress_score DESC NULLS LAST`
	args := []any{county}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryParcels(ctx, query, args...)
}

// SelectNeedingUSPS returns parcels whose distress_composite clears
// minComposite and whose most recent USPS check (if any) is older than
// cacheDays, ordered by composite descending (highest-value leads first).
func (s *Store) SelectNeedingUSPS(ctx context.Context, county string, minComposite float64, cacheDays, limit int) ([]domain.Parcel, error) {
	query := `SELECT ` + selectColumns + ` FROM parcels
		WHERE county = $1 AND distress_composite >= $2
		AND (usps_check_date IS NULL OR usps_check_date < now() - ($3 || ' days')::interval)
		ORDER BY distress_composite DESC NULLS LAST`
	args := []any{county, minComposite, cacheDays}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}
	return s.queryParcels(ctx, query, args...)
}

// SelectForConviction returns parcels eligible for Pass 2.5 re-fusion: any
// parcel carrying a distress_composite or already flagged vacant. Unlike
// the other selectors this is not a one-shot eligibility gate — Pass 2.5 is
// idempotent and may re-select the same parcels on every run.
func (s *Store) SelectForConviction(ctx context.Context, county, state string) ([]domain.Parcel, error) {
	query := `SELECT ` + selectColumns + ` FROM parcels
		WHERE county = $1 AND (distress_composite IS NOT NULL OR flag_vacancy = TRUE)`
	args := []any{county}
	if state != "" {
		query += " AND state = $2"
		args = append(args, state)
	}
	return s.queryParcels(ctx, query, args...)
}

func (s *Store) queryParcels(ctx context.Context, query string, args ...any) ([]domain.Parcel, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanResultBatchSize mirrors db.py's execute_batch chunk size (500 rows)
// for the pgx.Batch pipeline.
const scanResultBatchSize = 500

// UpdateBatch writes Pass 1 scan results (NDVI/FEMA/distress flags) for a
// batch of parcels, chunked and pipelined via pgx.Batch. scan_pass is bumped
// monotonically: scan_pass = GREATEST(scan_pass, new pass), so a row that
// already carries a higher pass keeps it.
func (s *Store) UpdateBatch(ctx context.Context, county string, results []ScanResult) (int, error) {
	stmt := `UPDATE parcels SET
		ndvi_score = $3, ndvi_date = $4, ndvi_category = $5,
		fema_zone = $6, fema_risk = $7, fema_sfha = $8,
		distress_score = $9, distress_flags = $10,
		flag_veg_overgrowth = $11, flag_veg_neglect = $12, flag_flood = $13, flag_structural = $14,
		veg_overgrowth_confidence = $15, veg_neglect_confidence = $16, flood_confidence = $17, structural_confidence = $18,
		scan_date = $19, scan_pass = GREATEST(scan_pass, $20), sentinel_worthy = $21
		WHERE parcel_id = $1 AND county = $2`

	return s.runBatch(ctx, len(results), func(b *pgx.Batch, i int) {
		r := results[i]
		b.Queue(stmt, r.ParcelID, county,
			r.NDVIScore, r.NDVIDate, r.NDVICategory,
			r.FEMAZone, r.FEMARisk, r.FEMASFHA,
			r.DistressScore, r.DistressFlags,
			r.FlagVegOvergrowth, r.FlagVegNeglect, r.FlagFlood, r.FlagStructural,
			r.VegOvergrowthConfidence, r.VegNeglectConfidence, r.FloodConfidence, r.StructuralConfidence,
			r.ScanDate, float64(r.ScanPass), r.SentinelWorthy)
	})
}

// UpdateBatchUSPS writes Pass 2.25/2.5 vacancy and conviction results.
// CheckDate is a *time.Time rather than time.Time deliberately: a transient
// USPS failure (rate-limited, 5xx) must leave usps_check_date NULL so the
// parcel stays eligible for SelectNeedingUSPS on the next run (spec.md
// §4.1/§8#2 — only success/permanent outcomes stamp the check date).
func (s *Store) UpdateBatchUSPS(ctx context.Context, county string, results []USPSResult) (int, error) {
	stmt := `UPDATE parcels SET
		usps_vacant = $3, usps_dpv_confirmed = $4, usps_canonical_city = $5,
		usps_canonical_state = $6, usps_canonical_zip = $7, usps_address_mismatch = $8,
		usps_check_date = $9, usps_error = $10, flag_vacancy = $11, vacancy_confidence = $12,
		conviction_score = $13, conviction_base_score = $14, conviction_vacancy_bonus = $15,
		conviction_components = $16, mc_raw = $17, mc_count = $18, conviction_date = $19
		WHERE parcel_id = $1 AND county = $2`

	return s.runBatch(ctx, len(results), func(b *pgx.Batch, i int) {
		r := results[i]
		b.Queue(stmt, r.ParcelID, county,
			r.Vacant, r.DPVConfirmed, r.CanonicalCity, r.CanonicalState, r.CanonicalZip,
			r.AddressMismatch, r.CheckDate, r.Err, r.FlagVacancy, r.VacancyConfidence,
			r.ConvictionScore, r.ConvictionBase, r.ConvictionVacancyBonus,
			r.ConvictionComponents, r.MCRaw, r.MCCount, r.ConvictionDate)
	})
}

// UpdateBatchSlope writes Pass 1.5 slope/history results.
func (s *Store) UpdateBatchSlope(ctx context.Context, county string, results []SlopeResult) (int, error) {
	stmt := `UPDATE parcels SET
		ndvi_slope_5yr = $3, ndvi_slope_pctile = $4,
		ndvi_history_count = $5, ndvi_history_years = $6,
		distress_composite = $7, composite_date = $8
		WHERE parcel_id = $1 AND county = $2`

	return s.runBatch(ctx, len(results), func(b *pgx.Batch, i int) {
		r := results[i]
		b.Queue(stmt, r.ParcelID, county,
			r.SlopePerYear, r.SlopePercentile, r.HistoryCount, r.HistoryYears,
			r.DistressComposite, r.CompositeDate)
	})
}

// UpdateBatchTrend writes Pass 1.75 Sentinel monthly-trend results.
func (s *Store) UpdateBatchTrend(ctx context.Context, county string, results []TrendResult) (int, error) {
	stmt := `UPDATE parcels SET
		sentinel_trend_direction = $3, sentinel_trend_slope = $4, sentinel_latest_ndvi = $5,
		sentinel_months_data = $6, sentinel_data_source = $7, sentinel_scan_date = $8
		WHERE parcel_id = $1 AND county = $2`

	return s.runBatch(ctx, len(results), func(b *pgx.Batch, i int) {
		r := results[i]
		b.Queue(stmt, r.ParcelID, county,
			r.TrendDirection, r.TrendSlope, r.LatestNDVI,
			r.MonthsData, r.DataSource, r.ScanDate)
	})
}

// UpdateBatchScene writes Pass 2 Planet Labs scene-comparison results.
func (s *Store) UpdateBatchScene(ctx context.Context, county string, results []SceneResult) (int, error) {
	stmt := `UPDATE parcels SET
		planet_scene_count = $3, planet_change_score = $4, planet_temporal_span_days = $5,
		planet_latest_date = $6, planet_earliest_date = $7,
		planet_thumb_latest_url = $8, planet_thumb_earliest_url = $9, planet_scan_date = $10
		WHERE parcel_id = $1 AND county = $2`

	return s.runBatch(ctx, len(results), func(b *pgx.Batch, i int) {
		r := results[i]
		b.Queue(stmt, r.ParcelID, county,
			r.SceneCount, r.ChangeScore, r.TemporalSpanDays,
			r.LatestDate, r.EarliestDate,
			r.ThumbLatestURL, r.ThumbEarliestURL, r.ScanDate)
	})
}

func (s *Store) runBatch(ctx context.Context, n int, queue func(b *pgx.Batch, i int)) (int, error) {
	if n == 0 {
		return 0, nil
	}
	total := 0
	for start := 0; start < n; start += scanResultBatchSize {
		end := start + scanResultBatchSize
		if end > n {
			end = n
		}
		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			queue(batch, i)
		}
		br := s.pool.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return total, fmt.Errorf("store: batch update: %w", err)
			}
			total++
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("store: batch close: %w", err)
		}
	}
	return total, nil
}

// ScanResult is one parcel's Pass 1 write payload.
type ScanResult struct {
	ParcelID                string
	NDVIScore               *float64
	NDVIDate                *time.Time
	NDVICategory            string
	FEMAZone                string
	FEMARisk                string
	FEMASFHA                bool
	DistressScore           *float64
	DistressFlags           string
	FlagVegOvergrowth       bool
	FlagVegNeglect          bool
	FlagFlood               bool
	FlagStructural          bool
	VegOvergrowthConfidence *float64
	VegNeglectConfidence    *float64
	FloodConfidence         *float64
	StructuralConfidence    *float64
	ScanDate                time.Time
	ScanPass                domain.ScanPass
	SentinelWorthy          bool
}

// SlopeResult is one parcel's Pass 1.5 write payload.
type SlopeResult struct {
	ParcelID           string
	SlopePerYear       *float64
	SlopePercentile    *float64
	HistoryCount       int
	HistoryYears       string
	DistressComposite  *float64
	CompositeDate      time.Time
}

// TrendResult is one parcel's Pass 1.75 write payload.
type TrendResult struct {
	ParcelID       string
	TrendDirection domain.TrendDirection
	TrendSlope     *float64
	LatestNDVI     *float64
	MonthsData     int
	DataSource     domain.TrendSource
	ScanDate       time.Time
}

// SceneResult is one parcel's Pass 2 write payload.
type SceneResult struct {
	ParcelID         string
	SceneCount       int
	ChangeScore      *float64
	TemporalSpanDays int
	LatestDate       time.Time
	EarliestDate     time.Time
	ThumbLatestURL   string
	ThumbEarliestURL string
	ScanDate         time.Time
}

// USPSResult is one parcel's Pass 2.25/2.5 write payload.
type USPSResult struct {
	ParcelID              string
	Vacant                *bool
	DPVConfirmed          bool
	CanonicalCity         string
	CanonicalState        string
	CanonicalZip          string
	AddressMismatch       bool
	CheckDate             *time.Time
	Err                   string
	FlagVacancy           bool
	VacancyConfidence     *float64
	ConvictionScore       *float64
	ConvictionBase        *float64
	ConvictionVacancyBonus float64
	ConvictionComponents  string
	MCRaw                 float64
	MCCount               int
	ConvictionDate        time.Time
}
