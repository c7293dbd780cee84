// Package aerial collects NDVI and band imagery from the USGS NAIP
// ArcGIS ImageServer (free, keyless) — grounded on
// original_source/src/naip/client.py. It is the aerial signal collector
// named in spec.md §4.2 for both the current-year scan (pass 1) and the
// historical year-by-year query behind the pass 1.5 NDVI slope.
package aerial

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"distressscan/internal/cache"
	"distressscan/internal/domain"
)

const defaultBaseURL = "https://imagery.nationalmap.gov/arcgis/rest/services/USGSNAIPPlus/ImageServer"

// NAIPYearsToCheck mirrors the Python client's rotating coverage cycle.
var NAIPYearsToCheck = []int{2023, 2022, 2021, 2020, 2019, 2018, 2016, 2014, 2012}

// Result is the tagged-union outcome of an NDVI query (spec.md §9
// "Polymorphism over collectors": every collector returns a result plus a
// tag rather than a bare error, so callers can distinguish "no imagery
// here" from "transient failure").
type Result struct {
	Tag             Tag
	NDVI            float64
	Red, Green, Blue, NIR float64
	AcquisitionDate string
	Err             error
}

type Tag string

const (
	TagOK      Tag = "ok"
	TagNoData  Tag = "no_data"
	TagNoNIR   Tag = "no_nir_band"
	TagError   Tag = "error"
)

// Class maps a collector tag onto the ok/transient/permanent outcome
// taxonomy spec.md §7 uses for retry eligibility: TagError is a network/5xx/
// decode failure worth retrying next pass1 run, while TagNoData and
// TagNoNIR mean NAIP has nothing usable at this coordinate — retrying won't
// change that, so they are terminal for this collector.
func (t Tag) Class() string {
	switch t {
	case TagOK:
		return "ok"
	case TagError:
		return "transient"
	default:
		return "permanent"
	}
}

// Client queries the NAIP ImageServer's identify endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache[Result]
	cacheTTL time.Duration
}

// New builds a NAIP client with a 7-day response cache, matching the
// Python client's CACHE_TTL_SECONDS.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  defaultBaseURL,
		http:     httpClient,
		cache:    cache.New[Result](nil),
		cacheTTL: 7 * 24 * time.Hour,
	}
}

type identifyResponse struct {
	Value        string `json:"value"`
	CatalogItems struct {
		Features []struct {
			Attributes map[string]any `json:"attributes"`
		} `json:"features"`
	} `json:"catalogItems"`
}

// ComputeNDVI returns the current NDVI at a point via the default mosaic
// (most recent coverage).
func (c *Client) ComputeNDVI(ctx context.Context, p domain.Point) Result {
	return c.query(ctx, p, nil)
}

// NDVIForYear targets a specific NAIP acquisition year via a mosaicRule,
// used by the pass 1.5 historical slope.
func (c *Client) NDVIForYear(ctx context.Context, p domain.Point, year int) Result {
	rule := map[string]any{
		"mosaicMethod": "esriMosaicAttribute",
		"sortField":    "Year",
		"sortValue":    strconv.Itoa(year),
		"ascending":    true,
		"where":        fmt.Sprintf("Year = %d AND Category = 1", year),
	}
	r := c.query(ctx, p, rule)
	if r.AcquisitionDate == "" && r.Tag == TagOK {
		r.AcquisitionDate = fmt.Sprintf("%d-01-01", year)
	}
	return r
}

func (c *Client) cacheKey(p domain.Point, year int) string {
	return fmt.Sprintf("naip:%.6f,%.6f:%d", p.Lat, p.Lng, year)
}

func (c *Client) query(ctx context.Context, p domain.Point, mosaicRule map[string]any) Result {
	year := 0
	if mosaicRule != nil {
		if sv, ok := mosaicRule["sortValue"].(string); ok {
			year, _ = strconv.Atoi(sv)
		}
	}
	key := c.cacheKey(p, year)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	geometry, _ := json.Marshal(map[string]any{
		"x": p.Lng, "y": p.Lat,
		"spatialReference": map[string]any{"wkid": 4326},
	})
	q := url.Values{}
	q.Set("geometry", string(geometry))
	q.Set("geometryType", "esriGeometryPoint")
	q.Set("returnCatalogItems", "true")
	q.Set("returnGeometry", "false")
	q.Set("f", "json")
	if mosaicRule != nil {
		rule, _ := json.Marshal(mosaicRule)
		q.Set("mosaicRule", string(rule))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/identify?"+q.Encode(), nil)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Tag: TagError, Err: fmt.Errorf("naip identify: status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	var parsed identifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{Tag: TagError, Err: err}
	}

	result := parseBandsAndNDVI(parsed.Value)
	result.AcquisitionDate = extractAcquisitionDate(parsed.CatalogItems.Features)

	c.cache.Set(key, result, c.cacheTTL)
	return result
}

func parseBandsAndNDVI(valueStr string) Result {
	if valueStr == "" || valueStr == "NoData" || valueStr == "Pixel value is NoData" {
		return Result{Tag: TagNoData}
	}
	fields := strings.Fields(strings.ReplaceAll(valueStr, ",", " "))
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Result{Tag: TagError, Err: fmt.Errorf("band_parse_failure: %w", err)}
		}
		values = append(values, v)
	}
	switch {
	case len(values) >= 4:
		red, green, blue, nir := values[0], values[1], values[2], values[3]
		ndvi := 0.0
		if denom := nir + red; denom != 0 {
			ndvi = math.Round((nir-red)/denom*10000) / 10000
		}
		return Result{Tag: TagOK, NDVI: ndvi, Red: red, Green: green, Blue: blue, NIR: nir}
	case len(values) == 3:
		return Result{Tag: TagNoNIR, Red: values[0], Green: values[1], Blue: values[2]}
	default:
		return Result{Tag: TagError, Err: fmt.Errorf("unexpected_band_count: %d", len(values))}
	}
}

func extractAcquisitionDate(features []struct {
	Attributes map[string]any `json:"attributes"`
}) string {
	for _, feat := range features {
		if cat, ok := feat.Attributes["Category"]; !ok || toFloat(cat) != 1 {
			continue
		}
		if acq, ok := feat.Attributes["acquisition_date"]; ok {
			if ms := toFloat(acq); ms > 1e10 {
				return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02")
			}
		}
	}
	for _, feat := range features {
		if yr, ok := feat.Attributes["Year"]; ok {
			return fmt.Sprintf("%d-01-01", int(toFloat(yr)))
		}
	}
	return ""
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return 0
	}
}
