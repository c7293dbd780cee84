// Package flood collects FEMA National Flood Hazard Layer zone data,
// grounded on original_source/src/fema/client.py and
// original_source/src/fema/flood.py. Map-tile export is not implemented (it
// feeds a dashboard this module does not own); the zone/risk classification
// is the part the scoring pipeline consumes.
package flood

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"distressscan/internal/cache"
	"distressscan/internal/domain"
)

const nfhlQueryURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28/query"

type Tag string

const (
	TagOK    Tag = "ok"
	TagError Tag = "error"
)

// Class maps a collector tag onto the ok/transient/permanent outcome
// taxonomy spec.md §7 uses for retry eligibility; flood collection has no
// "no data at this point" outcome distinct from a fetch failure, so every
// non-OK tag is transient.
func (t Tag) Class() string {
	if t == TagOK {
		return "ok"
	}
	return "transient"
}

// Result mirrors fema_flood()'s returned fields relevant to scoring.
type Result struct {
	Tag         Tag
	FloodZone   string
	RiskLevel   domain.FEMARisk
	IsSFHA      bool
	Floodway    string
	ZoneSubtype string
	Flag        bool
	Confidence  float64
	Err         error
}

// Client queries the FEMA NFHL ArcGIS REST layer.
type Client struct {
	http  *http.Client
	cache *cache.Cache[Result]
}

func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{http: httpClient, cache: cache.New[Result](nil)}
}

type nfhlResponse struct {
	Features []struct {
		Attributes struct {
			FLD_ZONE  string `json:"FLD_ZONE"`
			ZONE_SUBTY string `json:"ZONE_SUBTY"`
			SFHA_TF   string `json:"SFHA_TF"`
		} `json:"attributes"`
	} `json:"features"`
}

// QueryFloodZone returns the flood zone classification at a point.
func (c *Client) QueryFloodZone(ctx context.Context, p domain.Point) Result {
	key := fmt.Sprintf("fema:%.6f,%.6f", p.Lat, p.Lng)
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
	q.Set("inSR", "4326")
	q.Set("spatialRel", "esriSpatialRelIntersects")
	q.Set("outFields", "FLD_ZONE,ZONE_SUBTY,SFHA_TF")
	q.Set("returnGeometry", "false")
	q.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nfhlQueryURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	var parsed nfhlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{Tag: TagError, Err: err}
	}
	if len(parsed.Features) == 0 {
		r := Result{Tag: TagOK, RiskLevel: domain.FEMAUnknown}
		c.cache.Set(key, r, 30*24*time.Hour)
		return r
	}

	attrs := parsed.Features[0].Attributes
	zone := attrs.FLD_ZONE
	r := Result{
		Tag:         TagOK,
		FloodZone:   zone,
		ZoneSubtype: attrs.ZONE_SUBTY,
		IsSFHA:      attrs.SFHA_TF == "T",
		RiskLevel:   classifyRisk(zone),
	}
	switch r.RiskLevel {
	case domain.FEMAHigh:
		r.Flag, r.Confidence = true, 1.0
	case domain.FEMAModerate:
		r.Flag, r.Confidence = true, 0.6
	}
	c.cache.Set(key, r, 30*24*time.Hour)
	return r
}

// classifyRisk buckets an NFHL zone code into the three risk tiers spec.md
// §3 defines, matching the Python client's zone-prefix rules.
func classifyRisk(zone string) domain.FEMARisk {
	switch {
	case zone == "":
		return domain.FEMAUnknown
	case zone == "AE" || zone == "AH" || zone == "AO" || zone == "A" || zone == "V" || zone == "VE":
		return domain.FEMAHigh
	case zone == "X500" || zone == "B":
		return domain.FEMAModerate
	case zone == "X" || zone == "C" || zone == "D":
		return domain.FEMALow
	default:
		return domain.FEMAUnknown
	}
}
