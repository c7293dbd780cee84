// Package trend collects the Pass 1.75 multi-month NDVI trend signal.
// Sentinel-2 (Copernicus Data Space Ecosystem) is the primary source,
// grounded on original_source/src/sentinel/client.py and
// original_source/src/sentinel/trends.py. It is the only trend source: when
// CDSE credentials are absent or the request fails, the pass 1.75 run writes
// no trend for the parcel, and no NAIP-based trend is computed in its place.
package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"distressscan/internal/domain"
)

const tokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
const statisticsURL = "https://sh.dataspace.copernicus.eu/api/v1/statistics"

type Tag string

const (
	TagOK                 Tag = "ok"
	TagNoData             Tag = "no_data"
	TagCredentialsMissing Tag = "credentials_missing"
	TagError              Tag = "error"
)

// MonthlyNDVI is one month's aggregate statistics.
type MonthlyNDVI struct {
	Month string
	Mean  float64
	Std   float64
}

// Result mirrors sentinel_trends()'s relevant fields.
type Result struct {
	Tag            Tag
	Monthly        []MonthlyNDVI
	TrendSlope     *float64
	TrendDirection domain.TrendDirection
	LatestNDVI     *float64
	Err            error
}

// Client wraps the Copernicus Data Space Ecosystem Statistics API.
type Client struct {
	clientID, clientSecret string
	http                   *http.Client
	token                  string
	tokenExpiry            time.Time
}

func New(clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{clientID: clientID, clientSecret: clientSecret, http: httpClient}
}

// NewFromEnv reads SENTINEL_CLIENT_ID/SENTINEL_CLIENT_SECRET.
func NewFromEnv(httpClient *http.Client) *Client {
	return New(os.Getenv("SENTINEL_CLIENT_ID"), os.Getenv("SENTINEL_CLIENT_SECRET"), httpClient)
}

func (c *Client) Available() bool { return c.clientID != "" && c.clientSecret != "" }

// MonthlyTrend fetches up to `months` months of NDVI statistics ending now
// and computes a least-squares linear trend.
func (c *Client) MonthlyTrend(ctx context.Context, p domain.Point, months int) Result {
	if !c.Available() {
		return Result{Tag: TagCredentialsMissing}
	}
	if err := c.ensureToken(ctx); err != nil {
		return Result{Tag: TagError, Err: err}
	}

	end := time.Now()
	start := end.AddDate(0, -months, 0)
	monthly, err := c.fetchMonthlyStatistics(ctx, p, start, end)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	if len(monthly) == 0 {
		return Result{Tag: TagNoData}
	}

	slope, direction := linearTrend(monthly)
	latest := monthly[len(monthly)-1].Mean

	return Result{
		Tag:            TagOK,
		Monthly:        monthly,
		TrendSlope:     slope,
		TrendDirection: direction,
		LatestNDVI:     &latest,
	}
}

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-60*time.Second)) {
		return nil
	}
	form := fmt.Sprintf("grant_type=client_credentials&client_id=%s&client_secret=%s", c.clientID, c.clientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, newStringReader(form))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sentinel token: status %d", resp.StatusCode)
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	c.token = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return nil
}

func (c *Client) fetchMonthlyStatistics(ctx context.Context, p domain.Point, start, end time.Time) ([]MonthlyNDVI, error) {
	bufferMeters := 50.0
	latOffset := bufferMeters / 111_000
	lngOffset := bufferMeters / (111_000 * math.Cos(p.Lat*math.Pi/180))
	bbox := [4]float64{p.Lng - lngOffset, p.Lat - latOffset, p.Lng + lngOffset, p.Lat + latOffset}

	body := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{"bbox": bbox},
		},
		"aggregation": map[string]any{
			"timeRange": map[string]any{
				"from": start.Format("2006-01-02T00:00:00Z"),
				"to":   end.Format("2006-01-02T23:59:59Z"),
			},
			"aggregationInterval": map[string]any{"of": "P1M"},
			"evalscript":          ndviEvalscript,
		},
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, statisticsURL, newBytesReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentinel statistics: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Data []struct {
			Interval struct{ From string `json:"from"` } `json:"interval"`
			Outputs  map[string]struct {
				Bands map[string]struct {
					Stats struct {
						Mean   float64 `json:"mean"`
						StDev  float64 `json:"stDev"`
					} `json:"stats"`
				} `json:"bands"`
			} `json:"outputs"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	out := make([]MonthlyNDVI, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		ndvi, ok := d.Outputs["ndvi"]
		if !ok {
			continue
		}
		band, ok := ndvi.Bands["B0"]
		if !ok {
			continue
		}
		month := d.Interval.From
		if len(month) >= 7 {
			month = month[:7]
		}
		out = append(out, MonthlyNDVI{Month: month, Mean: band.Stats.Mean, Std: band.Stats.StDev})
	}
	return out, nil
}

const ndviEvalscript = `//VERSION=3
function setup() {
  return {input: ["B04","B08","dataMask"], output: {bands: 1}};
}
function evaluatePixel(s) {
  let denom = s.B08 + s.B04;
  return [denom === 0 ? 0 : (s.B08 - s.B04) / denom];
}`

// linearTrend fits a least-squares line to monthly means, matching the
// Python client's np.polyfit(x, y, 1) with the same +-0.005/month
// stable-band thresholds.
func linearTrend(monthly []MonthlyNDVI) (*float64, domain.TrendDirection) {
	if len(monthly) < 3 {
		return nil, domain.TrendInsufficientData
	}
	n := float64(len(monthly))
	var sumX, sumY, sumXY, sumXX float64
	for i, m := range monthly {
		x := float64(i)
		sumX += x
		sumY += m.Mean
		sumXY += x * m.Mean
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil, domain.TrendInsufficientData
	}
	slope := (n*sumXY - sumX*sumY) / denom

	var direction domain.TrendDirection
	switch {
	case slope > 0.005:
		direction = domain.TrendIncreasing
	case slope < -0.005:
		direction = domain.TrendDecreasing
	default:
		direction = domain.TrendStable
	}
	return &slope, direction
}
