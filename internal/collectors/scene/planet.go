// Package scene collects PlanetScope scene-pair comparisons for the Pass 2
// scene-comparison step, grounded on original_source/src/planet/client.py
// (planet_refine). Planet requires a paid API key; callers without one get
// TagUpgradeRequired rather than an error, matching the Python client's
// "available" gate.
package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"sort"
	"time"

	_ "image/png"

	"distressscan/internal/domain"
)

const (
	dataAPI  = "https://api.planet.com/data/v1"
	tilesAPI = "https://tiles.planet.com/data/v1"

	minTemporalSpanDays = 180
	maxTemporalSpanDays = 365
)

type Tag string

const (
	TagOK              Tag = "ok"
	TagNoData          Tag = "no_data"
	TagUpgradeRequired Tag = "upgrade_required"
	TagError           Tag = "error"
)

// Result mirrors planet_refine()'s relevant fields.
type Result struct {
	Tag               Tag
	SceneCount        int
	TemporalSpanDays  int
	ChangeScore       *float64
	LatestDate        time.Time
	EarliestDate      time.Time
	ThumbLatestURL    string
	ThumbEarliestURL  string
	Err               error
}

// Uploader persists thumbnail bytes and returns a retrievable URL,
// satisfied by internal/objectstore.Store.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

type scene struct {
	ID       string `json:"id"`
	ItemType string `json:"item_type"`
	Acquired string `json:"acquired"`
}

// Client wraps the Planet Labs Data API v1.
type Client struct {
	apiKey string
	http   *http.Client
	up     Uploader
}

func New(apiKey string, httpClient *http.Client, up Uploader) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiKey: apiKey, http: httpClient, up: up}
}

// Available reports whether a Planet API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// Refine performs the two-search, two-thumbnail scene-pair comparison and
// computes a brightness-delta change_score, budgeted at 4 requests/parcel.
func (c *Client) Refine(ctx context.Context, p domain.Point) Result {
	if !c.Available() {
		return Result{Tag: TagUpgradeRequired}
	}

	recent, err := c.searchScenes(ctx, p, time.Now().AddDate(0, -1, 0), time.Now(), 0.30, 5)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}
	if len(recent) == 0 {
		return Result{Tag: TagNoData}
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].acquired.After(recent[j].acquired) })
	latest := recent[0]

	histEnd := latest.acquired.AddDate(0, 0, -minTemporalSpanDays)
	histStart := latest.acquired.AddDate(0, 0, -maxTemporalSpanDays)
	historical, err := c.searchScenes(ctx, p, histStart, histEnd, 0.20, 5)
	if err != nil {
		return Result{Tag: TagError, Err: err}
	}

	var earliest *sceneWithDate
	for _, s := range historical {
		span := int(latest.acquired.Sub(s.acquired).Hours() / 24)
		if span > maxTemporalSpanDays {
			continue
		}
		if span >= minTemporalSpanDays {
			cp := s
			earliest = &cp
			break
		}
	}

	result := Result{
		Tag:          TagOK,
		SceneCount:   len(recent) + len(historical),
		LatestDate:   latest.acquired,
	}
	if earliest != nil {
		result.EarliestDate = earliest.acquired
		result.TemporalSpanDays = int(latest.acquired.Sub(earliest.acquired).Hours() / 24)
	}

	latestThumb, err := c.thumbnail(ctx, latest.scene)
	var latestBrightness, earliestBrightness *float64
	if err == nil && latestThumb != nil {
		if c.up != nil {
			key := fmt.Sprintf("planet/latest_%.6f_%.6f.png", p.Lat, p.Lng)
			if url, uerr := c.up.Upload(ctx, key, latestThumb); uerr == nil {
				result.ThumbLatestURL = url
			}
		}
		if b := meanBrightness(latestThumb); b != nil {
			latestBrightness = b
		}
	}
	if earliest != nil && earliest.scene.ID != latest.scene.ID {
		earliestThumb, err := c.thumbnail(ctx, earliest.scene)
		if err == nil && earliestThumb != nil {
			if c.up != nil {
				key := fmt.Sprintf("planet/earliest_%.6f_%.6f.png", p.Lat, p.Lng)
				if url, uerr := c.up.Upload(ctx, key, earliestThumb); uerr == nil {
					result.ThumbEarliestURL = url
				}
			}
			earliestBrightness = meanBrightness(earliestThumb)
		}
	}

	if latestBrightness != nil && earliestBrightness != nil {
		diff := *latestBrightness - *earliestBrightness
		if diff < 0 {
			diff = -diff
		}
		score := diff / 20.0
		if score > 1.0 {
			score = 1.0
		}
		result.ChangeScore = &score
	}

	return result
}

type sceneWithDate struct {
	scene    scene
	acquired time.Time
}

func (c *Client) searchScenes(ctx context.Context, p domain.Point, start, end time.Time, cloudCoverMax float64, limit int) ([]sceneWithDate, error) {
	body := map[string]any{
		"item_types": []string{"PSScene"},
		"filter": map[string]any{
			"type": "AndFilter",
			"config": []map[string]any{
				{
					"type": "GeometryFilter", "field_name": "geometry",
					"config": map[string]any{"type": "Point", "coordinates": []float64{p.Lng, p.Lat}},
				},
				{
					"type": "DateRangeFilter", "field_name": "acquired",
					"config": map[string]any{
						"gte": start.Format("2006-01-02T15:04:05Z"),
						"lte": end.Format("2006-01-02T15:04:05Z"),
					},
				},
				{
					"type": "RangeFilter", "field_name": "cloud_cover",
					"config": map[string]any{"lte": cloudCoverMax},
				},
			},
		},
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dataAPI+"/quick-search", newReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "api-key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planet quick-search: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Features []struct {
			ID         string `json:"id"`
			Properties struct {
				Acquired string `json:"acquired"`
				ItemType string `json:"item_type"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	out := make([]sceneWithDate, 0, len(parsed.Features))
	for i, feat := range parsed.Features {
		if i >= limit {
			break
		}
		acq, err := time.Parse("2006-01-02T15:04:05Z", feat.Properties.Acquired)
		if err != nil {
			continue
		}
		itemType := feat.Properties.ItemType
		if itemType == "" {
			itemType = "PSScene"
		}
		out = append(out, sceneWithDate{scene: scene{ID: feat.ID, ItemType: itemType, Acquired: feat.Properties.Acquired}, acquired: acq})
	}
	return out, nil
}

func (c *Client) thumbnail(ctx context.Context, s scene) ([]byte, error) {
	url := fmt.Sprintf("%s/item-types/%s/items/%s/thumb", tilesAPI, s.ItemType, s.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "api-key "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planet thumbnail: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// meanBrightness decodes a PNG thumbnail and returns the mean grayscale
// pixel value, mirroring the Python client's PIL-based brightness metric.
func meanBrightness(data []byte) *float64 {
	img, _, err := image.Decode(newReader(data))
	if err != nil {
		return nil
	}
	bounds := img.Bounds()
	var sum, count float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray := (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8))
			sum += gray
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / count
	return &mean
}
