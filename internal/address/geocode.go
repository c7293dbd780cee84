// Package address (geocode.go) implements the Nominatim city/ZIP resolver
// used when a parcel's situs carries street + county but no city or ZIP,
// grounded on original_source/src/usps/geocode.py. Positive results cache
// for the process lifetime; negative results expire after 10 minutes,
// which is why internal/cache.Cache supports per-Set TTLs instead of one
// fixed cache-wide TTL.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"distressscan/internal/cache"
	"distressscan/internal/domain"
)

const nominatimURL = "https://nominatim.openstreetmap.org/search"
const nominatimMinInterval = time.Second
const negativeTTL = 10 * time.Minute

// Confidence reports how certain the resolved city/zip are.
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceAmbiguous Confidence = "ambiguous"
	ConfidenceNone      Confidence = "none"
)

// GeoResult is resolve_city_zip()'s return value.
type GeoResult struct {
	City       string
	Zip        string
	Confidence Confidence
}

// Geocoder is a single-flight-rate-limited Nominatim client (1 req/sec per
// the usage policy original_source/src/usps/geocode.py documents).
type Geocoder struct {
	http        *http.Client
	cache       *cache.Cache[GeoResult]
	lastRequest time.Time
	nowFn       func() time.Time
	sleepFn     func(time.Duration)
}

func NewGeocoder(httpClient *http.Client) *Geocoder {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{
		http:    httpClient,
		cache:   cache.New[GeoResult](nil),
		nowFn:   time.Now,
		sleepFn: time.Sleep,
	}
}

func cacheKey(street, county, state string) string {
	return fmt.Sprintf("%s|%s|%s", strings.ToUpper(strings.TrimSpace(street)), strings.ToUpper(strings.TrimSpace(county)), strings.ToUpper(strings.TrimSpace(state)))
}

// ResolveCityZip resolves city and ZIP from street+county+state, optionally
// disambiguating multiple Nominatim hits by distance to point p.
func (g *Geocoder) ResolveCityZip(ctx context.Context, street, county, state string, p *domain.Point) GeoResult {
	key := cacheKey(street, county, state)
	if cached, ok := g.cache.Get(key); ok {
		return cached
	}

	if elapsed := g.nowFn().Sub(g.lastRequest); g.lastRequest.IsZero() == false && elapsed < nominatimMinInterval {
		g.sleepFn(nominatimMinInterval - elapsed)
	}

	q := url.Values{}
	q.Set("street", street)
	q.Set("county", county+" County")
	q.Set("state", state)
	q.Set("country", "US")
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nominatimURL+"?"+q.Encode(), nil)
	if err != nil {
		return g.negative(key)
	}
	req.Header.Set("User-Agent", "DistressScanner/1.0")

	resp, err := g.http.Do(req)
	g.lastRequest = g.nowFn()
	if err != nil {
		return g.negative(key)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return g.negative(key)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return g.negative(key)
	}

	var hits []nominatimHit
	if err := json.Unmarshal(body, &hits); err != nil || len(hits) == 0 {
		return g.negative(key)
	}

	if len(hits) > 1 && p != nil {
		sortByDistance(hits, *p)
	}

	best := hits[0]
	city := firstNonEmpty(best.Address.City, best.Address.Town, best.Address.Village, best.Address.Hamlet)
	zip := best.Address.Postcode
	if len(zip) > 5 {
		zip = zip[:5]
	}

	confidence := ConfidenceExact
	if len(hits) > 1 {
		confidence = ConfidenceAmbiguous
	}
	if city == "" && zip == "" {
		confidence = ConfidenceNone
	}

	result := GeoResult{City: city, Zip: zip, Confidence: confidence}
	ttl := time.Duration(0)
	if confidence == ConfidenceNone {
		ttl = negativeTTL
	}
	g.cache.Set(key, result, ttl)
	return result
}

func (g *Geocoder) negative(key string) GeoResult {
	result := GeoResult{Confidence: ConfidenceNone}
	g.cache.Set(key, result, negativeTTL)
	return result
}

type nominatimHit struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Hamlet   string `json:"hamlet"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func sortByDistance(hits []nominatimHit, p domain.Point) {
	dist := func(h nominatimHit) float64 {
		lat, _ := parseFloat(h.Lat)
		lng, _ := parseFloat(h.Lon)
		return haversineMeters(p.Lat, p.Lng, lat, lng)
	}
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && dist(hits[j-1]) > dist(hits[j]) {
			hits[j-1], hits[j] = hits[j], hits[j-1]
			j--
		}
	}
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusM = 6_371_000.0
	rlat1, rlat2 := lat1*math.Pi/180, lat2*math.Pi/180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%f", &f)
	return f, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
