// Package address (vacancy.go) implements the USPS Address API v3 vacancy
// check, grounded on original_source/src/usps/vacancy.py. The random
// inter-request delay and escalating 429 backoff described there are
// implemented by internal/ratelimit.Governor rather than duplicated here —
// this file owns only the USPS-specific request/response shape and the
// situs-to-city/zip fallback via Geocoder.
package address

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"distressscan/internal/domain"
	"distressscan/internal/ratelimit"
)

const (
	uspsTokenURL   = "https://apis.usps.com/oauth2/v3/token"
	uspsAddressURL = "https://apis.usps.com/addresses/v3/address"
)

// VacancyResult mirrors VacancyResult in the Python client.
type VacancyResult struct {
	Vacant          *bool
	DPVConfirmed    *bool
	Business        *bool
	CarrierRoute    string
	USPSAddress     string
	USPSCity        string
	USPSState       string
	USPSZip         string
	USPSZip4        string
	AddressMismatch bool
	Err             string
}

// Checker performs rate-governed USPS vacancy checks for one credential.
type Checker struct {
	clientID, clientSecret string
	http                   *http.Client
	governor               *ratelimit.Governor
	geocoder               *Geocoder
}

// NewChecker builds a Checker whose Authenticate method the governor calls
// lazily; gov should be constructed with this Checker as its Authenticator.
func NewChecker(clientID, clientSecret string, httpClient *http.Client, geocoder *Geocoder) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Checker{clientID: clientID, clientSecret: clientSecret, http: httpClient, geocoder: geocoder}
	c.governor = ratelimit.New(ratelimit.DefaultConfig(), c)
	return c
}

// Authenticate implements ratelimit.Authenticator.
func (c *Checker) Authenticate(ctx context.Context) (string, time.Time, error) {
	body, _ := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uspsTokenURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("usps token: status %d", resp.StatusCode)
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", time.Time{}, err
	}
	expiry := time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	if parsed.ExpiresIn == 0 {
		expiry = time.Now().Add(time.Hour)
	}
	return parsed.AccessToken, expiry, nil
}

// CheckAddress validates and checks vacancy for one parcel's situs,
// auto-resolving city/zip via Nominatim when the situs alone is
// insufficient and the parcel carries county+state (and optionally
// coordinates for disambiguation).
func (c *Checker) CheckAddress(ctx context.Context, p domain.Parcel) VacancyResult {
	situs := SplitSitus(p.SitusAddress, p.State, "")

	if situs.City == "" && situs.ZipCode == "" && p.County != "" && p.State != "" && c.geocoder != nil {
		var pt *domain.Point
		if p.HasCoords {
			pt = &domain.Point{Lat: p.Lat, Lng: p.Lng}
		}
		geo := c.geocoder.ResolveCityZip(ctx, situs.Street, p.County, p.State, pt)
		if geo.City != "" {
			situs.City = geo.City
		}
		if geo.Zip != "" {
			situs.ZipCode = geo.Zip
		}
	}

	token, err := c.governor.Acquire(ctx)
	if err != nil {
		return VacancyResult{Err: err.Error()}
	}

	req, err := c.buildRequest(ctx, token, situs)
	if err != nil {
		return VacancyResult{Err: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.governor.Feedback(ctx, ratelimit.Feedback{Err: err})
		return VacancyResult{Err: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.governor.Feedback(ctx, ratelimit.Feedback{StatusCode: resp.StatusCode, RetryAfter: retryAfter})
		return VacancyResult{Err: "rate_limited"}
	}
	if resp.StatusCode >= 500 {
		c.governor.Feedback(ctx, ratelimit.Feedback{StatusCode: resp.StatusCode})
		return VacancyResult{Err: fmt.Sprintf("http_%d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		c.governor.Feedback(ctx, ratelimit.Feedback{StatusCode: resp.StatusCode})
		return VacancyResult{Err: fmt.Sprintf("http_%d", resp.StatusCode)}
	}
	c.governor.Feedback(ctx, ratelimit.Feedback{StatusCode: resp.StatusCode})

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return VacancyResult{Err: err.Error()}
	}
	var parsed struct {
		Address struct {
			StreetAddress string `json:"streetAddress"`
			City          string `json:"city"`
			State         string `json:"state"`
			ZIPCode       string `json:"ZIPCode"`
			ZIPPlus4      string `json:"ZIPPlus4"`
		} `json:"address"`
		AdditionalInfo struct {
			Vacant          string `json:"vacant"`
			DPVConfirmation string `json:"DPVConfirmation"`
			Business        string `json:"business"`
			CarrierRoute    string `json:"carrierRoute"`
		} `json:"additionalInfo"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return VacancyResult{Err: err.Error()}
	}

	result := VacancyResult{
		CarrierRoute: parsed.AdditionalInfo.CarrierRoute,
		USPSAddress:  parsed.Address.StreetAddress,
		USPSCity:     parsed.Address.City,
		USPSState:    parsed.Address.State,
		USPSZip:      parsed.Address.ZIPCode,
		USPSZip4:     parsed.Address.ZIPPlus4,
	}
	result.Vacant = yesNo(parsed.AdditionalInfo.Vacant)
	result.DPVConfirmed = dpvConfirmed(parsed.AdditionalInfo.DPVConfirmation)
	result.Business = yesNo(parsed.AdditionalInfo.Business)
	result.AddressMismatch = DetectMismatch(situs.Street, result.USPSAddress)
	return result
}

func (c *Checker) buildRequest(ctx context.Context, token string, situs Situs) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uspsAddressURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("streetAddress", situs.Street)
	if situs.City != "" {
		q.Set("city", situs.City)
	}
	if situs.State != "" {
		q.Set("state", situs.State)
	}
	if situs.ZipCode != "" {
		q.Set("ZIPCode", situs.ZipCode)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func yesNo(v string) *bool {
	switch v {
	case "Y":
		b := true
		return &b
	case "N":
		b := false
		return &b
	default:
		return nil
	}
}

func dpvConfirmed(v string) *bool {
	switch v {
	case "Y", "S", "D":
		b := v == "Y"
		return &b
	case "N":
		b := false
		return &b
	default:
		return nil
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
