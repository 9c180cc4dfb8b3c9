package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/geocode"
	"github.com/yair/conference-portal/pkg/logging"
)

// NominatimClient queries an OpenStreetMap Nominatim search endpoint.
// Every call is preceded by a wait of at least Delay, as the public instance's usage policy asks.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
}

func NewNominatimClient(config NominatimConfig) (*NominatimClient, error) {
	if config.UserAgent == "" {
		return nil, fmt.Errorf("nominatim user agent is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Delay <= 0 {
		config.Delay = time.Second
	}

	// The initial token is spent up front so even the first call waits Delay.
	limiter := rate.NewLimiter(rate.Every(config.Delay), 1)
	limiter.Allow()

	return &NominatimClient{
		baseURL:   config.BaseURL,
		userAgent: config.UserAgent,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
	}, nil
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for query, geocode.ErrNotFound when the
// search came back empty, or a wrapped domain.ErrExternalAPIFailure.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (domain.Coordinates, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: rate limiter: %v", domain.ErrExternalAPIFailure, err)
	}

	searchURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: nominatim search: %v", domain.ErrExternalAPIFailure, err)
	}
	defer resp.Body.Close()

	logging.Debug("nominatim search", "query", query, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.Coordinates{}, fmt.Errorf("%w: nominatim", domain.ErrRateLimitExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("%w: nominatim search failed: status %d", domain.ErrExternalAPIFailure, resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: failed to decode search response: %v", domain.ErrExternalAPIFailure, err)
	}
	if len(places) == 0 {
		return domain.Coordinates{}, geocode.ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: bad latitude %q", domain.ErrExternalAPIFailure, places[0].Lat)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: bad longitude %q", domain.ErrExternalAPIFailure, places[0].Lon)
	}

	return domain.Coordinates{Lat: lat, Lng: lng}, nil
}
