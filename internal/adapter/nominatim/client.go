// Package nominatim implements domain.Geocoder against an OpenStreetMap
// Nominatim search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

const providerName = "nominatim"

// Client queries Nominatim's /search endpoint. Nominatim's usage policy
// requires an identifying User-Agent on every request.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Nominatim client rooted at baseURL.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Geocode returns the single best match for query, or nil when Nominatim
// has no result.
func (c *Client) Geocode(ctx context.Context, query string) (*domain.GeocodingResult, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.GeocodingError{Type: domain.ErrorTypeInvalidRequest, Message: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.ClassifyHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, &domain.GeocodingError{Type: domain.ErrorTypeUnknown, Message: "decode response", Err: err}
	}
	if len(places) == 0 {
		c.logger.Debug("nominatim returned no results", "query", query)
		return nil, nil
	}

	return places[0].result()
}

// place is one element of a jsonv2 search response. Coordinates arrive as
// decimal strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) result() (*domain.GeocodingResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, &domain.GeocodingError{Type: domain.ErrorTypeUnknown, Message: fmt.Sprintf("invalid latitude %q", p.Lat), Err: err}
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, &domain.GeocodingError{Type: domain.ErrorTypeUnknown, Message: fmt.Sprintf("invalid longitude %q", p.Lon), Err: err}
	}
	return &domain.GeocodingResult{
		Lat:         lat,
		Lon:         lon,
		DisplayName: p.DisplayName,
		Provider:    providerName,
	}, nil
}
