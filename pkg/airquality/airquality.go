package airquality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrUpstream = errors.New("air quality API failure")

// Reading is the first entry of an air_pollution response.
type Reading struct {
	Lat        float64
	Lon        float64
	Index      int
	Components map[string]float64
	MeasuredAt time.Time
}

type response struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
		Dt         int64              `json:"dt"`
	} `json:"list"`
}

// Client calls the OpenWeather air pollution endpoint. It performs exactly
// one request per call and does not cache.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (*Reading, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/air_pollution?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrUpstream, resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	if len(body.List) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	first := body.List[0]
	return &Reading{
		Lat:        body.Coord.Lat,
		Lon:        body.Coord.Lon,
		Index:      first.Main.AQI,
		Components: first.Components,
		MeasuredAt: time.Unix(first.Dt, 0).UTC(),
	}, nil
}
