// Package weather fetches current outdoor conditions from an
// Open-Meteo-compatible endpoint. The assembler uses it best-effort: a
// failed lookup degrades the answer, it never blocks one.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prostat/joule-agent/internal/httpkit"
)

// DefaultTimeout keeps weather lookups from stalling answer assembly.
const DefaultTimeout = 5 * time.Second

// Current holds the observations the calculators care about.
type Current struct {
	TemperatureF float64 `json:"temperature"`
	HumidityPct  float64 `json:"humidity"`
	WindMPH      float64 `json:"windSpeed"`
	ObservedAt   time.Time `json:"observedAt"`
}

// Client queries an Open-Meteo-compatible forecast API.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a weather client. baseURL is the API root, e.g.
// "https://api.open-meteo.com/v1".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  httpkit.NewClient(httpkit.WithTimeout(timeout)),
	}
}

type currentResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		Time        string  `json:"time"`
	} `json:"current"`
}

// Fetch returns current conditions at the given coordinates.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*Current, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}

	cur := &Current{
		TemperatureF: body.Current.Temperature,
		HumidityPct:  body.Current.Humidity,
		WindMPH:      body.Current.WindSpeed,
	}
	if t, err := time.Parse("2006-01-02T15:04", body.Current.Time); err == nil {
		cur.ObservedAt = t
	}
	return cur, nil
}
