// Package luchtmeetnet provides an air quality Provider backed by the
// Luchtmeetnet open API.
package luchtmeetnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/airquality"
	"github.com/breatheroute/aqdash/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Luchtmeetnet API.
	DefaultBaseURL = "https://api.luchtmeetnet.nl/open_api"

	// ProviderName identifies this provider.
	ProviderName = "luchtmeetnet"

	unitMicrogramsPerM3 = "µg/m³"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Luchtmeetnet client.
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient defaults to a resilient client registered in Registry.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives success/failure reports; nil disables reporting.
	Registry *resilience.Registry

	// Logger receives circuit breaker state changes.
	Logger zerolog.Logger
}

// Client is a Luchtmeetnet API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	registry   *resilience.Registry
}

// NewClient creates a new Luchtmeetnet client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		rc := resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Logger:          cfg.Logger,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
		if cfg.Registry != nil {
			cfg.Registry.Register(ProviderName, rc)
		}
		httpClient = rc
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		registry:   cfg.Registry,
	}
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

type page[T any] struct {
	Pagination pagination `json:"pagination"`
	Data       []T        `json:"data"`
}

type stationData struct {
	Number      string   `json:"number"`
	Location    string   `json:"location"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geometry.coordinates"`
	Components []string `json:"components"`
}

type measurementData struct {
	StationNumber     string  `json:"station_number"`
	Formula           string  `json:"formula"`
	Value             float64 `json:"value"`
	TimestampMeasured string  `json:"timestamp_measured"`
}

// fetchAll walks every page of a paginated endpoint.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var all []T
	for n := 1; ; n++ {
		var p page[T]
		if err := c.getJSON(ctx, fmt.Sprintf("%s/%s?page=%d", c.baseURL, endpoint, n), &p); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, n, err)
		}
		all = append(all, p.Data...)
		if n >= p.Pagination.LastPage {
			return all, nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FetchStations retrieves all monitoring stations.
func (c *Client) FetchStations(ctx context.Context) ([]*airquality.Station, error) {
	data, err := fetchAll[stationData](ctx, c, "stations")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stations := make([]*airquality.Station, 0, len(data))
	for _, s := range data {
		pollutants := make([]airquality.Pollutant, 0, len(s.Components))
		for _, comp := range s.Components {
			if p := toPollutant(comp); p != "" {
				pollutants = append(pollutants, p)
			}
		}
		stations = append(stations, &airquality.Station{
			ID:         s.Number,
			Name:       s.Location,
			Lat:        s.Coordinates.Latitude,
			Lon:        s.Coordinates.Longitude,
			Pollutants: pollutants,
			UpdatedAt:  now,
		})
	}
	return stations, nil
}

// FetchLatestMeasurements retrieves the latest measurements for all stations.
// Unsupported pollutants are skipped.
func (c *Client) FetchLatestMeasurements(ctx context.Context) ([]*airquality.Measurement, error) {
	data, err := fetchAll[measurementData](ctx, c, "measurements")
	if err != nil {
		return nil, err
	}

	measurements := make([]*airquality.Measurement, 0, len(data))
	for _, m := range data {
		pollutant := toPollutant(m.Formula)
		if pollutant == "" {
			continue
		}
		measuredAt, _ := time.Parse(time.RFC3339, m.TimestampMeasured)
		measurements = append(measurements, &airquality.Measurement{
			StationID:  m.StationNumber,
			Pollutant:  pollutant,
			Value:      m.Value,
			Unit:       unitMicrogramsPerM3,
			MeasuredAt: measuredAt,
		})
	}
	return measurements, nil
}

// FetchSnapshot fetches stations and measurements into one snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (*airquality.Snapshot, error) {
	snapshot, err := c.fetchSnapshot(ctx)
	if c.registry != nil {
		if err != nil {
			c.registry.RecordFailure(ProviderName, err)
		} else {
			c.registry.RecordSuccess(ProviderName)
		}
	}
	return snapshot, err
}

func (c *Client) fetchSnapshot(ctx context.Context) (*airquality.Snapshot, error) {
	stations, err := c.FetchStations(ctx)
	if err != nil {
		return nil, err
	}

	measurements, err := c.FetchLatestMeasurements(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := airquality.NewSnapshot(ProviderName)
	for _, s := range stations {
		snapshot.Stations[s.ID] = s
	}
	for _, m := range measurements {
		snapshot.SetMeasurement(m)
	}
	return snapshot, nil
}

func toPollutant(formula string) airquality.Pollutant {
	switch strings.ToUpper(formula) {
	case "NO2":
		return airquality.PollutantNO2
	case "PM25":
		return airquality.PollutantPM25
	case "PM10":
		return airquality.PollutantPM10
	case "O3":
		return airquality.PollutantO3
	default:
		return ""
	}
}
