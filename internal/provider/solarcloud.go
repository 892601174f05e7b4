package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/heliotrack/go-solar-reconciler/internal/config"
)

const monthEndpoint = "/v1/devices/%s/generation/month"

// SolarCloudClient implements SeriesClient against the provider's HTTP API.
// It is a plain transport: one request per call, no retry and no pacing,
// both of which belong to the ResilientFetcher wrapping it.
type SolarCloudClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	currencyHint string
	logger       *slog.Logger
}

// NewSolarCloudClient creates a provider client from configuration.
func NewSolarCloudClient(cfg config.ProviderConfig, logger *slog.Logger) *SolarCloudClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SolarCloudClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		currencyHint: cfg.CurrencyHint,
		logger:       logger.With("component", "solarcloud_client"),
	}
}

// monthResponse is the provider's month query envelope.
type monthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Records []DayRecord `json:"records"`
}

// FetchMonth implements SeriesClient. A non-2xx status, a provider-reported
// failure envelope, or a malformed body all surface as errors so the caller's
// retry policy can decide what to do with them.
func (c *SolarCloudClient) FetchMonth(ctx context.Context, deviceID, monthKey string) ([]DayRecord, error) {
	requestURL := c.baseURL + fmt.Sprintf(monthEndpoint, url.PathEscape(deviceID))

	params := url.Values{}
	params.Set("month", monthKey)
	if c.currencyHint != "" {
		params.Set("currency", c.currencyHint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "go-solar-reconciler/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("fetching month from provider", "device_id", deviceID, "month", monthKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope monthResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse month response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("provider reported failure: %s", envelope.Message)
	}

	c.logger.Debug("month fetched", "device_id", deviceID, "month", monthKey, "records", len(envelope.Records))
	return envelope.Records, nil
}
