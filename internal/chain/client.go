// Package chain reads position state from a Uniswap v3 style subgraph.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

// Provider supplies the data one evaluation needs.
type Provider interface {
	GetSnapshot(ctx context.Context, positionID int64) (domain.PositionSnapshot, error)
	GetRates(ctx context.Context, positionID int64) (domain.Rates, error)
	GetInitData(ctx context.Context, positionID int64) (domain.PositionInitData, error)
}

// ClientConfig configures a SubgraphClient.
type ClientConfig struct {
	ChainID           int64
	Endpoint          string
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxElapsedTime    time.Duration
}

// SubgraphClient talks GraphQL to one chain's subgraph.
type SubgraphClient struct {
	chainID    int64
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	logger     *zap.Logger
	metrics    *metrics.Collector
}

var _ Provider = (*SubgraphClient)(nil)

// NewSubgraphClient creates a client. A nil collector disables latency metrics.
func NewSubgraphClient(cfg ClientConfig, logger *zap.Logger, collector *metrics.Collector) (*SubgraphClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("subgraph endpoint is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}

	return &SubgraphClient{
		chainID:    cfg.ChainID,
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxElapsed: cfg.MaxElapsedTime,
		logger:     logger.Named("subgraph").With(zap.Int64("chain_id", cfg.ChainID)),
		metrics:    collector,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query runs one GraphQL request with rate limiting and retries. Transport
// failures, 429 and 5xx are retried; GraphQL errors are not. Every failure is
// returned wrapped in domain.ErrDataUnavailable.
func (c *SubgraphClient) query(ctx context.Context, method, q string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("%w: marshal %s request: %v", domain.ErrDataUnavailable, method, err)
	}

	start := time.Now()
	op := func() (json.RawMessage, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return c.post(ctx, body)
	}

	data, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("Retrying subgraph request",
				zap.String("method", method),
				zap.Duration("next_in", next),
				zap.Error(err))
		}),
	)

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordProviderLatency(method, status, time.Since(start))

	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDataUnavailable, method, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrDataUnavailable, method, err)
	}
	return nil
}

func (c *SubgraphClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, backoff.Permanent(fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	return gqlResp.Data, nil
}
