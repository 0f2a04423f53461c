// Package backoffice fetches machine inventory and the day's transactions
// from the branch back-office REST API.
package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/cache"
	"laundry-branch-monitor/internal/store"
)

// ErrUpstream marks failures of the back office itself: transport errors,
// non-200 answers, undecodable bodies or an open circuit.
var ErrUpstream = errors.New("back office unavailable")

// Fetcher is what the refresh loop needs from the back office.
type Fetcher interface {
	FetchMachines(ctx context.Context, branchCode string) ([]store.ApiMachine, error)
	FetchTransactions(ctx context.Context, branchCode, date string) ([]store.ApiTransaction, error)
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	baseURL  string
	headers  map[string]string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	cache    cache.Store
	cacheTTL time.Duration
}

// NewClient builds a client from configuration. responses may be nil, in
// which case nothing is cached.
func NewClient(cfg config.BackofficeConfig, responses cache.Store) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Back-office client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	threshold := cfg.Breaker.FailureThreshold
	settings := gobreaker.Settings{
		Name:        "backoffice",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %q changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
		cache:    responses,
		cacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
}

// FetchMachines returns the branch's machine inventory.
func (c *Client) FetchMachines(ctx context.Context, branchCode string) ([]store.ApiMachine, error) {
	endpoint := fmt.Sprintf("%s/branches/%s/machines", c.baseURL, url.PathEscape(branchCode))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp machinesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal machines: %v", ErrUpstream, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%w: machines returned application code %d: %s", ErrUpstream, resp.Code, resp.Message)
	}
	return resp.Data, nil
}

// FetchTransactions returns the branch's transactions for date (2006-01-02).
func (c *Client) FetchTransactions(ctx context.Context, branchCode, date string) ([]store.ApiTransaction, error) {
	endpoint := fmt.Sprintf("%s/branches/%s/transactions?%s",
		c.baseURL, url.PathEscape(branchCode), url.Values{"date": {date}}.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp transactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal transactions: %v", ErrUpstream, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%w: transactions returned application code %d: %s", ErrUpstream, resp.Code, resp.Message)
	}
	return resp.Data, nil
}

// get performs a cached, breaker-guarded GET and returns the raw body.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	cacheKey := "backoffice:" + endpoint
	if c.cache != nil && c.cacheTTL > 0 {
		if body, ok := c.cache.Get(ctx, cacheKey); ok {
			return body, nil
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err != nil {
		return nil, err
	}

	if c.cache != nil && c.cacheTTL > 0 {
		c.cache.Set(ctx, cacheKey, body, c.cacheTTL)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: received non-200 status code: %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrUpstream, err)
	}
	return body, nil
}
