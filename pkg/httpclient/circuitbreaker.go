package httpclient

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the breaker guarding a backend.
type CircuitBreakerConfig struct {
	// Name identifies the guarded backend in metrics and logs.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests fail.
	FailureRatio float64

	// MinRequests is the minimum sample size before the ratio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns defaults for a backend breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "storefront_backend_breaker_state",
		Help: "Circuit breaker state for backend calls (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned when the breaker rejects a request outright.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient wraps a Client with circuit breaker protection.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

// NewCircuitBreakerClient wraps an existing HTTP client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Do executes an HTTP request through the circuit breaker. 5xx responses count
// as failures toward tripping it.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if readErr != nil {
				body = nil
			}
			_ = resp.Body.Close()
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	})
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
