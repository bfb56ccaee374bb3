package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// FailureClassifier reports whether err should count against the breaker.
type FailureClassifier func(err error) bool

// StateObserver is told about breaker transitions, typically for metrics.
type StateObserver func(operation string, from, to gobreaker.State)

// Guard runs each call once, behind a shared rate limiter and a circuit
// breaker per operation.
type Guard struct {
	cfg      Config
	limiter  *rate.Limiter
	observer StateObserver
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewGuard(cfg Config, observer StateObserver, logger *slog.Logger) *Guard {
	cfg = cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return &Guard{
		cfg:      cfg,
		limiter:  limiter,
		observer: observer,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (g *Guard) Do(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier FailureClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit %s: %w", op, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !g.cfg.BreakerEnabled {
		return fn(ctx)
	}

	breaker := g.circuitBreaker(op, classifier)
	_, err := breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// State returns the breaker state of operation. Operations that never ran
// are closed.
func (g *Guard) State(operation string) gobreaker.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if breaker, ok := g.breakers[operation]; ok {
		return breaker.State()
	}
	return gobreaker.StateClosed
}

func (g *Guard) circuitBreaker(operation string, classifier FailureClassifier) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breaker, ok := g.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: g.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     g.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= g.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if g.observer != nil {
				g.observer(name, from, to)
			}
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	g.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) bool { return true }
