package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrNoProvider is returned when the router has nothing registered.
var ErrNoProvider = errors.New("no AI provider registered")

// Call describes one provider attempt made by the router.
type Call struct {
	Provider string
	Task     TaskType
	Duration time.Duration
	Err      error
}

// CallObserver is notified after every provider attempt, failed or not.
type CallObserver func(Call)

// ChainError is returned when every provider in the chain failed. Errors
// keeps the per-provider failures in chain order.
type ChainError struct {
	Task   TaskType
	Errors []ProviderError
}

// ProviderError is one provider's failure inside a ChainError.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		parts[i] = pe.Provider + ": " + pe.Err.Error()
	}
	return fmt.Sprintf("%s: all AI providers failed: %s", e.Task, strings.Join(parts, "; "))
}

func (e *ChainError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe.Err
	}
	return errs
}

// Router sends each completion down an ordered provider chain and returns the
// first answer.
type Router struct {
	mu       sync.RWMutex
	chain    []string
	byName   map[string]Provider
	observer CallObserver
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithCallObserver installs fn to see every provider attempt.
func WithCallObserver(fn CallObserver) RouterOption {
	return func(r *Router) { r.observer = fn }
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{byName: make(map[string]Provider)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a provider to the chain. Registering an existing name
// swaps the provider in place.
func (r *Router) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		r.chain = append(r.chain, name)
	}
	r.byName[name] = p
}

// Complete tries providers in order. A canceled context stops the walk
// without touching the remaining providers.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chain) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	chainErr := &ChainError{Task: req.Task}
	for _, name := range r.chain {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}

		start := time.Now()
		resp, err := r.byName[name].Complete(ctx, req)
		r.observe(Call{Provider: name, Task: req.Task, Duration: time.Since(start), Err: err})
		if err != nil {
			slog.Warn("AI provider failed",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			chainErr.Errors = append(chainErr.Errors, ProviderError{Provider: name, Err: err})
			continue
		}

		slog.Debug("AI completion",
			"provider", name,
			"task", req.Task.String(),
			"model", resp.Model,
			"tokens", resp.TotalTokens(),
		)
		return resp, nil
	}
	return CompletionResponse{}, chainErr
}

func (r *Router) observe(c Call) {
	if r.observer != nil {
		r.observer(c)
	}
}

// HealthCheck passes when at least one provider answers its own check.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chain) == 0 {
		return ErrNoProvider
	}
	chainErr := &ChainError{Task: TaskHealth}
	for _, name := range r.chain {
		if err := r.byName[name].HealthCheck(ctx); err != nil {
			chainErr.Errors = append(chainErr.Errors, ProviderError{Provider: name, Err: err})
			continue
		}
		return nil
	}
	return chainErr
}

func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chain) > 0
}

// Names returns the chain order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.chain...)
}
