// Package usage enforces per-user daily quiz quotas by subscription tier.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
)

// Unlimited marks a tier without a daily cap.
const Unlimited = -1

var (
	ErrQuotaExceeded = errors.New("daily quiz quota exceeded")
	ErrInvalidTier   = errors.New("invalid tier")
)

// Tier is a subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierFree, TierPro, TierEnterprise:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

// Limits maps each tier to its daily quiz allowance.
type Limits map[Tier]int

// DefaultLimits returns free=5/day with pro and enterprise unlimited.
func DefaultLimits() Limits {
	return Limits{
		TierFree:       5,
		TierPro:        Unlimited,
		TierEnterprise: Unlimited,
	}
}

// For returns the limit for t. Tiers missing from the map get the free limit.
func (l Limits) For(t Tier) int {
	if n, ok := l[t]; ok {
		return n
	}
	if n, ok := l[TierFree]; ok {
		return n
	}
	return DefaultLimits()[TierFree]
}

// TierStore resolves and updates user tiers. Unknown users are free.
type TierStore interface {
	GetTier(ctx context.Context, userID string) (Tier, error)
	SetTier(ctx context.Context, userID string, tier Tier) error
}

// CounterStore keeps one counter per user per UTC day.
type CounterStore interface {
	Count(ctx context.Context, userID string, day time.Time) (int, error)
	Increment(ctx context.Context, userID string, day time.Time) (int, error)
}

// QuotaError is returned by Check when the user is out of quota.
type QuotaError struct {
	Tier     Tier
	Used     int
	Limit    int
	ResetsAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s tier used %d of %d", ErrQuotaExceeded, e.Tier, e.Used, e.Limit)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// Status is a user's quota for the current day.
type Status struct {
	Tier      Tier      `json:"tier"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`     // -1 when unlimited
	Remaining int       `json:"remaining"` // -1 when unlimited
	Unlimited bool      `json:"unlimited"`
	ResetsAt  time.Time `json:"resets_at"`
}

// GateConfig holds dependencies for the usage gate.
type GateConfig struct {
	Tiers    TierStore
	Counters CounterStore
	Limits   Limits           // DefaultLimits when nil
	Now      func() time.Time // time.Now when nil
}

// Gate checks quotas before generation and records usage after it.
type Gate struct {
	tiers    TierStore
	counters CounterStore
	limits   Limits
	now      func() time.Time
}

// NewGate creates a usage gate. Nil stores fall back to in-memory ones.
func NewGate(cfg GateConfig) *Gate {
	tiers := cfg.Tiers
	if tiers == nil {
		tiers = NewMemoryTierStore()
	}
	counters := cfg.Counters
	if counters == nil {
		counters = NewMemoryCounter()
	}
	limits := cfg.Limits
	if limits == nil {
		limits = DefaultLimits()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{tiers: tiers, counters: counters, limits: limits, now: now}
}

// Tiers returns the tier store backing the gate.
func (g *Gate) Tiers() TierStore {
	return g.tiers
}

// Status reports the user's tier and today's usage.
func (g *Gate) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{}, fmt.Errorf("user_id is required")
	}

	tier, err := g.tiers.GetTier(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("get tier: %w", err)
	}

	day := Day(g.now())
	used, err := g.counters.Count(ctx, userID, day)
	if err != nil {
		return Status{}, fmt.Errorf("read usage: %w", err)
	}

	st := Status{
		Tier:     tier,
		Used:     used,
		Limit:    g.limits.For(tier),
		ResetsAt: day.AddDate(0, 0, 1),
	}
	if st.Limit < 0 {
		st.Limit = Unlimited
		st.Remaining = Unlimited
		st.Unlimited = true
	} else {
		st.Remaining = max(st.Limit-used, 0)
	}
	return st, nil
}

// Check returns a *QuotaError wrapping ErrQuotaExceeded when the user has no
// quizzes left today.
func (g *Gate) Check(ctx context.Context, userID string) error {
	st, err := g.Status(ctx, userID)
	if err != nil {
		return err
	}
	if st.Unlimited || st.Used < st.Limit {
		return nil
	}

	metrics.ObserveQuotaRejection(string(st.Tier))
	slog.Info("quota exceeded",
		"user_id", userID,
		"tier", string(st.Tier),
		"used", st.Used,
		"limit", st.Limit,
	)
	return &QuotaError{Tier: st.Tier, Used: st.Used, Limit: st.Limit, ResetsAt: st.ResetsAt}
}

// Record counts one successful generation against today's quota.
func (g *Gate) Record(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	n, err := g.counters.Increment(ctx, userID, Day(g.now()))
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	slog.Debug("usage recorded", "user_id", userID, "count", n)
	return nil
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(day time.Time) string {
	return Day(day).Format(time.DateOnly)
}
