package usage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/quizethic/quizethic-ai/internal/usage"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newGate(c *clock) (*usage.Gate, *usage.MemoryTierStore) {
	tiers := usage.NewMemoryTierStore()
	return usage.NewGate(usage.GateConfig{
		Tiers:    tiers,
		Counters: usage.NewMemoryCounter(),
		Now:      c.Now,
	}), tiers
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    usage.Tier
		wantErr bool
	}{
		{"free", usage.TierFree, false},
		{"Pro", usage.TierPro, false},
		{" enterprise ", usage.TierEnterprise, false},
		{"", "", true},
		{"platinum", "", true},
	}
	for _, tt := range tests {
		got, err := usage.ParseTier(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, usage.ErrInvalidTier) {
			t.Errorf("ParseTier(%q) error = %v, want ErrInvalidTier", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLimits_For(t *testing.T) {
	limits := usage.Limits{usage.TierFree: 3, usage.TierPro: 100}
	if got := limits.For(usage.TierPro); got != 100 {
		t.Errorf("For(pro) = %d, want 100", got)
	}
	if got := limits.For(usage.TierEnterprise); got != 3 {
		t.Errorf("For(enterprise) = %d, want the free limit", got)
	}
	if got := (usage.Limits{}).For(usage.TierFree); got != 5 {
		t.Errorf("empty Limits For(free) = %d, want 5", got)
	}
}

func TestGate_FreeTierLimit(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)}
	gate, _ := newGate(c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := gate.Check(ctx, "u1"); err != nil {
			t.Fatalf("Check() #%d error = %v", i+1, err)
		}
		if err := gate.Record(ctx, "u1"); err != nil {
			t.Fatalf("Record() #%d error = %v", i+1, err)
		}
	}

	err := gate.Check(ctx, "u1")
	if !errors.Is(err, usage.ErrQuotaExceeded) {
		t.Fatalf("Check() error = %v, want ErrQuotaExceeded", err)
	}
	var qe *usage.QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("Check() error = %T, want *QuotaError", err)
	}
	want := usage.QuotaError{
		Tier:     usage.TierFree,
		Used:     5,
		Limit:    5,
		ResetsAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, *qe); diff != "" {
		t.Errorf("QuotaError mismatch (-want +got):\n%s", diff)
	}

	// Other users are unaffected.
	if err := gate.Check(ctx, "u2"); err != nil {
		t.Errorf("Check(u2) error = %v", err)
	}

	// A new UTC day resets the counter.
	c.t = c.t.Add(time.Hour)
	if err := gate.Check(ctx, "u1"); err != nil {
		t.Errorf("Check() next day error = %v", err)
	}
}

func TestGate_UnlimitedTiers(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	gate, tiers := newGate(c)
	ctx := context.Background()

	for _, tier := range []usage.Tier{usage.TierPro, usage.TierEnterprise} {
		user := "user-" + string(tier)
		if err := tiers.SetTier(ctx, user, tier); err != nil {
			t.Fatalf("SetTier() error = %v", err)
		}
		for i := 0; i < 20; i++ {
			if err := gate.Check(ctx, user); err != nil {
				t.Fatalf("%s Check() #%d error = %v", tier, i+1, err)
			}
			if err := gate.Record(ctx, user); err != nil {
				t.Fatalf("%s Record() error = %v", tier, err)
			}
		}
	}
}

func TestGate_Status(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 8, 15, 0, 0, time.FixedZone("IST", 5*3600+1800))}
	gate, tiers := newGate(c)
	ctx := context.Background()

	gate.Record(ctx, "u1")
	gate.Record(ctx, "u1")

	got, err := gate.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	want := usage.Status{
		Tier:      usage.TierFree,
		Used:      2,
		Limit:     5,
		Remaining: 3,
		// 08:15 IST is 02:45 UTC on the same day.
		ResetsAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Status() mismatch (-want +got):\n%s", diff)
	}

	tiers.SetTier(ctx, "u1", usage.TierPro)
	got, err = gate.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !got.Unlimited || got.Limit != usage.Unlimited || got.Remaining != usage.Unlimited {
		t.Errorf("Status() for pro = %+v, want unlimited", got)
	}
}

func TestGate_RemainingNeverNegative(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	gate, _ := newGate(c)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		gate.Record(ctx, "u1")
	}
	st, _ := gate.Status(ctx, "u1")
	if st.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", st.Remaining)
	}
}

func TestGate_CustomLimits(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	gate := usage.NewGate(usage.GateConfig{
		Limits: usage.Limits{usage.TierFree: 1, usage.TierPro: 10, usage.TierEnterprise: usage.Unlimited},
		Now:    c.Now,
	})
	ctx := context.Background()

	if err := gate.Check(ctx, "u1"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	gate.Record(ctx, "u1")
	if err := gate.Check(ctx, "u1"); !errors.Is(err, usage.ErrQuotaExceeded) {
		t.Errorf("Check() error = %v, want ErrQuotaExceeded", err)
	}
}

func TestGate_RequiresUser(t *testing.T) {
	gate := usage.NewGate(usage.GateConfig{})
	if err := gate.Check(context.Background(), ""); err == nil {
		t.Error("Check() should fail without a user")
	}
	if err := gate.Record(context.Background(), ""); err == nil {
		t.Error("Record() should fail without a user")
	}
}

func TestMemoryTierStore_RejectsUnknownTier(t *testing.T) {
	store := usage.NewMemoryTierStore()
	if err := store.SetTier(context.Background(), "u1", usage.Tier("gold")); !errors.Is(err, usage.ErrInvalidTier) {
		t.Errorf("SetTier() error = %v, want ErrInvalidTier", err)
	}
	got, _ := store.GetTier(context.Background(), "u1")
	if got != usage.TierFree {
		t.Errorf("GetTier() = %q, want free", got)
	}
}

func TestDay(t *testing.T) {
	in := time.Date(2025, 3, 14, 23, 59, 59, 0, time.FixedZone("PST", -8*3600))
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := usage.Day(in); !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}
