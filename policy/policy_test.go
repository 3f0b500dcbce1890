package policy_test

import (
	"testing"
	"time"

	"github.com/anvorisk/queuectl/policy"
)

func TestNextDelay(t *testing.T) {
	cases := []struct {
		attempts uint32
		base     int
		want     time.Duration
	}{
		{1, 2, 2 * time.Second},
		{2, 2, 4 * time.Second},
		{3, 2, 8 * time.Second},
		{1, 0, 2 * time.Second}, // base<=0 substitutes default
	}
	for _, c := range cases {
		got := policy.NextDelay(c.attempts, c.base)
		if got != c.want {
			t.Errorf("NextDelay(%d, %d) = %v, want %v", c.attempts, c.base, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if policy.IsTerminal(2, 3) {
		t.Error("2 < 3 should not be terminal")
	}
	if !policy.IsTerminal(3, 3) {
		t.Error("3 >= 3 should be terminal")
	}
	if !policy.IsTerminal(4, 3) {
		t.Error("4 >= 3 should be terminal")
	}
}

func TestResolveRunAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := policy.ResolveRunAt(now, 2, 2)
	want := now.Add(4 * time.Second)
	if !got.Equal(want) {
		t.Errorf("ResolveRunAt = %v, want %v", got, want)
	}
}

func TestParseRunAtEmpty(t *testing.T) {
	now := time.Now()
	got, err := policy.ParseRunAt("", now, time.UTC)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestParseRunAtFuture(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := policy.ParseRunAt("2026-01-01T00:01:00Z", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected non-nil time")
	}
	want := now.Add(time.Minute)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseRunAtPastReturnsNil(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := policy.ParseRunAt("2025-01-01T00:00:00Z", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil (run now), got %v", got)
	}
}

func TestParseRunAtNaiveIsLocalized(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	loc := time.FixedZone("TEST", 3600) // UTC+1
	got, err := policy.ParseRunAt("2026-01-01T02:00:00", now, loc)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected non-nil time")
	}
	want := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC) // 02:00 +01:00 -> 01:00 UTC
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseRunAtInvalid(t *testing.T) {
	_, err := policy.ParseRunAt("not-a-date", time.Now(), time.UTC)
	if err != policy.ErrInvalidRunAt {
		t.Fatalf("expected ErrInvalidRunAt, got %v", err)
	}
}
