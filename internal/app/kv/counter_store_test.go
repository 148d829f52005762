package kv

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCounterKey(t *testing.T) {
	if got := CounterKey(CounterClick, 42); got != "click:42" {
		t.Errorf("key = %q, want click:42", got)
	}
	if got := CounterKey(CounterConversion, 7); got != "conversion:7" {
		t.Errorf("key = %q, want conversion:7", got)
	}
}

func TestMemoryCounterStoreSequentialIncrements(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	n, err := store.Get(ctx, CounterClick, 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("fresh counter = %d, want 0", n)
	}

	for i := 0; i < 5; i++ {
		if err := store.Increment(ctx, CounterClick, 42); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	n, err = store.Get(ctx, CounterClick, 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("counter = %d after 5 increments, want 5", n)
	}

	// Kinds share the destination id but never the counter.
	n, _ = store.Get(ctx, CounterConversion, 42)
	if n != 0 {
		t.Errorf("conversion counter = %d, want 0", n)
	}
}

// A counter at the ceiling errors instead of wrapping.
func TestCounterIncrementAtCeiling(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	store.counts[CounterKey(CounterClick, 42)] = math.MaxInt64

	err := store.Increment(ctx, CounterClick, 42)
	if !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("err = %v, want ErrCounterOverflow", err)
	}

	n, err := store.Get(ctx, CounterClick, 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != math.MaxInt64 {
		t.Errorf("counter = %d after failed increment, want it left at the ceiling", n)
	}
}

func TestParseCounterValue(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"plain", "12", 12, false},
		{"ceiling", "9223372036854775807", math.MaxInt64, false},
		{"negative", "-1", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
		{"float", "1.5", 0, true},
		{"too large", "9223372036854775808", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := parseCounterValue("click:42", tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parsed %q to %d, want error", tc.raw, n)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if n != tc.want {
				t.Errorf("parsed %q = %d, want %d", tc.raw, n, tc.want)
			}
		})
	}
}
