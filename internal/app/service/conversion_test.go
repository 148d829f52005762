package service

import (
	"context"
	"errors"
	"testing"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
)

func trackerFixture(counters kv.CounterStore) *ConversionTracker {
	return NewConversionTracker(ConversionDeps{
		Destinations: &mockDestinationRepo{
			getBySlugFn: func(_ context.Context, slug string) (*model.DestinationLink, error) {
				if slug != "buy-now" {
					return nil, repository.ErrDestinationNotFound
				}
				return &model.DestinationLink{ID: 42, MainLinkID: 1, Slug: "buy-now"}, nil
			},
		},
		Settings: &mockSettingRepo{
			getFn: func(_ context.Context, destID int64) (*model.ConversionSetting, error) {
				if destID != 42 {
					return nil, repository.ErrConversionSettingNotFound
				}
				return &model.ConversionSetting{
					ID:                1,
					DestinationLinkID: 42,
					KeyName:           "status",
					SuccessValue:      "purchased",
				}, nil
			},
		},
		Counters: counters,
	})
}

func TestTrackMatchIncrements(t *testing.T) {
	counters := kv.NewMemoryCounterStore()
	tracker := trackerFixture(counters)

	res, err := tracker.Track(context.Background(), "buy-now", map[string]any{"status": "purchased"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != TrackTracked {
		t.Errorf("outcome = %q, want %q", res.Outcome, TrackTracked)
	}
	if res.DestinationID != 42 {
		t.Errorf("destination id = %d, want 42", res.DestinationID)
	}

	n, err := counters.Get(context.Background(), kv.CounterConversion, 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("conversion counter = %d, want 1", n)
	}
}

func TestTrackIgnoredOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		slug    string
		payload map[string]any
		want    TrackOutcome
	}{
		{"unknown destination", "missing", map[string]any{"status": "purchased"}, TrackNoDestination},
		{"value mismatch", "buy-now", map[string]any{"status": "refunded"}, TrackNoMatch},
		{"key absent", "buy-now", map[string]any{"state": "purchased"}, TrackNoMatch},
		{"non-string value", "buy-now", map[string]any{"status": 1}, TrackNoMatch},
		{"empty payload", "buy-now", map[string]any{}, TrackNoMatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counters := kv.NewMemoryCounterStore()
			tracker := trackerFixture(counters)

			res, err := tracker.Track(context.Background(), tc.slug, tc.payload)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tc.want {
				t.Errorf("outcome = %q, want %q", res.Outcome, tc.want)
			}
			n, _ := counters.Get(context.Background(), kv.CounterConversion, 42)
			if n != 0 {
				t.Errorf("conversion counter = %d, want 0", n)
			}
		})
	}
}

func TestTrackNoSetting(t *testing.T) {
	tracker := NewConversionTracker(ConversionDeps{
		Destinations: &mockDestinationRepo{
			getBySlugFn: func(context.Context, string) (*model.DestinationLink, error) {
				return &model.DestinationLink{ID: 42}, nil
			},
		},
		Settings: &mockSettingRepo{},
		Counters: kv.NewMemoryCounterStore(),
	})

	res, err := tracker.Track(context.Background(), "buy-now", map[string]any{"status": "purchased"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != TrackNoSetting {
		t.Errorf("outcome = %q, want %q", res.Outcome, TrackNoSetting)
	}
}

type failingCounterStore struct{}

func (failingCounterStore) Increment(context.Context, kv.CounterKind, int64) error {
	return errors.New("redis down")
}

func (failingCounterStore) Get(context.Context, kv.CounterKind, int64) (int64, error) {
	return 0, errors.New("redis down")
}

// The report succeeds even when the counter write fails.
func TestTrackIncrementFailureDropped(t *testing.T) {
	tracker := trackerFixture(failingCounterStore{})

	res, err := tracker.Track(context.Background(), "buy-now", map[string]any{"status": "purchased"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != TrackTracked {
		t.Errorf("outcome = %q, want %q", res.Outcome, TrackTracked)
	}
}

func TestConfigureRequiresOwnership(t *testing.T) {
	var replaced *model.ConversionSetting
	tracker := NewConversionTracker(ConversionDeps{
		Destinations: &mockDestinationRepo{
			getOwnedFn: func(_ context.Context, id, userID int64) (*model.DestinationLink, error) {
				if userID != 7 {
					return nil, repository.ErrDestinationNotFound
				}
				return &model.DestinationLink{ID: id}, nil
			},
		},
		Settings: &mockSettingRepo{
			replaceFn: func(_ context.Context, setting *model.ConversionSetting) error {
				replaced = setting
				return nil
			},
		},
		Counters: kv.NewMemoryCounterStore(),
	})

	err := tracker.Configure(context.Background(), 99, 42, "status", "purchased")
	if !errors.Is(err, repository.ErrDestinationNotFound) {
		t.Fatalf("err = %v, want ErrDestinationNotFound for foreign destination", err)
	}

	if err := tracker.Configure(context.Background(), 7, 42, "status", "purchased"); err != nil {
		t.Fatal(err)
	}
	if replaced == nil || replaced.DestinationLinkID != 42 || replaced.KeyName != "status" || replaced.SuccessValue != "purchased" {
		t.Errorf("replaced setting = %+v, want destination 42 with status/purchased", replaced)
	}
}
