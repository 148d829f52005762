package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
	"go.uber.org/zap"
)

// TrackOutcome enumerates the results of a conversion report. Every
// outcome is a success from the reporting caller's point of view.
type TrackOutcome string

const (
	TrackTracked       TrackOutcome = "tracked"
	TrackNoDestination TrackOutcome = "no_destination"
	TrackNoSetting     TrackOutcome = "no_setting"
	TrackNoMatch       TrackOutcome = "no_match"
)

// TrackResult is the outcome of a conversion report.
type TrackResult struct {
	Outcome       TrackOutcome
	DestinationID int64
}

// ConversionDeps groups the collaborators of the conversion tracker.
type ConversionDeps struct {
	Logger       *zap.Logger
	Destinations repository.DestinationRepository
	Settings     repository.ConversionSettingRepository
	Counters     kv.CounterStore
}

// ConversionTracker counts post-redirect conversion events. A report only
// counts when the configured payload field matches the configured value
// exactly; everything else is acknowledged and ignored so reporting never
// breaks the caller's flow.
type ConversionTracker struct {
	logger       *zap.Logger
	destinations repository.DestinationRepository
	settings     repository.ConversionSettingRepository
	counters     kv.CounterStore
}

// NewConversionTracker creates a tracker with the provided dependencies.
func NewConversionTracker(deps ConversionDeps) *ConversionTracker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionTracker{
		logger:       logger,
		destinations: deps.Destinations,
		settings:     deps.Settings,
		counters:     deps.Counters,
	}
}

// Track processes a conversion report for the destination identified by
// slug. Errors are returned only for store failures; unknown destinations,
// missing settings and non-matching values are ignored outcomes.
func (t *ConversionTracker) Track(ctx context.Context, slug string, payload map[string]any) (TrackResult, error) {
	dest, err := t.destinations.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrDestinationNotFound) {
			return TrackResult{Outcome: TrackNoDestination}, nil
		}
		return TrackResult{}, fmt.Errorf("track conversion: %w", err)
	}

	setting, err := t.settings.GetByDestination(ctx, dest.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConversionSettingNotFound) {
			return TrackResult{Outcome: TrackNoSetting, DestinationID: dest.ID}, nil
		}
		return TrackResult{}, fmt.Errorf("track conversion: %w", err)
	}

	// Exact string match only; a numeric payload value never matches.
	value, ok := payload[setting.KeyName].(string)
	if !ok || value != setting.SuccessValue {
		return TrackResult{Outcome: TrackNoMatch, DestinationID: dest.ID}, nil
	}

	// A failed increment is logged and dropped; the report still succeeds.
	if err := t.counters.Increment(ctx, kv.CounterConversion, dest.ID); err != nil {
		t.logger.Error("conversion increment failed",
			zap.Int64("destination_id", dest.ID),
			zap.Error(err))
	}
	return TrackResult{Outcome: TrackTracked, DestinationID: dest.ID}, nil
}

// Configure replaces the conversion setting for a destination the user
// owns.
func (t *ConversionTracker) Configure(ctx context.Context, userID, destinationLinkID int64, keyName, successValue string) error {
	if _, err := t.destinations.GetOwned(ctx, destinationLinkID, userID); err != nil {
		return fmt.Errorf("configure conversion: %w", err)
	}

	setting := &model.ConversionSetting{
		DestinationLinkID: destinationLinkID,
		KeyName:           keyName,
		SuccessValue:      successValue,
	}
	if err := t.settings.Replace(ctx, setting); err != nil {
		return fmt.Errorf("configure conversion: %w", err)
	}
	return nil
}
