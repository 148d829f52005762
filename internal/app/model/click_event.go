package model

import "time"

// ClickEvent is published to JetStream after the redirect response has been
// sent; a consumer folds it into the destination's click counter.
type ClickEvent struct {
	ID            string    `json:"id"`
	DestinationID int64     `json:"destination_id"`
	OwnerSlug     string    `json:"owner_slug"`
	CampaignSlug  string    `json:"campaign_slug"`
	IP            string    `json:"ip"`
	UserAgent     string    `json:"user_agent"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-counter"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
