package model

import "time"

// User owns a set of main links. Identity issuance lives in an external
// service; this table carries only what the admin API and redirect
// resolution need.
type User struct {
	ID        int64     `db:"id" gorm:"primaryKey"`
	UserSlug  string    `db:"user_slug" gorm:"size:64;uniqueIndex;not null"`
	Email     string    `db:"email" gorm:"size:255;uniqueIndex"`
	MaxLinks  int       `db:"max_links" gorm:"not null;default:5"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// MainLink is a campaign entry point reachable at /{user_slug}?go={slug}.
// Slug is unique per owner, not globally.
type MainLink struct {
	ID        int64     `db:"id" gorm:"primaryKey"`
	UserID    int64     `db:"user_id" gorm:"not null;uniqueIndex:idx_main_links_user_slug"`
	Slug      string    `db:"slug" gorm:"size:64;not null;uniqueIndex:idx_main_links_user_slug"`
	Mode      string    `db:"mode" gorm:"size:16;not null;default:round-robin"`
	Icon      string    `db:"icon" gorm:"size:32;not null;default:link"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// DestinationLink is a candidate target under a main link. Creation order
// (ascending id) is the fan-out order; ids are never reused, which is what
// lets abandoned counters stay behind safely.
type DestinationLink struct {
	ID         int64     `db:"id" gorm:"primaryKey"`
	MainLinkID int64     `db:"main_link_id" gorm:"index;not null"`
	Slug       string    `db:"slug" gorm:"size:64;not null"`
	URL        string    `db:"url" gorm:"type:text;not null"`
	IsActive   bool      `db:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// ConversionSetting decides when a reported conversion payload counts: the
// payload field named KeyName must equal SuccessValue exactly.
type ConversionSetting struct {
	ID                int64     `db:"id" gorm:"primaryKey"`
	DestinationLinkID int64     `db:"destination_link_id" gorm:"uniqueIndex;not null"`
	KeyName           string    `db:"key_name" gorm:"size:64;not null"`
	SuccessValue      string    `db:"success_value" gorm:"size:255;not null"`
	CreatedAt         time.Time `db:"created_at" gorm:"autoCreateTime"`
}
