package models

import "time"

// Testimonial is a customer statement submitted to a profile owner.
type Testimonial struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	UserID uint64 `gorm:"not null;index"`           // Owning profile.

	CustomerName string `gorm:"type:text;not null"` // Submitter display name.
	Content      string `gorm:"type:text;not null"` // Sanitized testimonial text.
	VideoURL     string `gorm:"type:text"`          // Optional external video link.

	IsApproved bool `gorm:"not null;default:false"` // Visible on public pages once true.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Submission timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last moderation timestamp.
}
