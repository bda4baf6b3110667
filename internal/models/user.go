package models

import "time"

// Subscription tiers a profile owner can hold.
const (
	TierFree         = "free"
	TierStarter      = "starter"
	TierProfessional = "professional"
)

// User represents a profile owner who collects testimonials.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Public handle, lowercase.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Login email, lowercase.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	DisplayName string `gorm:"type:text"` // Name shown on the public page.
	Bio         string `gorm:"type:text"` // Short profile text.
	WebsiteURL  string `gorm:"type:text"` // Optional personal site.
	AvatarURL   string `gorm:"type:text"` // Optional avatar image.

	SubscriptionTier string `gorm:"type:text;not null;default:free"` // Billing tier label.

	Testimonials []Testimonial `gorm:"foreignKey:UserID"` // Received testimonials.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
