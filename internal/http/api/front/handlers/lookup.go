package handlers

import (
	"errors"

	"github.com/testimonialkit/testimonialkit/internal/models"
	"gorm.io/gorm"
)

// ErrUserNotFound indicates no profile exists for a username.
var ErrUserNotFound = errors.New("user not found")

// findUserByUsername loads the profile for an already normalized username.
func findUserByUsername(conn *gorm.DB, username string) (models.User, error) {
	var user models.User
	if errFind := conn.Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, errFind
	}
	return user, nil
}

// approvedTestimonials returns the user's approved testimonials, newest
// first. A non-positive limit returns all of them.
func approvedTestimonials(conn *gorm.DB, userID uint64, limit int) ([]models.Testimonial, error) {
	q := conn.Where("user_id = ? AND is_approved = ?", userID, true).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Testimonial
	if errFind := q.Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
