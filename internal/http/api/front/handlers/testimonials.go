package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/models"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/validation"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TestimonialHandler serves public testimonial listing and submission.
type TestimonialHandler struct {
	db      *gorm.DB
	gate    *ratelimit.Gate
	limiter *ratelimit.Limiter
	nowFn   func() time.Time
}

// NewTestimonialHandler constructs a TestimonialHandler. limiter gates
// submissions per client.
func NewTestimonialHandler(db *gorm.DB, gate *ratelimit.Gate, limiter *ratelimit.Limiter, nowFn func() time.Time) *TestimonialHandler {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &TestimonialHandler{db: db, gate: gate, limiter: limiter, nowFn: nowFn}
}

// List returns a profile's approved testimonials, newest first.
func (h *TestimonialHandler) List(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	user, errFind := findUserByUsername(conn, validation.NormalizeUsername(c.Param("username")))
	if errFind != nil {
		if !errors.Is(errFind, ErrUserNotFound) {
			log.WithError(errFind).Error("testimonials: profile lookup failed")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Kullanıcı bulunamadı"})
		return
	}

	rows, errList := approvedTestimonials(conn, user.ID, 0)
	if errList != nil {
		log.WithError(errList).Error("testimonials: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Yorumlar yüklenemedi"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, TestimonialJSON(row))
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": out})
}

// Create stores a pending testimonial for the profile.
func (h *TestimonialHandler) Create(c *gin.Context) {
	decision := h.gate.Check(c.Request.Context(), c.Request, h.limiter, "")
	if !decision.Success {
		middleware.AbortRateLimited(c, decision, h.nowFn())
		return
	}
	middleware.WriteRateLimitHeaders(c, decision)

	var body validation.Testimonial
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz istek"})
		return
	}
	if errValidate := body.Normalize(); errValidate != nil {
		respondValidationError(c, errValidate)
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	user, errFind := findUserByUsername(conn, validation.NormalizeUsername(c.Param("username")))
	if errFind != nil {
		if !errors.Is(errFind, ErrUserNotFound) {
			log.WithError(errFind).Error("testimonials: profile lookup failed")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Kullanıcı bulunamadı"})
		return
	}

	row := models.Testimonial{
		UserID:       user.ID,
		CustomerName: body.CustomerName,
		Content:      body.Content,
		VideoURL:     body.VideoURL,
		IsApproved:   false,
	}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Error("testimonials: create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Yorum kaydedilemedi"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Yorumunuz alındı, onaylandıktan sonra yayınlanacak",
		"testimonial": TestimonialJSON(row),
	})
}

// TestimonialJSON renders a testimonial for API responses.
func TestimonialJSON(row models.Testimonial) gin.H {
	return gin.H{
		"id":            row.ID,
		"customer_name": row.CustomerName,
		"content":       row.Content,
		"video_url":     row.VideoURL,
		"is_approved":   row.IsApproved,
		"created_at":    row.CreatedAt,
	}
}
