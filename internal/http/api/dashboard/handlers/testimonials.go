package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	fronthandlers "github.com/testimonialkit/testimonialkit/internal/http/api/front/handlers"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TestimonialHandler serves the owner's moderation endpoints.
type TestimonialHandler struct {
	db *gorm.DB
}

// NewTestimonialHandler constructs a TestimonialHandler.
func NewTestimonialHandler(db *gorm.DB) *TestimonialHandler {
	return &TestimonialHandler{db: db}
}

// List returns the owner's testimonials, optionally filtered by status
// (pending, approved or all).
func (h *TestimonialHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", middleware.UserID(c))
	switch strings.ToLower(strings.TrimSpace(c.Query("status"))) {
	case "", "all":
	case "pending":
		q = q.Where("is_approved = ?", false)
	case "approved":
		q = q.Where("is_approved = ?", true)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz durum filtresi"})
		return
	}

	var rows []models.Testimonial
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("dashboard: list testimonials failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Yorumlar yüklenemedi"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, fronthandlers.TestimonialJSON(row))
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": out})
}

// Stats returns total, approved and pending counts.
func (h *TestimonialHandler) Stats(c *gin.Context) {
	var approvedCounts []struct {
		IsApproved bool
		Count      int64
	}
	if errCount := h.db.WithContext(c.Request.Context()).
		Model(&models.Testimonial{}).
		Select("is_approved, COUNT(*) AS count").
		Where("user_id = ?", middleware.UserID(c)).
		Group("is_approved").
		Scan(&approvedCounts).Error; errCount != nil {
		log.WithError(errCount).Error("dashboard: stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "İstatistikler yüklenemedi"})
		return
	}

	var total, approved int64
	for _, row := range approvedCounts {
		total += row.Count
		if row.IsApproved {
			approved += row.Count
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"approved": approved,
		"pending":  total - approved,
	})
}

// Approve publishes a testimonial.
func (h *TestimonialHandler) Approve(c *gin.Context) {
	h.setApproval(c, true)
}

// Reject hides a testimonial from public pages.
func (h *TestimonialHandler) Reject(c *gin.Context) {
	h.setApproval(c, false)
}

func (h *TestimonialHandler) setApproval(c *gin.Context, approved bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz yorum kimliği"})
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	var row models.Testimonial
	if errFind := conn.Where("id = ? AND user_id = ?", id, middleware.UserID(c)).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Yorum bulunamadı"})
			return
		}
		log.WithError(errFind).Error("dashboard: load testimonial failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}

	if errUpdate := conn.Model(&row).Update("is_approved", approved).Error; errUpdate != nil {
		log.WithError(errUpdate).Error("dashboard: update approval failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Yorum güncellenemedi"})
		return
	}
	row.IsApproved = approved
	c.JSON(http.StatusOK, gin.H{"testimonial": fronthandlers.TestimonialJSON(row)})
}
