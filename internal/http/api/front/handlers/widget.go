package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/validation"
	"github.com/testimonialkit/testimonialkit/internal/widget"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WidgetHandler serves the embeddable testimonial widget.
type WidgetHandler struct {
	db        *gorm.DB
	publicURL string
}

// NewWidgetHandler constructs a WidgetHandler.
func NewWidgetHandler(db *gorm.DB, publicURL string) *WidgetHandler {
	return &WidgetHandler{db: db, publicURL: publicURL}
}

// Get renders the widget HTML for a profile.
func (h *WidgetHandler) Get(c *gin.Context) {
	setWidgetCORS(c, "GET")
	conn := h.db.WithContext(c.Request.Context())
	user, errFind := findUserByUsername(conn, validation.NormalizeUsername(c.Param("username")))
	if errFind != nil {
		if !errors.Is(errFind, ErrUserNotFound) {
			log.WithError(errFind).Error("widget: profile lookup failed")
		}
		c.String(http.StatusNotFound, "Kullanıcı bulunamadı")
		return
	}

	rows, errList := approvedTestimonials(conn, user.ID, widget.MaxTestimonials)
	if errList != nil {
		log.WithError(errList).Error("widget: list testimonials failed")
		c.String(http.StatusInternalServerError, "Testimonial'lar alınamadı")
		return
	}
	html, errRender := widget.Render(user, rows, h.publicURL)
	if errRender != nil {
		log.WithError(errRender).Error("widget: render failed")
		c.String(http.StatusInternalServerError, "Sunucu hatası")
		return
	}

	c.Header("Cache-Control", "public, max-age=300, s-maxage=300")
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// Options answers CORS preflight for the widget.
func (h *WidgetHandler) Options(c *gin.Context) {
	setWidgetCORS(c, "GET, OPTIONS")
	c.Status(http.StatusOK)
}

func setWidgetCORS(c *gin.Context, methods string) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", methods)
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}
