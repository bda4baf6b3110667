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

// ProfileHandler serves public profile reads and owner profile edits.
type ProfileHandler struct {
	db      *gorm.DB
	gate    *ratelimit.Gate
	limiter *ratelimit.Limiter
	nowFn   func() time.Time
}

// NewProfileHandler constructs a ProfileHandler. limiter gates reads per
// requested username.
func NewProfileHandler(db *gorm.DB, gate *ratelimit.Gate, limiter *ratelimit.Limiter, nowFn func() time.Time) *ProfileHandler {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ProfileHandler{db: db, gate: gate, limiter: limiter, nowFn: nowFn}
}

// Get returns the public fields of a profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	rawUsername := c.Param("username")

	decision := h.gate.Check(c.Request.Context(), c.Request, h.limiter, rawUsername)
	if !decision.Success {
		setNoCache(c)
		middleware.AbortRateLimited(c, decision, h.nowFn())
		return
	}

	username := validation.NormalizeUsername(rawUsername)
	if !validation.ValidUsername(username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz kullanıcı adı"})
		return
	}

	user, errFind := findUserByUsername(h.db.WithContext(c.Request.Context()), username)
	if errFind != nil {
		if !errors.Is(errFind, ErrUserNotFound) {
			log.WithError(errFind).WithField("username", username).Error("profile: lookup failed")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Kullanıcı bulunamadı"})
		return
	}

	c.Header("Cache-Control", "public, s-maxage=600, stale-while-revalidate=1200")
	c.Header("X-Cache-Status", "MISS")
	c.Header("Vary", "Accept-Encoding")
	c.JSON(http.StatusOK, gin.H{"userProfile": publicProfileJSON(user)})
}

// Update edits the authenticated owner's profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Kimlik doğrulama gerekli"})
		return
	}

	var body validation.ProfileUpdate
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz istek"})
		return
	}
	if errValidate := body.Normalize(); errValidate != nil {
		respondValidationError(c, errValidate)
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	taken, errTaken := usernameTaken(conn, body.Username, userID)
	if errTaken != nil {
		log.WithError(errTaken).Error("profile: username check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Bu kullanıcı adı zaten kullanılıyor"})
		return
	}

	var user models.User
	if errFind := conn.First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Kullanıcı bulunamadı"})
			return
		}
		log.WithError(errFind).Error("profile: load owner failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}

	updates := map[string]any{
		"display_name": body.FullName,
		"username":     body.Username,
		"bio":          body.Bio,
		"website_url":  body.Website,
		"updated_at":   h.nowFn().UTC(),
	}
	if errUpdate := conn.Model(&user).Updates(updates).Error; errUpdate != nil {
		log.WithError(errUpdate).Error("profile: update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profil güncellenemedi"})
		return
	}
	user.DisplayName = body.FullName
	user.Username = body.Username
	user.Bio = body.Bio
	user.WebsiteURL = body.Website

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profil başarıyla güncellendi",
		"profile": publicProfileJSON(user),
	})
}

func setNoCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func publicProfileJSON(user models.User) gin.H {
	return gin.H{
		"username":     user.Username,
		"display_name": user.DisplayName,
		"bio":          user.Bio,
		"website_url":  user.WebsiteURL,
		"avatar_url":   user.AvatarURL,
		"created_at":   user.CreatedAt,
	}
}
