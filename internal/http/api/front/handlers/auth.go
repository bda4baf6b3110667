package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/testimonialkit/testimonialkit/internal/db"
	"github.com/testimonialkit/testimonialkit/internal/models"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"github.com/testimonialkit/testimonialkit/internal/validation"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TokenIssuer signs owner session tokens.
type TokenIssuer interface {
	Issue(userID uint64, username string) (string, error)
}

// AuthHandler serves owner sign-up and sign-in.
type AuthHandler struct {
	db     *gorm.DB
	tokens TokenIssuer
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

type registerRequest struct {
	validation.Registration
	DisplayName string `json:"display_name"`
}

// Register creates an owner account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz istek"})
		return
	}
	if errValidate := body.Registration.Normalize(); errValidate != nil {
		respondValidationError(c, errValidate)
		return
	}

	ctx := c.Request.Context()
	taken, errTaken := usernameTaken(h.db.WithContext(ctx), body.Username, 0)
	if errTaken != nil {
		log.WithError(errTaken).Error("register: username lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Bu kullanıcı adı zaten kullanılıyor"})
		return
	}
	var emailCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", body.Email).
		Count(&emailCount).Error; errCount != nil {
		log.WithError(errCount).Error("register: email lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	if emailCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Bu e-posta adresi zaten kayıtlı"})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		log.WithError(errHash).Error("register: hash password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	displayName := strings.TrimSpace(body.DisplayName)
	if displayName == "" {
		displayName = body.Username
	}
	user := models.User{
		Username:         body.Username,
		Email:            body.Email,
		Password:         hash,
		DisplayName:      displayName,
		SubscriptionTier: models.TierFree,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		log.WithError(errCreate).Error("register: create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Hesap oluşturulamadı"})
		return
	}

	token, errToken := h.tokens.Issue(user.ID, user.Username)
	if errToken != nil {
		log.WithError(errToken).Error("register: issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": ownerJSON(user)})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body validation.Login
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz istek"})
		return
	}
	if errValidate := body.Normalize(); errValidate != nil {
		respondValidationError(c, errValidate)
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", body.Email).First(&user).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		log.WithError(errFind).Error("login: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	if errFind != nil || security.CheckPassword(user.Password, body.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Geçersiz e-posta veya şifre"})
		return
	}

	token, errToken := h.tokens.Issue(user.ID, user.Username)
	if errToken != nil {
		log.WithError(errToken).Error("login: issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sunucu hatası"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": ownerJSON(user)})
}

// usernameTaken reports whether another user (not exceptID) holds username.
func usernameTaken(conn *gorm.DB, username string, exceptID uint64) (bool, error) {
	q := conn.Model(&models.User{}).Where(dbutil.CaseInsensitiveEqualExpr(conn, "username"), username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if errCount := q.Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

func respondValidationError(c *gin.Context, err error) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Geçersiz istek"})
}

func ownerJSON(user models.User) gin.H {
	return gin.H{
		"id":                user.ID,
		"username":          user.Username,
		"email":             user.Email,
		"display_name":      user.DisplayName,
		"bio":               user.Bio,
		"website_url":       user.WebsiteURL,
		"avatar_url":        user.AvatarURL,
		"subscription_tier": user.SubscriptionTier,
		"created_at":        user.CreatedAt,
	}
}
