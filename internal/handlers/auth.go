package handlers

import (
	"net/http"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/auth"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/config"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/middleware"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	users    *store.EntityService[models.User]
	provider *auth.StateProvider
	cfg      config.AuthConfig
}

func NewAuthHandler(db *gorm.DB, provider *auth.StateProvider, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		users:    store.NewEntityService[models.User](db),
		provider: provider,
		cfg:      cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the credentials, creates the session record and hands the
// browser a signed session token (body and cookie).
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := h.users.GetByCondition(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("username = ?", req.Username)
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if len(matches) == 0 {
		metrics.IncLoginTotal("failure")
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	user := matches[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.IncLoginTotal("failure")
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	sessionID := uuid.NewString()
	if err := h.provider.SetUser(sessionID, user); err != nil {
		// A failed session write must surface: the UI would otherwise
		// believe the login succeeded.
		respondError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	ttl := time.Duration(h.cfg.SessionTTLHours) * time.Hour
	token, err := middleware.SignSessionToken(sessionID, h.cfg.JWTSecret, ttl)
	if err != nil {
		h.provider.Logout(sessionID)
		respondError(c, http.StatusInternalServerError, "Failed to sign session token")
		return
	}

	metrics.IncLoginTotal("success")
	metrics.IncTokenIssued("session")

	c.SetCookie(middleware.SessionCookie, token, int(ttl.Seconds()), "/", "", false, true)
	respond(c, http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// Logout destroys the session record and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	h.provider.Logout(sessionID)

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"logged_out": true})
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authorization required")
		return
	}
	respond(c, http.StatusOK, principal)
}

// State resolves the current authentication state without requiring it.
// Anonymous is a valid answer, never an error.
func (h *AuthHandler) State(c *gin.Context) {
	sessionID := middleware.ExtractSessionID(c, h.cfg.JWTSecret)
	respond(c, http.StatusOK, h.provider.State(sessionID))
}
