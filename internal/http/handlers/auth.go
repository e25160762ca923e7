package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/http/validation"
	"hamropasal.com/app/internal/modules/users"
	"hamropasal.com/app/internal/shared/apperr"
)

type AuthHandler struct {
	Users      *users.Service
	SessionCfg middleware.SessionCfg
}

func NewAuthHandler(us *users.Service, sessCfg middleware.SessionCfg) *AuthHandler {
	return &AuthHandler{Users: us, SessionCfg: sessCfg}
}

type registerRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}

	u, err := h.Users.Register(c.Request.Context(), users.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PhoneE164: req.Phone,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	h.startSession(c, u.ID)
	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{"id": u.ID, "email": u.Email, "name": u.DisplayName()},
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid email or password."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	h.startSession(c, u.ID)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{"id": u.ID, "email": u.Email, "name": u.DisplayName()},
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if sid, err := c.Cookie(h.SessionCfg.CookieName); err == nil && sid != "" {
		_ = middleware.DeleteSession(h.SessionCfg, sid)
	}
	c.SetCookie(h.SessionCfg.CookieName, "", -1, "/", "", h.SessionCfg.Secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{"id": cu.ID, "email": cu.Email, "first_name": cu.FirstName, "last_name": cu.LastName},
	})
}

func (h *AuthHandler) startSession(c *gin.Context, userID string) {
	sess, err := middleware.CreateSession(h.SessionCfg, userID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	maxAge := int(h.SessionCfg.TTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.SessionCfg.CookieName, sess.ID, maxAge, "/", "", h.SessionCfg.Secure, true)
}
