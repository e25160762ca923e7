package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionCfg holds configuration for session middleware.
type SessionCfg struct {
	DB         *gorm.DB
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Session is a database-backed session model.
type Session struct {
	ID         string    `gorm:"primaryKey;type:char(36)"`
	UserID     string    `gorm:"type:char(36);not null;index:ix_sessions_user_id"`
	ExpiresAt  time.Time `gorm:"type:datetime(3);not null"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
	LastSeenAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Session) TableName() string { return "sessions" }

// SessionMiddleware resolves the session cookie to a user and stores the
// identity in the request context. Anonymous requests pass through untouched.
func SessionMiddleware(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}

		var sess Session
		if err := cfg.DB.Where("id = ? AND expires_at > ?", sessionID, time.Now()).First(&sess).Error; err != nil {
			// invalid or expired, clear the cookie
			c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
			c.Next()
			return
		}

		c.Set("session", &sess)
		c.Set("user_id", sess.UserID)

		var userEmail string
		var firstName, lastName *string
		row := cfg.DB.Table("users").
			Select("email", "first_name", "last_name").
			Where("id = ?", sess.UserID).Row()
		if err := row.Scan(&userEmail, &firstName, &lastName); err == nil {
			c.Set("user_email", userEmail)
			c.Set("user_first_name", firstName)
			c.Set("user_last_name", lastName)
		}

		c.Next()
	}
}

// CreateSession creates a new session for the given user.
func CreateSession(cfg SessionCfg, userID string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExpiresAt:  now.Add(cfg.TTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := cfg.DB.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSession removes a session by ID.
func DeleteSession(cfg SessionCfg, sessionID string) error {
	return cfg.DB.Delete(&Session{}, "id = ?", sessionID).Error
}

// ContextUser represents the authenticated user stored in request context.
type ContextUser struct {
	ID        string
	Email     string
	FirstName *string
	LastName  *string
}

// CurrentUser retrieves the authenticated user from the gin context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return ContextUser{}, false
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return ContextUser{}, false
	}

	var emailStr string
	var firstName, lastName *string
	if email, ok := c.Get("user_email"); ok && email != nil {
		emailStr, _ = email.(string)
	}
	if fn, ok := c.Get("user_first_name"); ok && fn != nil {
		firstName, _ = fn.(*string)
	}
	if ln, ok := c.Get("user_last_name"); ok && ln != nil {
		lastName, _ = ln.(*string)
	}

	return ContextUser{
		ID:        userID,
		Email:     emailStr,
		FirstName: firstName,
		LastName:  lastName,
	}, true
}
