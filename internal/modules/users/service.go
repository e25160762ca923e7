package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/shared/apperr"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	PhoneE164 *string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.InvalidErr("A valid email is required.", map[string]string{"email": "invalid"})
	}
	if len(in.Password) < 8 {
		return nil, apperr.InvalidErr("Password must be at least 8 characters.", map[string]string{"password": "too_short"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	now := time.Now()
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneE164:    in.PhoneE164,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, apperr.ConflictErr("An account with this email already exists.")
		}
		return nil, apperr.Wrap(err)
	}
	return &u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// burn a comparison so a missing account costs the same as a
			// wrong password
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B0aZ1W3V7Vb0aH1W3V7Vb0aH1W3V"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundErr("User not found.")
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return apperr.InvalidErr("Password must be at least 8 characters.", map[string]string{"password": "too_short"})
	}

	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)); err != nil {
		return apperr.UnauthorizedErr("Current password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err)
	}
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash": hash,
			"updated_at":    time.Now(),
		}).Error
}
