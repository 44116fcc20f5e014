package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxqual-backend/internal/application/audit"
	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockFor     = 15 * time.Minute
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IP       string `json:"-"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UserFinder abstracts credential checks (GORM in production, fakes in tests).
type UserFinder interface {
	FindByEmailAndPassword(ctx context.Context, in LoginInput) (*domain.User, error)
}

// Service checks credentials against users and enforces the lockout policy.
type Service struct {
	DB          *gorm.DB
	Audit       audit.Sink
	MaxAttempts int
	LockFor     time.Duration
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) limits() (int, time.Duration) {
	max, lock := s.MaxAttempts, s.LockFor
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if lock <= 0 {
		lock = DefaultLockFor
	}
	return max, lock
}

// FindByEmailAndPassword verifies the credentials. A wrong password counts towards the
// lockout; reaching the limit locks the account and records a LOCKOUT audit entry. A
// successful login resets the counter and records LOGIN.
func (s *Service) FindByEmailAndPassword(ctx context.Context, in LoginInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	db := s.DB.WithContext(ctx)
	var u domain.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	now := s.now()
	if u.IsLocked(now) {
		return nil, ErrAccountLocked
	}
	if !u.Active {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, s.recordFailure(ctx, &u, in.IP, now)
	}

	upd := map[string]interface{}{"failed_login_attempts": 0, "locked_until": nil, "last_login_at": now}
	if err := db.Model(&domain.User{}).Where("user_id = ?", u.UserID).Updates(upd).Error; err != nil {
		return nil, err
	}
	u.FailedLoginAttempts, u.LockedUntil, u.LastLoginAt = 0, nil, &now
	audit.Log(ctx, s.Audit, audit.Event{Action: domain.AuditLogin, ActorID: u.UserID, Detail: "Inicio de sesión", IP: in.IP})
	return &u, nil
}

func (s *Service) recordFailure(ctx context.Context, u *domain.User, ip string, now time.Time) error {
	max, lock := s.limits()
	attempts := u.FailedLoginAttempts + 1
	upd := map[string]interface{}{"failed_login_attempts": attempts}
	locked := attempts >= max
	if locked {
		until := now.Add(lock)
		upd["locked_until"] = until
		upd["failed_login_attempts"] = 0
	}
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", u.UserID).Updates(upd).Error; err != nil {
		return err
	}
	if locked {
		audit.Log(ctx, s.Audit, audit.Event{
			Action:  domain.AuditLockout,
			ActorID: u.UserID,
			Detail:  fmt.Sprintf("Cuenta bloqueada tras %d intentos fallidos", attempts),
			IP:      ip,
		})
		return ErrAccountLocked
	}
	return ErrIncorrectPassword
}

// RecordLogout writes the LOGOUT audit entry for a session user.
func (s *Service) RecordLogout(ctx context.Context, userID, ip string) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return
	}
	audit.Log(ctx, s.Audit, audit.Event{Action: domain.AuditLogout, ActorID: id, Detail: "Cierre de sesión", IP: ip})
}

// VerifyUser validates the session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
	}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
