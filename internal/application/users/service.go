package users

import (
	"context"
	"errors"
	"strings"

	policies "taxqual-backend/internal/application/policies/users"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/pkg/constants"
	"taxqual-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

var (
	ErrUserNotFound      = errors.New("User not found")
	ErrEmailRegistered   = errors.New("Email already registered")
	ErrInvalidEmail      = errors.New("Invalid email format")
	ErrInvalidPassword   = errors.New("Invalid password format")
	ErrInvalidFullname   = errors.New("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	ErrInvalidRole       = errors.New("Invalid role")
	ErrMissingFields     = errors.New("Missing update fields")
	ErrSeedNotConfigured = errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required to seed the first admin")
)

// Service manages operator accounts.
type Service struct {
	DB *gorm.DB
}

// CreateUserInput is the body of an admin user creation.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// CreateUser validates in and stores an active user.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	fullname := strings.TrimSpace(in.Fullname)
	if !validation.IsValidFullname(fullname) {
		return nil, ErrInvalidFullname
	}
	role := in.Role
	if role == "" {
		role = constants.Analyst
	}
	if !constants.IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	var existing domain.User
	if err := s.DB.WithContext(ctx).Unscoped().Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailRegistered
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     fullname,
		Role:         role,
		Active:       true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser applies the allowed fields: email, password, fullname, role, active.
// Role and active changes go through the admin governance policy.
func (s *Service) UpdateUser(ctx context.Context, actorID, id uuid.UUID, fields map[string]interface{}) (*domain.User, error) {
	allowed := map[string]bool{"email": true, "password": true, "fullname": true, "role": true, "active": true}
	upd := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			upd[k] = v
		}
	}
	if len(upd) == 0 {
		return nil, ErrMissingFields
	}

	if v, ok := upd["email"]; ok {
		e, _ := v.(string)
		e = strings.TrimSpace(strings.ToLower(e))
		if !validation.IsValidEmail(e) {
			return nil, ErrInvalidEmail
		}
		var dup domain.User
		if err := s.DB.WithContext(ctx).Unscoped().Where("email = ? AND user_id <> ?", e, id).First(&dup).Error; err == nil {
			return nil, ErrEmailRegistered
		}
		upd["email"] = e
	}
	if v, ok := upd["password"]; ok {
		p, _ := v.(string)
		if !validation.IsValidPassword(p) {
			return nil, ErrInvalidPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(p), bcryptCost)
		if err != nil {
			return nil, err
		}
		upd["password_hash"] = string(hash)
		delete(upd, "password")
	}
	if v, ok := upd["fullname"]; ok {
		fn, _ := v.(string)
		fn = strings.TrimSpace(fn)
		if !validation.IsValidFullname(fn) {
			return nil, ErrInvalidFullname
		}
		upd["fullname"] = fn
	}
	change := policies.ChangeParams{ActorUserID: actorID, TargetUserID: id}
	if v, ok := upd["role"]; ok {
		r, _ := v.(string)
		if !constants.IsValidRole(r) {
			return nil, ErrInvalidRole
		}
		change.TargetRole = r
	}
	if v, ok := upd["active"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return nil, ErrMissingFields
		}
		upd["active"] = b
		change.Active = &b
		if b {
			upd["failed_login_attempts"] = 0
			upd["locked_until"] = nil
		}
	}
	if err := policies.ValidateChange(s.DB.WithContext(ctx), change); err != nil {
		return nil, policyErr(err)
	}

	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", id).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.ViewUser(ctx, id)
}

// ViewUser returns a user by id.
func (s *Service) ViewUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every non-deleted user ordered by name.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := s.DB.WithContext(ctx).Order("fullname ASC").Find(&out).Error
	return out, err
}

// RemoveUser soft-deletes a user. Admins cannot remove themselves or the last active admin.
func (s *Service) RemoveUser(ctx context.Context, actorID, id uuid.UUID) error {
	if err := policies.ValidateRemoval(s.DB.WithContext(ctx), actorID, id); err != nil {
		return policyErr(err)
	}
	res := s.DB.WithContext(ctx).Where("user_id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func policyErr(err error) error {
	if errors.Is(err, policies.ErrTargetUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

// SeedAdmin creates the first admin when no user exists yet. It is a no-op otherwise.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}
	if email == "" || password == "" {
		return nil, ErrSeedNotConfigured
	}
	u, err := s.CreateUser(ctx, CreateUserInput{Email: email, Password: password, Fullname: "Administrador", Role: constants.Admin})
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", u.Email).Msg("Seeded admin user")
	return u, nil
}
