package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an operator of the system. Role drives permissions (see internal/constants).
type User struct {
	UserID              uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname            string         `gorm:"column:fullname;not null" json:"fullname"`
	Email               string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash        string         `gorm:"column:password_hash;not null" json:"-"`
	Role                string         `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Active              bool           `gorm:"column:active;not null" json:"active"`
	FailedLoginAttempts int            `gorm:"column:failed_login_attempts;not null" json:"-"`
	LockedUntil         *time.Time     `gorm:"column:locked_until" json:"locked_until,omitempty"`
	LastLoginAt         *time.Time     `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// IsLocked reports whether the account is locked at time now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
