// File: internal/domain/advocate.go
package domain

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Advocate is a registered lawyer. Approval (KYC) happens outside this
// service; only approved advocates can receive consultations.
//
// IsOnline and LastSeen are the durable fallback for the in-memory presence
// registry. They are written asynchronously on connect/disconnect and are
// eventually consistent with live state, never the other way around.
type Advocate struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	Name           string    `json:"name" gorm:"not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-"`
	Specialization string    `json:"specialization"`
	FeeAmount      int       `json:"fee_amount" gorm:"not null;default:0"`
	IsApproved     bool      `json:"is_approved" gorm:"index;default:false"`
	IsOnline       bool      `json:"is_online" gorm:"index;default:false"`
	LastSeen       time.Time `json:"last_seen"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HashPassword securely hashes the advocate's password.
func (a *Advocate) HashPassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashed)
	return nil
}

// ValidatePassword compares a plain-text password with the stored hash.
func (a *Advocate) ValidatePassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password))
}

func (a *Advocate) IsValid() error {
	if len(strings.TrimSpace(a.Name)) < 2 {
		return errors.New("name must be at least 2 characters")
	}
	if !strings.Contains(a.Email, "@") {
		return errors.New("a valid email is required")
	}
	if a.FeeAmount < 0 {
		return errors.New("fee amount cannot be negative")
	}
	return nil
}
