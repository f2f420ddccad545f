package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ReservedEmailDomain holds the built-in demo accounts and is closed to registration.
const ReservedEmailDomain = "medtranslate.local"

func IsReservedEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+ReservedEmailDomain)
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// CreateParams is what the store needs to persist a new account. Email must already be normalized.
type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func ValidRole(role string) bool {
	return role == RoleDoctor || role == RolePatient
}

// Counterpart returns the role on the other side of a conversation.
func Counterpart(role string) string {
	if role == RoleDoctor {
		return RolePatient
	}
	return RoleDoctor
}
