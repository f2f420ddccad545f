package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/geocoder89/medtranslate/internal/domain"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/security"
	"github.com/go-playground/validator/v10"
)

type UserStore interface {
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	ListByRole(ctx context.Context, role string) ([]user.User, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type Service struct {
	users    UserStore
	validate *validator.Validate
	hash     func(string) (string, error)
}

func NewService(users UserStore) *Service {
	return &Service{
		users:    users,
		validate: validator.New(),
		hash:     security.HashPassword,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	role := strings.ToLower(strings.TrimSpace(in.Role))

	if utf8.RuneCountInString(in.Password) < security.MinPasswordLength {
		return user.User{}, domain.NewValidationError("password",
			fmt.Sprintf("must be at least %d characters", security.MinPasswordLength))
	}
	if name == "" {
		return user.User{}, domain.NewValidationError("name", "is required")
	}
	if email == "" {
		return user.User{}, domain.NewValidationError("email", "is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return user.User{}, domain.NewValidationError("email", "must be a valid email address")
	}
	if user.IsReservedEmail(email) {
		return user.User{}, domain.NewValidationError("email", "uses a reserved domain")
	}
	if !user.ValidRole(role) {
		return user.User{}, domain.NewValidationError("role", "must be one of doctor, patient")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	// uniqueness is left to the users_email_key constraint
	u, err := s.users.Create(ctx, user.CreateParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			security.BurnPasswordCheck(password)
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, fmt.Errorf("check password: %w", err)
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (user.User, error) {
	if id <= 0 {
		return user.User{}, user.ErrNotFound
	}
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]user.User, error) {
	return s.users.ListByRole(ctx, user.RoleDoctor)
}
