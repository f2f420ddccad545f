package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/medtranslate/internal/domain"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	svc := NewService(memory.NewStore().Users())
	// bcrypt at default cost makes the suite slow; the real hash is covered in security
	svc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return svc
}

func TestRegister_NormalizesEmailAndRole(t *testing.T) {
	svc := newTestService()

	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "  Dr. A ", Email: " A@X.com ", Password: "secret1", Role: "Doctor",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Dr. A", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, user.RoleDoctor, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "A@x.com", Password: "secret1", Role: "doctor"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "a@x.com", Password: "secret2", Role: "patient"})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short password", RegisterInput{Name: "A", Email: "a@x.com", Password: "12345", Role: "doctor"}, "password"},
		{"short password with bad fields", RegisterInput{Email: "nope", Password: "abc", Role: "nurse"}, "password"},
		{"missing name", RegisterInput{Email: "a@x.com", Password: "secret1", Role: "doctor"}, "name"},
		{"missing email", RegisterInput{Name: "A", Password: "secret1", Role: "doctor"}, "email"},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1", Role: "doctor"}, "email"},
		{"bad role", RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: "nurse"}, "role"},
		{"blank name", RegisterInput{Name: "   ", Email: "a@x.com", Password: "secret1", Role: "patient"}, "name"},
		{"reserved domain", RegisterInput{Name: "M", Email: " Demo.Doctor@MedTranslate.local", Password: "secret1", Role: "patient"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService().Register(context.Background(), tt.in)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(memory.NewStore().Users())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "P", Email: "p@x.com", Password: "secret2", Role: "patient"})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "P@X.COM", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "P", u.Name)

	_, err = svc.Authenticate(ctx, "p@x.com", "wrong-pass")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost@x.com", "secret2")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestGetByIDAndListDoctors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, in := range []RegisterInput{
		{Name: "Zoe", Email: "z@x.com", Password: "secret1", Role: "doctor"},
		{Name: "Pat", Email: "p@x.com", Password: "secret1", Role: "patient"},
		{Name: "Abe", Email: "abe@x.com", Password: "secret1", Role: "doctor"},
	} {
		_, err := svc.Register(ctx, in)
		require.NoError(t, err)
	}

	doctors, err := svc.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Abe", doctors[0].Name)
	assert.Equal(t, "Zoe", doctors[1].Name)

	got, err := svc.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Email, "p@"))

	_, err = svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, user.ErrNotFound)
}
