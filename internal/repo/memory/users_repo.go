package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/medtranslate/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) Create(_ context.Context, p user.CreateParams) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.usersByEmail[p.Email]; exists {
		return user.User{}, user.ErrDuplicateEmail
	}

	r.s.nextUserID++
	u := user.User{
		ID:           r.s.nextUserID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		CreatedAt:    r.s.now(),
	}
	r.s.users[u.ID] = u
	r.s.usersByEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usersByEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) ListByRole(_ context.Context, role string) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]user.User, 0)
	for _, u := range r.s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
