package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	u := user.User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
	}

	err := observe(r.prom, "users.create", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			u.Name, u.Email, u.PasswordHash, u.Role,
		).Scan(&u.ID, &u.CreatedAt)
	})

	if err != nil {
		if IsUniqueViolation(err) && constraintName(err) == "users_email_key" {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = $1`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User

	err := observe(r.prom, op, func() error {
		return r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) ListByRole(ctx context.Context, role string) ([]user.User, error) {
	out := make([]user.User, 0)

	err := observe(r.prom, "users.list_by_role", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, name, email, role, created_at
			FROM users
			WHERE role = $1
			ORDER BY name ASC, id ASC`, role)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
