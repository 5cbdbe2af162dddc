package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"taskboard/internal/domain"
)

type UserStore struct {
	db *DB
}

// Get retrieves a user by id, or (nil, nil) when the id does not
// resolve.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, role, created_at
		FROM users
		WHERE id = $1`

	user := &domain.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, email, role, created_at
		FROM users
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UserStore) Put(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		string(user.Role),
		user.CreatedAt,
	)
	return err
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
