package postgres

import (
	"context"

	"github.com/R3E-Network/tracker/internal/app/domain/user"
)

type userRow struct {
	Login string `db:"login"`
	Name  string `db:"name"`
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (login, name)
		VALUES ($1, $2)
	`, u.Login, u.Name)
	if err != nil {
		return user.User{}, mapError(err, "user "+u.Login)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, login string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT login, name FROM users WHERE login = $1`, login); err != nil {
		return user.User{}, mapError(err, "user "+login)
	}
	return user.User{Login: row.Login, Name: row.Name}, nil
}

func (s *Store) UserExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, login); err != nil {
		return false, mapError(err, "user "+login)
	}
	return exists, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT login, name FROM users ORDER BY login`); err != nil {
		return nil, mapError(err, "list users")
	}
	result := make([]user.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, user.User{Login: row.Login, Name: row.Name})
	}
	return result, nil
}
