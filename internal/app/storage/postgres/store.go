package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mapError converts driver errors into storage sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// --- members ----------------------------------------------------------------

type memberRow struct {
	ProjectID string `db:"project_id"`
	Login     string `db:"login"`
	Role      string `db:"role"`
}

func membersOf(p project.Project) []memberRow {
	rows := make([]memberRow, 0, 1+len(p.DeveloperLogins)+len(p.TesterLogins))
	if p.TeamLeaderLogin != "" {
		rows = append(rows, memberRow{ProjectID: p.ID, Login: p.TeamLeaderLogin, Role: string(project.RoleTeamLeader)})
	}
	for _, login := range p.DeveloperLogins {
		rows = append(rows, memberRow{ProjectID: p.ID, Login: login, Role: string(project.RoleDeveloper)})
	}
	for _, login := range p.TesterLogins {
		rows = append(rows, memberRow{ProjectID: p.ID, Login: login, Role: string(project.RoleTester)})
	}
	return rows
}

func replaceMembers(ctx context.Context, tx *sqlx.Tx, p project.Project) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = $1`, p.ID); err != nil {
		return err
	}
	for i, m := range membersOf(p) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_members (project_id, login, role, position)
			VALUES ($1, $2, $3, $4)
		`, m.ProjectID, m.Login, m.Role, i); err != nil {
			return err
		}
	}
	return nil
}
