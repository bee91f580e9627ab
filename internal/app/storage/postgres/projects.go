package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/tracker/internal/app/domain/project"
)

type projectRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	ManagerLogin string `db:"manager_login"`
}

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.ID = newID(p.ID)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, manager_login)
			VALUES ($1, $2, $3)
		`, p.ID, p.Name, p.ManagerLogin); err != nil {
			return err
		}
		return replaceMembers(ctx, tx, p)
	})
	if err != nil {
		return project.Project{}, mapError(err, "project "+p.ID)
	}
	return p.Clone(), nil
}

func (s *Store) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET name = $2, manager_login = $3
			WHERE id = $1
		`, p.ID, p.Name, p.ManagerLogin)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return replaceMembers(ctx, tx, p)
	})
	if err != nil {
		return project.Project{}, mapError(err, "project "+p.ID)
	}
	return p.Clone(), nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	var row projectRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, name, manager_login
		FROM projects
		WHERE id = $1
	`, id); err != nil {
		return project.Project{}, mapError(err, "project "+id)
	}
	projects, err := s.attachMembers(ctx, []projectRow{row})
	if err != nil {
		return project.Project{}, err
	}
	return projects[0], nil
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, manager_login
		FROM projects
		ORDER BY name, id
	`); err != nil {
		return nil, mapError(err, "list projects")
	}
	return s.attachMembers(ctx, rows)
}

func (s *Store) ListProjectsForUser(ctx context.Context, login string) ([]project.Project, error) {
	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT p.id, p.name, p.manager_login
		FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id
		WHERE p.manager_login = $1 OR m.login = $1
		ORDER BY p.name, p.id
	`, login); err != nil {
		return nil, mapError(err, "list projects for "+login)
	}
	return s.attachMembers(ctx, rows)
}

// attachMembers loads membership for every row in one query.
func (s *Store) attachMembers(ctx context.Context, rows []projectRow) ([]project.Project, error) {
	result := make([]project.Project, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var members []memberRow
	if err := s.db.SelectContext(ctx, &members, `
		SELECT project_id, login, role
		FROM project_members
		WHERE project_id = ANY($1)
		ORDER BY project_id, position
	`, pq.Array(ids)); err != nil {
		return nil, mapError(err, "load project members")
	}

	byProject := make(map[string][]memberRow, len(rows))
	for _, m := range members {
		byProject[m.ProjectID] = append(byProject[m.ProjectID], m)
	}

	for _, row := range rows {
		p := project.Project{
			ID:              row.ID,
			Name:            row.Name,
			ManagerLogin:    row.ManagerLogin,
			DeveloperLogins: []string{},
			TesterLogins:    []string{},
		}
		for _, m := range byProject[row.ID] {
			switch project.Role(m.Role) {
			case project.RoleTeamLeader:
				p.TeamLeaderLogin = m.Login
			case project.RoleDeveloper:
				p.DeveloperLogins = append(p.DeveloperLogins, m.Login)
			case project.RoleTester:
				p.TesterLogins = append(p.TesterLogins, m.Login)
			}
		}
		result = append(result, p)
	}
	return result, nil
}
