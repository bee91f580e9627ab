package postgres

import (
	"context"
	"database/sql"

	"github.com/R3E-Network/tracker/internal/app/domain/bug"
)

type bugRow struct {
	ID            string         `db:"id"`
	ProjectID     string         `db:"project_id"`
	Title         string         `db:"title"`
	ReporterLogin string         `db:"reporter_login"`
	AssigneeLogin sql.NullString `db:"assignee_login"`
	Status        string         `db:"status"`
}

func (r bugRow) toDomain() bug.Report {
	return bug.Report{
		ID:                     r.ID,
		ProjectID:              r.ProjectID,
		Title:                  r.Title,
		ReporterLogin:          r.ReporterLogin,
		AssigneeDeveloperLogin: r.AssigneeLogin.String,
		Status:                 bug.Status(r.Status),
	}
}

const bugColumns = `id, project_id, title, reporter_login, assignee_login, status`

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func (s *Store) CreateBug(ctx context.Context, b bug.Report) (bug.Report, error) {
	b.ID = newID(b.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bug_reports (id, project_id, title, reporter_login, assignee_login, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.ProjectID, b.Title, b.ReporterLogin, nullable(b.AssigneeDeveloperLogin), string(b.Status))
	if err != nil {
		return bug.Report{}, mapError(err, "bug "+b.ID)
	}
	return b, nil
}

func (s *Store) UpdateBug(ctx context.Context, b bug.Report) (bug.Report, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bug_reports
		SET title = $2, assignee_login = $3, status = $4
		WHERE id = $1
	`, b.ID, b.Title, nullable(b.AssigneeDeveloperLogin), string(b.Status))
	if err != nil {
		return bug.Report{}, mapError(err, "bug "+b.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return bug.Report{}, mapError(sql.ErrNoRows, "bug "+b.ID)
	}
	return b, nil
}

func (s *Store) GetBug(ctx context.Context, id string) (bug.Report, error) {
	var row bugRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+bugColumns+` FROM bug_reports WHERE id = $1`, id); err != nil {
		return bug.Report{}, mapError(err, "bug "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListBugsByProject(ctx context.Context, projectID string) ([]bug.Report, error) {
	return s.selectBugs(ctx, "list bugs", `
		SELECT `+bugColumns+`
		FROM bug_reports
		WHERE project_id = $1
		ORDER BY title, id
	`, projectID)
}

func (s *Store) ListBugsByAssignee(ctx context.Context, login string) ([]bug.Report, error) {
	return s.selectBugs(ctx, "list bugs for "+login, `
		SELECT `+bugColumns+`
		FROM bug_reports
		WHERE assignee_login = $1
		ORDER BY title, id
	`, login)
}

func (s *Store) ListBugsByStatus(ctx context.Context, projectID string, status bug.Status) ([]bug.Report, error) {
	return s.selectBugs(ctx, "list bugs by status", `
		SELECT `+bugColumns+`
		FROM bug_reports
		WHERE project_id = $1 AND status = $2
		ORDER BY title, id
	`, projectID, string(status))
}

func (s *Store) selectBugs(ctx context.Context, what, query string, args ...interface{}) ([]bug.Report, error) {
	var rows []bugRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, what)
	}
	result := make([]bug.Report, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
