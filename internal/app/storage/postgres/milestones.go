package postgres

import (
	"context"
	"database/sql"

	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
)

type milestoneRow struct {
	ID        string         `db:"id"`
	ProjectID string         `db:"project_id"`
	Name      string         `db:"name"`
	StartDate milestone.Date `db:"start_date"`
	EndDate   milestone.Date `db:"end_date"`
	Status    string         `db:"status"`
}

func (r milestoneRow) toDomain() milestone.Milestone {
	return milestone.Milestone{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Name:      r.Name,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Status:    milestone.Status(r.Status),
	}
}

const milestoneColumns = `id, project_id, name, start_date, end_date, status`

func (s *Store) CreateMilestone(ctx context.Context, m milestone.Milestone) (milestone.Milestone, error) {
	m.ID = newID(m.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO milestones (id, project_id, name, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.ProjectID, m.Name, m.StartDate, m.EndDate, string(m.Status))
	if err != nil {
		return milestone.Milestone{}, mapError(err, "milestone "+m.ID)
	}
	return m, nil
}

func (s *Store) UpdateMilestone(ctx context.Context, m milestone.Milestone) (milestone.Milestone, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE milestones
		SET name = $2, start_date = $3, end_date = $4, status = $5
		WHERE id = $1
	`, m.ID, m.Name, m.StartDate, m.EndDate, string(m.Status))
	if err != nil {
		return milestone.Milestone{}, mapError(err, "milestone "+m.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return milestone.Milestone{}, mapError(sql.ErrNoRows, "milestone "+m.ID)
	}
	return m, nil
}

func (s *Store) GetMilestone(ctx context.Context, id string) (milestone.Milestone, error) {
	var row milestoneRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, id); err != nil {
		return milestone.Milestone{}, mapError(err, "milestone "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListMilestones(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	var rows []milestoneRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+milestoneColumns+`
		FROM milestones
		WHERE project_id = $1
		ORDER BY start_date, name
	`, projectID); err != nil {
		return nil, mapError(err, "list milestones")
	}
	result := make([]milestone.Milestone, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) HasCurrentMilestone(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM milestones
			WHERE project_id = $1 AND status IN ('OPEN', 'ACTIVE')
		)
	`, projectID); err != nil {
		return false, mapError(err, "current milestone")
	}
	return exists, nil
}

func (s *Store) HasActiveMilestone(ctx context.Context, projectID, excludeID string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM milestones
			WHERE project_id = $1 AND status = 'ACTIVE' AND id::text <> $2
		)
	`, projectID, excludeID); err != nil {
		return false, mapError(err, "active milestone")
	}
	return exists, nil
}
