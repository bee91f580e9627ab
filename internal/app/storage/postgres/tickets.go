package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
)

type ticketRow struct {
	ID          string `db:"id"`
	ProjectID   string `db:"project_id"`
	MilestoneID string `db:"milestone_id"`
	Title       string `db:"title"`
	Status      string `db:"status"`
}

type assigneeRow struct {
	TicketID string `db:"ticket_id"`
	Login    string `db:"login"`
}

func (s *Store) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	t.ID = newID(t.ID)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (id, project_id, milestone_id, title, status)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, t.ProjectID, t.MilestoneID, t.Title, string(t.Status)); err != nil {
			return err
		}
		return replaceAssignees(ctx, tx, t)
	})
	if err != nil {
		return ticket.Ticket{}, mapError(err, "ticket "+t.ID)
	}
	return t.Clone(), nil
}

func (s *Store) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tickets
			SET title = $2, status = $3
			WHERE id = $1
		`, t.ID, t.Title, string(t.Status))
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return replaceAssignees(ctx, tx, t)
	})
	if err != nil {
		return ticket.Ticket{}, mapError(err, "ticket "+t.ID)
	}
	return t.Clone(), nil
}

func replaceAssignees(ctx context.Context, tx *sqlx.Tx, t ticket.Ticket) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_assignees WHERE ticket_id = $1`, t.ID); err != nil {
		return err
	}
	for i, login := range t.AssigneeLogins {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ticket_assignees (ticket_id, login, position)
			VALUES ($1, $2, $3)
		`, t.ID, login, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	var row ticketRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, project_id, milestone_id, title, status
		FROM tickets
		WHERE id = $1
	`, id); err != nil {
		return ticket.Ticket{}, mapError(err, "ticket "+id)
	}
	tickets, err := s.attachAssignees(ctx, []ticketRow{row})
	if err != nil {
		return ticket.Ticket{}, err
	}
	return tickets[0], nil
}

func (s *Store) ListTicketsByMilestone(ctx context.Context, milestoneID string) ([]ticket.Ticket, error) {
	var rows []ticketRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, project_id, milestone_id, title, status
		FROM tickets
		WHERE milestone_id = $1
		ORDER BY title, id
	`, milestoneID); err != nil {
		return nil, mapError(err, "list tickets")
	}
	return s.attachAssignees(ctx, rows)
}

func (s *Store) ListTicketsByAssignee(ctx context.Context, login string) ([]ticket.Ticket, error) {
	var rows []ticketRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.project_id, t.milestone_id, t.title, t.status
		FROM tickets t
		JOIN ticket_assignees a ON a.ticket_id = t.id
		WHERE a.login = $1
		ORDER BY t.title, t.id
	`, login); err != nil {
		return nil, mapError(err, "list tickets for "+login)
	}
	return s.attachAssignees(ctx, rows)
}

func (s *Store) CountUnfinishedTickets(ctx context.Context, milestoneID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM tickets
		WHERE milestone_id = $1 AND status <> 'DONE'
	`, milestoneID); err != nil {
		return 0, mapError(err, "count tickets")
	}
	return count, nil
}

func (s *Store) attachAssignees(ctx context.Context, rows []ticketRow) ([]ticket.Ticket, error) {
	result := make([]ticket.Ticket, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var assignees []assigneeRow
	if err := s.db.SelectContext(ctx, &assignees, `
		SELECT ticket_id, login
		FROM ticket_assignees
		WHERE ticket_id = ANY($1)
		ORDER BY ticket_id, position
	`, pq.Array(ids)); err != nil {
		return nil, mapError(err, "load ticket assignees")
	}

	byTicket := make(map[string][]string, len(rows))
	for _, a := range assignees {
		byTicket[a.TicketID] = append(byTicket[a.TicketID], a.Login)
	}

	for _, row := range rows {
		logins := byTicket[row.ID]
		if logins == nil {
			logins = []string{}
		}
		result = append(result, ticket.Ticket{
			ID:             row.ID,
			ProjectID:      row.ProjectID,
			MilestoneID:    row.MilestoneID,
			Title:          row.Title,
			AssigneeLogins: logins,
			Status:         ticket.Status(row.Status),
		})
	}
	return result, nil
}
