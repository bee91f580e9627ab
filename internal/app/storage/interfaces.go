package storage

import (
	"context"
	stderrors "errors"

	"github.com/R3E-Network/tracker/internal/app/domain/bug"
	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
	"github.com/R3E-Network/tracker/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = stderrors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = stderrors.New("storage: conflict")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, login string) (user.User, error)
	UserExists(ctx context.Context, login string) (bool, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// ProjectStore persists projects and their membership.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	// UpdateProject replaces name, manager and the full member list.
	UpdateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
	ListProjects(ctx context.Context) ([]project.Project, error)
	// ListProjectsForUser returns projects login manages or belongs to.
	ListProjectsForUser(ctx context.Context, login string) ([]project.Project, error)
}

// MilestoneStore persists milestones.
type MilestoneStore interface {
	CreateMilestone(ctx context.Context, m milestone.Milestone) (milestone.Milestone, error)
	UpdateMilestone(ctx context.Context, m milestone.Milestone) (milestone.Milestone, error)
	GetMilestone(ctx context.Context, id string) (milestone.Milestone, error)
	// ListMilestones returns the project's milestones ordered by start date.
	ListMilestones(ctx context.Context, projectID string) ([]milestone.Milestone, error)
	// HasCurrentMilestone reports an OPEN or ACTIVE milestone in the project.
	HasCurrentMilestone(ctx context.Context, projectID string) (bool, error)
	// HasActiveMilestone reports an ACTIVE milestone other than excludeID.
	HasActiveMilestone(ctx context.Context, projectID, excludeID string) (bool, error)
}

// TicketStore persists tickets and their assignees.
type TicketStore interface {
	CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	// UpdateTicket replaces title, status and the assignee set.
	UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	GetTicket(ctx context.Context, id string) (ticket.Ticket, error)
	// ListTicketsByMilestone orders by title.
	ListTicketsByMilestone(ctx context.Context, milestoneID string) ([]ticket.Ticket, error)
	// ListTicketsByAssignee orders by title.
	ListTicketsByAssignee(ctx context.Context, login string) ([]ticket.Ticket, error)
	// CountUnfinishedTickets counts tickets in the milestone that are not DONE.
	CountUnfinishedTickets(ctx context.Context, milestoneID string) (int, error)
}

// BugStore persists bug reports.
type BugStore interface {
	CreateBug(ctx context.Context, b bug.Report) (bug.Report, error)
	UpdateBug(ctx context.Context, b bug.Report) (bug.Report, error)
	GetBug(ctx context.Context, id string) (bug.Report, error)
	// ListBugsByProject orders by title.
	ListBugsByProject(ctx context.Context, projectID string) ([]bug.Report, error)
	// ListBugsByAssignee orders by title.
	ListBugsByAssignee(ctx context.Context, login string) ([]bug.Report, error)
	// ListBugsByStatus returns the project's bugs in status, ordered by title.
	ListBugsByStatus(ctx context.Context, projectID string, status bug.Status) ([]bug.Report, error)
}

// Store is the full persistence surface the application needs.
type Store interface {
	UserStore
	ProjectStore
	MilestoneStore
	TicketStore
	BugStore
}
