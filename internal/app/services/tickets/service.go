package tickets

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// Projects is the project lookup and access check the service needs. Load
// must read the store, not a cache, because assignment rules check membership.
type Projects interface {
	Load(ctx context.Context, id string) (project.Project, error)
	RequireManagerOrLead(actor project.Actor) error
}

// Milestones looks up the milestone a ticket belongs to.
type Milestones interface {
	Get(ctx context.Context, id string) (milestone.Milestone, error)
}

// UserChecker confirms that a login is registered.
type UserChecker interface {
	RequireExists(ctx context.Context, login string) error
}

// Service manages tickets inside milestones.
type Service struct {
	store      storage.TicketStore
	projects   Projects
	milestones Milestones
	users      UserChecker
	events     events.Publisher
	log        *logger.Logger
}

// New constructs a ticket service.
func New(store storage.TicketStore, projects Projects, milestones Milestones, users UserChecker, pub events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tickets")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:      store,
		projects:   projects,
		milestones: milestones,
		users:      users,
		events:     pub,
		log:        log,
	}
}

// Create adds a NEW ticket to a milestone that is not CLOSED.
func (s *Service) Create(ctx context.Context, projectID, milestoneID, title string, actor project.Actor) (ticket.Ticket, error) {
	if err := s.projects.RequireManagerOrLead(actor); err != nil {
		return ticket.Ticket{}, err
	}

	ms, err := s.milestones.Get(ctx, milestoneID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if ms.ProjectID != projectID {
		return ticket.Ticket{}, errors.Validation("milestone does not belong to project")
	}
	if ms.Status == milestone.StatusClosed {
		return ticket.Ticket{}, errors.Conflict("milestone is CLOSED")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ticket.Ticket{}, errors.Validation("ticket title must not be blank")
	}

	t, err := s.store.CreateTicket(ctx, ticket.Ticket{
		ProjectID:      projectID,
		MilestoneID:    milestoneID,
		Title:          title,
		AssigneeLogins: []string{},
		Status:         ticket.StatusNew,
	})
	if err != nil {
		return ticket.Ticket{}, storage.Translate(err, "ticket")
	}

	s.log.WithContext(ctx).
		WithField("ticket_id", t.ID).
		WithField("milestone_id", milestoneID).
		Info("ticket created")
	events.NewEvent(events.EventTicketCreated).
		Actor(actor.Login, string(actor.Role)).
		Project(projectID).Entity(t.ID).
		PublishTo(ctx, s.events)
	return t, nil
}

// Get returns a ticket.
func (s *Service) Get(ctx context.Context, id string) (ticket.Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return ticket.Ticket{}, errors.NotFound("ticket not found: %s", id)
		}
		return ticket.Ticket{}, err
	}
	return t, nil
}

// ListForMilestone returns the milestone's tickets ordered by title.
func (s *Service) ListForMilestone(ctx context.Context, milestoneID string) ([]ticket.Ticket, error) {
	return s.store.ListTicketsByMilestone(ctx, milestoneID)
}

// ListForAssignee returns tickets assigned to login ordered by title.
func (s *Service) ListForAssignee(ctx context.Context, login string) ([]ticket.Ticket, error) {
	return s.store.ListTicketsByAssignee(ctx, login)
}

// Assign adds assignee to the ticket's assignee set.
func (s *Service) Assign(ctx context.Context, id, assignee string, actor project.Actor) (ticket.Ticket, error) {
	return s.Update(ctx, id, &assignee, nil, actor)
}

// SetStatus moves the ticket one step along NEW -> ACCEPTED -> IN_PROGRESS -> DONE.
func (s *Service) SetStatus(ctx context.Context, id string, status ticket.Status, actor project.Actor) (ticket.Ticket, error) {
	return s.Update(ctx, id, nil, &status, actor)
}

// Update applies an optional assignment and then an optional status change.
// Both are checked before anything is written, so a rejected status leaves the
// assignment unapplied too. With neither set the ticket is returned as is.
func (s *Service) Update(ctx context.Context, id string, assignee *string, status *ticket.Status, actor project.Actor) (ticket.Ticket, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if assignee == nil && status == nil {
		return t, nil
	}

	ms, err := s.milestones.Get(ctx, t.MilestoneID)
	if err != nil {
		return ticket.Ticket{}, err
	}

	updated := t.Clone()
	var pending []*events.Builder

	if assignee != nil {
		login := strings.TrimSpace(*assignee)
		if updated, err = s.assign(ctx, updated, ms, login, actor); err != nil {
			return ticket.Ticket{}, err
		}
		pending = append(pending, events.NewEvent(events.EventTicketAssigned).Meta("assignee", login))
	}
	if status != nil {
		from := updated.Status
		if updated, err = s.move(updated, ms, *status, actor); err != nil {
			return ticket.Ticket{}, err
		}
		pending = append(pending, events.NewEvent(events.EventTicketStatusChanged).
			Meta("from", string(from)).Meta("to", string(*status)))
	}

	updated, err = s.store.UpdateTicket(ctx, updated)
	if err != nil {
		return ticket.Ticket{}, storage.Translate(err, "ticket "+id)
	}

	s.log.WithContext(ctx).
		WithField("ticket_id", id).
		WithField("status", updated.Status).
		WithField("assignees", updated.AssigneeLogins).
		Info("ticket updated")
	for _, b := range pending {
		b.Actor(actor.Login, string(actor.Role)).Project(t.ProjectID).Entity(t.ID).PublishTo(ctx, s.events)
	}
	return updated, nil
}

func (s *Service) assign(ctx context.Context, t ticket.Ticket, ms milestone.Milestone, login string, actor project.Actor) (ticket.Ticket, error) {
	if err := s.projects.RequireManagerOrLead(actor); err != nil {
		return ticket.Ticket{}, err
	}
	if ms.Status == milestone.StatusClosed {
		return ticket.Ticket{}, errors.Conflict("cannot assign ticket: milestone is CLOSED")
	}
	if login == "" {
		return ticket.Ticket{}, errors.Validation("assigneeLogin must not be blank")
	}
	if err := s.users.RequireExists(ctx, login); err != nil {
		return ticket.Ticket{}, err
	}
	p, err := s.projects.Load(ctx, t.ProjectID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if !p.IsDeveloperOrLead(login) {
		return ticket.Ticket{}, errors.Validation("user is not a developer/lead in this project: %s", login)
	}
	return t.WithAssignee(login), nil
}

func (s *Service) move(t ticket.Ticket, ms milestone.Milestone, to ticket.Status, actor project.Actor) (ticket.Ticket, error) {
	if !ticket.CanTransition(t.Status, to) {
		return ticket.Ticket{}, errors.Conflict("invalid ticket status transition: %s -> %s", t.Status, to)
	}
	if ms.Status == milestone.StatusClosed {
		return ticket.Ticket{}, errors.Conflict("cannot change ticket: milestone is CLOSED")
	}
	allowed := actor.IsManagerOrLead() ||
		(actor.Role == project.RoleDeveloper && t.IsAssignedTo(actor.Login))
	if !allowed {
		return ticket.Ticket{}, errors.Forbidden("not allowed to change ticket status")
	}
	t.Status = to
	return t, nil
}
