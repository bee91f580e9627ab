package milestones

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// ManagerChecker authorises manager-only operations on a project.
type ManagerChecker interface {
	RequireManager(ctx context.Context, projectID string, actor project.Actor) (project.Project, error)
}

// Service drives the milestone lifecycle OPEN -> ACTIVE -> CLOSED.
type Service struct {
	store   storage.MilestoneStore
	tickets storage.TicketStore
	access  ManagerChecker
	events  events.Publisher
	log     *logger.Logger
}

// New constructs a milestone service.
func New(store storage.MilestoneStore, tickets storage.TicketStore, access ManagerChecker, pub events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("milestones")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: store, tickets: tickets, access: access, events: pub, log: log}
}

const errCurrentExists = "project already has a current (OPEN/ACTIVE) milestone, close it first"

// Create opens a new milestone. A project has at most one OPEN or ACTIVE
// milestone at a time.
func (s *Service) Create(ctx context.Context, projectID, name string, start, end milestone.Date, actor project.Actor) (milestone.Milestone, error) {
	if _, err := s.access.RequireManager(ctx, projectID, actor); err != nil {
		return milestone.Milestone{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return milestone.Milestone{}, errors.Validation("milestone name is missing")
	}
	if start.IsZero() || end.IsZero() {
		return milestone.Milestone{}, errors.Validation("startDate and endDate are required")
	}
	if end.Before(start.Time) {
		return milestone.Milestone{}, errors.Validation("endDate must not be before startDate")
	}

	current, err := s.store.HasCurrentMilestone(ctx, projectID)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if current {
		return milestone.Milestone{}, errors.Conflict(errCurrentExists)
	}

	m, err := s.store.CreateMilestone(ctx, milestone.Milestone{
		ProjectID: projectID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    milestone.StatusOpen,
	})
	if err != nil {
		if stderrors.Is(err, storage.ErrConflict) {
			return milestone.Milestone{}, errors.Conflict(errCurrentExists)
		}
		return milestone.Milestone{}, err
	}

	s.log.WithContext(ctx).
		WithField("milestone_id", m.ID).
		WithField("project_id", projectID).
		Info("milestone created")
	events.NewEvent(events.EventMilestoneCreated).
		Actor(actor.Login, string(actor.Role)).
		Project(projectID).Entity(m.ID).
		PublishTo(ctx, s.events)
	return m, nil
}

// Get returns a milestone.
func (s *Service) Get(ctx context.Context, id string) (milestone.Milestone, error) {
	m, err := s.store.GetMilestone(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return milestone.Milestone{}, errors.NotFound("milestone not found: %s", id)
		}
		return milestone.Milestone{}, err
	}
	return m, nil
}

// ListForProject returns the project's milestones ordered by start date.
func (s *Service) ListForProject(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	return s.store.ListMilestones(ctx, projectID)
}

// Apply dispatches a lifecycle action.
func (s *Service) Apply(ctx context.Context, id string, action milestone.Action, actor project.Actor) (milestone.Milestone, error) {
	switch action {
	case milestone.ActionActivate:
		return s.Activate(ctx, id, actor)
	case milestone.ActionClose:
		return s.Close(ctx, id, actor)
	default:
		return milestone.Milestone{}, errors.Validation("unknown milestone action %q", action)
	}
}

// Activate moves an OPEN milestone to ACTIVE. Activating an ACTIVE milestone
// returns it unchanged.
func (s *Service) Activate(ctx context.Context, id string, actor project.Actor) (milestone.Milestone, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if _, err := s.access.RequireManager(ctx, m.ProjectID, actor); err != nil {
		return milestone.Milestone{}, err
	}

	if m.Status == milestone.StatusClosed {
		return milestone.Milestone{}, errors.Conflict("milestone is CLOSED")
	}
	active, err := s.store.HasActiveMilestone(ctx, m.ProjectID, m.ID)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if active {
		return milestone.Milestone{}, errors.Conflict("project already has an ACTIVE milestone")
	}
	if m.Status == milestone.StatusActive {
		return m, nil
	}

	return s.transition(ctx, m, milestone.StatusActive, events.EventMilestoneActivated, actor)
}

// Close moves an ACTIVE milestone to CLOSED once every ticket in it is DONE.
func (s *Service) Close(ctx context.Context, id string, actor project.Actor) (milestone.Milestone, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if _, err := s.access.RequireManager(ctx, m.ProjectID, actor); err != nil {
		return milestone.Milestone{}, err
	}

	if m.Status != milestone.StatusActive {
		return milestone.Milestone{}, errors.Conflict("only an ACTIVE milestone can be closed")
	}
	open, err := s.tickets.CountUnfinishedTickets(ctx, m.ID)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if open > 0 {
		return milestone.Milestone{}, errors.Conflict("cannot close milestone, not all tickets are DONE").
			WithDetails("unfinishedTickets", open)
	}

	return s.transition(ctx, m, milestone.StatusClosed, events.EventMilestoneClosed, actor)
}

func (s *Service) transition(ctx context.Context, m milestone.Milestone, to milestone.Status, eventType events.EventType, actor project.Actor) (milestone.Milestone, error) {
	from := m.Status
	m.Status = to
	updated, err := s.store.UpdateMilestone(ctx, m)
	if err != nil {
		return milestone.Milestone{}, storage.Translate(err, "milestone "+m.ID)
	}

	s.log.WithContext(ctx).
		WithField("milestone_id", m.ID).
		WithField("from", from).
		WithField("to", to).
		Info("milestone status changed")
	events.NewEvent(eventType).
		Actor(actor.Login, string(actor.Role)).
		Project(m.ProjectID).Entity(m.ID).
		Meta("from", string(from)).Meta("to", string(to)).
		PublishTo(ctx, s.events)
	return updated, nil
}
