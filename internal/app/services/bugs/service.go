package bugs

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/tracker/internal/app/domain/bug"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// Projects looks up the project a bug is filed against.
type Projects interface {
	Load(ctx context.Context, id string) (project.Project, error)
}

// UserChecker confirms that a login is registered.
type UserChecker interface {
	RequireExists(ctx context.Context, login string) error
}

// Service manages bug reports and their NEW -> FIXED -> TESTED -> CLOSED flow.
type Service struct {
	store    storage.BugStore
	projects Projects
	users    UserChecker
	events   events.Publisher
	log      *logger.Logger
}

// New constructs a bug service.
func New(store storage.BugStore, projects Projects, users UserChecker, pub events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bugs")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: store, projects: projects, users: users, events: pub, log: log}
}

// Create files a NEW bug reported by actor. Developers, testers and team
// leaders may report bugs.
func (s *Service) Create(ctx context.Context, projectID, title string, actor project.Actor) (bug.Report, error) {
	switch actor.Role {
	case project.RoleDeveloper, project.RoleTester, project.RoleTeamLeader:
	default:
		return bug.Report{}, errors.Forbidden("only developer/tester/team lead can create bug reports")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return bug.Report{}, errors.Validation("bug title is missing")
	}
	if _, err := s.projects.Load(ctx, projectID); err != nil {
		return bug.Report{}, err
	}

	b, err := s.store.CreateBug(ctx, bug.Report{
		ProjectID:     projectID,
		Title:         title,
		ReporterLogin: actor.Login,
		Status:        bug.StatusNew,
	})
	if err != nil {
		return bug.Report{}, storage.Translate(err, "bug")
	}

	s.log.WithContext(ctx).
		WithField("bug_id", b.ID).
		WithField("project_id", projectID).
		WithField("reporter", actor.Login).
		Info("bug reported")
	events.NewEvent(events.EventBugReported).
		Actor(actor.Login, string(actor.Role)).
		Project(projectID).Entity(b.ID).
		PublishTo(ctx, s.events)
	return b, nil
}

// Get returns a bug report.
func (s *Service) Get(ctx context.Context, id string) (bug.Report, error) {
	b, err := s.store.GetBug(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return bug.Report{}, errors.NotFound("bug not found: %s", id)
		}
		return bug.Report{}, err
	}
	return b, nil
}

// ListForProject returns the project's bugs ordered by title.
func (s *Service) ListForProject(ctx context.Context, projectID string) ([]bug.Report, error) {
	return s.store.ListBugsByProject(ctx, projectID)
}

// ListMine returns bugs assigned to login. Only developers and team leaders
// hold bug assignments; any other role gets an empty list.
func (s *Service) ListMine(ctx context.Context, login string, role project.Role) ([]bug.Report, error) {
	if role != project.RoleDeveloper && role != project.RoleTeamLeader {
		return []bug.Report{}, nil
	}
	return s.store.ListBugsByAssignee(ctx, login)
}

// NeedsTesting returns the project's FIXED bugs.
func (s *Service) NeedsTesting(ctx context.Context, projectID string) ([]bug.Report, error) {
	return s.store.ListBugsByStatus(ctx, projectID, bug.StatusFixed)
}

// Assign sets the developer responsible for the bug.
func (s *Service) Assign(ctx context.Context, id, assignee string, actor project.Actor) (bug.Report, error) {
	return s.Update(ctx, id, &assignee, nil, actor)
}

// SetStatus moves the bug one step along its lifecycle.
func (s *Service) SetStatus(ctx context.Context, id string, status bug.Status, actor project.Actor) (bug.Report, error) {
	return s.Update(ctx, id, nil, &status, actor)
}

// Update applies an optional assignment and then an optional status change.
// Both are validated before the single write. With neither set the bug is
// returned as is.
func (s *Service) Update(ctx context.Context, id string, assignee *string, status *bug.Status, actor project.Actor) (bug.Report, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return bug.Report{}, err
	}
	if assignee == nil && status == nil {
		return b, nil
	}

	updated := b
	var pending []*events.Builder

	if assignee != nil {
		login := strings.TrimSpace(*assignee)
		if updated, err = s.assign(ctx, updated, login, actor); err != nil {
			return bug.Report{}, err
		}
		pending = append(pending, events.NewEvent(events.EventBugAssigned).Meta("assignee", login))
	}
	if status != nil {
		from := updated.Status
		if updated, err = move(updated, *status, actor); err != nil {
			return bug.Report{}, err
		}
		pending = append(pending, events.NewEvent(events.EventBugStatusChanged).
			Meta("from", string(from)).Meta("to", string(*status)))
	}

	updated, err = s.store.UpdateBug(ctx, updated)
	if err != nil {
		return bug.Report{}, storage.Translate(err, "bug "+id)
	}

	s.log.WithContext(ctx).
		WithField("bug_id", id).
		WithField("status", updated.Status).
		WithField("assignee", updated.AssigneeDeveloperLogin).
		Info("bug updated")
	for _, e := range pending {
		e.Actor(actor.Login, string(actor.Role)).Project(b.ProjectID).Entity(b.ID).PublishTo(ctx, s.events)
	}
	return updated, nil
}

func (s *Service) assign(ctx context.Context, b bug.Report, login string, actor project.Actor) (bug.Report, error) {
	if b.Status == bug.StatusClosed {
		return bug.Report{}, errors.Conflict("cannot assign bug: already CLOSED")
	}
	if login == "" {
		return bug.Report{}, errors.Validation("assigneeLogin must not be blank")
	}
	allowed := actor.IsManagerOrLead() ||
		(actor.Role == project.RoleDeveloper && actor.Login == login)
	if !allowed {
		return bug.Report{}, errors.Forbidden("not allowed to assign bug")
	}
	if err := s.users.RequireExists(ctx, login); err != nil {
		return bug.Report{}, err
	}
	p, err := s.projects.Load(ctx, b.ProjectID)
	if err != nil {
		return bug.Report{}, err
	}
	if !p.IsDeveloperOrLead(login) {
		return bug.Report{}, errors.Validation("user is not a developer in this project: %s", login)
	}
	b.AssigneeDeveloperLogin = login
	return b, nil
}

func move(b bug.Report, to bug.Status, actor project.Actor) (bug.Report, error) {
	if !bug.CanTransition(b.Status, to) {
		return bug.Report{}, errors.Conflict("invalid bug status transition: %s -> %s", b.Status, to)
	}

	var allowed bool
	switch to {
	case bug.StatusFixed:
		if b.AssigneeDeveloperLogin == "" {
			return bug.Report{}, errors.Conflict("bug must be assigned before marking as FIXED")
		}
		allowed = actor.Login == b.AssigneeDeveloperLogin || actor.IsManagerOrLead()
	case bug.StatusTested, bug.StatusClosed:
		allowed = actor.Role == project.RoleTester || actor.IsManagerOrLead()
	case bug.StatusNew:
		allowed = actor.IsManagerOrLead()
	}
	if !allowed {
		return bug.Report{}, errors.Forbidden("not allowed to change bug status to %s", to)
	}
	b.Status = to
	return b, nil
}
