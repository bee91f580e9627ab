package projects

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/metrics"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/cache"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// UserChecker confirms that a login is registered.
type UserChecker interface {
	RequireExists(ctx context.Context, login string) error
}

// Service manages projects and their membership.
type Service struct {
	store    storage.ProjectStore
	users    UserChecker
	cache    cache.Cache
	cacheTTL time.Duration
	cached   bool
	events   events.Publisher
	log      *logger.Logger

	// genMu guards gens, the per-project write generation. A cache fill is
	// dropped when a write landed between its store read and its Set.
	genMu sync.Mutex
	gens  map[string]uint64
}

// New constructs a project service. Reads are uncached until WithCache is
// called.
func New(store storage.ProjectStore, users UserChecker, pub events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("projects")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:  store,
		users:  users,
		cache:  cache.Nop{},
		events: pub,
		log:    log,
		gens:   make(map[string]uint64),
	}
}

// WithCache enables read-through caching of single projects.
func (s *Service) WithCache(c cache.Cache, ttl time.Duration) *Service {
	if c != nil {
		s.cache = c
		s.cacheTTL = ttl
		s.cached = true
	}
	return s
}

func cacheKey(id string) string {
	return "project:" + id
}

// Create registers a project managed by managerLogin with no other members.
func (s *Service) Create(ctx context.Context, name, managerLogin string) (project.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return project.Project{}, errors.Validation("project name is missing")
	}
	if err := s.users.RequireExists(ctx, managerLogin); err != nil {
		return project.Project{}, err
	}

	p := project.Project{
		Name:            name,
		ManagerLogin:    managerLogin,
		DeveloperLogins: []string{},
		TesterLogins:    []string{},
	}
	p, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return project.Project{}, storage.Translate(err, "project")
	}

	s.log.WithContext(ctx).
		WithField("project_id", p.ID).
		WithField("manager", managerLogin).
		Info("project created")
	events.NewEvent(events.EventProjectCreated).
		Actor(managerLogin, string(project.RoleManager)).
		Project(p.ID).Entity(p.ID).
		PublishTo(ctx, s.events)
	return p, nil
}

// Get returns a project, served from the cache when possible. Access checks
// use Load instead.
func (s *Service) Get(ctx context.Context, id string) (project.Project, error) {
	var cached project.Project
	if ok, err := cache.GetJSON(ctx, s.cache, cacheKey(id), &cached); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("project_id", id).Warn("project cache read failed")
	} else if s.cached {
		metrics.RecordCacheLookup(ok)
		if ok {
			return cached, nil
		}
	}

	gen := s.generation(id)
	p, err := s.Load(ctx, id)
	if err != nil {
		return project.Project{}, err
	}
	s.fill(ctx, p, gen)
	return p, nil
}

// Load reads the project from the store, bypassing the cache.
func (s *Service) Load(ctx context.Context, id string) (project.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return project.Project{}, notFound(err, id)
	}
	return p, nil
}

func (s *Service) generation(id string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[id]
}

// fill caches p unless the project was written after gen was taken.
func (s *Service) fill(ctx context.Context, p project.Project, gen uint64) {
	if !s.cached {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[p.ID] != gen {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, cacheKey(p.ID), p, s.cacheTTL); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("project_id", p.ID).Warn("project cache write failed")
	}
}

// List returns every project ordered by name.
func (s *Service) List(ctx context.Context) ([]project.Project, error) {
	return s.store.ListProjects(ctx)
}

// ListForUser returns the projects login manages or is a member of.
func (s *Service) ListForUser(ctx context.Context, login string) ([]project.Project, error) {
	return s.store.ListProjectsForUser(ctx, login)
}

// RoleOf returns the role login holds in the project. A missing project or a
// non-member yields ok == false.
func (s *Service) RoleOf(ctx context.Context, projectID, login string) (project.Role, bool, error) {
	p, err := s.Get(ctx, projectID)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	role, ok := p.RoleOf(login)
	return role, ok, nil
}

// AddMember gives login a role in the project. Only the project's manager may
// do this. A team leader replaces the previous one; developers and testers are
// sets, so adding twice is a no-op.
func (s *Service) AddMember(ctx context.Context, projectID, login string, role project.Role, actor project.Actor) (project.Project, error) {
	p, err := s.RequireManager(ctx, projectID, actor)
	if err != nil {
		return project.Project{}, err
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return project.Project{}, errors.Validation("userLogin must not be blank")
	}
	if err := s.users.RequireExists(ctx, login); err != nil {
		return project.Project{}, err
	}

	updated, err := p.WithMember(login, role)
	if err != nil {
		return project.Project{}, err
	}
	updated, err = s.store.UpdateProject(ctx, updated)
	if err != nil {
		return project.Project{}, storage.Translate(err, "project "+projectID)
	}
	s.invalidate(ctx, projectID)

	s.log.WithContext(ctx).
		WithField("project_id", projectID).
		WithField("login", login).
		WithField("role", role).
		Info("project member added")
	events.NewEvent(events.EventProjectMemberAdded).
		Actor(actor.Login, string(actor.Role)).
		Project(projectID).Entity(login).
		Meta("role", string(role)).
		PublishTo(ctx, s.events)
	return updated, nil
}

// RequireManager loads the project and checks that actor is its manager, both
// by declared role and by login.
func (s *Service) RequireManager(ctx context.Context, projectID string, actor project.Actor) (project.Project, error) {
	if actor.Role != project.RoleManager {
		return project.Project{}, errors.Forbidden("only the project manager can do this")
	}
	p, err := s.Load(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}
	if p.ManagerLogin != actor.Login {
		return project.Project{}, errors.Forbidden("only the project manager can do this")
	}
	return p, nil
}

// RequireManagerOrLead checks the declared role only.
func (s *Service) RequireManagerOrLead(actor project.Actor) error {
	if !actor.IsManagerOrLead() {
		return errors.Forbidden("only a manager or team leader can do this")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, projectID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[projectID]++
	if err := s.cache.Delete(ctx, cacheKey(projectID)); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("project_id", projectID).Warn("project cache invalidation failed")
	}
}

func notFound(err error, id string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("project not found: %s", id)
	}
	return err
}
