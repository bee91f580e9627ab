package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/R3E-Network/tracker/internal/app/domain/bug"
	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
	"github.com/R3E-Network/tracker/internal/app/domain/user"
	"github.com/R3E-Network/tracker/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	users      map[string]user.User
	projects   map[string]project.Project
	milestones map[string]milestone.Milestone
	tickets    map[string]ticket.Ticket
	bugs       map[string]bug.Report
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]user.User),
		projects:   make(map[string]project.Project),
		milestones: make(map[string]milestone.Milestone),
		tickets:    make(map[string]ticket.Ticket),
		bugs:       make(map[string]bug.Report),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Login]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.Login, storage.ErrConflict)
	}
	s.users[u.Login] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, login string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[login]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", login, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UserExists(_ context.Context, login string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[login]
	return ok, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Login < result[j].Login })
	return result, nil
}

// ProjectStore implementation -------------------------------------------------

func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.projects[p.ID]; exists {
		return project.Project{}, fmt.Errorf("project %s: %w", p.ID, storage.ErrConflict)
	}
	s.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (s *Store) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[p.ID]; !ok {
		return project.Project{}, fmt.Errorf("project %s: %w", p.ID, storage.ErrNotFound)
	}
	s.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (s *Store) GetProject(_ context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) ListProjects(_ context.Context) ([]project.Project, error) {
	return s.filterProjects(func(project.Project) bool { return true }), nil
}

func (s *Store) ListProjectsForUser(_ context.Context, login string) ([]project.Project, error) {
	return s.filterProjects(func(p project.Project) bool { return p.Participates(login) }), nil
}

func (s *Store) filterProjects(keep func(project.Project) bool) []project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]project.Project, 0)
	for _, p := range s.projects {
		if keep(p) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// MilestoneStore implementation -----------------------------------------------

func (s *Store) CreateMilestone(_ context.Context, m milestone.Milestone) (milestone.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	} else if _, exists := s.milestones[m.ID]; exists {
		return milestone.Milestone{}, fmt.Errorf("milestone %s: %w", m.ID, storage.ErrConflict)
	}
	if m.Status.Current() && s.hasMilestoneLocked(m.ProjectID, "", milestone.Status.Current) {
		return milestone.Milestone{}, fmt.Errorf("project %s already has a current milestone: %w", m.ProjectID, storage.ErrConflict)
	}
	s.milestones[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMilestone(_ context.Context, m milestone.Milestone) (milestone.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.milestones[m.ID]; !ok {
		return milestone.Milestone{}, fmt.Errorf("milestone %s: %w", m.ID, storage.ErrNotFound)
	}
	s.milestones[m.ID] = m
	return m, nil
}

func (s *Store) GetMilestone(_ context.Context, id string) (milestone.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.milestones[id]
	if !ok {
		return milestone.Milestone{}, fmt.Errorf("milestone %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListMilestones(_ context.Context, projectID string) ([]milestone.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]milestone.Milestone, 0)
	for _, m := range s.milestones {
		if m.ProjectID == projectID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartDate.Equal(result[j].StartDate.Time) {
			return result[i].Name < result[j].Name
		}
		return result[i].StartDate.Before(result[j].StartDate.Time)
	})
	return result, nil
}

func (s *Store) HasCurrentMilestone(_ context.Context, projectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMilestoneLocked(projectID, "", milestone.Status.Current), nil
}

func (s *Store) HasActiveMilestone(_ context.Context, projectID, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMilestoneLocked(projectID, excludeID, func(st milestone.Status) bool {
		return st == milestone.StatusActive
	}), nil
}

func (s *Store) hasMilestoneLocked(projectID, excludeID string, match func(milestone.Status) bool) bool {
	for _, m := range s.milestones {
		if m.ProjectID == projectID && m.ID != excludeID && match(m.Status) {
			return true
		}
	}
	return false
}

// TicketStore implementation --------------------------------------------------

func (s *Store) CreateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, exists := s.tickets[t.ID]; exists {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", t.ID, storage.ErrConflict)
	}
	s.tickets[t.ID] = t.Clone()
	return t.Clone(), nil
}

func (s *Store) UpdateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", t.ID, storage.ErrNotFound)
	}
	s.tickets[t.ID] = t.Clone()
	return t.Clone(), nil
}

func (s *Store) GetTicket(_ context.Context, id string) (ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", id, storage.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *Store) ListTicketsByMilestone(_ context.Context, milestoneID string) ([]ticket.Ticket, error) {
	return s.filterTickets(func(t ticket.Ticket) bool { return t.MilestoneID == milestoneID }), nil
}

func (s *Store) ListTicketsByAssignee(_ context.Context, login string) ([]ticket.Ticket, error) {
	return s.filterTickets(func(t ticket.Ticket) bool { return t.IsAssignedTo(login) }), nil
}

func (s *Store) CountUnfinishedTickets(_ context.Context, milestoneID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.tickets {
		if t.MilestoneID == milestoneID && t.Status != ticket.StatusDone {
			count++
		}
	}
	return count, nil
}

func (s *Store) filterTickets(keep func(ticket.Ticket) bool) []ticket.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ticket.Ticket, 0)
	for _, t := range s.tickets {
		if keep(t) {
			result = append(result, t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Title == result[j].Title {
			return result[i].ID < result[j].ID
		}
		return result[i].Title < result[j].Title
	})
	return result
}

// BugStore implementation -----------------------------------------------------

func (s *Store) CreateBug(_ context.Context, b bug.Report) (bug.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	} else if _, exists := s.bugs[b.ID]; exists {
		return bug.Report{}, fmt.Errorf("bug %s: %w", b.ID, storage.ErrConflict)
	}
	s.bugs[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBug(_ context.Context, b bug.Report) (bug.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bugs[b.ID]; !ok {
		return bug.Report{}, fmt.Errorf("bug %s: %w", b.ID, storage.ErrNotFound)
	}
	s.bugs[b.ID] = b
	return b, nil
}

func (s *Store) GetBug(_ context.Context, id string) (bug.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bugs[id]
	if !ok {
		return bug.Report{}, fmt.Errorf("bug %s: %w", id, storage.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBugsByProject(_ context.Context, projectID string) ([]bug.Report, error) {
	return s.filterBugs(func(b bug.Report) bool { return b.ProjectID == projectID }), nil
}

func (s *Store) ListBugsByAssignee(_ context.Context, login string) ([]bug.Report, error) {
	return s.filterBugs(func(b bug.Report) bool { return login != "" && b.AssigneeDeveloperLogin == login }), nil
}

func (s *Store) ListBugsByStatus(_ context.Context, projectID string, status bug.Status) ([]bug.Report, error) {
	return s.filterBugs(func(b bug.Report) bool { return b.ProjectID == projectID && b.Status == status }), nil
}

func (s *Store) filterBugs(keep func(bug.Report) bool) []bug.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]bug.Report, 0)
	for _, b := range s.bugs {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Title == result[j].Title {
			return result[i].ID < result[j].ID
		}
		return result[i].Title < result[j].Title
	})
	return result
}
