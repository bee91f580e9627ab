package tickets

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
	"github.com/R3E-Network/tracker/internal/app/services/milestones"
	"github.com/R3E-Network/tracker/internal/app/services/projects"
	"github.com/R3E-Network/tracker/internal/app/services/users"
	"github.com/R3E-Network/tracker/internal/app/storage/memory"
	"github.com/R3E-Network/tracker/internal/cache"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
)

var (
	manager   = project.Actor{Login: "mgr", Role: project.RoleManager}
	lead      = project.Actor{Login: "lead", Role: project.RoleTeamLeader}
	developer = project.Actor{Login: "dev", Role: project.RoleDeveloper}
	tester    = project.Actor{Login: "qa", Role: project.RoleTester}
)

type fixture struct {
	svc        *Service
	milestones *milestones.Service
	bus        *events.Bus
	project    project.Project
	milestone  milestone.Milestone
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	bus := events.NewBus(64)

	userSvc := users.New(store, nil, nil)
	for _, login := range []string{"mgr", "lead", "dev", "dev2", "qa", "outsider"} {
		if _, err := userSvc.Register(ctx, login, login); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	projectSvc := projects.New(store, userSvc, nil, nil)
	p, err := projectSvc.Create(ctx, "Apollo", "mgr")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	for login, role := range map[string]project.Role{
		"lead": project.RoleTeamLeader,
		"dev":  project.RoleDeveloper,
		"dev2": project.RoleDeveloper,
		"qa":   project.RoleTester,
	} {
		if p, err = projectSvc.AddMember(ctx, p.ID, login, role, manager); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	msSvc := milestones.New(store, store, projectSvc, nil, nil)
	ms, err := msSvc.Create(ctx, p.ID, "Sprint 1", milestone.NewDate(2025, 1, 1), milestone.NewDate(2025, 1, 31), manager)
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	if ms, err = msSvc.Activate(ctx, ms.ID, manager); err != nil {
		t.Fatalf("activate milestone: %v", err)
	}

	return fixture{
		svc:        New(store, projectSvc, msSvc, userSvc, bus, nil),
		milestones: msSvc,
		bus:        bus,
		project:    p,
		milestone:  ms,
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tk, err := f.svc.Create(ctx, f.project.ID, f.milestone.ID, " Login page ", lead)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tk.Status != ticket.StatusNew || tk.Title != "Login page" || len(tk.AssigneeLogins) != 0 {
		t.Fatalf("unexpected ticket: %#v", tk)
	}

	tests := []struct {
		name      string
		projectID string
		title     string
		actor     project.Actor
		status    int
	}{
		{"developer cannot create", f.project.ID, "x", developer, http.StatusForbidden},
		{"blank title", f.project.ID, "  ", manager, http.StatusBadRequest},
		{"wrong project", "other-project", "x", manager, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.projectID, f.milestone.ID, tt.title, tt.actor)
			if errors.HTTPStatus(err) != tt.status {
				t.Fatalf("status = %d, want %d (%v)", errors.HTTPStatus(err), tt.status, err)
			}
		})
	}

	if _, err := f.svc.Create(ctx, f.project.ID, "missing", "x", manager); !errors.IsNotFound(err) {
		t.Fatalf("expected milestone not found, got %v", err)
	}
}

func TestService_Assign(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, _ := f.svc.Create(ctx, f.project.ID, f.milestone.ID, "Login", manager)

	tk, err := f.svc.Assign(ctx, tk.ID, "dev", lead)
	if err != nil {
		t.Fatalf("assign dev: %v", err)
	}
	tk, err = f.svc.Assign(ctx, tk.ID, "lead", manager)
	if err != nil {
		t.Fatalf("assign lead: %v", err)
	}
	tk, err = f.svc.Assign(ctx, tk.ID, "dev", manager)
	if err != nil {
		t.Fatalf("re-assign dev: %v", err)
	}
	if len(tk.AssigneeLogins) != 2 || tk.AssigneeLogins[0] != "dev" || tk.AssigneeLogins[1] != "lead" {
		t.Fatalf("assignees should be an ordered set: %v", tk.AssigneeLogins)
	}

	if _, err := f.svc.Assign(ctx, tk.ID, "qa", manager); errors.HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("testers cannot be assigned, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, tk.ID, "ghost", manager); !errors.IsNotFound(err) {
		t.Fatalf("unknown user should be not found, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, tk.ID, "dev2", developer); errors.HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("developers cannot assign, got %v", err)
	}

	mine, _ := f.svc.ListForAssignee(ctx, "dev")
	if len(mine) != 1 {
		t.Fatalf("expected one ticket for dev, got %d", len(mine))
	}
}

func TestService_StatusFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, _ := f.svc.Create(ctx, f.project.ID, f.milestone.ID, "Login", manager)

	if _, err := f.svc.SetStatus(ctx, tk.ID, ticket.StatusInProgress, manager); errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("skipping a step should conflict, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, tk.ID, ticket.StatusAccepted, developer); errors.HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("unassigned developer should be forbidden, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, tk.ID, ticket.StatusAccepted, tester); errors.HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("tester should be forbidden, got %v", err)
	}

	tk, _ = f.svc.Assign(ctx, tk.ID, "dev", lead)
	steps := []ticket.Status{ticket.StatusAccepted, ticket.StatusInProgress, ticket.StatusDone}
	for _, st := range steps {
		var err error
		if tk, err = f.svc.SetStatus(ctx, tk.ID, st, developer); err != nil {
			t.Fatalf("assigned developer moving to %s: %v", st, err)
		}
	}
	if _, err := f.svc.SetStatus(ctx, tk.ID, ticket.StatusNew, manager); errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("DONE is terminal, got %v", err)
	}
}

func TestService_UpdateIsAllOrNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, _ := f.svc.Create(ctx, f.project.ID, f.milestone.ID, "Login", manager)

	done := ticket.StatusDone
	assignee := "dev"
	if _, err := f.svc.Update(ctx, tk.ID, &assignee, &done, manager); errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := f.svc.Get(ctx, tk.ID)
	if len(got.AssigneeLogins) != 0 {
		t.Fatalf("assignment must not be written when the status change fails: %v", got.AssigneeLogins)
	}

	accepted := ticket.StatusAccepted
	got, err := f.svc.Update(ctx, tk.ID, &assignee, &accepted, lead)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != ticket.StatusAccepted || !got.IsAssignedTo("dev") {
		t.Fatalf("unexpected ticket: %#v", got)
	}

	same, err := f.svc.Update(ctx, tk.ID, nil, nil, tester)
	if err != nil || same.Status != ticket.StatusAccepted {
		t.Fatalf("empty update should return the ticket: %v", err)
	}

	if n := len(f.bus.RecentByType(events.EventTicketAssigned, 10)); n != 1 {
		t.Fatalf("expected 1 assignment event, got %d", n)
	}
}

func TestService_ClosedMilestoneFreezesTickets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, _ := f.svc.Create(ctx, f.project.ID, f.milestone.ID, "Login", manager)
	tk, _ = f.svc.Assign(ctx, tk.ID, "dev", manager)
	for _, st := range []ticket.Status{ticket.StatusAccepted, ticket.StatusInProgress, ticket.StatusDone} {
		if _, err := f.svc.SetStatus(ctx, tk.ID, st, manager); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if _, err := f.milestones.Close(ctx, f.milestone.ID, manager); err != nil {
		t.Fatalf("close milestone: %v", err)
	}

	if _, err := f.svc.Assign(ctx, tk.ID, "dev2", manager); errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("assigning in a CLOSED milestone should conflict, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.project.ID, f.milestone.ID, "late", manager); errors.HTTPStatus(err) != http.StatusConflict {
		t.Fatalf("creating in a CLOSED milestone should conflict, got %v", err)
	}

	list, _ := f.svc.ListForMilestone(ctx, f.milestone.ID)
	if len(list) != 1 {
		t.Fatalf("expected one ticket, got %d", len(list))
	}
}

func TestService_AssignChecksMembershipAgainstStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	userSvc := users.New(store, nil, nil)
	for _, login := range []string{"mgr", "dev"} {
		if _, err := userSvc.Register(ctx, login, login); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	c := cache.NewMemory()
	projectSvc := projects.New(store, userSvc, nil, nil).WithCache(c, time.Minute)
	p, err := projectSvc.Create(ctx, "Apollo", "mgr")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	// A project read cached before dev joined.
	if _, err := projectSvc.Get(ctx, p.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	before := p
	if _, err := projectSvc.AddMember(ctx, p.ID, "dev", project.RoleDeveloper, manager); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := cache.SetJSON(ctx, c, "project:"+p.ID, before, time.Minute); err != nil {
		t.Fatalf("seed stale cache: %v", err)
	}

	msSvc := milestones.New(store, store, projectSvc, nil, nil)
	ms, err := msSvc.Create(ctx, p.ID, "Sprint 1", milestone.NewDate(2025, 1, 1), milestone.NewDate(2025, 1, 31), manager)
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	svc := New(store, projectSvc, msSvc, userSvc, nil, nil)
	tk, err := svc.Create(ctx, p.ID, ms.ID, "Login page", manager)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	tk, err = svc.Assign(ctx, tk.ID, "dev", manager)
	if err != nil {
		t.Fatalf("assign new developer: %v", err)
	}
	if len(tk.AssigneeLogins) != 1 || tk.AssigneeLogins[0] != "dev" {
		t.Fatalf("unexpected assignees: %#v", tk.AssigneeLogins)
	}
}
