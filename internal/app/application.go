package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/tracker/internal/app/metrics"
	"github.com/R3E-Network/tracker/internal/app/services/bugs"
	"github.com/R3E-Network/tracker/internal/app/services/milestones"
	"github.com/R3E-Network/tracker/internal/app/services/projects"
	"github.com/R3E-Network/tracker/internal/app/services/tickets"
	"github.com/R3E-Network/tracker/internal/app/services/users"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/app/storage/memory"
	"github.com/R3E-Network/tracker/internal/app/system"
	"github.com/R3E-Network/tracker/internal/cache"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users      storage.UserStore
	Projects   storage.ProjectStore
	Milestones storage.MilestoneStore
	Tickets    storage.TicketStore
	Bugs       storage.BugStore
}

// StoresFrom uses one backend for every aggregate.
func StoresFrom(s storage.Store) Stores {
	return Stores{Users: s, Projects: s, Milestones: s, Tickets: s, Bugs: s}
}

// Options tunes optional infrastructure.
type Options struct {
	// Cache backs project reads. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// EventHistory is how many recent events the bus retains.
	EventHistory int
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Events     *events.Bus
	Users      *users.Service
	Projects   *projects.Service
	Milestones *milestones.Service
	Tickets    *tickets.Service
	Bugs       *bugs.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Projects == nil {
		stores.Projects = mem
	}
	if stores.Milestones == nil {
		stores.Milestones = mem
	}
	if stores.Tickets == nil {
		stores.Tickets = mem
	}
	if stores.Bugs == nil {
		stores.Bugs = mem
	}

	bus := events.NewBus(opts.EventHistory)
	manager := system.NewManager()

	userService := users.New(stores.Users, bus, log.Component("users"))
	projectService := projects.New(stores.Projects, userService, bus, log.Component("projects"))
	if opts.Cache != nil {
		projectService.WithCache(opts.Cache, opts.CacheTTL)
	}
	milestoneService := milestones.New(stores.Milestones, stores.Tickets, projectService, bus, log.Component("milestones"))
	ticketService := tickets.New(stores.Tickets, projectService, milestoneService, userService, bus, log.Component("tickets"))
	bugService := bugs.New(stores.Bugs, projectService, userService, bus, log.Component("bugs"))

	var stopMetrics func()
	observer := system.Func{
		ServiceName: "event-metrics",
		OnStart: func(context.Context) error {
			stopMetrics = metrics.ObserveEvents(bus)
			return nil
		},
		OnStop: func(context.Context) error {
			if stopMetrics != nil {
				stopMetrics()
			}
			return nil
		},
	}
	if err := manager.Register(observer); err != nil {
		return nil, fmt.Errorf("register %s: %w", observer.Name(), err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Events:     bus,
		Users:      userService,
		Projects:   projectService,
		Milestones: milestoneService,
		Tickets:    ticketService,
		Bugs:       bugService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	a.log.WithContext(ctx).WithField("services", a.manager.Names()).Info("application started")
	return nil
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
