// Package app composes the tracker: it wires the domain services to their
// stores, the event bus and the optional project cache, and owns the
// lifecycle of background components through the system manager.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Domain models and pure rules
//	│   ├── user/
//	│   ├── project/        # Roles, membership, actors
//	│   ├── milestone/      # Dates, actions, lifecycle
//	│   ├── ticket/
//	│   └── bug/
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go
//	│   ├── memory/         # In-memory implementation
//	│   └── postgres/       # PostgreSQL implementation
//	├── services/           # Business rules, one package per domain
//	├── httpapi/            # HTTP handlers and routing
//	├── audit/              # Request audit trail, sinks and retention
//	├── health/             # Liveness report
//	├── metrics/            # Prometheus collectors
//	└── system/             # Lifecycle manager
//
// # Dependency Direction
//
//	cmd/tracker/
//	      │
//	      ▼
//	internal/app/httpapi ──► internal/app (composition)
//	                               │
//	                               ├──► services/ ──► domain/
//	                               │        │
//	                               │        └──► storage/ (interfaces)
//	                               │
//	                               └──► internal/events, internal/cache
//
// # Adding a New Domain
//
//  1. Create the model in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres, with a migration
//  4. Create the service in internal/app/services/<name>/
//  5. Wire it in application.go
//  6. Add handlers in internal/app/httpapi/handler_<name>.go
package app
