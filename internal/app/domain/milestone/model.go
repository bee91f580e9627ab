package milestone

import (
	"strings"

	"github.com/R3E-Network/tracker/internal/errors"
)

// Status is the lifecycle state of a milestone.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Current reports whether the milestone still counts as the project's
// current milestone.
func (s Status) Current() bool {
	return s == StatusOpen || s == StatusActive
}

// ParseStatus validates a stored status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusOpen, StatusActive, StatusClosed:
		return s, nil
	default:
		return "", errors.Validation("unknown milestone status %q", raw)
	}
}

// Action is a requested milestone state change.
type Action string

const (
	ActionActivate Action = "ACTIVATE"
	ActionClose    Action = "CLOSE"
)

// ParseAction validates an action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(raw))); a {
	case ActionActivate, ActionClose:
		return a, nil
	case "":
		return "", errors.Validation("action is required")
	default:
		return "", errors.Validation("unknown milestone action %q", raw)
	}
}

// Milestone is a dated iteration of a project that groups tickets.
type Milestone struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
	Status    Status `json:"status"`
}

// Validate checks required fields and the date range.
func (m Milestone) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.Validation("id must not be blank")
	}
	if strings.TrimSpace(m.ProjectID) == "" {
		return errors.Validation("projectId must not be blank")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.Validation("name must not be blank")
	}
	if m.StartDate.IsZero() || m.EndDate.IsZero() {
		return errors.Validation("dates must not be empty")
	}
	if m.EndDate.Before(m.StartDate.Time) {
		return errors.Validation("endDate must be >= startDate")
	}
	if m.Status == "" {
		return errors.Validation("status must not be empty")
	}
	return nil
}
