package ticket

import (
	"strings"

	"github.com/R3E-Network/tracker/internal/errors"
)

// Status is the workflow state of a ticket.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusAccepted   Status = "ACCEPTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

var transitions = map[Status]Status{
	StatusNew:        StatusAccepted,
	StatusAccepted:   StatusInProgress,
	StatusInProgress: StatusDone,
}

// ParseStatus validates a status name.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusNew, StatusAccepted, StatusInProgress, StatusDone:
		return s, nil
	default:
		return "", errors.Validation("unknown ticket status %q", raw)
	}
}

// CanTransition reports whether from may move to to. Tickets only move one
// step forward and DONE is terminal.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Ticket is a unit of planned work inside a milestone.
type Ticket struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"projectId"`
	MilestoneID    string   `json:"milestoneId"`
	Title          string   `json:"title"`
	AssigneeLogins []string `json:"assigneeLogins"`
	Status         Status   `json:"status"`
}

// Validate checks required fields.
func (t Ticket) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return errors.Validation("id must not be blank")
	case strings.TrimSpace(t.ProjectID) == "":
		return errors.Validation("projectId must not be blank")
	case strings.TrimSpace(t.MilestoneID) == "":
		return errors.Validation("milestoneId must not be blank")
	case strings.TrimSpace(t.Title) == "":
		return errors.Validation("title must not be blank")
	case t.Status == "":
		return errors.Validation("status must not be empty")
	}
	return nil
}

// IsAssignedTo reports whether login is among the assignees.
func (t Ticket) IsAssignedTo(login string) bool {
	for _, a := range t.AssigneeLogins {
		if a == login {
			return true
		}
	}
	return false
}

// WithAssignee returns a copy with login added to the assignee set.
func (t Ticket) WithAssignee(login string) Ticket {
	out := t.Clone()
	if !out.IsAssignedTo(login) {
		out.AssigneeLogins = append(out.AssigneeLogins, login)
	}
	return out
}

// Clone returns a deep copy.
func (t Ticket) Clone() Ticket {
	out := t
	out.AssigneeLogins = append([]string{}, t.AssigneeLogins...)
	return out
}
