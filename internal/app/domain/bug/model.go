package bug

import (
	"strings"

	"github.com/R3E-Network/tracker/internal/errors"
)

// Status is the lifecycle state of a bug report.
type Status string

const (
	StatusNew    Status = "NEW"
	StatusFixed  Status = "FIXED"
	StatusTested Status = "TESTED"
	StatusClosed Status = "CLOSED"
)

var transitions = map[Status]Status{
	StatusNew:    StatusFixed,
	StatusFixed:  StatusTested,
	StatusTested: StatusClosed,
}

// ParseStatus validates a status name.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusNew, StatusFixed, StatusTested, StatusClosed:
		return s, nil
	default:
		return "", errors.Validation("unknown bug status %q", raw)
	}
}

// CanTransition reports whether from may move to to. CLOSED is terminal.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Report is a defect filed against a project.
type Report struct {
	ID                     string `json:"id"`
	ProjectID              string `json:"projectId"`
	Title                  string `json:"title"`
	ReporterLogin          string `json:"reporterLogin"`
	AssigneeDeveloperLogin string `json:"assigneeDeveloperLogin,omitempty"`
	Status                 Status `json:"status"`
}

// Validate checks required fields.
func (r *Report) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return errors.Validation("id must not be blank")
	case strings.TrimSpace(r.ProjectID) == "":
		return errors.Validation("projectId must not be blank")
	case strings.TrimSpace(r.Title) == "":
		return errors.Validation("title must not be blank")
	case strings.TrimSpace(r.ReporterLogin) == "":
		return errors.Validation("reporterLogin must not be blank")
	case r.Status == "":
		return errors.Validation("status must not be empty")
	}
	r.AssigneeDeveloperLogin = strings.TrimSpace(r.AssigneeDeveloperLogin)
	return nil
}
