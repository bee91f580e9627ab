package project

import (
	"strings"

	"github.com/R3E-Network/tracker/internal/errors"
)

// Role is the part a user plays in a project.
type Role string

const (
	RoleManager    Role = "MANAGER"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleDeveloper  Role = "DEVELOPER"
	RoleTester     Role = "TESTER"
)

// ParseRole normalises and validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleManager, RoleTeamLeader, RoleDeveloper, RoleTester:
		return role, nil
	case "":
		return "", errors.Validation("role is required")
	default:
		return "", errors.Validation("unknown project role %q", raw)
	}
}

// Project groups milestones, tickets and bug reports under one manager.
type Project struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ManagerLogin    string   `json:"managerLogin"`
	TeamLeaderLogin string   `json:"teamLeaderLogin,omitempty"`
	DeveloperLogins []string `json:"developerLogins"`
	TesterLogins    []string `json:"testerLogins"`
}

// Validate checks required fields and normalises member sets.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.Validation("id must not be blank")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.Validation("name must not be blank")
	}
	if strings.TrimSpace(p.ManagerLogin) == "" {
		return errors.Validation("managerLogin must not be blank")
	}
	p.TeamLeaderLogin = strings.TrimSpace(p.TeamLeaderLogin)
	p.DeveloperLogins = uniq(p.DeveloperLogins)
	p.TesterLogins = uniq(p.TesterLogins)
	return nil
}

// Participates reports whether login holds any role in the project.
func (p Project) Participates(login string) bool {
	return p.ManagerLogin == login ||
		(p.TeamLeaderLogin != "" && p.TeamLeaderLogin == login) ||
		contains(p.DeveloperLogins, login) ||
		contains(p.TesterLogins, login)
}

// IsDeveloperOrLead reports whether login may be assigned work.
func (p Project) IsDeveloperOrLead(login string) bool {
	return contains(p.DeveloperLogins, login) || (p.TeamLeaderLogin != "" && p.TeamLeaderLogin == login)
}

// RoleOf returns the role login holds, manager first.
func (p Project) RoleOf(login string) (Role, bool) {
	switch {
	case p.ManagerLogin == login:
		return RoleManager, true
	case p.TeamLeaderLogin != "" && p.TeamLeaderLogin == login:
		return RoleTeamLeader, true
	case contains(p.DeveloperLogins, login):
		return RoleDeveloper, true
	case contains(p.TesterLogins, login):
		return RoleTester, true
	}
	return "", false
}

// WithMember returns a copy of the project with login added in role.
// Developers and testers are sets; a team leader replaces the previous one.
func (p Project) WithMember(login string, role Role) (Project, error) {
	out := p.Clone()
	switch role {
	case RoleTeamLeader:
		out.TeamLeaderLogin = login
	case RoleDeveloper:
		out.DeveloperLogins = appendUnique(out.DeveloperLogins, login)
	case RoleTester:
		out.TesterLogins = appendUnique(out.TesterLogins, login)
	case RoleManager:
		return Project{}, errors.Validation("cannot add another manager")
	default:
		return Project{}, errors.Validation("unknown project role %q", role)
	}
	return out, nil
}

// Clone returns a deep copy.
func (p Project) Clone() Project {
	out := p
	out.DeveloperLogins = append([]string{}, p.DeveloperLogins...)
	out.TesterLogins = append([]string{}, p.TesterLogins...)
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func uniq(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = appendUnique(out, v)
	}
	return out
}

// Actor is the caller of an operation and the role they declare for it.
type Actor struct {
	Login string
	Role  Role
}

// IsManagerOrLead reports whether the declared role is MANAGER or TEAM_LEADER.
func (a Actor) IsManagerOrLead() bool {
	return a.Role == RoleManager || a.Role == RoleTeamLeader
}
