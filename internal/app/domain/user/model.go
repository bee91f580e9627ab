package user

import (
	"strings"

	"github.com/R3E-Network/tracker/internal/errors"
)

// User is a person who can manage, lead, develop or test projects. Logins are
// unique and immutable.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Validate checks required fields.
func (u User) Validate() error {
	if strings.TrimSpace(u.Login) == "" {
		return errors.Validation("login must not be blank")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.Validation("name must not be blank")
	}
	return nil
}
