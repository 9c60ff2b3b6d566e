package team

import (
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/util"
)

// Team is the persisted record of one named group of cooperating agents.
type Team struct {
	Name      string    `json:"name"`
	Agents    []string  `json:"agents"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAgent reports whether the normalized form of name is on the roster.
func (t Team) HasAgent(name string) bool {
	norm := util.SanitizeName(name)
	for _, a := range t.Agents {
		if a == norm {
			return true
		}
	}
	return false
}

// NormalizeName maps a team or agent name into the safe identifier
// alphabet. Returns ErrInvalidPath when nothing safe survives, so a
// hostile name can never become a path component.
func NormalizeName(name string) (string, error) {
	norm := util.SanitizeName(name)
	if norm == "" {
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidPath, name)
	}
	return norm, nil
}
