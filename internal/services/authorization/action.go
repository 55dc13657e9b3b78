package authorization

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asakaida/skillperm/internal/entities"
)

// ErrUnknownAction is returned for an action outside Run, Edit and Administer
var ErrUnknownAction = errors.New("unknown action")

// Action is an operation a member attempts on a skill
type Action string

const (
	ActionRun        Action = "run"
	ActionEdit       Action = "edit"
	ActionAdminister Action = "administer"
)

// RequiredCapability returns the grant a restricted skill demands for the action
func (a Action) RequiredCapability() (entities.Capability, error) {
	switch a {
	case ActionRun:
		return entities.CapabilityUse, nil
	case ActionEdit:
		return entities.CapabilityEdit, nil
	case ActionAdminister:
		return entities.CapabilityAdmin, nil
	default:
		return entities.CapabilityNone, fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
}

// ParseAction parses an action name, ignoring case
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, err := a.RequiredCapability(); err != nil {
		return "", err
	}
	return a, nil
}
