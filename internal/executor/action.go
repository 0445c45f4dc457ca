package executor

import (
	"context"
	"sort"

	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/zclconf/go-cty/cty"
)

// Action mutates the state of one project. It runs under the project's lock.
type Action func(ctx context.Context, s *project.State) error

// Property names used by the built-in actions.
const (
	PropertyTouched = "touched"
	PropertyCounter = "counter"
)

var actions = map[string]Action{
	"touch": Touch,
	"bump":  Bump,
}

// ActionByName returns a built-in action.
func ActionByName(name string) (Action, error) {
	a, ok := actions[name]
	if !ok {
		return nil, errors.NewValidationError("action", name, "unknown action")
	}
	return a, nil
}

// ActionNames returns the names of the built-in actions, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Touch marks the project as visited.
func Touch(_ context.Context, s *project.State) error {
	s.Properties().Set(PropertyTouched, cty.True)
	return nil
}

// Bump increments the project's counter, starting from zero.
func Bump(_ context.Context, s *project.State) error {
	current, ok := s.Properties().Get(PropertyCounter)
	if !ok || current.IsNull() {
		current = cty.Zero
	}
	if current.Type() != cty.Number || !current.IsKnown() {
		return errors.NewValidationError(PropertyCounter, s.String(), "must be a number, got "+current.Type().FriendlyName())
	}
	s.Properties().Set(PropertyCounter, current.Add(cty.NumberIntVal(1)))
	return nil
}
