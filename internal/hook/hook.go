// Package hook defines the handlers the dispatch loop invokes for each
// instrumented macro and the registry that binds them to identifiers.
package hook

import (
	"errors"
	"fmt"
	"slices"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/preprocessor"
)

var (
	// ErrDuplicateHook is returned when two hooks share an identifier.
	ErrDuplicateHook = errors.New("hook: duplicate hook identifier")
	// ErrUnknownHook is returned for an identifier outside the known macro set.
	ErrUnknownHook = errors.New("hook: unknown hook identifier")
	// ErrNoHook is returned when no hook is registered for a macro.
	ErrNoHook = errors.New("hook: no hook for macro")
	// ErrExitHook is returned when the exit hook cannot end the session.
	ErrExitHook = errors.New("hook: exit hook does not report termination")
)

// Hook handles one macro identifier.
type Hook interface {
	// Identifier is the macro name the hook serves.
	Identifier() string
	// Invoke handles one occurrence. All I/O goes through e.
	Invoke(e *engine.Engine, exp *preprocessor.MacroExpansion) error
	// Exit is called once for every hook after the target exited.
	Exit(code int) error
}

// Terminator is implemented by the exit hook that ends the dispatch loop.
type Terminator interface {
	Running() bool
	ExitCode() int
}

// Known reports whether id is a macro identifier hooks may serve.
func Known(id string) bool {
	return slices.Contains(constants.KnownMacros, id)
}

// Registry is the ordered, closed set of hooks for a session.
type Registry struct {
	hooks []Hook
	byID  map[string]Hook
	exit  Terminator
}

// NewRegistry registers hooks in order and appends the default Init and
// Exit hooks when none are supplied for those identifiers.
func NewRegistry(hooks ...Hook) (*Registry, error) {
	r := &Registry{byID: make(map[string]Hook, len(hooks)+2)}
	for _, h := range hooks {
		if err := r.add(h); err != nil {
			return nil, err
		}
	}
	if _, ok := r.byID[constants.MacroInit]; !ok {
		_ = r.add(NewInit())
	}
	if _, ok := r.byID[constants.MacroExit]; !ok {
		_ = r.add(NewExit())
	}

	t, ok := r.byID[constants.MacroExit].(Terminator)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrExitHook, r.byID[constants.MacroExit])
	}
	r.exit = t
	return r, nil
}

func (r *Registry) add(h Hook) error {
	id := h.Identifier()
	if !Known(id) {
		return fmt.Errorf("%w: %s", ErrUnknownHook, id)
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateHook, id)
	}
	r.byID[id] = h
	r.hooks = append(r.hooks, h)
	return nil
}

// Lookup returns the hook registered for a macro name.
func (r *Registry) Lookup(id string) (Hook, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrNoHook, id)
	}
	return h, nil
}

// All returns the hooks in registration order.
func (r *Registry) All() []Hook {
	return slices.Clone(r.hooks)
}

// Terminator returns the exit hook driving the loop condition.
func (r *Registry) Terminator() Terminator {
	return r.exit
}

// Macros lists the identifiers to track while generating serial info.
func (r *Registry) Macros() []string {
	ids := make([]string, 0, len(r.hooks))
	for _, h := range r.hooks {
		ids = append(ids, h.Identifier())
	}
	return ids
}
