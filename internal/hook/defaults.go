package hook

import (
	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/preprocessor"
)

// Init acknowledges the target's initial marker.
type Init struct{}

// NewInit returns the default init hook.
func NewInit() *Init { return &Init{} }

func (*Init) Identifier() string { return constants.MacroInit }

func (*Init) Invoke(*engine.Engine, *preprocessor.MacroExpansion) error { return nil }

func (*Init) Exit(int) error { return nil }

// Exit reads the target's exit code and stops the dispatch loop.
type Exit struct {
	code    int
	running bool
}

// NewExit returns the default exit hook.
func NewExit() *Exit { return &Exit{running: true} }

func (*Exit) Identifier() string { return constants.MacroExit }

// Invoke reads one integer, sign-extended from its transmitted size.
func (x *Exit) Invoke(e *engine.Engine, _ *preprocessor.MacroExpansion) error {
	code, err := e.ReadSigned()
	if err != nil {
		return err
	}
	x.code = int(code)
	x.running = false
	return nil
}

func (*Exit) Exit(int) error { return nil }

// Running reports whether the target has not exited yet.
func (x *Exit) Running() bool { return x.running }

// ExitCode is the code the target exited with.
func (x *Exit) ExitCode() int { return x.code }
