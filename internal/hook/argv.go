package hook

import (
	"bytes"

	"github.com/rs/zerolog"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/preprocessor"
)

// Argv hands the target its command line: argc, then the arguments as one
// memory block of zero-terminated strings.
type Argv struct {
	args   []string
	logger zerolog.Logger
}

// NewArgv returns an argv hook serving args.
func NewArgv(args []string, logger zerolog.Logger) *Argv {
	return &Argv{
		args:   args,
		logger: logger.With().Str("component", "hook-argv").Logger(),
	}
}

func (*Argv) Identifier() string { return constants.MacroArgv }

func (a *Argv) Invoke(e *engine.Engine, _ *preprocessor.MacroExpansion) error {
	if err := e.WriteInt(uint64(len(a.args))); err != nil {
		return err
	}

	var data bytes.Buffer
	for _, arg := range a.args {
		data.WriteString(arg)
		data.WriteByte(0)
	}
	accepted, err := e.WriteMemory(data.Bytes())
	if err != nil {
		return err
	}
	if accepted != uint64(data.Len()) {
		a.logger.Warn().
			Uint64("accepted", accepted).
			Int("size", data.Len()).
			Msg("Target could not store all of argv")
	}
	return nil
}

func (*Argv) Exit(int) error { return nil }
