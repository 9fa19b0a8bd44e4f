package hook

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/engine/enginetest"
	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/testutil"
)

type stubHook struct {
	id string
}

func (s stubHook) Identifier() string                                        { return s.id }
func (stubHook) Invoke(*engine.Engine, *preprocessor.MacroExpansion) error { return nil }
func (stubHook) Exit(int) error                                             { return nil }

func TestNewRegistry_Defaults(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{constants.MacroInit, constants.MacroExit}, r.Macros())
	assert.True(t, r.Terminator().Running())

	h, err := r.Lookup(constants.MacroExit)
	require.NoError(t, err)
	assert.IsType(t, &Exit{}, h)
}

func TestNewRegistry_Order(t *testing.T) {
	argv := NewArgv(nil, zerolog.Nop())
	r, err := NewRegistry(argv, stubHook{id: constants.MacroSyscall})
	require.NoError(t, err)

	assert.Equal(t, []string{
		constants.MacroArgv,
		constants.MacroSyscall,
		constants.MacroInit,
		constants.MacroExit,
	}, r.Macros())
	assert.Len(t, r.All(), 4)
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		hooks   []Hook
		wantErr error
	}{
		{
			name:    "duplicate",
			hooks:   []Hook{stubHook{id: constants.MacroSyscall}, stubHook{id: constants.MacroSyscall}},
			wantErr: ErrDuplicateHook,
		},
		{
			name:    "duplicate default",
			hooks:   []Hook{NewInit(), NewInit()},
			wantErr: ErrDuplicateHook,
		},
		{
			name:    "unknown identifier",
			hooks:   []Hook{stubHook{id: "METAL_SERIAL_NOPE"}},
			wantErr: ErrUnknownHook,
		},
		{
			name:    "exit hook without termination",
			hooks:   []Hook{stubHook{id: constants.MacroExit}},
			wantErr: ErrExitHook,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.hooks...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_LookupMissing(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Lookup(constants.MacroUnit)
	require.ErrorIs(t, err, ErrNoHook)
	assert.Contains(t, err.Error(), constants.MacroUnit)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(constants.MacroCppUTest))
	assert.False(t, Known("printf"))
}

func TestExit_ReadsSignedCode(t *testing.T) {
	e := enginetest.Start(t, func(tg *testutil.Target) error {
		tg.SendInt(0xFFFFFFFE, 4)
		return nil
	})

	x := NewExit()
	require.NoError(t, x.Invoke(e, nil))
	assert.False(t, x.Running())
	assert.Equal(t, -2, x.ExitCode())
}

func TestArgv(t *testing.T) {
	type received struct {
		argc  uint64
		block []byte
	}
	got := make(chan received, 1)
	e := enginetest.Start(t, func(tg *testutil.Target) error {
		argc := tg.RecvInt()
		got <- received{argc: argc, block: tg.RecvMemory(64)}
		return nil
	})

	logger, buf := testutil.NewCapturingLogger(zerolog.WarnLevel)
	require.NoError(t, NewArgv([]string{"prog", "-v", "file.txt"}, logger).Invoke(e, nil))

	r := <-got
	assert.Equal(t, uint64(3), r.argc)
	assert.Equal(t, []byte("prog\x00-v\x00file.txt\x00"), r.block)
	assert.Empty(t, buf.String())
}

func TestArgv_Truncated(t *testing.T) {
	e := enginetest.Start(t, func(tg *testutil.Target) error {
		tg.RecvInt()
		tg.RecvMemory(4)
		return nil
	})

	logger, buf := testutil.NewCapturingLogger(zerolog.WarnLevel)
	require.NoError(t, NewArgv([]string{"program"}, logger).Invoke(e, nil))
	assert.Contains(t, buf.String(), "Target could not store all of argv")
}
