package cpputest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine/enginetest"
	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/testutil"
)

type recorder struct {
	events  []string
	results []TestResult
	shells  []TestShell
	failure TestFailure
	printed []any
	level   int
	run     [2]uint64
}

func (r *recorder) add(ev string) { r.events = append(r.events, ev) }

func (r *recorder) PrintTestsStarted() { r.add("testsStarted") }
func (r *recorder) PrintTestsEnded(res TestResult) {
	r.add("testsEnded")
	r.results = append(r.results, res)
}
func (r *recorder) PrintCurrentTestStarted(s TestShell) {
	r.add("testStarted")
	r.shells = append(r.shells, s)
}
func (r *recorder) PrintCurrentTestEnded(res TestResult) {
	r.add("testEnded")
	r.results = append(r.results, res)
}
func (r *recorder) PrintCurrentGroupStarted(s TestShell) {
	r.add("groupStarted")
	r.shells = append(r.shells, s)
}
func (r *recorder) PrintCurrentGroupEnded(res TestResult) {
	r.add("groupEnded")
	r.results = append(r.results, res)
}
func (r *recorder) Verbose(level int) {
	r.add("verbose")
	r.level = level
}
func (r *recorder) Color()              { r.add("color") }
func (r *recorder) PrintBuffer(s string) { r.add("buffer:" + s) }
func (r *recorder) Print(v any) {
	r.add("print")
	r.printed = append(r.printed, v)
}
func (r *recorder) PrintFailure(f TestFailure) {
	r.add("failure")
	r.failure = f
}
func (r *recorder) PrintTestRun(number, total uint64) {
	r.add("testRun")
	r.run = [2]uint64{number, total}
}
func (r *recorder) SetProgressIndicator(s string) { r.add("progress:" + s) }
func (r *recorder) PrintVeryVerbose(s string)     { r.add("veryVerbose:" + s) }
func (r *recorder) Flush()                        { r.add("flush") }

func call(args ...string) *preprocessor.MacroExpansion {
	return &preprocessor.MacroExpansion{Name: constants.MacroCppUTest, File: "/src/cpputest.cpp", Line: 12, Args: args}
}

func sendResult(tg *testutil.Target, base uint64) {
	for i := uint64(0); i < 9; i++ {
		tg.SendInt(base+i, 4)
	}
}

func TestHook_Invoke(t *testing.T) {
	rec := &recorder{}
	h := NewHook(rec)
	assert.Equal(t, constants.MacroCppUTest, h.Identifier())

	e := enginetest.Start(t, func(tg *testutil.Target) error {
		// verbose
		tg.SendByte(LevelVerbose)
		// printCurrentGroupStarted
		tg.SendStr("test_one")
		tg.SendStr("MathGroup")
		tg.SendStr("TEST(MathGroup, test_one)")
		tg.SendStr("/src/test.cpp")
		tg.SendInt(21, 4)
		// printTestsEnded
		sendResult(tg, 1)
		// print, str / int / double
		tg.SendStr("hello")
		tg.SendInt(77, 1)
		tg.SendStr("2.5")
		// printFailure
		tg.SendStr("/src/test.cpp")
		tg.SendStr("TEST(MathGroup, test_one)")
		tg.SendStr("test_one")
		tg.SendInt(30, 4)
		tg.SendStr("expected <1> but was <2>")
		tg.SendStr("/src/test.cpp")
		tg.SendInt(21, 4)
		tg.SendByte(0)
		tg.SendByte(1)
		// printTestRun
		tg.SendInt(1, 1)
		tg.SendInt(3, 1)
		// setProgressIndicator
		tg.SendStr(".")
		return tg.Err()
	})

	require.NoError(t, h.Invoke(e, call("printTestsStarted")))
	require.NoError(t, h.Invoke(e, call("verbose")))
	require.NoError(t, h.Invoke(e, call("printCurrentGroupStarted")))
	require.NoError(t, h.Invoke(e, call("printTestsEnded")))
	require.NoError(t, h.Invoke(e, call("print", "str")))
	require.NoError(t, h.Invoke(e, call("print", "int")))
	require.NoError(t, h.Invoke(e, call("print, double")))
	require.NoError(t, h.Invoke(e, call("printFailure")))
	require.NoError(t, h.Invoke(e, call("printTestRun")))
	require.NoError(t, h.Invoke(e, call("setProgressIndicator")))
	require.NoError(t, h.Invoke(e, call("color")))
	require.NoError(t, h.Invoke(e, call("flush")))

	assert.Equal(t, []string{
		"testsStarted", "verbose", "groupStarted", "testsEnded",
		"print", "print", "print", "failure", "testRun", "progress:.", "color", "flush",
	}, rec.events)

	assert.Equal(t, LevelVerbose, rec.level)
	require.Len(t, rec.shells, 1)
	assert.Equal(t, TestShell{
		Name:          "test_one",
		Group:         "MathGroup",
		FormattedName: "TEST(MathGroup, test_one)",
		File:          "/src/test.cpp",
		LineNumber:    21,
	}, rec.shells[0])

	require.Len(t, rec.results, 1)
	assert.Equal(t, uint64(1), rec.results[0].TestCount)
	assert.Equal(t, uint64(6), rec.results[0].FailureCount)
	assert.Equal(t, uint64(9), rec.results[0].CurrentGroupTotalExecutionTime)

	assert.Equal(t, []any{"hello", uint64(77), 2.5}, rec.printed)
	assert.Equal(t, uint64(30), rec.failure.FailureLineNumber)
	assert.Equal(t, "expected <1> but was <2>", rec.failure.Message)
	assert.False(t, rec.failure.IsOutsideTestFile)
	assert.True(t, rec.failure.IsInHelperFunction)
	assert.Equal(t, [2]uint64{1, 3}, rec.run)
	assert.NoError(t, h.Exit(0))
}

func TestHook_InvokeErrors(t *testing.T) {
	h := NewHook(&recorder{})
	e := enginetest.Start(t, func(tg *testutil.Target) error {
		tg.SendStr("not a number")
		return tg.Err()
	})

	err := h.Invoke(e, call("printNothing"))
	require.ErrorIs(t, err, ErrUnknownFunction)
	assert.Contains(t, err.Error(), "/src/cpputest.cpp(12)")

	assert.ErrorIs(t, h.Invoke(e, call("print", "bool")), ErrUnknownPrint)
	assert.ErrorContains(t, h.Invoke(e, call("print", "double")), "invalid double")
}

func TestLogOutput(t *testing.T) {
	logger, buf := testutil.NewCapturingLogger(zerolog.DebugLevel)
	out := NewLogOutput(logger)

	out.PrintTestsStarted()
	out.PrintCurrentTestStarted(TestShell{Name: "hidden"})
	out.Verbose(LevelVerbose)
	out.PrintCurrentTestStarted(TestShell{Name: "shown", Group: "G"})
	out.PrintFailure(TestFailure{TestName: "shown", Message: "boom", FailureLineNumber: 4})
	out.PrintTestsEnded(TestResult{TestCount: 2, FailureCount: 1})

	s := buf.String()
	assert.Contains(t, s, "Tests started")
	assert.NotContains(t, s, "hidden")
	assert.Contains(t, s, `"test":"shown"`)
	assert.Contains(t, s, "boom")
	assert.Contains(t, s, `"failures":1`)
	assert.Contains(t, s, `"level":"error"`)
}
