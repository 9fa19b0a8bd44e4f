package unit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine/enginetest"
	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/testutil"
)

func packed(level, kind int) byte {
	return byte(level<<5 | kind)
}

func TestReporter_CallMerge(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out, PrintLevel: PrintAll})

	require.NoError(t, r.Call("test.c", 10, LevelEnter, false, "my_test", ""))
	r.Compare(KindEqual, "test.c", 11, LevelAssert, false, "a", "b")
	r.Compare(KindEqual, "test.c", 12, LevelAssert, false, "a", "c")
	r.Plain("test.c", 13, LevelAssert, false, "x")
	r.Plain("test.c", 14, LevelExpect, false, "y")
	require.NoError(t, r.Call("test.c", 15, LevelExit, true, "my_test", ""))

	root := r.Root()
	assert.Equal(t, Summary{Executed: 4, Warnings: 1, Errors: 3}, root.Summary)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "my_test", root.Children[0].Name)
	assert.Len(t, root.Children[0].Tests, 4)
	assert.Same(t, root, r.Current())

	assert.Contains(t, out.String(), "test.c(10) entering test case my_test")
	assert.Contains(t, out.String(), "test.c(15) exiting test case my_test, failed with: {executed: 4, warnings: 1, errors: 3}")
}

func TestReporter_CallExitUnderflow(t *testing.T) {
	r := NewReporter(ReporterOptions{})
	err := r.Call("test.c", 1, LevelExit, false, "f", "")
	assert.ErrorIs(t, err, ErrScopeUnderflow)

	err = r.Call("test.c", 1, LevelAssert, false, "f", "")
	assert.ErrorIs(t, err, ErrUnknownControl)
}

func TestReporter_Critical(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out})

	require.NoError(t, r.Call("test.c", 1, LevelEnter, false, "f", "does things"))
	r.Critical("test.c", 2, LevelCancel)
	assert.True(t, r.Current().Cancelled)
	require.NoError(t, r.Call("test.c", 3, LevelExit, false, "f", ""))

	assert.False(t, r.Root().Cancelled)
	assert.Equal(t, 0, r.Root().Summary.Executed)
	assert.Contains(t, out.String(), "test.c(2) critical check failed, cancelling")
	assert.Contains(t, out.String(), "entering test case does things")
	assert.Contains(t, out.String(), "cancelling test case does things, succeeded")
}

func TestReporter_PrintLevel(t *testing.T) {
	tests := []struct {
		level PrintLevel
		want  []string
		hide  []string
	}{
		{level: PrintAll, want: []string{"(1)", "(2)", "(3)", "(4)"}},
		{level: PrintWarning, want: []string{"(2)", "(4)"}, hide: []string{"(1)", "(3)"}},
		{level: PrintError, want: []string{"(4)"}, hide: []string{"(1)", "(2)", "(3)"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var out bytes.Buffer
			r := NewReporter(ReporterOptions{Output: &out, PrintLevel: tt.level})
			r.Plain("f.c", 1, LevelExpect, true, "ok")
			r.Plain("f.c", 2, LevelExpect, false, "warn")
			r.Plain("f.c", 3, LevelAssert, true, "ok")
			r.Plain("f.c", 4, LevelAssert, false, "err")

			for _, s := range tt.want {
				assert.Contains(t, out.String(), "f.c"+s)
			}
			for _, s := range tt.hide {
				assert.NotContains(t, out.String(), "f.c"+s)
			}
			// Filtering never changes what is recorded.
			assert.Equal(t, Summary{Executed: 4, Warnings: 1, Errors: 1}, r.Root().Summary)
		})
	}
}

func TestReporter_Formats(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out, PrintLevel: PrintAll})

	r.Compare(KindGE, "f.c", 1, LevelAssert, true, "x", "3")
	r.Close(KindClose, "f.c", 2, LevelExpect, false, "a", "b", "0.1")
	r.Predicate("f.c", 3, LevelAssert, true, "is_even", []string{"x", "y"})
	r.Message("f.c", 4, LevelExpect, true, "hello")
	r.Log("f.c", 5, "note")
	r.Loop("f.c", 6, LevelCancel)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "f.c(1) assertion succeeded [ge]: x >= 3", lines[0])
	assert.Equal(t, "f.c(2) expectation failed [close]: a = b +- ~ 0.1", lines[1])
	assert.Equal(t, "f.c(3) assertion succeeded [predicate]: is_even(x, y)", lines[2])
	assert.Equal(t, "f.c(4) expectation succeeded message: hello", lines[3])
	assert.Equal(t, "f.c(5) log: note", lines[4])
	assert.Equal(t, "f.c(6) for loop cancelled", lines[5])
}

func TestReporter_Ranged(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out})

	require.NoError(t, r.Ranged("f.c", 1, LevelEnter, 3, []string{"a", "3", "b", "3"}))
	require.NoError(t, r.Ranged("f.c", 2, LevelExit, 3, nil))
	require.NoError(t, r.Ranged("f.c", 3, LevelCancel, 1, nil))
	assert.ErrorIs(t, r.Ranged("f.c", 4, LevelAssert, 0, nil), ErrUnknownControl)

	tests := r.Root().Tests
	require.Len(t, tests, 3)
	require.NotNil(t, tests[0].RangeInfo)
	assert.Equal(t, RangeInfo{Lhs: "a", LhsLen: "3", Rhs: "b", RhsLen: "3"}, *tests[0].RangeInfo)
	assert.Equal(t, uint64(3), *tests[1].Length)
	assert.Contains(t, out.String(), "f.c(2) ranged test completed with 3 elements")
	assert.Contains(t, out.String(), "f.c(3) ranged test cancelled at pos 1")
}

func TestReporter_ReportJSON(t *testing.T) {
	var out, js bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out, JSON: &js})

	require.NoError(t, r.Call("f.c", 1, LevelEnter, false, "case", ""))
	r.Plain("f.c", 2, LevelAssert, true, "x")
	require.NoError(t, r.Call("f.c", 3, LevelExit, false, "case", ""))
	require.NoError(t, r.Report("f.c", 4, false))

	assert.Contains(t, out.String(), "f.c(4): full test report: {executed: 1, warnings: 0, errors: 0}")

	var root Scope
	require.NoError(t, json.Unmarshal(js.Bytes(), &root))
	assert.Equal(t, "<main>", root.Name)
	assert.Equal(t, 1, root.Summary.Executed)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "case", root.Children[0].Name)
	require.Len(t, root.Children[0].Tests, 1)
	assert.Equal(t, KindPlain, root.Children[0].Tests[0].Type)
}

func TestReporter_Color(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(ReporterOptions{Output: &out, PrintLevel: PrintAll, Color: true})
	r.Plain("f.c", 1, LevelAssert, false, "x")
	assert.Contains(t, out.String(), "failed")
	assert.Contains(t, out.String(), "f.c(1) assertion ")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		b     byte
		level Level
		kind  Kind
	}{
		{packed(0, 0), LevelCancel, KindPlain},
		{packed(0, 1), LevelCancel, KindCritical},
		{packed(0, 2), LevelCancel, KindCriticalSection},
		{packed(1, 3), LevelInfo, KindLoop},
		{packed(1, 4), LevelInfo, KindRanged},
		{packed(1, 6), LevelInfo, KindCall},
		{packed(1, 7), LevelInfo, KindLog},
		{packed(4, 9), LevelAssert, KindEqual},
		{packed(5, 11), LevelExpect, KindPredicate},
		{packed(4, 17), LevelAssert, KindLesser},
		{packed(1, 18), LevelInfo, KindReport},
	}
	for _, tt := range tests {
		level, kind, err := Decode(tt.b)
		require.NoError(t, err, "byte 0x%02x", tt.b)
		assert.Equal(t, tt.level, level, "byte 0x%02x", tt.b)
		assert.Equal(t, tt.kind, kind, "byte 0x%02x", tt.b)
	}

	_, _, err := Decode(packed(6, 0))
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, _, err = Decode(packed(1, 19))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "(a, b)", want: []string{"a", "b"}},
		{in: "(f(x, y), z)", want: []string{"f(x, y)", "z"}},
		{in: `("a,b", c[1,2])`, want: []string{`"a,b"`, "c[1,2]"}},
		{in: "()", want: nil},
		{in: "x", want: []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArgs(tt.in))
		})
	}
}

func expansion(line int, args ...string) *preprocessor.MacroExpansion {
	return &preprocessor.MacroExpansion{
		Name: constants.MacroUnit,
		File: "/src/test.c",
		Line: line,
		Args: append([]string{"0", "0", "0"}, args...),
	}
}

func TestHook_Invoke(t *testing.T) {
	r := NewReporter(ReporterOptions{})
	h := NewHook(r)
	assert.Equal(t, constants.MacroUnit, h.Identifier())
	assert.Same(t, r, h.Reporter())

	e := enginetest.Start(t, func(tg *testutil.Target) error {
		tg.SendByte(packed(2, 6)) // enter call
		tg.SendInt(0, 1)
		tg.SendByte(packed(4, 9)) // assert equal, failed
		tg.SendInt(0, 1)
		tg.SendByte(packed(5, 11)) // expect predicate, passed
		tg.SendInt(1, 1)
		tg.SendByte(packed(3, 6)) // exit call
		tg.SendInt(1, 4)
		return tg.Err()
	})

	require.NoError(t, h.Invoke(e, expansion(3, "my_func", `"checks the math"`)))
	assert.Equal(t, "my_func", r.Current().Name)
	assert.Equal(t, "checks the math", r.Current().Description)

	require.NoError(t, h.Invoke(e, expansion(4, "x", "4")))
	require.NoError(t, h.Invoke(e, expansion(5, "is_even", "(x, y + 1)")))
	require.NoError(t, h.Invoke(e, expansion(6, "my_func", `"checks the math"`)))

	root := r.Root()
	assert.Equal(t, Summary{Executed: 2, Warnings: 0, Errors: 1}, root.Summary)
	require.Len(t, root.Children, 1)
	tests := root.Children[0].Tests
	require.Len(t, tests, 2)
	assert.Equal(t, "x", tests[0].Lhs)
	assert.Equal(t, "4", tests[0].Rhs)
	assert.Equal(t, "is_even", tests[1].Function)
	assert.Equal(t, []string{"x", "y + 1"}, tests[1].Args)
	assert.NoError(t, h.Exit(0))
}

func TestHook_CallSiteShapes(t *testing.T) {
	var out bytes.Buffer
	h := NewHook(NewReporter(ReporterOptions{Output: &out, PrintLevel: PrintAll}))

	e := enginetest.Start(t, func(tg *testutil.Target) error {
		for i := 0; i < 2; i++ {
			tg.SendByte(packed(2, 6)) // call enter
			tg.SendInt(1, 1)
			tg.SendByte(packed(3, 6)) // call exit, no error
			tg.SendInt(0, 1)
		}
		return tg.Err()
	})

	// METAL_CALL(run_tests)
	require.NoError(t, h.Invoke(e, expansion(3, "run_tests")))
	require.NoError(t, h.Invoke(e, expansion(3, "run_tests")))
	// METAL_CALL(run_tests, "the math suite")
	require.NoError(t, h.Invoke(e, expansion(4, "run_tests", `"the math suite"`)))
	require.NoError(t, h.Invoke(e, expansion(4, "run_tests")))

	assert.Contains(t, out.String(), "/src/test.c(3) entering test case run_tests")
	assert.Contains(t, out.String(), "/src/test.c(3) exiting test case run_tests, succeeded")
	assert.Contains(t, out.String(), "/src/test.c(4) entering test case the math suite")
	assert.Contains(t, out.String(), "/src/test.c(4) exiting test case the math suite, succeeded")

	children := h.Reporter().Root().Children
	require.Len(t, children, 2)
	assert.Equal(t, "run_tests", children[1].Name)
	assert.Equal(t, "the math suite", children[1].Description)
}

func TestHook_InvokeErrors(t *testing.T) {
	h := NewHook(nil)

	e := enginetest.Start(t, func(tg *testutil.Target) error {
		tg.SendByte(packed(7, 0))
		tg.SendByte(packed(4, 9))
		tg.SendInt(1, 1)
		tg.SendByte(packed(0, 2))
		tg.SendInt(0, 1)
		return tg.Err()
	})

	err := h.Invoke(e, expansion(7))
	require.ErrorIs(t, err, ErrUnknownLevel)
	assert.Contains(t, err.Error(), "/src/test.c(7)")

	err = h.Invoke(e, expansion(8, "x"))
	assert.ErrorIs(t, err, ErrMissingArgs)

	err = h.Invoke(e, expansion(9))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParsePrintLevel(t *testing.T) {
	l, err := ParsePrintLevel("")
	require.NoError(t, err)
	assert.Equal(t, PrintWarning, l)

	l, err = ParsePrintLevel("error")
	require.NoError(t, err)
	assert.Equal(t, PrintError, l)

	_, err = ParsePrintLevel("loud")
	assert.Error(t, err)
}
