package unit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// ErrUnknownControl is returned for a control level a check cannot take.
	ErrUnknownControl = errors.New("unit: unknown control")
	// ErrScopeUnderflow is returned when a call exits the main scope.
	ErrScopeUnderflow = errors.New("unit: call exit without matching enter")
)

// PrintLevel filters which checks reach the human-readable output.
type PrintLevel string

const (
	// PrintAll prints every check.
	PrintAll PrintLevel = "all"
	// PrintWarning prints failed asserts and failed expects.
	PrintWarning PrintLevel = "warning"
	// PrintError prints failed asserts only.
	PrintError PrintLevel = "error"
)

// ParsePrintLevel validates a print level name. The empty string selects PrintWarning.
func ParsePrintLevel(s string) (PrintLevel, error) {
	switch l := PrintLevel(s); l {
	case "":
		return PrintWarning, nil
	case PrintAll, PrintWarning, PrintError:
		return l, nil
	default:
		return "", fmt.Errorf("unit: unknown print level %q", s)
	}
}

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	// Output receives human-readable lines. Nil disables them.
	Output io.Writer
	// JSON receives the scope tree on report. Nil disables it.
	JSON       io.Writer
	PrintLevel PrintLevel
	Color      bool
}

// Reporter accumulates unit reports into a scope tree.
type Reporter struct {
	out   io.Writer
	json  io.Writer
	level PrintLevel
	color bool

	stack []*Scope
}

// NewReporter returns a reporter whose main scope is "<main>".
func NewReporter(opts ReporterOptions) *Reporter {
	level := opts.PrintLevel
	if level == "" {
		level = PrintWarning
	}
	return &Reporter{
		out:   opts.Output,
		json:  opts.JSON,
		level: level,
		color: opts.Color,
		stack: []*Scope{newScope("<main>")},
	}
}

// Root is the main scope.
func (r *Reporter) Root() *Scope { return r.stack[0] }

// Current is the innermost open scope.
func (r *Reporter) Current() *Scope { return r.stack[len(r.stack)-1] }

func (r *Reporter) shouldPrint(level Level, condition bool) bool {
	if r.out == nil {
		return false
	}
	switch r.level {
	case PrintAll:
		return true
	case PrintWarning:
		return !condition && (level == LevelAssert || level == LevelExpect)
	default:
		return !condition && level == LevelAssert
	}
}

func (r *Reporter) printf(format string, args ...any) {
	if r.out == nil {
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func loc(file string, line int) string {
	return fmt.Sprintf("%s(%d)", file, line)
}

func (r *Reporter) outcome(file string, line int, level Level, condition bool) string {
	var b strings.Builder
	b.WriteString(loc(file, line))
	if level == LevelAssert {
		b.WriteString(" assertion ")
	} else {
		b.WriteString(" expectation ")
	}
	switch {
	case condition:
		b.WriteString(r.style(successStyle, "succeeded"))
	case level == LevelAssert:
		b.WriteString(r.style(errorStyle, "failed"))
	default:
		b.WriteString(r.style(warningStyle, "failed"))
	}
	return b.String()
}

func boolPtr(b bool) *bool { return &b }

// Critical records a failed critical check and cancels the current scope.
func (r *Reporter) Critical(file string, line int, control Level) {
	r.printf("%s critical check failed, cancelling", loc(file, line))
	r.Current().Cancelled = true
	r.Current().record(Check{Type: KindCritical, File: file, Line: line, Control: control})
}

// Loop records a cancelled loop.
func (r *Reporter) Loop(file string, line int, control Level) {
	r.printf("%s for loop cancelled", loc(file, line))
	r.Current().record(Check{Type: KindLoop, File: file, Line: line, Control: control})
}

// Ranged records the start, completion or cancellation of a ranged check.
// info holds the operand texts lhs, lhs_len, rhs, rhs_len on enter.
func (r *Reporter) Ranged(file string, line int, control Level, length uint64, info []string) error {
	c := Check{Type: KindRanged, File: file, Line: line, Control: control, Length: &length}
	switch control {
	case LevelCancel:
		r.printf("%s ranged test cancelled at pos %d", loc(file, line), length)
	case LevelExit:
		r.printf("%s ranged test completed with %d elements", loc(file, line), length)
	case LevelEnter:
		ri := RangeInfo{}
		fields := []*string{&ri.Lhs, &ri.LhsLen, &ri.Rhs, &ri.RhsLen}
		for i, f := range fields {
			if i < len(info) {
				*f = info[i]
			}
		}
		c.RangeInfo = &ri
		r.printf("%s ranged test starting with %d elements for %s[0 ... %s] and %s[0 ... %s]",
			loc(file, line), length, ri.Lhs, ri.LhsLen, ri.Rhs, ri.RhsLen)
	default:
		return fmt.Errorf("%w %q for ranged check at %s", ErrUnknownControl, control, loc(file, line))
	}
	r.Current().record(c)
	return nil
}

// Call enters or exits a test case scope. On exit the scope's counts are
// merged into its parent and failed reports the test case's own verdict.
func (r *Reporter) Call(file string, line int, control Level, failed bool, function, description string) error {
	name := function
	if name == "" {
		name = "**unknown**"
	}
	switch control {
	case LevelEnter:
		s := newScope(name)
		s.Description = description
		r.stack = append(r.stack, s)
		if description != "" {
			name = description
		}
		r.printf("%s entering test case %s", loc(file, line), name)
		return nil

	case LevelExit:
		if len(r.stack) == 1 {
			return fmt.Errorf("%w at %s", ErrScopeUnderflow, loc(file, line))
		}
		s := r.Current()
		r.stack = r.stack[:len(r.stack)-1]
		r.Current().merge(s)

		verb := "exiting"
		if s.Cancelled {
			verb = "cancelling"
		}
		if s.Description != "" {
			name = s.Description
		}
		result := r.style(successStyle, "succeeded")
		if failed {
			result = r.style(errorStyle, "failed")
		}
		r.printf("%s %s test case %s, %s with: {executed: %d, warnings: %d, errors: %d}",
			loc(file, line), verb, name, result, s.Summary.Executed, s.Summary.Warnings, s.Summary.Errors)
		return nil
	}
	return fmt.Errorf("%w %q for call at %s", ErrUnknownControl, control, loc(file, line))
}

// Log records a log message.
func (r *Reporter) Log(file string, line int, message string) {
	r.printf("%s log: %s", loc(file, line), message)
	r.Current().record(Check{Type: KindLog, File: file, Line: line, Message: message})
}

// Checkpoint records that execution reached a location.
func (r *Reporter) Checkpoint(file string, line int) {
	if r.shouldPrint(LevelInfo, true) {
		r.printf("%s checkpoint", loc(file, line))
	}
	r.Current().record(Check{Type: KindCheckpoint, File: file, Line: line})
}

// Message records a check with a user message.
func (r *Reporter) Message(file string, line int, level Level, condition bool, message string) {
	if r.shouldPrint(level, condition) {
		r.printf("%s message: %s", r.outcome(file, line, level, condition), message)
	}
	r.Current().record(Check{Type: KindMessage, File: file, Line: line, Level: level, Condition: boolPtr(condition), Message: message})
}

// Plain records a check of a single expression.
func (r *Reporter) Plain(file string, line int, level Level, condition bool, description string) {
	if r.shouldPrint(level, condition) {
		r.printf("%s [plain]: %s", r.outcome(file, line, level, condition), description)
	}
	r.Current().record(Check{Type: KindPlain, File: file, Line: line, Level: level, Condition: boolPtr(condition), Description: description})
}

var operators = map[Kind]string{
	KindEqual:    "==",
	KindNotEqual: "!=",
	KindGE:       ">=",
	KindLE:       "<=",
	KindGreater:  ">",
	KindLesser:   "<",
}

// Compare records a binary comparison check.
func (r *Reporter) Compare(kind Kind, file string, line int, level Level, condition bool, lhs, rhs string) {
	if r.shouldPrint(level, condition) {
		expr := lhs
		if rhs != "" {
			expr = fmt.Sprintf("%s %s %s", lhs, operators[kind], rhs)
		}
		r.printf("%s [%s]: %s", r.outcome(file, line, level, condition), kind, expr)
	}
	r.Current().record(Check{Type: kind, File: file, Line: line, Level: level, Condition: boolPtr(condition), Lhs: lhs, Rhs: rhs})
}

// Close records an absolute or relative tolerance check.
func (r *Reporter) Close(kind Kind, file string, line int, level Level, condition bool, lhs, rhs, tolerance string) {
	if r.shouldPrint(level, condition) {
		expr := lhs
		if rhs != "" && tolerance != "" {
			expr = fmt.Sprintf("%s = %s +- ~ %s", lhs, rhs, tolerance)
		}
		r.printf("%s [%s]: %s", r.outcome(file, line, level, condition), kind, expr)
	}
	r.Current().record(Check{Type: kind, File: file, Line: line, Level: level, Condition: boolPtr(condition), Lhs: lhs, Rhs: rhs, Tolerance: tolerance})
}

// Predicate records a predicate applied to arguments.
func (r *Reporter) Predicate(file string, line int, level Level, condition bool, function string, args []string) {
	if r.shouldPrint(level, condition) {
		r.printf("%s [predicate]: %s(%s)", r.outcome(file, line, level, condition), function, strings.Join(args, ", "))
	}
	r.Current().record(Check{Type: KindPredicate, File: file, Line: line, Level: level, Condition: boolPtr(condition), Function: function, Args: args})
}

// Report prints the main scope's totals and writes the scope tree as JSON.
func (r *Reporter) Report(file string, line int, _ bool) error {
	root := r.Root()
	r.printf("%s: full test report: {executed: %d, warnings: %d, errors: %d}",
		loc(file, line), root.Summary.Executed, root.Summary.Warnings, root.Summary.Errors)
	if r.json == nil {
		return nil
	}
	if err := json.NewEncoder(r.json).Encode(root); err != nil {
		return fmt.Errorf("failed to write test report: %w", err)
	}
	return nil
}
