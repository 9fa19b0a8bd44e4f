// Package unit records the reports of the target's metal-unit checks into
// a tree of test scopes.
package unit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/preprocessor"
)

var (
	// ErrUnknownLevel is returned when the packed byte names no level.
	ErrUnknownLevel = errors.New("unit: unknown report level")
	// ErrUnknownKind is returned when the packed byte names no check kind.
	ErrUnknownKind = errors.New("unit: unknown check kind")
	// ErrMissingArgs is returned when an expansion lacks the arguments its kind needs.
	ErrMissingArgs = errors.New("unit: missing report arguments")
)

// Hook decodes METAL_TEST_REPORT_IMPL records and forwards them to a Reporter.
type Hook struct {
	reporter *Reporter
}

// NewHook returns a hook reporting into r. A nil r gets a reporter with default options.
func NewHook(r *Reporter) *Hook {
	if r == nil {
		r = NewReporter(ReporterOptions{})
	}
	return &Hook{reporter: r}
}

func (*Hook) Identifier() string { return constants.MacroUnit }

// Reporter is the reporter the hook forwards to.
func (h *Hook) Reporter() *Reporter { return h.reporter }

func (*Hook) Exit(int) error { return nil }

// Decode splits the packed report byte into level and kind.
func Decode(b byte) (Level, Kind, error) {
	li, ki := int(b>>5), int(b&0x1F)
	if li >= len(levels) {
		return "", "", fmt.Errorf("%w: %d", ErrUnknownLevel, li)
	}
	if ki >= len(kinds) {
		return "", "", fmt.Errorf("%w: %d", ErrUnknownKind, ki)
	}
	return levels[li], kinds[ki], nil
}

// Invoke reads the packed byte and the condition-or-length integer.
func (h *Hook) Invoke(e *engine.Engine, exp *preprocessor.MacroExpansion) error {
	b, err := e.ReadByte()
	if err != nil {
		return err
	}
	level, kind, err := Decode(b)
	if err != nil {
		return fmt.Errorf("%w at %s(%d)", err, exp.File, exp.Line)
	}
	value, err := e.ReadInt()
	if err != nil {
		return err
	}

	var args []string
	if len(exp.Args) > 3 {
		args = exp.Args[3:]
	}
	return h.dispatch(exp.File, exp.Line, level, kind, value, args)
}

func (h *Hook) dispatch(file string, line int, level Level, kind Kind, value uint64, args []string) error {
	r := h.reporter
	cond := value != 0
	arg := func(i int) string {
		if i < len(args) {
			return strings.TrimSpace(args[i])
		}
		return ""
	}
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d, got %d at %s", ErrMissingArgs, kind, n, len(args), loc(file, line))
		}
		return nil
	}

	switch kind {
	case KindCheckpoint:
		r.Checkpoint(file, line)
	case KindLog:
		if err := need(1); err != nil {
			return err
		}
		r.Log(file, line, unquote(arg(0)))
	case KindMessage:
		if err := need(1); err != nil {
			return err
		}
		r.Message(file, line, level, cond, unquote(arg(0)))
	case KindPlain:
		if err := need(1); err != nil {
			return err
		}
		r.Plain(file, line, level, cond, arg(0))
	case KindEqual, KindNotEqual, KindGE, KindLE, KindGreater, KindLesser:
		if err := need(2); err != nil {
			return err
		}
		r.Compare(kind, file, line, level, cond, arg(0), arg(1))
	case KindClose, KindCloseRelative:
		if err := need(3); err != nil {
			return err
		}
		r.Close(kind, file, line, level, cond, arg(0), arg(1), arg(2))
	case KindReport:
		return r.Report(file, line, cond)
	case KindCritical:
		r.Critical(file, line, level)
	case KindLoop:
		r.Loop(file, line, level)
	case KindCall:
		// METAL_CALL(Function) and METAL_CALL(Function, "Description") report the
		// function name first; the printed name is the description when given.
		return r.Call(file, line, level, cond, arg(0), unquote(arg(1)))
	case KindRanged:
		info := make([]string, len(args))
		for i := range args {
			info[i] = arg(i)
		}
		return r.Ranged(file, line, level, value, info)
	case KindPredicate:
		if err := need(1); err != nil {
			return err
		}
		r.Predicate(file, line, level, cond, arg(0), SplitArgs(arg(1)))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return nil
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

// SplitArgs strips the outer parentheses of a predicate argument list and
// splits it at commas outside nested brackets and string literals.
func SplitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
