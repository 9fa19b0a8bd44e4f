// Package cpputest bridges the target's CppUTest output plugin to a host
// side Output.
package cpputest

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
	// ErrUnknownFunction is returned for an output function the hook does not know.
	ErrUnknownFunction = errors.New("cpputest: unknown output function")
	// ErrUnknownPrint is returned for a print argument type other than str, int or double.
	ErrUnknownPrint = errors.New("cpputest: unknown print type")
)

// Hook decodes METAL_SERIAL_CPPUTEST events.
type Hook struct {
	out  Output
	handlers map[string]func(e *engine.Engine, kind string) error
}

// NewHook returns a hook forwarding to out.
func NewHook(out Output) *Hook {
	h := &Hook{out: out}
	h.handlers = map[string]func(*engine.Engine, string) error{
		"printTestsStarted": func(*engine.Engine, string) error {
			out.PrintTestsStarted()
			return nil
		},
		"printTestsEnded":          withResult(out.PrintTestsEnded),
		"printCurrentTestStarted":  withShell(out.PrintCurrentTestStarted),
		"printCurrentTestEnded":    withResult(out.PrintCurrentTestEnded),
		"printCurrentGroupStarted": withShell(out.PrintCurrentGroupStarted),
		"printCurrentGroupEnded":   withResult(out.PrintCurrentGroupEnded),
		"verbose": func(e *engine.Engine, _ string) error {
			b, err := e.ReadByte()
			if err != nil {
				return err
			}
			out.Verbose(int(b))
			return nil
		},
		"color": func(*engine.Engine, string) error {
			out.Color()
			return nil
		},
		"printBuffer":          withString(out.PrintBuffer),
		"print":                h.print,
		"printFailure":         h.printFailure,
		"printTestRun":         h.printTestRun,
		"setProgressIndicator": withString(out.SetProgressIndicator),
		"printVeryVerbose":     withString(out.PrintVeryVerbose),
		"flush": func(*engine.Engine, string) error {
			out.Flush()
			return nil
		},
	}
	return h
}

func (*Hook) Identifier() string { return constants.MacroCppUTest }

func (*Hook) Exit(int) error { return nil }

// Invoke dispatches on the first macro argument. A second argument names
// the value type of print.
func (h *Hook) Invoke(e *engine.Engine, exp *preprocessor.MacroExpansion) error {
	fn, kind := exp.Arg(0), exp.Arg(1)
	if name, rest, ok := strings.Cut(fn, ","); ok {
		fn, kind = name, rest
	}
	fn, kind = strings.TrimSpace(fn), strings.TrimSpace(kind)

	f, ok := h.handlers[fn]
	if !ok {
		return fmt.Errorf("%w %q at %s(%d)", ErrUnknownFunction, fn, exp.File, exp.Line)
	}
	return f(e, kind)
}

func (h *Hook) print(e *engine.Engine, kind string) error {
	switch kind {
	case "str":
		s, err := e.ReadString()
		if err != nil {
			return err
		}
		h.out.Print(s)
	case "int":
		n, err := e.ReadInt()
		if err != nil {
			return err
		}
		h.out.Print(n)
	case "double":
		s, err := e.ReadString()
		if err != nil {
			return err
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("cpputest: invalid double %q: %w", s, err)
		}
		h.out.Print(d)
	default:
		return fmt.Errorf("%w %q", ErrUnknownPrint, kind)
	}
	return nil
}

func (h *Hook) printFailure(e *engine.Engine, _ string) error {
	f, err := ReadTestFailure(e)
	if err != nil {
		return err
	}
	h.out.PrintFailure(f)
	return nil
}

func (h *Hook) printTestRun(e *engine.Engine, _ string) error {
	number, err := e.ReadInt()
	if err != nil {
		return err
	}
	total, err := e.ReadInt()
	if err != nil {
		return err
	}
	h.out.PrintTestRun(number, total)
	return nil
}

func withResult(f func(TestResult)) func(*engine.Engine, string) error {
	return func(e *engine.Engine, _ string) error {
		r, err := ReadTestResult(e)
		if err != nil {
			return err
		}
		f(r)
		return nil
	}
}

func withShell(f func(TestShell)) func(*engine.Engine, string) error {
	return func(e *engine.Engine, _ string) error {
		s, err := ReadTestShell(e)
		if err != nil {
			return err
		}
		f(s)
		return nil
	}
}

func withString(f func(string)) func(*engine.Engine, string) error {
	return func(e *engine.Engine, _ string) error {
		s, err := e.ReadString()
		if err != nil {
			return err
		}
		f(s)
		return nil
	}
}
