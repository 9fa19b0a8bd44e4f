// Package preprocessor runs a C preprocessing pass over target sources and
// records where tracked macros are invoked, together with their arguments.
package preprocessor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const maxIncludeDepth = 200

var (
	// ErrInvalidDefine is returned for malformed macro definitions.
	ErrInvalidDefine = errors.New("preprocessor: invalid macro definition")
	// ErrBadExpression is returned when an #if expression cannot be evaluated.
	ErrBadExpression = errors.New("preprocessor: bad #if expression")
	// ErrIncludeDepth is returned when includes nest too deeply.
	ErrIncludeDepth = errors.New("preprocessor: include nesting too deep")
)

// MacroExpansion records one invocation of a tracked macro.
type MacroExpansion struct {
	Name          string    `json:"name"`
	File          string    `json:"file"`
	Line          int       `json:"line"`
	Args          []string  `json:"args"`
	ArgsTokenized [][]Token `json:"args_tokenized"`
}

func (e MacroExpansion) String() string {
	return fmt.Sprintf("%s(%d): %s(%s)", e.File, e.Line, e.Name, strings.Join(e.Args, ", "))
}

// Arg returns the i-th raw argument, or "" when absent.
func (e MacroExpansion) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// Options configures a Preprocessor.
type Options struct {
	// Includes are searched for #include directives, in order.
	Includes []string
	// Defines use the NAME, NAME=VALUE or NAME(args)=BODY forms.
	Defines []string
	// Macros are the tracked macro names.
	Macros []string
	Logger zerolog.Logger
}

// Preprocessor processes one compile unit at a time.
type Preprocessor struct {
	opts   Options
	logger zerolog.Logger

	macros     map[string]*macro
	files      []*fileState
	conds      []*cond
	once       map[string]bool
	counter    int
	expansions []MacroExpansion
}

type fileState struct {
	path      string
	name      string
	dir       string
	lines     []sourceLine
	pos       int
	condBase  int
	lineDelta int
}

type cond struct {
	active  bool
	taken   bool
	parent  bool
	sawElse bool
}

// New returns a Preprocessor. Relative include paths are resolved against
// the working directory.
func New(opts Options) *Preprocessor {
	includes := make([]string, 0, len(opts.Includes))
	for _, inc := range opts.Includes {
		if abs, err := filepath.Abs(inc); err == nil {
			inc = abs
		}
		includes = append(includes, inc)
	}
	opts.Includes = includes
	return &Preprocessor{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "preprocessor").Logger(),
	}
}

// Process preprocesses path and returns the tracked macro expansions in the
// order they were encountered.
func (p *Preprocessor) Process(path string) ([]MacroExpansion, error) {
	if err := p.reset(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := p.pushFile(abs); err != nil {
		return nil, err
	}

	for {
		line, ok := p.nextLine()
		if !ok {
			break
		}
		if name, rest, ok := splitDirective(line); ok {
			if err := p.handleDirective(name, rest, line); err != nil {
				return nil, err
			}
			continue
		}
		if !p.active() {
			continue
		}
		if _, err := p.expand(line.tokens, true); err != nil {
			return nil, err
		}
	}
	return p.expansions, nil
}

func (p *Preprocessor) reset() error {
	p.macros = make(map[string]*macro)
	p.files = nil
	p.conds = nil
	p.once = make(map[string]bool)
	p.counter = 0
	p.expansions = nil

	for _, def := range []string{"__STDC__=1", "__STDC_VERSION__=201112L", "__STDC_HOSTED__=1"} {
		m, _ := parseCommandLineDefine(def)
		p.macros[m.name] = m
	}
	for _, name := range p.opts.Macros {
		p.macros[name] = &macro{
			name:     name,
			function: true,
			params:   []string{variadicParam},
			variadic: true,
			tracked:  true,
		}
	}
	for _, def := range p.opts.Defines {
		m, err := parseCommandLineDefine(def)
		if err != nil {
			return err
		}
		p.define(m)
	}
	return nil
}

func (p *Preprocessor) define(m *macro) {
	if prev, ok := p.macros[m.name]; ok && prev.tracked {
		m.tracked = true
	}
	p.macros[m.name] = m
}

func (p *Preprocessor) pushFile(path string) error {
	if len(p.files) >= maxIncludeDepth {
		return fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	path = filepath.Clean(path)
	p.files = append(p.files, &fileState{
		path:     path,
		name:     path,
		dir:      filepath.Dir(path),
		lines:    lex(string(data), path),
		condBase: len(p.conds),
	})
	p.logger.Trace().Str("file", path).Msg("Entering file")
	return nil
}

func (p *Preprocessor) current() *fileState {
	if len(p.files) == 0 {
		return nil
	}
	return p.files[len(p.files)-1]
}

// nextLine returns the next logical line, leaving finished files.
func (p *Preprocessor) nextLine() (sourceLine, bool) {
	for {
		f := p.current()
		if f == nil {
			return sourceLine{}, false
		}
		if f.pos < len(f.lines) {
			line := f.lines[f.pos]
			f.pos++
			if f.lineDelta != 0 || f.name != f.path {
				line = relabel(line, f)
			}
			return line, true
		}
		if len(p.conds) > f.condBase {
			p.logger.Warn().Str("file", f.path).Msg("Unterminated conditional directive")
			p.conds = p.conds[:f.condBase]
		}
		p.files = p.files[:len(p.files)-1]
	}
}

func relabel(line sourceLine, f *fileState) sourceLine {
	out := sourceLine{num: line.num + f.lineDelta, tokens: make([]Token, len(line.tokens))}
	for i, t := range line.tokens {
		t.Line += f.lineDelta
		t.file = f.name
		out.tokens[i] = t
	}
	return out
}

// fetch appends the next active text line to q, processing any directives
// on the way. It reports false at end of input.
func (p *Preprocessor) fetch(q *[]Token) bool {
	for {
		line, ok := p.nextLine()
		if !ok {
			return false
		}
		if name, rest, ok := splitDirective(line); ok {
			if err := p.handleDirective(name, rest, line); err != nil {
				p.logger.Warn().Err(err).Msg("Directive failed inside macro arguments")
			}
			continue
		}
		if !p.active() {
			continue
		}
		*q = append(*q, Token{Kind: KindSpace, Value: " ", Line: line.num})
		*q = append(*q, line.tokens...)
		return true
	}
}

func (p *Preprocessor) active() bool {
	return len(p.conds) == 0 || p.conds[len(p.conds)-1].active
}
