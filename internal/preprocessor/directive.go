package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// splitDirective reports whether line is a directive and returns its name
// and the remaining tokens.
func splitDirective(line sourceLine) (string, []Token, bool) {
	ts := trimSpace(line.tokens)
	if len(ts) == 0 || !(ts[0].isPunct("#") || ts[0].isPunct("%:")) {
		return "", nil, false
	}
	ts = trimSpace(ts[1:])
	if len(ts) == 0 {
		return "", nil, true
	}
	return ts[0].Value, ts[1:], true
}

func (p *Preprocessor) handleDirective(name string, rest []Token, line sourceLine) error {
	f := p.current()
	log := p.logger.With().Str("file", f.name).Int("line", line.num).Logger()

	switch name {
	case "if", "ifdef", "ifndef":
		parent := p.active()
		c := &cond{parent: parent}
		if parent {
			v, err := p.evalCondition(name, rest, line)
			if err != nil {
				log.Warn().Err(err).Msg("Treating condition as false")
			}
			c.active, c.taken = v, v
		}
		p.conds = append(p.conds, c)
		return nil

	case "elif":
		c := p.topCond(f)
		if c == nil {
			log.Warn().Msg("#elif without #if")
			return nil
		}
		if c.sawElse {
			log.Warn().Msg("#elif after #else")
		}
		if c.taken || !c.parent {
			c.active = false
			return nil
		}
		v, err := p.evalCondition("if", rest, line)
		if err != nil {
			log.Warn().Err(err).Msg("Treating condition as false")
		}
		c.active, c.taken = v, v
		return nil

	case "else":
		c := p.topCond(f)
		if c == nil {
			log.Warn().Msg("#else without #if")
			return nil
		}
		c.active = c.parent && !c.taken
		c.taken = true
		c.sawElse = true
		return nil

	case "endif":
		if p.topCond(f) == nil {
			log.Warn().Msg("#endif without #if")
			return nil
		}
		p.conds = p.conds[:len(p.conds)-1]
		return nil
	}

	if !p.active() {
		return nil
	}

	switch name {
	case "define":
		m, err := parseDefine(rest)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring macro definition")
			return nil
		}
		p.define(m)
	case "undef":
		if ts := withoutSpace(rest); len(ts) > 0 {
			if m, ok := p.macros[ts[0].Value]; ok && m.tracked {
				log.Debug().Str("macro", m.name).Msg("Tracked macro undefined")
			}
			delete(p.macros, ts[0].Value)
		}
	case "include", "include_next":
		return p.include(rest, log)
	case "line":
		p.setLine(rest, line)
	case "pragma":
		if ts := withoutSpace(rest); len(ts) > 0 && ts[0].Value == "once" {
			p.once[f.path] = true
		}
	case "error":
		log.Warn().Str("message", strings.TrimSpace(tokensText(rest))).Msg("#error directive")
	case "warning":
		log.Warn().Str("message", strings.TrimSpace(tokensText(rest))).Msg("#warning directive")
	case "", "ident", "sccs", "assert", "unassert":
	default:
		log.Debug().Str("directive", name).Msg("Ignoring unknown directive")
	}
	return nil
}

func (p *Preprocessor) topCond(f *fileState) *cond {
	if len(p.conds) <= f.condBase {
		return nil
	}
	return p.conds[len(p.conds)-1]
}

func (p *Preprocessor) evalCondition(kind string, rest []Token, line sourceLine) (bool, error) {
	ts := withoutSpace(rest)
	switch kind {
	case "ifdef", "ifndef":
		if len(ts) == 0 || ts[0].Kind != KindIdent {
			return false, fmt.Errorf("%w: #%s without a macro name", ErrBadExpression, kind)
		}
		_, defined := p.macros[ts[0].Value]
		return defined == (kind == "ifdef"), nil
	}

	resolved, err := p.resolveDefined(rest)
	if err != nil {
		return false, err
	}
	expanded, err := p.expand(resolved, false)
	if err != nil {
		return false, err
	}
	v, err := evalTokens(expanded)
	if err != nil {
		return false, fmt.Errorf("%s(%d): %w", p.current().name, line.num, err)
	}
	return v != 0, nil
}

// resolveDefined replaces defined(X) and __has_include(...) before expansion.
func (p *Preprocessor) resolveDefined(ts []Token) ([]Token, error) {
	out := make([]Token, 0, len(ts))
	for i := 0; i < len(ts); i++ {
		t := ts[i]
		if t.Kind != KindIdent {
			out = append(out, t)
			continue
		}
		switch t.Value {
		case "defined":
			j := nextNonSpace(ts, i+1)
			paren := false
			if j >= 0 && ts[j].isPunct("(") {
				paren = true
				j = nextNonSpace(ts, j+1)
			}
			if j < 0 || ts[j].Kind != KindIdent {
				return nil, fmt.Errorf("%w: defined without a macro name", ErrBadExpression)
			}
			_, ok := p.macros[ts[j].Value]
			if paren {
				if j = nextNonSpace(ts, j+1); j < 0 || !ts[j].isPunct(")") {
					return nil, fmt.Errorf("%w: missing ')' after defined", ErrBadExpression)
				}
			}
			out = append(out, Token{Kind: KindNumber, Value: strconv.FormatInt(boolInt(ok), 10), Line: t.Line})
			i = j
		case "__has_include", "__has_include_next":
			j := nextNonSpace(ts, i+1)
			if j < 0 || !ts[j].isPunct("(") {
				return nil, fmt.Errorf("%w: malformed %s", ErrBadExpression, t.Value)
			}
			end := j + 1
			for end < len(ts) && !ts[end].isPunct(")") {
				end++
			}
			if end >= len(ts) {
				return nil, fmt.Errorf("%w: malformed %s", ErrBadExpression, t.Value)
			}
			name, quoted, ok := headerName(ts[j+1 : end])
			found := false
			if ok {
				_, found = p.resolveInclude(name, quoted)
			}
			out = append(out, Token{Kind: KindNumber, Value: strconv.FormatInt(boolInt(found), 10), Line: t.Line})
			i = end
		default:
			out = append(out, t)
		}
	}
	return out, nil
}

// headerName extracts the file name from "name" or <name> token forms.
func headerName(ts []Token) (string, bool, bool) {
	ts = trimSpace(ts)
	if len(ts) == 0 {
		return "", false, false
	}
	if ts[0].Kind == KindString && strings.HasPrefix(ts[0].Value, `"`) {
		return strings.Trim(ts[0].Value, `"`), true, true
	}
	if ts[0].isPunct("<") {
		var b strings.Builder
		for _, t := range ts[1:] {
			if t.isPunct(">") {
				return b.String(), false, true
			}
			b.WriteString(t.Value)
		}
	}
	return "", false, false
}

func (p *Preprocessor) resolveInclude(name string, quoted bool) (string, bool) {
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil
	}
	var dirs []string
	if quoted {
		if f := p.current(); f != nil {
			dirs = append(dirs, f.dir)
		}
	}
	dirs = append(dirs, p.opts.Includes...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (p *Preprocessor) include(rest []Token, log zerolog.Logger) error {
	name, quoted, ok := headerName(rest)
	if !ok {
		expanded, err := p.expand(rest, false)
		if err != nil {
			return err
		}
		if name, quoted, ok = headerName(expanded); !ok {
			log.Warn().Str("directive", tokensText(rest)).Msg("Malformed #include")
			return nil
		}
	}
	path, found := p.resolveInclude(name, quoted)
	if !found {
		log.Debug().Str("include", name).Msg("Include not found, skipping")
		return nil
	}
	if p.once[filepath.Clean(path)] {
		return nil
	}
	return p.pushFile(path)
}

func (p *Preprocessor) setLine(rest []Token, line sourceLine) {
	ts := withoutSpace(rest)
	if len(ts) == 0 || ts[0].Kind != KindNumber {
		return
	}
	n, err := strconv.Atoi(ts[0].Value)
	if err != nil {
		return
	}
	f := p.current()
	// The next physical line becomes line n.
	f.lineDelta = n - (line.num - f.lineDelta + 1)
	if len(ts) > 1 && ts[1].Kind == KindString {
		f.name = strings.Trim(ts[1].Value, `"`)
	}
}
