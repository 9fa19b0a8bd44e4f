package preprocessor

import (
	"strconv"
	"strings"
)

// expand macro-expands ts. When refill is set the expander may pull further
// source lines to complete a function-like invocation.
func (p *Preprocessor) expand(ts []Token, refill bool) ([]Token, error) {
	q := append([]Token(nil), ts...)
	var out []Token

	for len(q) > 0 {
		t := q[0]
		q = q[1:]

		if t.Kind != KindIdent || t.hide.has(t.Value) {
			out = append(out, t)
			continue
		}

		m, ok := p.macros[t.Value]
		if !ok {
			if b, ok := p.builtin(t); ok {
				out = append(out, b)
			} else {
				out = append(out, t)
			}
			continue
		}

		if !m.function {
			body, err := p.substitute(m, nil, t.hide.with(m.name), t)
			if err != nil {
				return nil, err
			}
			q = append(body, q...)
			continue
		}

		i := p.findParen(&q, refill)
		if i < 0 {
			out = append(out, t)
			continue
		}
		q = q[i+1:]

		args, rparen, ok := p.collectArgs(&q, refill, t)
		if !ok {
			p.logger.Warn().
				Str("file", t.file).
				Int("line", t.Line).
				Str("macro", m.name).
				Msg("Unterminated macro invocation")
			return out, nil
		}
		if m.tracked {
			p.record(t, args)
		}

		hs := t.hide.intersect(rparen.hide).with(m.name)
		body, err := p.substitute(m, args, hs, t)
		if err != nil {
			return nil, err
		}
		q = append(body, q...)
	}
	return out, nil
}

// findParen returns the index of a '(' that follows only whitespace in q, or -1.
func (p *Preprocessor) findParen(q *[]Token, refill bool) int {
	for {
		if i := nextNonSpace(*q, 0); i >= 0 {
			if (*q)[i].isPunct("(") {
				return i
			}
			return -1
		}
		if !refill || !p.fetch(q) {
			return -1
		}
	}
}

// collectArgs consumes tokens up to the matching ')' and splits them on
// top-level commas. Argument tokens take the line of the invocation.
func (p *Preprocessor) collectArgs(q *[]Token, refill bool, at Token) ([][]Token, Token, bool) {
	var (
		args  [][]Token
		cur   []Token
		depth int
	)
	for {
		if len(*q) == 0 {
			if !refill || !p.fetch(q) {
				return nil, Token{}, false
			}
			continue
		}
		t := (*q)[0]
		*q = (*q)[1:]

		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			if depth == 0 {
				args = append(args, trimSpace(cur))
				if len(args) == 1 && len(args[0]) == 0 {
					args = nil
				}
				return args, t, true
			}
			depth--
		case t.isPunct(",") && depth == 0:
			args = append(args, trimSpace(cur))
			cur = nil
			continue
		}
		if t.Kind == KindSpace && len(cur) > 0 && cur[len(cur)-1].Kind == KindSpace {
			continue
		}
		t.Line = at.Line
		cur = append(cur, t)
	}
}

func (p *Preprocessor) builtin(t Token) (Token, bool) {
	out := t
	switch t.Value {
	case "__LINE__":
		out.Kind, out.Value = KindNumber, strconv.Itoa(t.Line)
	case "__FILE__":
		out.Kind, out.Value = KindString, strconv.Quote(t.file)
	case "__COUNTER__":
		out.Kind, out.Value = KindNumber, strconv.Itoa(p.counter)
		p.counter++
	default:
		return t, false
	}
	return out, true
}

func (p *Preprocessor) record(at Token, args [][]Token) {
	exp := MacroExpansion{
		Name:          at.Value,
		File:          at.file,
		Line:          at.Line,
		Args:          make([]string, 0, len(args)),
		ArgsTokenized: make([][]Token, 0, len(args)),
	}
	for _, a := range args {
		exp.Args = append(exp.Args, strings.TrimSpace(tokensText(a)))
		exp.ArgsTokenized = append(exp.ArgsTokenized, withoutSpace(a))
	}
	p.logger.Debug().
		Str("macro", exp.Name).
		Str("file", exp.File).
		Int("line", exp.Line).
		Strs("args", exp.Args).
		Msg("Recorded macro expansion")
	p.expansions = append(p.expansions, exp)
}
