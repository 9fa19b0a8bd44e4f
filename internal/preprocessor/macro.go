package preprocessor

import (
	"fmt"
	"strings"
)

const variadicParam = "__VA_ARGS__"

type macro struct {
	name     string
	function bool
	params   []string
	variadic bool
	body     []Token
	tracked  bool
}

func (m *macro) paramIndex(t Token) int {
	if !m.function || t.Kind != KindIdent {
		return -1
	}
	for i, p := range m.params {
		if p == t.Value {
			return i
		}
	}
	return -1
}

// parseDefine parses the tokens following a #define directive name.
func parseDefine(ts []Token) (*macro, error) {
	ts = trimSpace(ts)
	if len(ts) == 0 || ts[0].Kind != KindIdent {
		return nil, fmt.Errorf("%w: macro name missing", ErrInvalidDefine)
	}
	m := &macro{name: ts[0].Value}
	rest := ts[1:]

	if len(rest) > 0 && rest[0].isPunct("(") {
		m.function = true
		consumed, err := m.parseParams(rest[1:])
		if err != nil {
			return nil, err
		}
		rest = rest[1+consumed:]
	}

	m.body = trimSpace(rest)
	return m, nil
}

// parseParams reads a parameter list up to and including the closing
// parenthesis and reports how many tokens it consumed.
func (m *macro) parseParams(ts []Token) (int, error) {
	expectParam := true
	for i, t := range ts {
		switch {
		case t.Kind == KindSpace:
		case t.isPunct(")"):
			if expectParam && len(m.params) > 0 {
				return 0, fmt.Errorf("%w: %s: trailing comma in parameter list", ErrInvalidDefine, m.name)
			}
			return i + 1, nil
		case t.isPunct(","):
			if expectParam || m.variadic {
				return 0, fmt.Errorf("%w: %s: malformed parameter list", ErrInvalidDefine, m.name)
			}
			expectParam = true
		case t.isPunct("..."):
			m.variadic = true
			if expectParam {
				m.params = append(m.params, variadicParam)
				expectParam = false
			}
		case t.Kind == KindIdent && expectParam:
			m.params = append(m.params, t.Value)
			expectParam = false
		default:
			return 0, fmt.Errorf("%w: %s: unexpected %q in parameter list", ErrInvalidDefine, m.name, t.Value)
		}
	}
	return 0, fmt.Errorf("%w: %s: unterminated parameter list", ErrInvalidDefine, m.name)
}

// parseCommandLineDefine accepts NAME, NAME=VALUE and NAME(args)=BODY.
func parseCommandLineDefine(def string) (*macro, error) {
	name, value, found := strings.Cut(def, "=")
	if !found {
		value = "1"
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDefine, def)
	}
	return parseDefine(lexFragment(name+" "+value, "<command line>", 0))
}

// bindArgs maps actual arguments onto the macro's parameters.
func (m *macro) bindArgs(args [][]Token) [][]Token {
	if len(m.params) == 0 {
		return nil
	}
	bound := make([][]Token, len(m.params))
	fixed := len(m.params)
	if m.variadic {
		fixed--
	}
	for i := 0; i < fixed && i < len(args); i++ {
		bound[i] = args[i]
	}
	if m.variadic && len(args) > fixed {
		var rest []Token
		for i, a := range args[fixed:] {
			if i > 0 {
				rest = append(rest, Token{Kind: KindPunct, Value: ","})
			}
			rest = append(rest, a...)
		}
		bound[fixed] = rest
	} else if !m.variadic && len(args) > len(m.params) {
		// Extra arguments fold into the last parameter.
		last := len(m.params) - 1
		var rest []Token
		for i, a := range args[last:] {
			if i > 0 {
				rest = append(rest, Token{Kind: KindPunct, Value: ","})
			}
			rest = append(rest, a...)
		}
		bound[last] = rest
	}
	return bound
}

func stringize(arg []Token) Token {
	var b strings.Builder
	b.WriteByte('"')
	for _, t := range trimSpace(arg) {
		switch t.Kind {
		case KindString, KindChar:
			for _, r := range t.Value {
				if r == '"' || r == '\\' {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
		default:
			b.WriteString(t.Value)
		}
	}
	b.WriteByte('"')
	return Token{Kind: KindString, Value: b.String()}
}

func paste(lhs, rhs Token) []Token {
	joined := lexFragment(lhs.Value+rhs.Value, lhs.file, lhs.Line)
	if len(joined) == 1 {
		return joined
	}
	return []Token{lhs, rhs}
}

func nextNonSpace(ts []Token, from int) int {
	for i := from; i < len(ts); i++ {
		if ts[i].Kind != KindSpace {
			return i
		}
	}
	return -1
}

// substitute replaces parameters in the macro body, applying # and ##.
func (p *Preprocessor) substitute(m *macro, args [][]Token, hs hideset, at Token) ([]Token, error) {
	bound := m.bindArgs(args)
	expanded := make(map[int][]Token)
	expandedArg := func(i int) ([]Token, error) {
		if ts, ok := expanded[i]; ok {
			return ts, nil
		}
		ts, err := p.expand(bound[i], false)
		if err != nil {
			return nil, err
		}
		expanded[i] = ts
		return ts, nil
	}

	var out []Token
	body := m.body
	for i := 0; i < len(body); i++ {
		tok := body[i]

		if m.function && (tok.isPunct("#") || tok.isPunct("%:")) {
			if j := nextNonSpace(body, i+1); j >= 0 {
				if idx := m.paramIndex(body[j]); idx >= 0 {
					out = append(out, stringize(bound[idx]))
					i = j
					continue
				}
			}
		}

		if tok.isPunct("##") || tok.isPunct("%:%:") {
			j := nextNonSpace(body, i+1)
			if j < 0 {
				continue
			}
			var rhs []Token
			if idx := m.paramIndex(body[j]); idx >= 0 {
				rhs = trimSpace(bound[idx])
				if len(rhs) == 0 && m.variadic && idx == len(m.params)-1 {
					out = trimSpace(out)
					if n := len(out); n > 0 && out[n-1].isPunct(",") {
						out = out[:n-1]
					}
				}
			} else {
				rhs = []Token{body[j]}
			}
			out = trimSpace(out)
			i = j
			if len(rhs) == 0 {
				continue
			}
			if len(out) == 0 {
				out = append(out, rhs...)
				continue
			}
			last := out[len(out)-1]
			out = append(out[:len(out)-1], paste(last, rhs[0])...)
			out = append(out, rhs[1:]...)
			continue
		}

		if idx := m.paramIndex(tok); idx >= 0 {
			if j := nextNonSpace(body, i+1); j >= 0 && (body[j].isPunct("##") || body[j].isPunct("%:%:")) {
				out = append(out, trimSpace(bound[idx])...)
				continue
			}
			ts, err := expandedArg(idx)
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
			continue
		}

		out = append(out, tok)
	}

	for k := range out {
		out[k].hide = out[k].hide.union(hs)
		out[k].Line = at.Line
		out[k].file = at.file
	}
	return out, nil
}
