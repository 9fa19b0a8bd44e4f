package preprocessor

import (
	"strings"
)

// Token kinds produced by the lexer.
const (
	KindIdent  = "ident"
	KindNumber = "number"
	KindChar   = "char"
	KindString = "string"
	KindPunct  = "punct"
	KindSpace  = "space"
	KindOther  = "other"
)

// Token is one preprocessing token.
type Token struct {
	Kind  string `json:"type"`
	Value string `json:"value"`
	Line  int    `json:"lineno"`

	file string
	hide hideset
}

func (t Token) is(kind, value string) bool {
	return t.Kind == kind && t.Value == value
}

func (t Token) isPunct(value string) bool {
	return t.is(KindPunct, value)
}

// hideset is the set of macro names a token must not be expanded by.
type hideset map[string]struct{}

func (h hideset) has(name string) bool {
	_, ok := h[name]
	return ok
}

func (h hideset) with(names ...string) hideset {
	out := make(hideset, len(h)+len(names))
	for k := range h {
		out[k] = struct{}{}
	}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func (h hideset) union(o hideset) hideset {
	if len(o) == 0 {
		return h
	}
	out := h.with()
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

func (h hideset) intersect(o hideset) hideset {
	out := make(hideset)
	for k := range h {
		if o.has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// sourceLine is one logical line after comment removal and line splicing.
type sourceLine struct {
	tokens []Token
	num    int
}

var punctuators = []string{
	"%:%:", "...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=", "##", "::", "<:", ":>", "<%", "%>", "%:",
}

// scanner walks source text, transparently skipping backslash-newline splices.
type scanner struct {
	src  string
	pos  int
	line int
}

func (s *scanner) skipSplices() {
	for {
		if strings.HasPrefix(s.src[s.pos:], "\\\n") {
			s.pos += 2
			s.line++
			continue
		}
		return
	}
}

func (s *scanner) peek() byte {
	s.skipSplices()
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

// peekAt returns the byte n positions ahead, honoring splices.
func (s *scanner) peekAt(n int) byte {
	save, saveLine := s.pos, s.line
	var c byte
	for i := 0; i <= n; i++ {
		c = s.next()
		if c == 0 {
			break
		}
	}
	s.pos, s.line = save, saveLine
	return c
}

func (s *scanner) next() byte {
	s.skipSplices()
	if s.pos >= len(s.src) {
		return 0
	}
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

func (s *scanner) hasPrefix(p string) bool {
	for i := 0; i < len(p); i++ {
		if s.peekAt(i) != p[i] {
			return false
		}
	}
	return true
}

func (s *scanner) take(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(s.next())
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// lex splits src into logical lines of tokens. Comments become a single
// space and whitespace runs collapse into one space token.
func lex(src, file string) []sourceLine {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	s := &scanner{src: src, line: 1}

	var lines []sourceLine
	cur := sourceLine{num: 1}
	startLine := true

	emit := func(kind, value string, line int) {
		if kind == KindSpace {
			if n := len(cur.tokens); n == 0 || cur.tokens[n-1].Kind == KindSpace {
				return
			}
		}
		cur.tokens = append(cur.tokens, Token{Kind: kind, Value: value, Line: line, file: file})
	}

	for {
		c := s.peek()
		if c == 0 {
			break
		}
		if startLine {
			cur.num = s.line
			startLine = false
		}
		line := s.line

		switch {
		case c == '\n':
			s.next()
			trimTrailingSpace(&cur)
			lines = append(lines, cur)
			cur = sourceLine{}
			startLine = true

		case c == ' ' || c == '\t' || c == '\f' || c == '\v' || c == '\r':
			s.next()
			emit(KindSpace, " ", line)

		case s.hasPrefix("//"):
			for s.peek() != '\n' && s.peek() != 0 {
				s.next()
			}
			emit(KindSpace, " ", line)

		case s.hasPrefix("/*"):
			s.take(2)
			for !s.hasPrefix("*/") && s.peek() != 0 {
				s.next()
			}
			if s.peek() != 0 {
				s.take(2)
			}
			emit(KindSpace, " ", line)

		case c == '"' || c == '\'':
			emit(literalKind(c), lexLiteral(s, ""), line)

		case isIdentStart(c):
			var b strings.Builder
			for isIdentChar(s.peek()) {
				b.WriteByte(s.next())
			}
			word := b.String()
			if q := s.peek(); (q == '"' || q == '\'') && isLiteralPrefix(word) {
				emit(literalKind(q), lexLiteral(s, word), line)
				break
			}
			emit(KindIdent, word, line)

		case isDigit(c) || (c == '.' && isDigit(s.peekAt(1))):
			emit(KindNumber, lexNumber(s), line)

		default:
			matched := false
			for _, p := range punctuators {
				if s.hasPrefix(p) {
					emit(KindPunct, s.take(len(p)), line)
					matched = true
					break
				}
			}
			if !matched {
				s.next()
				if strings.ContainsRune("!%&()*+,-./:;<=>?[]^{|}~#", rune(c)) {
					emit(KindPunct, string(c), line)
				} else {
					emit(KindOther, string(c), line)
				}
			}
		}
	}
	if len(cur.tokens) > 0 {
		trimTrailingSpace(&cur)
		lines = append(lines, cur)
	}
	return lines
}

func trimTrailingSpace(l *sourceLine) {
	for n := len(l.tokens); n > 0 && l.tokens[n-1].Kind == KindSpace; n = len(l.tokens) {
		l.tokens = l.tokens[:n-1]
	}
}

func isLiteralPrefix(word string) bool {
	switch word {
	case "L", "u", "U", "u8":
		return true
	}
	return false
}

func literalKind(quote byte) string {
	if quote == '"' {
		return KindString
	}
	return KindChar
}

func lexLiteral(s *scanner, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	quote := s.next()
	b.WriteByte(quote)
	for {
		c := s.peek()
		if c == 0 || c == '\n' {
			return b.String()
		}
		s.next()
		b.WriteByte(c)
		if c == '\\' {
			if n := s.peek(); n != 0 && n != '\n' {
				b.WriteByte(s.next())
			}
			continue
		}
		if c == quote {
			return b.String()
		}
	}
}

func lexNumber(s *scanner) string {
	var b strings.Builder
	for {
		c := s.peek()
		switch {
		case (c == '+' || c == '-') && b.Len() > 0:
			last := b.String()[b.Len()-1]
			if last != 'e' && last != 'E' && last != 'p' && last != 'P' {
				return b.String()
			}
			b.WriteByte(s.next())
		case isIdentChar(c) || c == '.':
			b.WriteByte(s.next())
		default:
			return b.String()
		}
	}
}

// lexFragment tokenizes a short fragment such as a -D definition or a pasted token.
func lexFragment(text, file string, line int) []Token {
	var out []Token
	for _, l := range lex(text, file) {
		for _, t := range l.tokens {
			t.Line = line
			out = append(out, t)
		}
	}
	return out
}

// tokensText renders tokens back to source text.
func tokensText(ts []Token) string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.Value)
	}
	return b.String()
}

func trimSpace(ts []Token) []Token {
	for len(ts) > 0 && ts[0].Kind == KindSpace {
		ts = ts[1:]
	}
	for len(ts) > 0 && ts[len(ts)-1].Kind == KindSpace {
		ts = ts[:len(ts)-1]
	}
	return ts
}

func withoutSpace(ts []Token) []Token {
	out := make([]Token, 0, len(ts))
	for _, t := range ts {
		if t.Kind != KindSpace {
			out = append(out, t)
		}
	}
	return out
}
