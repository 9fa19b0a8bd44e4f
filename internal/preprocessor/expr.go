package preprocessor

import (
	"fmt"
	"strconv"
	"strings"
)

// evalTokens evaluates a fully expanded #if expression. Identifiers that
// survive expansion evaluate to zero.
func evalTokens(ts []Token) (int64, error) {
	e := &exprParser{toks: withoutSpace(ts)}
	if len(e.toks) == 0 {
		return 0, fmt.Errorf("%w: empty expression", ErrBadExpression)
	}
	v, err := e.parse(0)
	if err != nil {
		return 0, err
	}
	if e.pos < len(e.toks) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrBadExpression, e.toks[e.pos].Value)
	}
	return v, nil
}

type exprParser struct {
	toks []Token
	pos  int
}

var binaryPrec = map[string]int{
	",":  1,
	"?":  2,
	"||": 3,
	"&&": 4,
	"|":  5,
	"^":  6,
	"&":  7,
	"==": 8, "!=": 8,
	"<": 9, ">": 9, "<=": 9, ">=": 9,
	"<<": 10, ">>": 10,
	"+": 11, "-": 11,
	"*": 12, "/": 12, "%": 12,
}

func (e *exprParser) peek() (Token, bool) {
	if e.pos >= len(e.toks) {
		return Token{}, false
	}
	return e.toks[e.pos], true
}

func (e *exprParser) parse(minPrec int) (int64, error) {
	lhs, err := e.unary()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := e.peek()
		if !ok || t.Kind != KindPunct {
			return lhs, nil
		}
		prec, ok := binaryPrec[t.Value]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		e.pos++

		if t.Value == "?" {
			then, err := e.parse(1)
			if err != nil {
				return 0, err
			}
			if c, ok := e.peek(); !ok || !c.isPunct(":") {
				return 0, fmt.Errorf("%w: missing ':' in conditional", ErrBadExpression)
			}
			e.pos++
			otherwise, err := e.parse(2)
			if err != nil {
				return 0, err
			}
			if lhs != 0 {
				lhs = then
			} else {
				lhs = otherwise
			}
			continue
		}

		rhs, err := e.parse(prec + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = apply(t.Value, lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func apply(op string, a, b int64) (int64, error) {
	switch op {
	case ",":
		return b, nil
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case ">":
		return boolInt(a > b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		return a << uint64(b&63), nil
	case ">>":
		return a >> uint64(b&63), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrBadExpression)
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrBadExpression, op)
}

func (e *exprParser) unary() (int64, error) {
	t, ok := e.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrBadExpression)
	}
	e.pos++

	switch {
	case t.isPunct("("):
		v, err := e.parse(1)
		if err != nil {
			return 0, err
		}
		if c, ok := e.peek(); !ok || !c.isPunct(")") {
			return 0, fmt.Errorf("%w: missing ')'", ErrBadExpression)
		}
		e.pos++
		return v, nil
	case t.isPunct("!"):
		v, err := e.unary()
		return boolInt(v == 0), err
	case t.isPunct("~"):
		v, err := e.unary()
		return ^v, err
	case t.isPunct("-"):
		v, err := e.unary()
		return -v, err
	case t.isPunct("+"):
		return e.unary()
	case t.Kind == KindNumber:
		return parseInteger(t.Value)
	case t.Kind == KindChar:
		return parseCharConstant(t.Value)
	case t.Kind == KindIdent:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: unexpected %q", ErrBadExpression, t.Value)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func parseInteger(lit string) (int64, error) {
	s := strings.TrimRight(lit, "uUlL")
	s = strings.ReplaceAll(s, "'", "")
	if len(s) > 1 && s[0] == '0' && s[1] != 'x' && s[1] != 'X' && s[1] != 'b' && s[1] != 'B' {
		s = "0o" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid integer %q", ErrBadExpression, lit)
	}
	return int64(v), nil
}

var simpleEscapes = map[byte]int64{
	'n': '\n', 't': '\t', 'r': '\r', '0': 0, 'a': 7, 'b': 8, 'f': 12, 'v': 11,
	'\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

func parseCharConstant(lit string) (int64, error) {
	start := strings.IndexByte(lit, '\'')
	if start < 0 || len(lit) < start+3 || lit[len(lit)-1] != '\'' {
		return 0, fmt.Errorf("%w: invalid character constant %s", ErrBadExpression, lit)
	}
	body := lit[start+1 : len(lit)-1]
	if body[0] != '\\' {
		return int64(body[0]), nil
	}
	if len(body) < 2 {
		return 0, fmt.Errorf("%w: invalid character constant %s", ErrBadExpression, lit)
	}
	switch esc := body[1]; {
	case esc == 'x':
		v, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid character constant %s", ErrBadExpression, lit)
		}
		return int64(v), nil
	case esc >= '0' && esc <= '7' && len(body) > 2:
		v, err := strconv.ParseUint(body[1:], 8, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid character constant %s", ErrBadExpression, lit)
		}
		return int64(v), nil
	default:
		if v, ok := simpleEscapes[esc]; ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid character constant %s", ErrBadExpression, lit)
}
