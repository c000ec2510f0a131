package builder

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Term syntax:
//
//	expr       := operand [ ("==" | "!=") operand ]
//	operand    := "true" | "false" | tuple | name [ call | index ]
//	tuple      := "(" expr { "," expr } ")"      // one element: parentheses only
//	call       := "(" [ expr { "," expr } ] ")" [ "[" qop { "," qop } "]" ]
//	index      := "[" int "]"
//	statement  := "continue" | "break" | "end" | "stop"
//	            | ("in" | "out") "(" name ":" names [ "|" filters ] ")"
//	            | name "=" expr
//	            | call-expr
//	equation   := expr "=" expr                  // composite = simple

// parser is a recursive descent parser over text/scanner tokens.
type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
	src  string
	err  error
}

func newParser(src string) *parser {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts
	p.s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') ||
			('0' <= ch && ch <= '9' && i > 0)
	}
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail("%s", msg)
	}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%q at column %d: %s", p.src, p.s.Position.Column, fmt.Sprintf(format, args...))
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %s, found %q", scanner.TokenString(tok), p.text)
		return
	}
	p.next()
}

func (p *parser) ident() string {
	if p.tok != scanner.Ident {
		p.fail("expected name, found %q", p.text)
		return ""
	}
	name := p.text
	p.next()
	return name
}

// peekIs reports whether the character right after the current token is ch.
func (p *parser) peekIs(ch rune) bool { return p.s.Peek() == ch }

func (p *parser) done() {
	if p.err == nil && p.tok != scanner.EOF {
		p.fail("unexpected %q", p.text)
	}
}

// comparison reports the comparison operator at the cursor, consuming it.
func (p *parser) comparison() (model.ComparisonKind, bool) {
	switch {
	case p.tok == '=' && p.peekIs('='):
		p.next()
		p.next()
		return model.Equal, true
	case p.tok == '!' && p.peekIs('='):
		p.next()
		p.next()
		return model.NotEqual, true
	}
	return 0, false
}

func (p *parser) expression() model.Expression {
	left := p.operand()
	if kind, ok := p.comparison(); ok {
		right := p.operand()
		return &model.Comparison{Left: left, Right: right, Kind: kind}
	}
	return left
}

func (p *parser) operand() model.Expression {
	if p.err != nil {
		return nil
	}
	switch p.tok {
	case '(':
		p.next()
		elems := p.list(')')
		p.expect(')')
		if len(elems) == 1 {
			return elems[0]
		}
		if len(elems) == 0 {
			p.fail("empty tuple")
		}
		return &model.Tuple{Elements: elems}
	case scanner.Ident:
		name := p.ident()
		switch {
		case name == "true" && p.tok != '(':
			return &model.Boolean{Value: true}
		case name == "false" && p.tok != '(':
			return &model.Boolean{Value: false}
		case p.tok == '(':
			return p.call(name)
		case p.tok == '[':
			p.next()
			index := p.integer()
			p.expect(']')
			return &model.TupleElement{Variable: name, Index: index}
		}
		return &model.Identifier{Name: name}
	default:
		p.fail("unexpected %q", p.text)
		return nil
	}
}

func (p *parser) call(name string) *model.CallFunction {
	p.expect('(')
	args := p.list(')')
	p.expect(')')
	call := &model.CallFunction{Name: name, Args: args}
	if p.tok == '[' {
		p.next()
		call.QopArgs = p.qopArgs()
		p.expect(']')
	}
	return call
}

// list parses comma separated expressions up to (not including) end.
func (p *parser) list(end rune) []model.Expression {
	var out []model.Expression
	if p.tok == end {
		return out
	}
	for p.err == nil {
		out = append(out, p.expression())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	return out
}

// qopArgs collects raw token text per argument, so values like AES-CBC or
// 128 survive unchanged.
func (p *parser) qopArgs() []string {
	var out []string
	var cur strings.Builder
	for p.err == nil && p.tok != ']' && p.tok != scanner.EOF {
		if p.tok == ',' {
			out = append(out, cur.String())
			cur.Reset()
			p.next()
			continue
		}
		cur.WriteString(p.text)
		p.next()
	}
	if cur.Len() > 0 || len(out) > 0 {
		out = append(out, cur.String())
	}
	for _, a := range out {
		if a == "" {
			p.fail("empty qop argument")
		}
	}
	return out
}

func (p *parser) integer() int {
	if p.tok != scanner.Int {
		p.fail("expected index, found %q", p.text)
		return 0
	}
	v, err := strconv.Atoi(p.text)
	if err != nil {
		p.fail("%v", err)
	}
	p.next()
	return v
}

func (p *parser) statement() model.Instruction {
	if p.tok != scanner.Ident {
		p.fail("expected statement, found %q", p.text)
		return nil
	}
	name := p.text
	if p.peekIs('(') && (name == "in" || name == "out") {
		p.next()
		return p.communication(name)
	}
	p.next()
	switch {
	case p.tok == scanner.EOF && name == "continue":
		return &model.Continue{}
	case p.tok == scanner.EOF && name == "break":
		return &model.Break{}
	case p.tok == scanner.EOF && name == string(model.FinishEnd):
		return &model.Finish{Command: model.FinishEnd}
	case p.tok == scanner.EOF && name == string(model.FinishStop):
		return &model.Finish{Command: model.FinishStop}
	case p.tok == '=' && !p.peekIs('='):
		p.next()
		return &model.Assignment{Variable: name, Expr: p.expression()}
	case p.tok == '(':
		return &model.Call{Function: p.call(name)}
	}
	p.fail("unexpected %q after %s", p.text, name)
	return nil
}

func (p *parser) communication(kind string) *model.Communication {
	instr := &model.Communication{Direction: model.Out}
	if kind == "in" {
		instr.Direction = model.In
	}
	p.expect('(')
	instr.Channel = p.ident()
	p.expect(':')
	for p.err == nil {
		instr.Variables = append(instr.Variables, p.ident())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if p.tok == '|' {
		if instr.Direction == model.Out {
			p.fail("filters are only allowed on in")
		}
		p.next()
		for p.err == nil {
			if p.tok == '*' {
				p.next()
				instr.Filters = append(instr.Filters, model.Filter{Any: true})
			} else {
				instr.Filters = append(instr.Filters, model.Filter{Expr: p.expression()})
			}
			if p.tok != ',' {
				break
			}
			p.next()
		}
	}
	p.expect(')')
	return instr
}

// ParseExpression parses one expression in term syntax.
func ParseExpression(src string) (model.Expression, error) {
	p := newParser(src)
	e := p.expression()
	p.done()
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

// ParseStatement parses one simple instruction in term syntax.
func ParseStatement(src string) (model.Instruction, error) {
	p := newParser(src)
	instr := p.statement()
	p.done()
	if p.err != nil {
		return nil, p.err
	}
	return instr, nil
}

// ParseEquation parses "composite = simple".
func ParseEquation(src string) (*model.Equation, error) {
	p := newParser(src)
	composite := p.operand()
	if p.tok == '=' && !p.peekIs('=') {
		p.next()
	} else {
		p.fail("expected '=' between the sides of the equation")
	}
	simple := p.operand()
	p.done()
	if p.err != nil {
		return nil, p.err
	}
	return &model.Equation{Composite: composite, Simple: simple}, nil
}
