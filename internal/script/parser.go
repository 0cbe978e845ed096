package script

import (
	"fmt"

	"github.com/drses/frozen-realms-shim/graph"
)

// SyntaxError reports malformed program text with its 1-based position.
type SyntaxError struct {
	Msg    string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Program is a parsed script, safe to run any number of times in any
// number of interpreters.
type Program struct {
	body []stmt
}

// Parse turns source text into a Program.
func Parse(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var body []stmt
	for !p.at(tokEOF, "") {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	return &Program{body: body}, nil
}

// maxNesting bounds syntactic recursion so hostile input cannot exhaust
// the goroutine stack.
const maxNesting = 512

type parser struct {
	toks      []token
	i         int
	loops     int
	functions int
	depth     int
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorf(p.peek(), "program nested too deeply")
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "===": 3, "!==": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4, "instanceof": 4, "in": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// at reports whether the current token has the given kind and, when text
// is non-empty, the given text.
func (p *parser) at(kind tokenKind, text string) bool {
	t := p.peek()
	return t.kind == kind && (text == "" || t.text == text)
}

func (p *parser) punct(text string) bool {
	return p.at(tokPunct, text)
}

func (p *parser) keyword(text string) bool {
	return p.at(tokKeyword, text)
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.at.line, Column: t.at.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(t token) error {
	switch t.kind {
	case tokEOF:
		return p.errorf(t, "unexpected end of input")
	case tokString:
		return p.errorf(t, "unexpected string")
	case tokNumber:
		return p.errorf(t, "unexpected number")
	default:
		return p.errorf(t, "unexpected token %q", t.text)
	}
}

func (p *parser) expect(text string) (token, error) {
	t := p.peek()
	if t.kind != tokPunct || t.text != text {
		return t, p.unexpected(t)
	}
	return p.next(), nil
}

func (p *parser) identifier() (token, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return t, p.unexpected(t)
	}
	return p.next(), nil
}

// semicolon consumes a statement terminator, inserting one where a line
// break, a closing brace or the end of input allows it.
func (p *parser) semicolon() error {
	if p.punct(";") {
		p.next()
		return nil
	}
	t := p.peek()
	if t.kind == tokEOF || t.nl || (t.kind == tokPunct && t.text == "}") {
		return nil
	}
	return p.unexpected(t)
}

func (p *parser) statement() (stmt, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokPunct {
		switch t.text {
		case "{":
			return p.block()
		case ";":
			p.next()
			return &emptyStmt{base{t.at}}, nil
		}
	}
	if t.kind == tokKeyword {
		switch t.text {
		case "var", "let", "const":
			s, err := p.varDecl()
			if err != nil {
				return nil, err
			}
			return s, p.semicolon()
		case "function":
			return p.funcDecl()
		case "if":
			return p.ifStmt()
		case "while":
			return p.whileStmt()
		case "do":
			return p.doWhileStmt()
		case "for":
			return p.forStmt()
		case "return":
			return p.returnStmt()
		case "break", "continue":
			p.next()
			if p.loops == 0 {
				return nil, p.errorf(t, "illegal %s statement", t.text)
			}
			if err := p.semicolon(); err != nil {
				return nil, err
			}
			if t.text == "break" {
				return &breakStmt{base{t.at}}, nil
			}
			return &continueStmt{base{t.at}}, nil
		case "throw":
			p.next()
			if p.peek().nl {
				return nil, p.errorf(p.peek(), "illegal newline after throw")
			}
			x, err := p.expression()
			if err != nil {
				return nil, err
			}
			return &throwStmt{base{t.at}, x}, p.semicolon()
		case "try":
			return p.tryStmt()
		}
	}
	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &exprStmt{base{t.at}, x}, p.semicolon()
}

func (p *parser) block() (*blockStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	b := &blockStmt{base: base{open.at}}
	for !p.punct("}") {
		if p.at(tokEOF, "") {
			return nil, p.unexpected(p.peek())
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		b.body = append(b.body, s)
	}
	p.next()
	return b, nil
}

// varDecl parses a declaration list without its terminator so that it can
// also serve as a for-loop initializer.
func (p *parser) varDecl() (*varDecl, error) {
	kw := p.next()
	d := &varDecl{base: base{kw.at}, kind: kw.text}
	for {
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		decl := declarator{name: name.text, at: name.at}
		if p.punct("=") {
			p.next()
			if decl.init, err = p.assignment(); err != nil {
				return nil, err
			}
		} else if kw.text == "const" {
			return nil, p.errorf(name, "missing initializer in const declaration")
		}
		d.decls = append(d.decls, decl)
		if !p.punct(",") {
			return d, nil
		}
		p.next()
	}
}

func (p *parser) funcDecl() (stmt, error) {
	t := p.peek()
	fn, err := p.function(true)
	if err != nil {
		return nil, err
	}
	return &funcDecl{base{t.at}, fn}, nil
}

func (p *parser) function(named bool) (*funcLit, error) {
	kw := p.next()
	fn := &funcLit{base: base{kw.at}}
	if p.at(tokIdent, "") {
		fn.name = p.next().text
	} else if named {
		return nil, p.unexpected(p.peek())
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for !p.punct(")") {
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if seen[name.text] {
			return nil, p.errorf(name, "duplicate parameter name %q", name.text)
		}
		seen[name.text] = true
		fn.params = append(fn.params, name.text)
		if !p.punct(")") {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()

	loops := p.loops
	p.loops = 0
	p.functions++
	body, err := p.block()
	p.functions--
	p.loops = loops
	if err != nil {
		return nil, err
	}
	fn.body = body.body
	return fn, nil
}

func (p *parser) parenthesized() (expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *parser) ifStmt() (stmt, error) {
	kw := p.next()
	test, err := p.parenthesized()
	if err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	s := &ifStmt{base: base{kw.at}, test: test, then: then}
	if p.keyword("else") {
		p.next()
		if s.otherwise, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) loopBody() (stmt, error) {
	p.loops++
	defer func() { p.loops-- }()
	return p.statement()
}

func (p *parser) whileStmt() (stmt, error) {
	kw := p.next()
	test, err := p.parenthesized()
	if err != nil {
		return nil, err
	}
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	return &whileStmt{base{kw.at}, test, body}, nil
}

func (p *parser) doWhileStmt() (stmt, error) {
	kw := p.next()
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	if !p.keyword("while") {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	test, err := p.parenthesized()
	if err != nil {
		return nil, err
	}
	if p.punct(";") {
		p.next()
	}
	return &doWhileStmt{base{kw.at}, body, test}, nil
}

func (p *parser) forStmt() (stmt, error) {
	kw := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	s := &forStmt{base: base{kw.at}}
	var err error
	switch {
	case p.punct(";"):
	case p.keyword("var"), p.keyword("let"), p.keyword("const"):
		if s.init, err = p.varDecl(); err != nil {
			return nil, err
		}
	default:
		t := p.peek()
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		s.init = &exprStmt{base{t.at}, x}
	}
	if p.keyword("in") {
		return nil, p.errorf(p.peek(), "for-in loops are not supported")
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.punct(";") {
		if s.test, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.punct(")") {
		if s.update, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if s.body, err = p.loopBody(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) returnStmt() (stmt, error) {
	kw := p.next()
	if p.functions == 0 {
		return nil, p.errorf(kw, "illegal return statement")
	}
	s := &returnStmt{base: base{kw.at}}
	t := p.peek()
	if t.nl || t.kind == tokEOF || (t.kind == tokPunct && (t.text == ";" || t.text == "}")) {
		return s, p.semicolon()
	}
	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	s.value = x
	return s, p.semicolon()
}

func (p *parser) tryStmt() (stmt, error) {
	kw := p.next()
	block, err := p.block()
	if err != nil {
		return nil, err
	}
	s := &tryStmt{base: base{kw.at}, block: block}
	if p.keyword("catch") {
		p.next()
		if p.punct("(") {
			p.next()
			name, err := p.identifier()
			if err != nil {
				return nil, err
			}
			s.param = name.text
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
		}
		if s.handler, err = p.block(); err != nil {
			return nil, err
		}
	}
	if p.keyword("finally") {
		p.next()
		if s.finalizer, err = p.block(); err != nil {
			return nil, err
		}
	}
	if s.handler == nil && s.finalizer == nil {
		return nil, p.errorf(kw, "missing catch or finally after try")
	}
	return s, nil
}

func (p *parser) expression() (expr, error) {
	first, err := p.assignment()
	if err != nil || !p.punct(",") {
		return first, err
	}
	seq := &sequence{base: base{first.position()}, exprs: []expr{first}}
	for p.punct(",") {
		p.next()
		x, err := p.assignment()
		if err != nil {
			return nil, err
		}
		seq.exprs = append(seq.exprs, x)
	}
	return seq, nil
}

func (p *parser) assignment() (expr, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	target, err := p.conditional()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokPunct || !assignOps[t.text] {
		return target, nil
	}
	if !isReference(target) {
		return nil, p.errorf(t, "invalid assignment target")
	}
	p.next()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	return &assign{base{t.at}, t.text, target, value}, nil
}

func (p *parser) conditional() (expr, error) {
	test, err := p.binary(1)
	if err != nil || !p.punct("?") {
		return test, err
	}
	p.next()
	then, err := p.assignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	otherwise, err := p.assignment()
	if err != nil {
		return nil, err
	}
	return &conditional{base{test.position()}, test, then, otherwise}, nil
}

// binary parses operators of precedence minPrec and above by precedence
// climbing. All binary operators are left-associative.
func (p *parser) binary(minPrec int) (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct && t.kind != tokKeyword {
			return left, nil
		}
		prec, ok := binaryPrecedence[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		if t.text == "&&" || t.text == "||" {
			left = &logical{base{t.at}, t.text, left, right}
		} else {
			left = &binary{base{t.at}, t.text, left, right}
		}
	}
}

func (p *parser) unary() (expr, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.kind == tokPunct && (t.text == "!" || t.text == "-" || t.text == "+"),
		t.kind == tokKeyword && (t.text == "typeof" || t.text == "void" || t.text == "delete"):
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "delete" {
			if _, isIdent := operand.(*ident); isIdent {
				return nil, p.errorf(t, "delete of an unqualified identifier")
			}
		}
		return &unary{base{t.at}, t.text, operand}, nil
	case t.kind == tokPunct && (t.text == "++" || t.text == "--"):
		p.next()
		target, err := p.unary()
		if err != nil {
			return nil, err
		}
		if !isReference(target) {
			return nil, p.errorf(t, "invalid %s operand", t.text)
		}
		return &update{base{t.at}, t.text, true, target}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (expr, error) {
	x, err := p.callOrMember()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokPunct && (t.text == "++" || t.text == "--") && !t.nl {
		if !isReference(x) {
			return nil, p.errorf(t, "invalid %s operand", t.text)
		}
		p.next()
		return &update{base{t.at}, t.text, false, x}, nil
	}
	return x, nil
}

func (p *parser) callOrMember() (expr, error) {
	var x expr
	var err error
	if p.keyword("new") {
		x, err = p.newExpression()
	} else {
		x, err = p.primary()
	}
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokPunct && t.text == "(":
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			x = &callExpr{base{t.at}, x, args}
		case t.kind == tokPunct && (t.text == "." || t.text == "["):
			if x, err = p.memberSuffix(x); err != nil {
				return nil, err
			}
		default:
			return x, nil
		}
	}
}

func (p *parser) newExpression() (expr, error) {
	kw := p.next()
	var callee expr
	var err error
	if p.keyword("new") {
		callee, err = p.newExpression()
	} else {
		callee, err = p.primary()
	}
	if err != nil {
		return nil, err
	}
	for p.punct(".") || p.punct("[") {
		if callee, err = p.memberSuffix(callee); err != nil {
			return nil, err
		}
	}
	var args []expr
	if p.punct("(") {
		if args, err = p.arguments(); err != nil {
			return nil, err
		}
	}
	return &newExpr{base{kw.at}, callee, args}, nil
}

func (p *parser) memberSuffix(object expr) (expr, error) {
	t := p.next()
	if t.text == "." {
		name := p.peek()
		if name.kind != tokIdent && name.kind != tokKeyword {
			return nil, p.unexpected(name)
		}
		p.next()
		return &member{base: base{t.at}, object: object, name: name.text}, nil
	}
	index, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}
	return &member{base: base{t.at}, object: object, index: index}, nil
}

func (p *parser) arguments() ([]expr, error) {
	p.next()
	var args []expr
	for !p.punct(")") {
		x, err := p.assignment()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
		if !p.punct(")") {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return args, nil
}

func (p *parser) primary() (expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return &numberLit{base{t.at}, t.num}, nil
	case tokString:
		p.next()
		return &stringLit{base{t.at}, t.text}, nil
	case tokIdent:
		p.next()
		return &ident{base{t.at}, t.text}, nil
	case tokKeyword:
		switch t.text {
		case "this":
			p.next()
			return &thisExpr{base{t.at}}, nil
		case "null":
			p.next()
			return &nullLit{base{t.at}}, nil
		case "true", "false":
			p.next()
			return &boolLit{base{t.at}, t.text == "true"}, nil
		case "function":
			return p.function(false)
		}
	case tokPunct:
		switch t.text {
		case "(":
			return p.parenthesized()
		case "[":
			return p.arrayLiteral()
		case "{":
			return p.objectLiteral()
		}
	}
	return nil, p.unexpected(t)
}

func (p *parser) arrayLiteral() (expr, error) {
	open := p.next()
	arr := &arrayLit{base: base{open.at}}
	for !p.punct("]") {
		if p.punct(",") {
			elision := p.next()
			arr.elems = append(arr.elems, &undefinedLit{base{elision.at}})
			continue
		}
		x, err := p.assignment()
		if err != nil {
			return nil, err
		}
		arr.elems = append(arr.elems, x)
		if !p.punct("]") {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return arr, nil
}

func (p *parser) objectLiteral() (expr, error) {
	open := p.next()
	obj := &objectLit{base: base{open.at}}
	for !p.punct("}") {
		t := p.next()
		var key string
		switch t.kind {
		case tokIdent, tokKeyword, tokString:
			key = t.text
		case tokNumber:
			key = graph.NumberToString(t.num)
		default:
			return nil, p.unexpected(t)
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		obj.props = append(obj.props, property{key: key, value: value})
		if !p.punct("}") {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return obj, nil
}

func isReference(x expr) bool {
	switch x.(type) {
	case *ident, *member:
		return true
	default:
		return false
	}
}
