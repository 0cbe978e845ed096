package script

import (
	"github.com/drses/frozen-realms-shim/graph"
)

type binding struct {
	value   graph.Value
	mutable bool
}

// scope is one lexical environment. Function scopes also carry the this
// value of their activation.
type scope struct {
	vars     map[string]*binding
	parent   *scope
	this     graph.Value
	function bool
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*binding), parent: parent}
}

func newFunctionScope(parent *scope, this graph.Value) *scope {
	s := newScope(parent)
	s.function = true
	s.this = this
	return s
}

// declare introduces name in this scope. Redeclaring a lexical binding in
// the same scope is a SyntaxError; var redeclaration keeps the old value.
func (s *scope) declare(name string, v graph.Value, mutable, lexical bool) error {
	if b, ok := s.vars[name]; ok {
		if lexical || !b.mutable {
			return graph.Throw(graph.KindSyntaxError, "identifier '%s' has already been declared", name)
		}
		if !graph.IsUndefined(v) {
			b.value = v
		}
		return nil
	}
	s.vars[name] = &binding{value: v, mutable: mutable}
	return nil
}

func (s *scope) lookup(name string) (*binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (s *scope) thisValue() graph.Value {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.function {
			return cur.this
		}
	}
	return graph.Undefined
}

func (s *scope) inFunction() bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.function {
			return true
		}
	}
	return false
}

// hoistVars collects var-declared names in body, not descending into
// nested functions.
func hoistVars(body []stmt, names map[string]bool) {
	for _, s := range body {
		hoistStmt(s, names)
	}
}

func hoistStmt(s stmt, names map[string]bool) {
	switch x := s.(type) {
	case *varDecl:
		if x.kind == "var" {
			for _, d := range x.decls {
				names[d.name] = true
			}
		}
	case *blockStmt:
		hoistVars(x.body, names)
	case *ifStmt:
		hoistStmt(x.then, names)
		if x.otherwise != nil {
			hoistStmt(x.otherwise, names)
		}
	case *whileStmt:
		hoistStmt(x.body, names)
	case *doWhileStmt:
		hoistStmt(x.body, names)
	case *forStmt:
		if x.init != nil {
			hoistStmt(x.init, names)
		}
		hoistStmt(x.body, names)
	case *tryStmt:
		hoistStmt(x.block, names)
		if x.handler != nil {
			hoistStmt(x.handler, names)
		}
		if x.finalizer != nil {
			hoistStmt(x.finalizer, names)
		}
	}
}
