package script

type node interface {
	position() pos
}

type expr interface {
	node
	exprNode()
}

type stmt interface {
	node
	stmtNode()
}

type base struct{ at pos }

func (b base) position() pos { return b.at }

// Expressions.

type (
	numberLit struct {
		base
		value float64
	}
	stringLit struct {
		base
		value string
	}
	boolLit struct {
		base
		value bool
	}
	nullLit      struct{ base }
	undefinedLit struct{ base }
	thisExpr     struct{ base }
	ident        struct {
		base
		name string
	}
	arrayLit struct {
		base
		elems []expr
	}
	property struct {
		key   string
		value expr
	}
	objectLit struct {
		base
		props []property
	}
	funcLit struct {
		base
		name   string
		params []string
		body   []stmt
	}
	member struct {
		base
		object expr
		// name is set for dot access, index for bracket access.
		name  string
		index expr
	}
	callExpr struct {
		base
		callee expr
		args   []expr
	}
	newExpr struct {
		base
		callee expr
		args   []expr
	}
	unary struct {
		base
		op      string
		operand expr
	}
	update struct {
		base
		op     string
		prefix bool
		target expr
	}
	binary struct {
		base
		op          string
		left, right expr
	}
	logical struct {
		base
		op          string
		left, right expr
	}
	conditional struct {
		base
		test, then, otherwise expr
	}
	assign struct {
		base
		op     string
		target expr
		value  expr
	}
	sequence struct {
		base
		exprs []expr
	}
)

func (numberLit) exprNode()    {}
func (stringLit) exprNode()    {}
func (boolLit) exprNode()      {}
func (nullLit) exprNode()      {}
func (undefinedLit) exprNode() {}
func (thisExpr) exprNode()     {}
func (ident) exprNode()        {}
func (arrayLit) exprNode()     {}
func (objectLit) exprNode()    {}
func (funcLit) exprNode()      {}
func (member) exprNode()       {}
func (callExpr) exprNode()     {}
func (newExpr) exprNode()      {}
func (unary) exprNode()        {}
func (update) exprNode()       {}
func (binary) exprNode()       {}
func (logical) exprNode()      {}
func (conditional) exprNode()  {}
func (assign) exprNode()       {}
func (sequence) exprNode()     {}

// Statements.

type (
	declarator struct {
		name string
		init expr
		at   pos
	}
	varDecl struct {
		base
		kind  string
		decls []declarator
	}
	funcDecl struct {
		base
		fn *funcLit
	}
	exprStmt struct {
		base
		x expr
	}
	blockStmt struct {
		base
		body []stmt
	}
	ifStmt struct {
		base
		test      expr
		then      stmt
		otherwise stmt
	}
	whileStmt struct {
		base
		test expr
		body stmt
	}
	doWhileStmt struct {
		base
		body stmt
		test expr
	}
	forStmt struct {
		base
		init   stmt
		test   expr
		update expr
		body   stmt
	}
	returnStmt struct {
		base
		value expr
	}
	breakStmt    struct{ base }
	continueStmt struct{ base }
	throwStmt    struct {
		base
		value expr
	}
	tryStmt struct {
		base
		block     *blockStmt
		param     string
		handler   *blockStmt
		finalizer *blockStmt
	}
	emptyStmt struct{ base }
)

func (varDecl) stmtNode()      {}
func (funcDecl) stmtNode()     {}
func (exprStmt) stmtNode()     {}
func (blockStmt) stmtNode()    {}
func (ifStmt) stmtNode()       {}
func (whileStmt) stmtNode()    {}
func (doWhileStmt) stmtNode()  {}
func (forStmt) stmtNode()      {}
func (returnStmt) stmtNode()   {}
func (breakStmt) stmtNode()    {}
func (continueStmt) stmtNode() {}
func (throwStmt) stmtNode()    {}
func (tryStmt) stmtNode()      {}
func (emptyStmt) stmtNode()    {}
