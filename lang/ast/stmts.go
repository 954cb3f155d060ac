package ast

import "github.com/mna/lit/lang/token"

func (*ExprStmt) stmtNode()     {}
func (*VarStmt) stmtNode()      {}
func (*BlockStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*ForInStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*FuncStmt) stmtNode()     {}
func (*ClassStmt) stmtNode()    {}

func (e *ExprStmt) BlockEnding() bool     { return false }
func (v *VarStmt) BlockEnding() bool      { return false }
func (b *BlockStmt) BlockEnding() bool    { return false }
func (i *IfStmt) BlockEnding() bool       { return false }
func (w *WhileStmt) BlockEnding() bool    { return false }
func (f *ForStmt) BlockEnding() bool      { return false }
func (f *ForInStmt) BlockEnding() bool    { return false }
func (r *ReturnStmt) BlockEnding() bool   { return true }
func (b *BreakStmt) BlockEnding() bool    { return true }
func (c *ContinueStmt) BlockEnding() bool { return true }
func (f *FuncStmt) BlockEnding() bool     { return false }
func (c *ClassStmt) BlockEnding() bool    { return false }

// ExprStmt is an expression evaluated for its side effect.
type ExprStmt struct {
	X       Expr
	NamePos token.Position
}

func (e *ExprStmt) Pos() token.Position { return e.NamePos }

// VarStmt is `var name = init` or `const name = init`.
type VarStmt struct {
	Name    string
	Const   bool
	Init    Expr // nil if uninitialized (var only, not const)
	NamePos token.Position
}

func (v *VarStmt) Pos() token.Position { return v.NamePos }

// BlockStmt is `{ stmts... }`, introducing a new lexical scope.
type BlockStmt struct {
	Stmts   []Stmt
	NamePos token.Position
	EndPos  token.Position
}

func (b *BlockStmt) Pos() token.Position { return b.NamePos }

// IfStmt is `if (cond) then [else else_]`. An `else if` chain is
// represented by Else being another *IfStmt (spec §6.3
// MultipleElseBranches guards against a second plain `else`).
type IfStmt struct {
	Cond    Expr
	Then    Stmt
	Else    Stmt
	NamePos token.Position
}

func (i *IfStmt) Pos() token.Position { return i.NamePos }

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	Cond    Expr
	Body    Stmt
	NamePos token.Position
}

func (w *WhileStmt) Pos() token.Position { return w.NamePos }

// ForStmt is the C-style three-clause for loop.
type ForStmt struct {
	Init    Stmt // *VarStmt or *ExprStmt, may be nil
	Cond    Expr // may be nil
	Post    Stmt // *ExprStmt, may be nil
	Body    Stmt
	NamePos token.Position
}

func (f *ForStmt) Pos() token.Position { return f.NamePos }

// ForInStmt is `for (var x in seq) body`, lowered by the compiler to the
// iterator-protocol calls of spec §4.7.
type ForInStmt struct {
	VarName  string
	Iterable Expr
	Body     Stmt
	NamePos  token.Position
}

func (f *ForInStmt) Pos() token.Position { return f.NamePos }

// ReturnStmt is `return [value]`.
type ReturnStmt struct {
	Value   Expr // nil for bare `return`
	NamePos token.Position
}

func (r *ReturnStmt) Pos() token.Position { return r.NamePos }

// BreakStmt is `break`.
type BreakStmt struct{ NamePos token.Position }

func (b *BreakStmt) Pos() token.Position { return b.NamePos }

// ContinueStmt is `continue`.
type ContinueStmt struct{ NamePos token.Position }

func (c *ContinueStmt) Pos() token.Position { return c.NamePos }

// FuncStmt is a named function declaration: `function name(params) { ... }`.
type FuncStmt struct {
	Name    string
	Fn      *FuncExpr
	NamePos token.Position
}

func (f *FuncStmt) Pos() token.Position { return f.NamePos }

// FieldDecl is a class field with optional getter/setter bodies (spec
// §4.8 Field objects) or static field.
type FieldDecl struct {
	Name    string
	Static  bool
	Getter  *FuncExpr
	Setter  *FuncExpr
	Init    Expr // for plain (non-accessor) static fields
	NamePos token.Position
}

// MethodDecl is a method, constructor, static method or operator overload
// inside a class body.
type MethodDecl struct {
	Name       string
	Fn         *FuncExpr
	Static     bool
	IsOperator bool
	NamePos    token.Position
}

// ClassStmt is `class Name [: Super] { ... }`.
type ClassStmt struct {
	Name         string
	Super        string // empty if no explicit super class
	Fields       []*FieldDecl
	StaticFields []*FieldDecl
	Methods      []*MethodDecl
	NamePos      token.Position
}

func (c *ClassStmt) Pos() token.Position { return c.NamePos }
