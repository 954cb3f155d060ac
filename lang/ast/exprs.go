package ast

import "github.com/mna/lit/lang/token"

func (*Literal) exprNode()         {}
func (*InterpolationExpr) exprNode() {}
func (*Ident) exprNode()           {}
func (*ThisExpr) exprNode()        {}
func (*SuperExpr) exprNode()       {}
func (*ArrayExpr) exprNode()       {}
func (*ObjectExpr) exprNode()      {}
func (*RangeExpr) exprNode()       {}
func (*UnaryExpr) exprNode()       {}
func (*BinaryExpr) exprNode()      {}
func (*LogicalExpr) exprNode()     {}
func (*AssignExpr) exprNode()      {}
func (*CallExpr) exprNode()        {}
func (*NewExpr) exprNode()         {}
func (*GetExpr) exprNode()         {}
func (*SetExpr) exprNode()         {}
func (*IndexExpr) exprNode()       {}
func (*SetIndexExpr) exprNode()    {}
func (*TernaryExpr) exprNode()     {}
func (*FuncExpr) exprNode()        {}
func (*RefExpr) exprNode()         {}
func (*DerefSetExpr) exprNode()    {}

// Literal is a number, string (non-interpolated), bool or null literal.
// Value holds an int64, float64, string, bool, or nil.
type Literal struct {
	Value   any
	NamePos token.Position
}

func (l *Literal) Pos() token.Position { return l.NamePos }

// InterpolationExpr represents a string literal with one or more embedded
// expressions: "a{x}b{y}c" becomes Parts=["a","b","c"], Exprs=[x,y].
// len(Parts) == len(Exprs)+1.
type InterpolationExpr struct {
	Parts   []string
	Exprs   []Expr
	NamePos token.Position
}

func (i *InterpolationExpr) Pos() token.Position { return i.NamePos }

// Ident is a bare identifier reference.
type Ident struct {
	Name    string
	NamePos token.Position
}

func (i *Ident) Pos() token.Position { return i.NamePos }

// ThisExpr is the `this` keyword used inside methods/constructors.
type ThisExpr struct{ NamePos token.Position }

func (t *ThisExpr) Pos() token.Position { return t.NamePos }

// SuperExpr is the `super` keyword, always used as the receiver of a
// selector or call (super.method(...), super(...)).
type SuperExpr struct{ NamePos token.Position }

func (s *SuperExpr) Pos() token.Position { return s.NamePos }

// ArrayExpr is an array literal `[a, b, c]`.
type ArrayExpr struct {
	Elems   []Expr
	NamePos token.Position
}

func (a *ArrayExpr) Pos() token.Position { return a.NamePos }

// ObjectExpr is a map/object literal `{ a: 1, "b": 2 }`.
type ObjectExpr struct {
	Keys    []Expr
	Values  []Expr
	NamePos token.Position
}

func (o *ObjectExpr) Pos() token.Position { return o.NamePos }

// RangeExpr is `from .. to`.
type RangeExpr struct {
	From, To Expr
	NamePos  token.Position
}

func (r *RangeExpr) Pos() token.Position { return r.NamePos }

// UnaryExpr is a prefix operator: `- ! ~ not *`.
type UnaryExpr struct {
	Op      token.Token
	X       Expr
	NamePos token.Position
}

func (u *UnaryExpr) Pos() token.Position { return u.NamePos }

// RefExpr is `ref x`, producing a Reference object over an assignable
// target (spec §9 Reference objects).
type RefExpr struct {
	Target  Expr
	NamePos token.Position
}

func (r *RefExpr) Pos() token.Position { return r.NamePos }

// DerefSetExpr is `*ref = value`, assigning through a Reference value.
type DerefSetExpr struct {
	Ref     Expr
	Value   Expr
	NamePos token.Position
}

func (d *DerefSetExpr) Pos() token.Position { return d.NamePos }

// BinaryExpr is any binary operator except `and`/`or` (which short-circuit
// and are represented as LogicalExpr instead).
type BinaryExpr struct {
	Op      token.Token
	X, Y    Expr
	NamePos token.Position
}

func (b *BinaryExpr) Pos() token.Position { return b.NamePos }

// LogicalExpr is `and`/`or`/`??`, which must short-circuit.
type LogicalExpr struct {
	Op      token.Token
	X, Y    Expr
	NamePos token.Position
}

func (l *LogicalExpr) Pos() token.Position { return l.NamePos }

// AssignExpr is `target op= value` (including plain `=`).
type AssignExpr struct {
	Target  Expr
	Op      token.Token
	Value   Expr
	NamePos token.Position
}

func (a *AssignExpr) Pos() token.Position { return a.NamePos }

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Callee  Expr
	Args    []Expr
	NamePos token.Position
}

func (c *CallExpr) Pos() token.Position { return c.NamePos }

// NewExpr is `new Class(args...)`.
type NewExpr struct {
	Class   Expr
	Args    []Expr
	NamePos token.Position
}

func (n *NewExpr) Pos() token.Position { return n.NamePos }

// GetExpr is `x.name` or, when Optional is set, `x?.name`.
type GetExpr struct {
	X        Expr
	Name     string
	Optional bool
	NamePos  token.Position
}

func (g *GetExpr) Pos() token.Position { return g.NamePos }

// SetExpr is `x.name = value`.
type SetExpr struct {
	X       Expr
	Name    string
	Value   Expr
	NamePos token.Position
}

func (s *SetExpr) Pos() token.Position { return s.NamePos }

// IndexExpr is `x[index]`.
type IndexExpr struct {
	X, Index Expr
	NamePos  token.Position
}

func (i *IndexExpr) Pos() token.Position { return i.NamePos }

// SetIndexExpr is `x[index] = value`.
type SetIndexExpr struct {
	X, Index, Value Expr
	NamePos         token.Position
}

func (s *SetIndexExpr) Pos() token.Position { return s.NamePos }

// TernaryExpr is `cond ? then : else`.
type TernaryExpr struct {
	Cond, Then, Else Expr
	NamePos          token.Position
}

func (t *TernaryExpr) Pos() token.Position { return t.NamePos }

// FuncExpr is a function/lambda expression: `(params) => expr`,
// `(params) => { block }`, or `function (params) { block }`.
type FuncExpr struct {
	Name     string // empty for anonymous lambdas
	Body     FuncBody
	NamePos  token.Position
}

func (f *FuncExpr) Pos() token.Position { return f.NamePos }
