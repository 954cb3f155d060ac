package ast

// Visitor is called for each node Walk visits. If the returned bool is
// false, Walk does not descend into the node's children.
type Visitor func(n Node) bool

// Walk traverses an AST in depth-first order, calling v for every node
// reachable from n. A nil node or nil v is a no-op.
func Walk(v Visitor, n Node) {
	if n == nil || v == nil {
		return
	}
	if !v(n) {
		return
	}
	switch n := n.(type) {
	case *Chunk:
		for _, s := range n.Stmts {
			Walk(v, s)
		}

	case *Literal, *ThisExpr, *SuperExpr:
		// leaf nodes

	case *InterpolationExpr:
		for _, e := range n.Exprs {
			Walk(v, e)
		}
	case *Ident:
		// leaf node
	case *ArrayExpr:
		for _, e := range n.Elems {
			Walk(v, e)
		}
	case *ObjectExpr:
		for i := range n.Keys {
			Walk(v, n.Keys[i])
			Walk(v, n.Values[i])
		}
	case *RangeExpr:
		Walk(v, n.From)
		Walk(v, n.To)
	case *UnaryExpr:
		Walk(v, n.X)
	case *RefExpr:
		Walk(v, n.Target)
	case *DerefSetExpr:
		Walk(v, n.Ref)
		Walk(v, n.Value)
	case *BinaryExpr:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *LogicalExpr:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *AssignExpr:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *CallExpr:
		Walk(v, n.Callee)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *NewExpr:
		Walk(v, n.Class)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *GetExpr:
		Walk(v, n.X)
	case *SetExpr:
		Walk(v, n.X)
		Walk(v, n.Value)
	case *IndexExpr:
		Walk(v, n.X)
		Walk(v, n.Index)
	case *SetIndexExpr:
		Walk(v, n.X)
		Walk(v, n.Index)
		Walk(v, n.Value)
	case *TernaryExpr:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		Walk(v, n.Else)
	case *FuncExpr:
		walkFuncBody(v, n.Body)

	case *ExprStmt:
		Walk(v, n.X)
	case *VarStmt:
		Walk(v, n.Init)
	case *BlockStmt:
		for _, s := range n.Stmts {
			Walk(v, s)
		}
	case *IfStmt:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		Walk(v, n.Else)
	case *WhileStmt:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *ForStmt:
		Walk(v, n.Init)
		Walk(v, n.Cond)
		Walk(v, n.Post)
		Walk(v, n.Body)
	case *ForInStmt:
		Walk(v, n.Iterable)
		Walk(v, n.Body)
	case *ReturnStmt:
		Walk(v, n.Value)
	case *BreakStmt, *ContinueStmt:
		// leaf nodes
	case *FuncStmt:
		Walk(v, n.Fn)
	case *ClassStmt:
		for _, f := range n.Fields {
			walkFieldDecl(v, f)
		}
		for _, f := range n.StaticFields {
			walkFieldDecl(v, f)
		}
		for _, m := range n.Methods {
			Walk(v, m.Fn)
		}
	}
}

func walkFuncBody(v Visitor, b FuncBody) {
	for _, p := range b.Params {
		Walk(v, p.Default)
	}
	if b.Block != nil {
		Walk(v, b.Block)
	}
	if b.Expr != nil {
		Walk(v, b.Expr)
	}
}

func walkFieldDecl(v Visitor, f *FieldDecl) {
	if f == nil {
		return
	}
	Walk(v, f.Init)
	if f.Getter != nil {
		Walk(v, f.Getter)
	}
	if f.Setter != nil {
		Walk(v, f.Setter)
	}
}
