// Package optimizer implements the optional AST-level optimization pass
// between parsing and resolution: constant folding, literal folding and
// dead-branch elimination, gated behind a per-optimization bit-set and a
// small number of named preset levels.
package optimizer

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
)

// Kind identifies a single optimization that can be toggled independently.
type Kind int

const (
	ConstantFolding Kind = iota
	LiteralFolding
	UnusedVar
	UnreachableCode
	EmptyBody
	LineInfo
	PrivateNames
	CFor

	numKinds
)

var kindNames = [numKinds]string{
	ConstantFolding: "constant-folding",
	LiteralFolding:  "literal-folding",
	UnusedVar:       "unused-var",
	UnreachableCode: "unreachable-code",
	EmptyBody:       "empty-body",
	LineInfo:        "line-info",
	PrivateNames:    "private-names",
	CFor:            "c-for",
}

// String returns the short name used to identify the optimization on the
// command line (spec §6.4 -O flags).
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Level is a named preset combination of optimizations.
type Level int

const (
	LevelNone Level = iota
	LevelREPL
	LevelDebug
	LevelRelease
	LevelExtreme
)

// levelPresets maps each Level to the set of Kinds it enables. Levels are
// cumulative by design intent, matching the original implementation's
// escalating descriptions (no optimizations -> light REPL-friendly set ->
// recommended development default -> release -> extreme, which additionally
// discards most names).
var levelPresets = map[Level]map[Kind]bool{
	LevelNone: {},
	LevelREPL: {
		ConstantFolding: true,
		LiteralFolding:  true,
	},
	LevelDebug: {
		ConstantFolding: true,
		LiteralFolding:  true,
		EmptyBody:       true,
		LineInfo:        false,
	},
	LevelRelease: {
		ConstantFolding: true,
		LiteralFolding:  true,
		UnusedVar:       true,
		UnreachableCode: true,
		EmptyBody:       true,
		CFor:            true,
	},
	LevelExtreme: {
		ConstantFolding: true,
		LiteralFolding:  true,
		UnusedVar:       true,
		UnreachableCode: true,
		EmptyBody:       true,
		LineInfo:        true,
		PrivateNames:    true,
		CFor:            true,
	},
}

// Options is the enabled/disabled bit-set for each Kind, along with the
// error callback installed by OnError.
type Options struct {
	enabled [numKinds]bool
	onError func(pos token.Position, msg string)
}

// NewOptions builds Options preset to level, individual Kinds can still be
// overridden with Enable/Disable afterwards.
func NewOptions(level Level) *Options {
	o := &Options{}
	for k, v := range levelPresets[level] {
		o.enabled[k] = v
	}
	return o
}

// Enable turns a single optimization on or off, independently of the level
// it was initialized from.
func (o *Options) Enable(k Kind, on bool) { o.enabled[k] = on }

// Enabled reports whether k is currently on.
func (o *Options) Enabled(k Kind) bool { return o.enabled[k] }

// AnyEnabled reports whether at least one optimization is on; Optimize
// short-circuits to a no-op when this is false; so that the un-optimized
// and optimized AST are observably identical when every Kind is disabled.
func (o *Options) AnyEnabled() bool {
	for _, v := range o.enabled {
		if v {
			return true
		}
	}
	return false
}

// OnError stores a callback for folding errors. The folding code does not
// call it: when constant folding meets an operation that would itself be
// a runtime error (e.g. division by zero), the fold is abandoned and the
// original expression is kept, so the error surfaces at run time.
func (o *Options) OnError(f func(pos token.Position, msg string)) { o.onError = f }

// Optimize folds and prunes chunk.Stmts in place according to opts. With no
// optimization enabled it leaves the tree untouched.
func Optimize(chunk *ast.Chunk, opts *Options) {
	if opts == nil || !opts.AnyEnabled() {
		return
	}
	o := &optimizerState{opts: opts}
	chunk.Stmts = o.optimizeStmts(chunk.Stmts)
}

type optimizerState struct {
	opts *Options
}

func (o *optimizerState) optimizeStmts(stmts []ast.Stmt) []ast.Stmt {
	out := stmts[:0]
	terminated := false
	for _, st := range stmts {
		if terminated && o.opts.Enabled(UnreachableCode) {
			continue
		}
		st = o.optimizeStmt(st)
		if st == nil {
			continue
		}
		out = append(out, st)
		if isTerminator(st) {
			terminated = true
		}
	}
	return out
}

func isTerminator(st ast.Stmt) bool {
	switch st.(type) {
	case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return true
	}
	return false
}

func (o *optimizerState) optimizeStmt(st ast.Stmt) ast.Stmt {
	switch s := st.(type) {
	case *ast.ExprStmt:
		s.X = o.optimizeExpr(s.X)
		return s
	case *ast.VarStmt:
		if s.Init != nil {
			s.Init = o.optimizeExpr(s.Init)
		}
		return s
	case *ast.BlockStmt:
		s.Stmts = o.optimizeStmts(s.Stmts)
		if o.opts.Enabled(EmptyBody) && len(s.Stmts) == 0 {
			return nil
		}
		return s
	case *ast.IfStmt:
		return o.optimizeIf(s)
	case *ast.WhileStmt:
		s.Cond = o.optimizeExpr(s.Cond)
		s.Body = o.optimizeStmt(s.Body)
		if o.opts.Enabled(EmptyBody) && (s.Body == nil || isEmptyBody(s.Body)) {
			if lit, ok := s.Cond.(*ast.Literal); ok {
				if b, ok := lit.Value.(bool); ok && !b {
					return nil
				}
			}
		}
		return s
	case *ast.ForStmt:
		if s.Init != nil {
			s.Init = o.optimizeStmt(s.Init)
		}
		if s.Cond != nil {
			s.Cond = o.optimizeExpr(s.Cond)
		}
		if s.Post != nil {
			s.Post = o.optimizeStmt(s.Post)
		}
		s.Body = o.optimizeStmt(s.Body)
		return s
	case *ast.ForInStmt:
		s.Iterable = o.optimizeExpr(s.Iterable)
		s.Body = o.optimizeStmt(s.Body)
		return s
	case *ast.ReturnStmt:
		if s.Value != nil {
			s.Value = o.optimizeExpr(s.Value)
		}
		return s
	case *ast.FuncStmt:
		s.Fn = o.optimizeFuncExpr(s.Fn)
		return s
	case *ast.ClassStmt:
		for _, f := range s.Fields {
			o.optimizeFieldDecl(f)
		}
		for _, f := range s.StaticFields {
			o.optimizeFieldDecl(f)
		}
		for _, m := range s.Methods {
			m.Fn = o.optimizeFuncExpr(m.Fn)
		}
		return s
	}
	return st
}

func (o *optimizerState) optimizeFieldDecl(f *ast.FieldDecl) {
	if f == nil {
		return
	}
	if f.Init != nil {
		f.Init = o.optimizeExpr(f.Init)
	}
	if f.Getter != nil {
		f.Getter = o.optimizeFuncExpr(f.Getter)
	}
	if f.Setter != nil {
		f.Setter = o.optimizeFuncExpr(f.Setter)
	}
}

func (o *optimizerState) optimizeFuncExpr(fn *ast.FuncExpr) *ast.FuncExpr {
	if fn == nil {
		return nil
	}
	for i := range fn.Body.Params {
		if fn.Body.Params[i].Default != nil {
			fn.Body.Params[i].Default = o.optimizeExpr(fn.Body.Params[i].Default)
		}
	}
	if fn.Body.Block != nil {
		if st := o.optimizeStmt(fn.Body.Block); st != nil {
			fn.Body.Block = st.(*ast.BlockStmt)
		} else {
			fn.Body.Block = &ast.BlockStmt{NamePos: fn.Body.NamePos}
		}
	}
	if fn.Body.Expr != nil {
		fn.Body.Expr = o.optimizeExpr(fn.Body.Expr)
	}
	return fn
}

func isEmptyBody(st ast.Stmt) bool {
	b, ok := st.(*ast.BlockStmt)
	return ok && len(b.Stmts) == 0
}

// optimizeIf folds `if (true) a else b` / `if (false) a else b` down to the
// live branch when the condition is a literal, after recursing into both
// branches so their own folds still happen even when not taken.
func (o *optimizerState) optimizeIf(s *ast.IfStmt) ast.Stmt {
	s.Cond = o.optimizeExpr(s.Cond)
	s.Then = o.optimizeStmt(s.Then)
	if s.Else != nil {
		s.Else = o.optimizeStmt(s.Else)
	}
	if !o.opts.Enabled(UnreachableCode) {
		return s
	}
	lit, ok := s.Cond.(*ast.Literal)
	if !ok {
		return s
	}
	b, ok := lit.Value.(bool)
	if !ok {
		return s
	}
	if b {
		return s.Then
	}
	if s.Else != nil {
		return s.Else
	}
	return nil
}
