// Package resolver walks a parsed chunk and resolves every identifier
// reference, `this` and `super` use to a Binding: a local slot, a captured
// upvalue, a module-private slot, or a dynamic global lookup. The emitter
// consumes this information instead of re-deriving it, mirroring the
// teacher's scanner/parser/resolver/compiler pipeline split.
//
// Name resolution order at a use site is local -> upvalue (walking
// enclosing function scopes, marking intermediate locals as captured) ->
// module-private -> global (spec §4.6). Module-level `var`/`const`
// declarations - those not nested inside any function body - bind as
// Private rather than Local, since they are addressed by slot in the
// module's private table for the lifetime of the module, not the stack
// frame of a single call.
package resolver

import (
	"errors"
	"fmt"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// ErrSemantic is returned by Resolve when at least one name could not be
// resolved or an emitter-phase invariant was violated; individual errors
// were already reported through the ErrorHandler as they were found.
var ErrSemantic = errors.New("resolver: semantic error")

// ErrorHandler receives one resolution error as it is found; resolution
// continues afterwards so that multiple errors can be reported in one pass.
type ErrorHandler func(pos token.Position, code errcode.Code, msg string)

// Info is the result of a successful or partial resolution: for every
// identifier, `this` and `super` use, the Binding it resolved to, plus the
// Function record for every function-shaped node in the chunk.
type Info struct {
	Idents    map[*ast.Ident]*Binding
	Thises    map[*ast.ThisExpr]*Binding
	Supers    map[*ast.SuperExpr]*Binding
	Functions map[ast.Node]*Function

	// ClassSupers resolves each class's superclass-name reference (stored
	// on ast.ClassStmt as a bare string, not an ast.Expr) to the Binding it
	// denotes.
	ClassSupers map[*ast.ClassStmt]*Binding

	// Privates lists the module's private bindings in declaration order,
	// i.e. Privates[b.Index] == b for every Private binding b.
	Privates []*Binding

	// Decls resolves a declaration site itself (as opposed to a use) to
	// its Binding, for the handful of statement kinds the emitter needs
	// to know the storage class of directly: *ast.VarStmt, *ast.FuncStmt,
	// *ast.ClassStmt and *ast.ForInStmt (its loop variable). A Local
	// binding needs no storage instruction (the value already occupies
	// its slot on the value stack); a Private one needs an explicit
	// SET_PRIVATE, which is why the emitter needs this map.
	Decls map[ast.Node]*Binding
}

// block is one lexical block: a set of name bindings visible from the
// point of declaration to the end of the block, plus a link to the
// function it belongs to (several nested blocks can share one Function).
type block struct {
	parent   *block
	fn       *Function
	bindings map[string]*Binding
	isLoop   bool
}

type resolver struct {
	onError ErrorHandler
	nerrs   int

	env *block

	privates     map[string]*Binding
	privateOrder []*Binding

	info *Info
}

// Resolve walks chunk and resolves every name. It returns a non-nil error
// (after reporting every error found to onError) when at least one name
// could not be resolved or one of the emitter-phase invariants (no
// redeclaration in the same block, constants cannot be reassigned, etc.) is
// violated; the returned Info is still populated for whatever did resolve,
// which is useful for tooling but must not be compiled.
func Resolve(chunk *ast.Chunk, onError ErrorHandler) (*Info, error) {
	r := &resolver{
		onError:  onError,
		privates: make(map[string]*Binding),
		info: &Info{
			Idents:      make(map[*ast.Ident]*Binding),
			Thises:      make(map[*ast.ThisExpr]*Binding),
			Supers:      make(map[*ast.SuperExpr]*Binding),
			Functions:   make(map[ast.Node]*Function),
			Decls:       make(map[ast.Node]*Binding),
			ClassSupers: make(map[*ast.ClassStmt]*Binding),
		},
	}

	root := &Function{Definition: chunk}
	r.info.Functions[chunk] = root
	r.push(root, false)
	for _, st := range chunk.Stmts {
		r.stmt(st)
	}
	r.pop()

	r.info.Privates = r.privateOrder
	if r.nerrs > 0 {
		return r.info, ErrSemantic
	}
	return r.info, nil
}

// push opens a new block. Pass a non-nil fn to also open a new function
// scope (the block belongs to fn rather than the enclosing block's
// function); pass nil to open a plain nested block within the same
// function (e.g. an `if`/`while`/`for` body).
func (r *resolver) push(fn *Function, isLoop bool) {
	b := &block{parent: r.env, bindings: make(map[string]*Binding), isLoop: isLoop}
	if fn != nil {
		b.fn = fn
	} else {
		b.fn = r.env.fn
		if r.env.isLoop {
			b.isLoop = true
		}
	}
	r.env = b
}

func (r *resolver) pop() { r.env = r.env.parent }

func (r *resolver) errorf(pos token.Position, code errcode.Code, format string, args ...any) {
	r.nerrs++
	if r.onError != nil {
		r.onError(pos, code, fmt.Sprintf(format, args...))
	}
}

// isModuleScope reports whether the current block belongs to the implicit
// top-level script function rather than a nested function/method body.
func (r *resolver) isModuleScope() bool { return r.env.fn.Parent == nil }

// declare introduces name in the current block: as a Private binding when
// the current function is the implicit top-level script function, or as a
// Local binding (in the current function's slot list) otherwise.
func (r *resolver) declare(name string, pos token.Position, isConst bool) *Binding {
	if _, ok := r.env.bindings[name]; ok {
		r.errorf(pos, errcode.VarRedefined, "variable redefined: %s", name)
	}

	var b *Binding
	if r.isModuleScope() {
		if existing, ok := r.privates[name]; ok {
			b = existing
		} else {
			if len(r.privateOrder) >= 1<<16 {
				r.errorf(pos, errcode.TooManyPrivates, "too many privates")
			}
			b = &Binding{Name: name, Scope: Private, Const: isConst, Index: len(r.privateOrder), initializing: true}
			r.privates[name] = b
			r.privateOrder = append(r.privateOrder, b)
		}
	} else {
		if len(r.env.fn.Locals) >= 1<<16 {
			r.errorf(pos, errcode.TooManyLocals, "too many locals")
		}
		b = &Binding{Name: name, Scope: Local, Const: isConst, Index: len(r.env.fn.Locals), initializing: true}
		r.env.fn.Locals = append(r.env.fn.Locals, b)
	}
	r.env.bindings[name] = b
	return b
}

// markInitialized ends a binding's temporary-dead-zone: it becomes usable
// by name from this point on, including by itself recursively (needed for
// named function declarations, which must be able to call themselves).
func (r *resolver) markInitialized(b *Binding) { b.initializing = false }

// declareSynthetic binds name (e.g. "this", "super") without going through
// the module-private path, used for the implicit bindings that only ever
// live inside a function's own frame.
func (r *resolver) declareSynthetic(name string, isConst bool) *Binding {
	b := &Binding{Name: name, Scope: Local, Const: isConst, Index: len(r.env.fn.Locals)}
	r.env.fn.Locals = append(r.env.fn.Locals, b)
	r.env.bindings[name] = b
	return b // never `initializing`: synthetic bindings are valid from the start of the function
}

// use resolves an identifier by name: first walking blocks of the current
// function (Local), then enclosing functions (Upvalue, capturing through
// every intermediate function), then the module's private table (Private),
// and finally falling back to Global.
func (r *resolver) use(name string, pos token.Position) *Binding {
	curFn := r.env.fn
	for b := r.env; b != nil && b.fn == curFn; b = b.parent {
		if bdg, ok := b.bindings[name]; ok {
			if bdg.initializing {
				r.errorf(pos, errcode.VariableUsedInInit, "variable used in its own initializer: %s", name)
			}
			return bdg
		}
	}

	if bdg := r.resolveUpvalue(curFn, r.env, name); bdg != nil {
		return bdg
	}

	if bdg, ok := r.privates[name]; ok {
		return bdg
	}

	return &Binding{Name: name, Scope: Global}
}

// resolveUpvalue looks for name in a function enclosing fn (walking via
// fn.Parent), and if found, threads it down as a captured Upvalue through
// every function between the declaration site and fn.
func (r *resolver) resolveUpvalue(fn *Function, fromBlock *block, name string) *Binding {
	if fn.Parent == nil {
		return nil
	}

	// find fromBlock's enclosing block belonging to fn.Parent.
	var parentBlock *block
	for b := fromBlock; b != nil; b = b.parent {
		if b.fn == fn.Parent {
			parentBlock = b
			break
		}
	}
	if parentBlock == nil {
		return nil
	}

	for b := parentBlock; b != nil && b.fn == fn.Parent; b = b.parent {
		if bdg, ok := b.bindings[name]; ok {
			if bdg.Scope == Local {
				bdg.Captured = true
				return r.addUpvalue(fn, name, UpvalueDesc{Name: name, FromLocal: true, Index: bdg.Index, Const: bdg.Const})
			}
		}
	}

	if parentUp := r.resolveUpvalue(fn.Parent, parentBlock, name); parentUp != nil && parentUp.Scope == Upvalue {
		return r.addUpvalue(fn, name, UpvalueDesc{Name: name, FromLocal: false, Index: parentUp.Index, Const: parentUp.Const})
	}

	return nil
}

func (r *resolver) addUpvalue(fn *Function, name string, desc UpvalueDesc) *Binding {
	for i, u := range fn.Upvalues {
		if u.Name == name && u.FromLocal == desc.FromLocal && u.Index == desc.Index {
			return &Binding{Name: name, Scope: Upvalue, Index: i, Const: u.Const}
		}
	}
	idx := len(fn.Upvalues)
	if idx >= 1<<16 {
		return &Binding{Name: name, Scope: Undefined}
	}
	fn.Upvalues = append(fn.Upvalues, desc)
	return &Binding{Name: name, Scope: Upvalue, Index: idx, Const: desc.Const}
}
