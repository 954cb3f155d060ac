package value

// CallFrame is one activation record on a Fiber's call stack (spec's
// CallFrame entity).
type CallFrame struct {
	Closure      *ClosureObj // nil when Function is a raw top-level/native-called FunctionObj with no captures
	Function     *FunctionObj
	IP           int
	StackBase    int
	ResultIgnored bool
	ReturnToHost bool

	// IsCtor and CtorInstance let RETURN substitute the freshly allocated
	// Instance for whatever the constructor body itself returns (spec
	// §4.7's "Class: ... result is the instance", regardless of
	// init_method's own return statement, if any).
	IsCtor       bool
	CtorInstance Value
}

// FiberObj is a first-class cooperative coroutine: its own value stack,
// call-frame stack, and open-upvalue list (spec's Fiber entity, §4.7's
// Fiber control semantics).
type FiberObj struct {
	Header

	Stack  []Value
	Frames []CallFrame

	// OpenUpvalues is kept sorted by descending Location address (spec
	// §8's quantified invariant), so closing upvalues at or above a
	// given base is a prefix scan.
	OpenUpvalues *UpvalueObj

	Module *ModuleObj
	Parent *FiberObj

	HasCatcher bool
	IsAborting bool
	Error      Value

	// LastArgc is the argument count most recently used to resume this
	// fiber via run/try.
	LastArgc int

	// Entry is the callable (a Closure or a bare top-level Function) this
	// fiber starts running the first time it is resumed; unused after the
	// fiber's first frame has been pushed.
	Entry Value

	// Started is set the first time this fiber is resumed, distinguishing
	// "never run" from "finished" once Frames is empty again.
	Started bool

	// PendingYieldSlot/PendingYieldIgnored record the in-flight Fiber.yield
	// native call's own calleeSlot/resultIgnored at the moment it produced
	// a yieldSignal, so resuming the fiber later can complete that call
	// (see lang/vm's dispatchCall and startOrResumeFiber).
	PendingYieldSlot    int
	PendingYieldIgnored bool

	// Yeeted is set by Fiber.yeet: unlike a plain yield, a yeeted fiber is
	// never meant to be resumed again, so startOrResumeFiber refuses to.
	Yeeted bool
}

// NewFiber creates a fresh, not-yet-started fiber whose first run/try
// call invokes entry (a Closure or Function value) with whatever
// arguments that call supplies. Stack capacity is preallocated at a high
// fixed ceiling (see lang/vm's maxStackSlots) so it never needs to grow
// once execution starts: growing would move the backing array and
// invalidate any UpvalueObj.Location already pointing into it.
func NewFiber(entry Value, module *ModuleObj) *FiberObj {
	return &FiberObj{
		Header: Header{kind: KindFiber},
		Stack:  make([]Value, 0, 1<<14),
		Frames: make([]CallFrame, 0, 8),
		Module: module,
		Entry:  entry,
	}
}

// Push appends v to the fiber's value stack.
func (f *FiberObj) Push(v Value) { f.Stack = append(f.Stack, v) }

// Pop removes and returns the top of the fiber's value stack.
func (f *FiberObj) Pop() Value {
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

// Peek returns the value `dist` slots from the top without popping.
func (f *FiberObj) Peek(dist int) Value { return f.Stack[len(f.Stack)-1-dist] }

// Top returns the current frame, or nil if the fiber's call stack is
// empty (finished, or never started).
func (f *FiberObj) Top() *CallFrame {
	if len(f.Frames) == 0 {
		return nil
	}
	return &f.Frames[len(f.Frames)-1]
}
