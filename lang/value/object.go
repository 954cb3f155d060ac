package value

// Object is implemented by every heap-allocated value kind. Hdr exposes
// the common header (spec §3: variant tag, intrusive-list link, mark
// bit); the intrusive link is realized here as the object's own slot in
// Heap.objects rather than a next-pointer, since the heap is an arena.
type Object interface {
	Hdr() *Header
}

// Header is embedded in every concrete Object type.
type Header struct {
	kind   Kind
	marked bool
	handle uint32
}

func (h *Header) Hdr() *Header { return h }

// Kind returns the object's variant tag.
func (h *Header) Kind() Kind { return h.kind }

// StringObj is an interned byte string; two StringObj sharing content
// always share one handle (spec: "content-equality implies pointer-
// equality after interning").
type StringObj struct {
	Header
	Bytes string
	Hash  uint64
}

// FunctionObj is a compiled Chunk plus its static metadata (spec's
// Function entity). Name is used for stack traces and disassembly.
type FunctionObj struct {
	Header
	Name       string
	Chunk      *Chunk
	Arity      int
	UpvalueCount int
	MaxSlots   int
	IsVararg   bool
	Module     *ModuleObj
}

// UpvalueObj is either open (Location points into a live fiber stack
// slot) or closed (Closed holds the value after the frame exited).
type UpvalueObj struct {
	Header
	Location *Value
	Closed   Value
	Next     *UpvalueObj // intrusive descending-location list on the owning fiber
}

func (u *UpvalueObj) isOpen() bool { return u.Location != nil }

// Close copies the current value out of the stack slot and detaches the
// upvalue from its stack location.
func (u *UpvalueObj) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

// Get returns the upvalue's current value, whichever state it is in.
func (u *UpvalueObj) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the stack slot (if open) or the closed cell.
func (u *UpvalueObj) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// ClosureObj pairs a FunctionObj with its captured upvalues.
type ClosureObj struct {
	Header
	Fn       *FunctionObj
	Upvalues []*UpvalueObj
}

// NativeFunc is a host function bound to the VM via the embedding API
// (spec §6.1's define_native).
type NativeFunc func(vm Interp, args []Value) (Value, error)

// NativeFunctionObj wraps a host Go function exposed as a callable value.
type NativeFunctionObj struct {
	Header
	Name string
	Fn   NativeFunc
}

// NativePrimitive is the "try again" protocol: it returns ok=true along
// with the result it produced, or ok=false with a zero Value meaning
// "fall through to error".
type NativePrimitive func(vm Interp, args []Value) (result Value, ok bool, err error)

// NativePrimitiveObj wraps a NativePrimitive.
type NativePrimitiveObj struct {
	Header
	Name string
	Fn   NativePrimitive
}

// NativeMethodObj is a NativeFunc bound as a class method (receiver is
// args[0]).
type NativeMethodObj struct {
	Header
	Name string
	Fn   NativeFunc
}

// PrimitiveMethodObj is a NativePrimitive bound as a class method.
type PrimitiveMethodObj struct {
	Header
	Name string
	Fn   NativePrimitive
}

// ModuleObj holds a compiled program's top-level state (spec's Module /
// C12): the main function, the module-private slot table, and (unless
// the private-names optimization stripped it) a name-to-index map.
type ModuleObj struct {
	Header
	Name           string
	Main           *FunctionObj
	Privates       []Value
	PrivateNames   map[string]int // nil when names were stripped
	Ran            bool
}

// ClassObj is a class: its method table, static-field table, optional
// constructor and superclass link (spec's Class entity, §4.8).
type ClassObj struct {
	Header
	Name         string
	Super        *ClassObj
	Methods      *Table
	StaticFields *Table
	Init         Value // the resolved "constructor" method, or Null
}

// InstanceObj is an object instantiated from a ClassObj.
type InstanceObj struct {
	Header
	Class  *ClassObj
	Fields *Table
}

// BoundMethodObj pairs a receiver with an unbound method value.
type BoundMethodObj struct {
	Header
	Receiver Value
	Method   Value
}

// ArrayObj is Lit's growable array.
type ArrayObj struct {
	Header
	Elems []Value
}

// MapObj is Lit's insertion-order-agnostic hash map, backed by Table.
type MapObj struct {
	Header
	Table *Table
}

// RangeObj is a `from .. to` range, inclusive of From, exclusive of To.
type RangeObj struct {
	Header
	From, To float64
}

// UserdataObj lets host code attach an opaque Go value to the heap (used
// by lib for things like open file handles).
type UserdataObj struct {
	Header
	Tag  string
	Data any
}

// FieldObj is installed in a class's method/static table in place of a
// plain value when a field has a getter and/or setter (spec §4.8); it is
// never called directly - GET_FIELD/SET_FIELD intercept it.
type FieldObj struct {
	Header
	Name   string
	Getter Value // Null if absent
	Setter Value // Null if absent
}

// ReferenceKind distinguishes the mutable slot a Reference wraps.
type ReferenceKind uint8

const (
	RefGlobal ReferenceKind = iota
	RefPrivate
	RefLocal
	RefUpvalue
	RefField
	RefIndex
)

// ReferenceObj wraps a mutable slot produced by `ref x` and consumed by
// `*ref = v` (spec §3, object.cpp's ObjectReference tagged union).
type ReferenceObj struct {
	Header
	Kind ReferenceKind

	// Module/Index address RefGlobal and RefPrivate slots; Frame-local
	// addressing (RefLocal/RefUpvalue) is resolved by the vm package via
	// Slot, a pointer into whichever backing store currently owns the
	// value (a fiber stack slot, an UpvalueObj, a module private slot).
	Module *ModuleObj
	Index  int
	Slot   *Value
	Cell   *UpvalueObj

	// RefField/RefIndex address a field or array/map element on Recv.
	Recv Value
	Name string // RefField
	Key  Value  // RefIndex
}

// Interp is the minimal surface NativeFunc/NativePrimitive need from the
// interpreter, kept here (rather than importing lang/vm, which would
// cycle back to lang/value) as a narrow capability interface implemented
// by *vm.VM.
type Interp interface {
	Heap() *Heap
	Call(callee Value, args []Value) (Value, error)
	RuntimeError(format string, args ...any) error
	CurrentFiber() *FiberObj
}
