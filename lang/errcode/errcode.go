// Package errcode enumerates the closed set of compile-time error codes
// raised by the preprocessor, scanner, parser and emitter (spec §6.3). The
// set is stable: codes are never renumbered, only appended to, so that host
// applications can switch on them.
package errcode

// Code identifies a single kind of compile-time error.
type Code int

const (
	// preprocessor
	UnclosedMacro Code = iota
	UnknownMacro

	// scanner
	UnexpectedChar
	UnterminatedString
	InvalidEscapeChar
	InterpolationNestingTooDeep
	NumberIsTooBig
	CharExpectationUnmet

	// parser
	ExpectationUnmet
	InvalidAssignmentTarget
	TooManyFunctionArgs
	MultipleElseBranches
	VarMissingInForIn
	NoGetterAndSetter
	StaticOperator
	SelfInheritedClass
	StaticFieldsAfterMethods
	MissingStatement
	ExpectedExpression
	DefaultArgNotTrailing

	// emitter
	TooManyConstants
	TooManyPrivates
	VarRedefined
	TooManyLocals
	TooManyUpvalues
	VariableUsedInInit
	JumpTooBig
	NoSuper
	ThisMisuse
	SuperMisuse
	UnknownExpression
	UnknownStatement
	LoopJumpMisuse
	ReturnFromConstructor
	StaticConstructor
	ConstantModified
	InvalidReferenceTarget

	maxCode
)

var names = [...]string{
	UnclosedMacro:               "unclosed macro",
	UnknownMacro:                "unknown macro",
	UnexpectedChar:              "unexpected char",
	UnterminatedString:          "unterminated string",
	InvalidEscapeChar:           "invalid escape char",
	InterpolationNestingTooDeep: "interpolation nesting too deep",
	NumberIsTooBig:              "number is too big",
	CharExpectationUnmet:        "char expectation unmet",
	ExpectationUnmet:            "expectation unmet",
	InvalidAssignmentTarget:     "invalid assignment target",
	TooManyFunctionArgs:         "too many function args",
	MultipleElseBranches:        "multiple else branches",
	VarMissingInForIn:           "missing variable in for-in",
	NoGetterAndSetter:           "no getter and no setter",
	StaticOperator:              "operator method cannot be static",
	SelfInheritedClass:          "class cannot inherit from itself",
	StaticFieldsAfterMethods:    "static fields must be declared before methods",
	MissingStatement:            "missing statement",
	ExpectedExpression:          "expected expression",
	DefaultArgNotTrailing:       "default arguments must be trailing",
	TooManyConstants:            "too many constants",
	TooManyPrivates:             "too many privates",
	VarRedefined:                "variable redefined",
	TooManyLocals:               "too many locals",
	TooManyUpvalues:             "too many upvalues",
	VariableUsedInInit:          "variable used in its own initializer",
	JumpTooBig:                  "jump too big",
	NoSuper:                     "no super class",
	ThisMisuse:                  "invalid use of 'this'",
	SuperMisuse:                 "invalid use of 'super'",
	UnknownExpression:           "unknown expression",
	UnknownStatement:            "unknown statement",
	LoopJumpMisuse:              "break/continue outside of a loop",
	ReturnFromConstructor:       "cannot return a value from a constructor",
	StaticConstructor:           "constructor cannot be static",
	ConstantModified:            "assignment to constant variable",
	InvalidReferenceTarget:      "invalid reference target",
}

// String returns the short, human-readable name of the error code.
func (c Code) String() string {
	if c >= 0 && int(c) < len(names) && names[c] != "" {
		return names[c]
	}
	return "unknown error code"
}

// Valid reports whether c is one of the codes declared by this package.
func (c Code) Valid() bool { return c >= 0 && c < maxCode }
