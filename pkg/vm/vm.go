package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files, keyed by module name (the source
// file's basename, e.g. "Main.vm"), in the VM spec each Jack class is translated to its own
// .vm file (just like Java .class file) that can be handled as its own translation unit
// during the compilation or lowering phases.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Label Declarations and Branching

// In memory representation of a label declaration statement for the VM language.
//
// Labels are scoped to the enclosing function by convention of the source program; the
// lowering phase doesn't enforce this, it emits the name unchanged as an Asm label.
type LabelDecl struct{ Name string }

type JumpType string // Enum to manage the jump condition allowed for a GotoOp

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// In memory representation of a branching operation for the VM language.
//
// 'if-goto' pops the stack's top and jumps only when the popped value is non-zero (true),
// 'goto' is an unconditional jump that doesn't touch the stack at all.
type GotoOp struct {
	Jump  JumpType
	Label string
}

// ----------------------------------------------------------------------------
// Function declaration, call and return

// In memory representation of a function declaration for the VM language.
//
// 'NLocal' tells the codegen phase how many local variable slots to zero-initialize
// right after entering the function, before any of its own instructions run.
type FuncDecl struct {
	Name   string
	NLocal uint8
}

// In memory representation of a function call for the VM language.
//
// The caller is expected to have already pushed the 'NArgs' arguments onto the stack;
// the callee finds them through 'argument' segment once the call is lowered.
type FuncCallOp struct {
	Name  string
	NArgs uint8
}

// In memory representation of a function return for the VM language.
//
// Tears down the callee's frame, restores the caller's segment pointers and resumes
// execution right after the call site, leaving the function's result at the stack's top.
type ReturnOp struct{}
