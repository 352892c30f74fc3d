package vm

import (
	"fmt"
	"path/filepath"
	"strings"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Module' (or a whole 'vm.Program') and produces its 'asm.Program'
// counterpart, implementing the full nand2tetris calling convention (function/call/return)
// on top of the eight addressable segments and the nine arithmetic/logical/comparison ops.
//
// 'counter' is shared across the entire translation unit (every module lowered by the same
// Lowerer instance), not reset per file: it's what guarantees comparison and call-site labels
// stay unique even when two modules compare values or call functions the same number of times.
type Lowerer struct {
	scope   string // Static scope of the module currently being lowered (used for 'static' segment labels)
	counter uint64 // Monotonic counter, shared program-wide, used to mint unique label suffixes
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer() *Lowerer {
	return &Lowerer{}
}

// Lowers an entire 'vm.Program' (every module in the translation unit) to a single 'asm.Program'.
// Modules are lowered in the order they're given; callers that need the nand2tetris ordering
// convention (Sys.vm first) should sort 'names' accordingly before calling, see OrderFiles.
func (l *Lowerer) LowerProgram(names []string, program Program) (asm.Program, error) {
	out := asm.Program{}

	for _, name := range names {
		module, ok := program[name]
		if !ok {
			return nil, fmt.Errorf("no such module '%s' in program", name)
		}

		lowered, err := l.LowerModule(strings.TrimSuffix(name, filepath.Ext(name)), module)
		if err != nil {
			return nil, fmt.Errorf("module '%s': %s", name, err)
		}
		out = append(out, lowered...)
	}

	return out, nil
}

// Lowers a single 'vm.Module' to its 'asm.Program' counterpart. 'scope' names the static
// segment of this module (conventionally the file's basename without the '.vm' extension).
func (l *Lowerer) LowerModule(scope string, module Module) (asm.Program, error) {
	l.scope = scope
	out := asm.Program{}

	for i, op := range module {
		var lowered []asm.Instruction
		var err error

		switch tOp := op.(type) {
		case MemoryOp:
			lowered, err = l.lowerMemoryOp(tOp)
		case ArithmeticOp:
			lowered, err = l.lowerArithmeticOp(tOp)
		case LabelDecl:
			lowered, err = l.lowerLabelDecl(tOp)
		case GotoOp:
			lowered, err = l.lowerGotoOp(tOp)
		case FuncDecl:
			lowered, err = l.lowerFuncDecl(tOp)
		case FuncCallOp:
			lowered, err = l.lowerFuncCallOp(tOp)
		case ReturnOp:
			lowered, err = l.lowerReturnOp(tOp)
		default:
			err = fmt.Errorf("unrecognized operation '%T'", op)
		}

		if err != nil {
			return nil, fmt.Errorf("operation %d: %s", i+1, err)
		}
		out = append(out, lowered...)
	}

	return out, nil
}

// Bootstrap produces the fixed preamble that must run before any user code: it sets the
// Stack Pointer to its base location (256) and then performs a regular 'call Sys.init 0',
// so 'Sys.init' returning (if it ever does) lands on a well-formed, if meaningless, frame.
func (l *Lowerer) Bootstrap() (asm.Program, error) {
	prologue := asm.Program{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	call, err := l.lowerFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append(prologue, call...), nil
}

// ----------------------------------------------------------------------------
// Shared instruction sequences

// pushD emits the sequence that pushes the current value of the D register onto the stack.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// popIntoD emits the sequence that pops the stack's top into the D register.
func popIntoD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M-1"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// pushConstant emits the sequence that pushes the literal 'k' onto the stack.
func pushConstant(k uint16) []asm.Instruction {
	seq := []asm.Instruction{
		asm.AInstruction{Location: fmt.Sprint(k)},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	return append(seq, pushD()...)
}

// ----------------------------------------------------------------------------
// Memory operations

// indirectBase names, for the 4 pointer-indirect segments, the Hack register that holds
// the segment's base address.
var indirectBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

func (l *Lowerer) lowerMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		if op.Operation != Push {
			return nil, fmt.Errorf("'constant' segment cannot be popped into")
		}
		return pushConstant(op.Offset), nil

	case Static:
		location := fmt.Sprintf("%s.%d", l.scope, op.Offset)
		return l.directOp(op.Operation, location)

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return l.directOp(op.Operation, fmt.Sprint(5+op.Offset))

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		location := "THIS"
		if op.Offset == 1 {
			location = "THAT"
		}
		return l.directOp(op.Operation, location)

	case Local, Argument, This, That:
		return l.indirectOp(op.Operation, indirectBase[op.Segment], op.Offset)

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}
}

// directOp handles push/pop against a single, fixed memory location (static vars, temp, pointer).
func (l *Lowerer) directOp(operation OperationType, location string) ([]asm.Instruction, error) {
	switch operation {
	case Push:
		seq := []asm.Instruction{
			asm.AInstruction{Location: location},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(seq, pushD()...), nil

	case Pop:
		seq := popIntoD()
		return append(seq,
			asm.AInstruction{Location: location},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	default:
		return nil, fmt.Errorf("unrecognized operation '%s'", operation)
	}
}

// indirectOp handles push/pop against 'base + offset', where base is itself a pointer stored
// at a fixed Hack location (LCL/ARG/THIS/THAT). Pop uses R13 as scratch to stash the target
// address computed before the value is popped off the stack.
func (l *Lowerer) indirectOp(operation OperationType, base string, offset uint16) ([]asm.Instruction, error) {
	switch operation {
	case Push:
		return []asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "A", Comp: "D+M"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}, nil

	case Pop:
		seq := []asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "D+M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		seq = append(seq, popIntoD()...)
		return append(seq,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	default:
		return nil, fmt.Errorf("unrecognized operation '%s'", operation)
	}
}

// ----------------------------------------------------------------------------
// Arithmetic, logical and comparison operations

var unaryOps = map[ArithOpType]string{
	Neg: "-D",
	Not: "!D",
}

var binaryOps = map[ArithOpType]string{
	Add: "D+M",
	Sub: "M-D",
	And: "D&M",
	Or:  "D|M",
}

var comparisonJump = map[ArithOpType]string{
	Eq: "JEQ",
	Gt: "JGT",
	Lt: "JLT",
}

func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	if comp, ok := unaryOps[op.Operation]; ok {
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	if comp, ok := binaryOps[op.Operation]; ok {
		seq := popIntoD()
		return append(seq,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		), nil
	}

	if jump, ok := comparisonJump[op.Operation]; ok {
		return l.lowerComparison(jump)
	}

	return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
}

// lowerComparison emits a compare-and-branch sequence producing -1 (true) or 0 (false) on
// the stack, using a fresh IF/ELSE/END label triple minted from the shared program counter.
func (l *Lowerer) lowerComparison(jump string) ([]asm.Instruction, error) {
	n := l.next()
	ifLabel, elseLabel, endLabel := fmt.Sprintf("IF_%d", n), fmt.Sprintf("ELSE_%d", n), fmt.Sprintf("END_%d", n)

	seq := popIntoD()
	seq = append(seq,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: ifLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: elseLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: ifLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: elseLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.LabelDecl{Name: endLabel},
	)
	return seq, nil
}

// next returns the next value of the shared, program-wide label counter.
func (l *Lowerer) next() uint64 {
	l.counter++
	return l.counter
}

// ----------------------------------------------------------------------------
// Labels, branching, functions

func (l *Lowerer) lowerLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty label declaration")
	}
	return []asm.Instruction{asm.LabelDecl{Name: op.Name}}, nil
}

func (l *Lowerer) lowerGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower goto with empty label")
	}

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: op.Label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	seq := popIntoD()
	return append(seq,
		asm.AInstruction{Location: op.Label},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	), nil
}

// lowerFuncDecl emits the label marking the function's entry point followed by 'NLocal'
// pushes of the constant 0, zero-initializing every local variable slot.
func (l *Lowerer) lowerFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function declaration with empty name")
	}

	out := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		out = append(out, pushConstant(0)...)
	}
	return out, nil
}

// lowerFuncCallOp emits the full call sequence: push a fresh return-address label and the
// caller's LCL/ARG/THIS/THAT, reposition ARG and LCL for the callee, then jump to it.
func (l *Lowerer) lowerFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function call with empty name")
	}

	retLabel := fmt.Sprintf("%s$ret.%d", op.Name, l.next())

	out := []asm.Instruction{
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	out = append(out, pushD()...)

	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		out = append(out, pushD()...)
	}

	out = append(out,
		// ARG = SP - NArgs - 5
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto f
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// (return address)
		asm.LabelDecl{Name: retLabel},
	)

	return out, nil
}

// lowerReturnOp tears down the callee's frame using a dedicated 'FRAME' scratch variable and
// restores the caller's segment pointers one disjoint single-register assignment at a time,
// deliberately avoiding combined destinations like 'MD=D-A' or 'AM=M-1'.
func (l *Lowerer) lowerReturnOp(ReturnOp) ([]asm.Instruction, error) {
	restore := func(offset int, dest string) []asm.Instruction {
		return []asm.Instruction{
			asm.AInstruction{Location: "FRAME"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "A", Comp: "D-A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: dest},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
	}

	out := []asm.Instruction{
		// FRAME = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "FRAME"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// RET = *(FRAME-5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "RET"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG+1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D+1"},
	}

	out = append(out, restore(1, "THAT")...)
	out = append(out, restore(2, "THIS")...)
	out = append(out, restore(3, "ARG")...)
	out = append(out, restore(4, "LCL")...)

	out = append(out,
		asm.AInstruction{Location: "RET"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return out, nil
}
