package bytecode

import (
	"fmt"
	"strings"
)

// Instruction is the symbolic form of one machine instruction, as emitted
// by the compiler and re-parsed by the assembler. The operand is textual:
// a label for JUMP and PUSH HANDLER, a `$` symbol for the symbol-valued
// operations, or literal source text for PUSH LITERAL. A JUMP with an
// empty operand is SKIP.
type Instruction struct {
	Label     string // label bound to this instruction, "" when unlabelled
	Operation Operation
	Modifier  Modifier
	Operand   string
}

// IsSkip reports whether the instruction is SKIP.
func (inst Instruction) IsSkip() bool {
	return inst.Operation == OpJump && inst.Operand == ""
}

// Terminates reports whether the instruction transfers control away from
// the procedure.
func (inst Instruction) Terminates() bool {
	return inst.Operation == OpHandle
}

// String renders the instruction's canonical assembly text, without its
// label and without indentation.
func (inst Instruction) String() string {
	var sb strings.Builder
	switch inst.Operation {
	case OpJump:
		if inst.IsSkip() {
			return "SKIP INSTRUCTION"
		}
		sb.WriteString("JUMP TO ")
		sb.WriteString(inst.Operand)
		if name := OpJump.ModifierName(inst.Modifier); name != "" {
			sb.WriteByte(' ')
			sb.WriteString(name)
		}
	case OpPush:
		sb.WriteString("PUSH ")
		sb.WriteString(OpPush.ModifierName(inst.Modifier))
		sb.WriteByte(' ')
		if inst.Modifier == PushLiteral {
			sb.WriteByte('`')
			sb.WriteString(inst.Operand)
			sb.WriteByte('`')
		} else {
			sb.WriteString(inst.Operand)
		}
	case OpPop:
		sb.WriteString("POP ")
		sb.WriteString(OpPop.ModifierName(inst.Modifier))
	case OpLoad, OpStore:
		sb.WriteString(inst.Operation.String())
		sb.WriteByte(' ')
		sb.WriteString(inst.Operation.ModifierName(inst.Modifier))
		sb.WriteByte(' ')
		sb.WriteString(inst.Operand)
	case OpInvoke:
		sb.WriteString("INVOKE ")
		sb.WriteString(inst.Operand)
		switch count := int(inst.Modifier); count {
		case 0:
		case 1:
			sb.WriteString(" WITH ARGUMENT")
		default:
			fmt.Fprintf(&sb, " WITH %d ARGUMENTS", count)
		}
	case OpExecute:
		sb.WriteString("EXECUTE ")
		sb.WriteString(inst.Operand)
		if name := OpExecute.ModifierName(inst.Modifier); name != "" {
			sb.WriteByte(' ')
			sb.WriteString(name)
		}
	case OpHandle:
		sb.WriteString("HANDLE ")
		sb.WriteString(OpHandle.ModifierName(inst.Modifier))
	default:
		fmt.Fprintf(&sb, "UNKNOWN(%d)", uint8(inst.Operation))
	}
	return sb.String()
}
