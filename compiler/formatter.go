package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/intrinsics"
)

// ---------------------------------------------------------------------------
// Formatter: symbolic instructions to canonical assembly text
// ---------------------------------------------------------------------------

// Format renders an instruction list as canonical assembly. Labels
// occupy their own line terminated by a colon, with a blank line before
// each label except at the start of the document. Every line is prefixed
// by the given indentation level times four spaces.
func Format(instructions []bytecode.Instruction, level int) string {
	indent := strings.Repeat("    ", level)
	var sb strings.Builder
	for i, instruction := range instructions {
		if instruction.Label != "" {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(indent)
			sb.WriteString(instruction.Label)
			sb.WriteString(":\n")
		}
		sb.WriteString(indent)
		sb.WriteString(instruction.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Disassembler: packed words back to canonical assembly
// ---------------------------------------------------------------------------

// Disassemble reconstructs the symbolic instruction list from a
// procedure's packed bytecode, resolving operand indices back through
// the context tables. Literal operands come back in the canonical form
// they were interned under (`042` disassembles as `42`), so the result
// equals the assembled steps when every literal was written canonically
// and the tables are intact.
func Disassemble(types *TypeContext, context *ProcedureContext) ([]bytecode.Instruction, error) {
	labels := make(map[int][]string)
	for label, address := range context.Addresses {
		labels[address] = append(labels[address], label)
	}
	for _, names := range labels {
		sort.Strings(names)
	}

	instructions := make([]bytecode.Instruction, 0, len(context.Bytecode))
	for i, word := range context.Bytecode {
		address := i + 1
		instruction, err := disassembleWord(types, context, labels, word)
		if err != nil {
			return nil, err
		}
		if bound := labels[address]; len(bound) > 0 {
			// One label per address: the SKIP insertion policy keeps
			// the compiler from ever binding two.
			instruction.Label = bound[0]
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}

func disassembleWord(types *TypeContext, context *ProcedureContext, labels map[int][]string, word bytecode.Word) (bytecode.Instruction, error) {
	instruction := bytecode.Instruction{
		Operation: word.Operation(),
		Modifier:  word.Modifier(),
	}
	if word.IsSkip() {
		return instruction, nil
	}

	operand := int(word.Operand())
	step := word.String()
	switch word.Operation() {
	case bytecode.OpJump:
		label, err := labelAt(labels, operand, step)
		if err != nil {
			return instruction, err
		}
		instruction.Operand = label

	case bytecode.OpPush:
		switch word.Modifier() {
		case bytecode.PushHandler:
			label, err := labelAt(labels, operand, step)
			if err != nil {
				return instruction, err
			}
			instruction.Operand = label
		case bytecode.PushLiteral:
			value, ok := types.Literals.Value(operand)
			if !ok {
				return instruction, newAssembleError(InvalidReference, step, "literal index %d is not interned", operand)
			}
			instruction.Operand = value
		case bytecode.PushConstant:
			symbols := types.Constants.Symbols()
			if operand < 1 || operand > len(symbols) {
				return instruction, newAssembleError(InvalidReference, step, "constant index %d is not defined", operand)
			}
			instruction.Operand = symbols[operand-1]
		case bytecode.PushParameter:
			value, ok := context.Parameters.Value(operand)
			if !ok {
				return instruction, newAssembleError(InvalidReference, step, "parameter index %d is not defined", operand)
			}
			instruction.Operand = value
		}

	case bytecode.OpLoad, bytecode.OpStore:
		value, ok := context.Variables.Value(operand)
		if !ok {
			return instruction, newAssembleError(InvalidReference, step, "variable index %d is not interned", operand)
		}
		instruction.Operand = value

	case bytecode.OpInvoke:
		name := intrinsics.Name(operand)
		if name == "" {
			return instruction, newAssembleError(InvalidReference, step, "intrinsic index %d is not registered", operand)
		}
		instruction.Operand = name

	case bytecode.OpExecute:
		value, ok := context.Procedures.Value(operand)
		if !ok {
			return instruction, newAssembleError(InvalidReference, step, "sub-procedure index %d is not interned", operand)
		}
		instruction.Operand = value
	}
	return instruction, nil
}

func labelAt(labels map[int][]string, address int, step string) (string, error) {
	bound := labels[address]
	if len(bound) == 0 {
		return "", newAssembleError(InvalidReference, step, "no label bound to address %d", address)
	}
	return bound[0], nil
}

// FormatWords renders packed words for diagnostics, one per line with
// its 1-based address.
func FormatWords(words []bytecode.Word) string {
	var sb strings.Builder
	for i, word := range words {
		fmt.Fprintf(&sb, "%4d: %04X  %s\n", i+1, uint16(word), word)
	}
	return sb.String()
}
