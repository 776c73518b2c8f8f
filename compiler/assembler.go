package compiler

import (
	"strconv"
	"strings"

	"github.com/chazu/quill/pkg/ast"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/intrinsics"
)

// ---------------------------------------------------------------------------
// Assembler: canonical assembly text to packed bytecode words
// ---------------------------------------------------------------------------

// Assemble re-parses canonical assembly text, resolves every label and
// symbol operand through the context tables, and attaches the packed
// word sequence to the procedure context.
func Assemble(types *TypeContext, context *ProcedureContext, document string) error {
	steps, err := ParseDocument(document)
	if err != nil {
		return err
	}

	addresses := make(map[string]int)
	for i, step := range steps {
		if step.Label == "" {
			continue
		}
		if _, exists := addresses[step.Label]; exists {
			return newAssembleError(ParseError, step.Label, "label %q is defined more than once", step.Label)
		}
		addresses[step.Label] = i + 1
	}
	context.Addresses = addresses

	words := make([]bytecode.Word, 0, len(steps))
	for _, step := range steps {
		word, err := assembleStep(types, context, step)
		if err != nil {
			return err
		}
		words = append(words, word)
	}

	context.Instructions = steps
	context.Bytecode = words
	return nil
}

// Compile runs the whole pipeline for one procedure: tree to symbolic
// assembly, assembly back through the assembler, bytecode attached to
// the returned context.
func Compile(types *TypeContext, procedure *ast.Node, parameters ...string) (*ProcedureContext, error) {
	context, err := CompileProcedure(types, procedure, parameters...)
	if err != nil {
		return nil, err
	}
	if err := Assemble(types, context, context.Assembly); err != nil {
		return nil, err
	}
	return context, nil
}

// assembleStep packs one step record into a machine word.
func assembleStep(types *TypeContext, context *ProcedureContext, step bytecode.Instruction) (bytecode.Word, error) {
	text := step.String()
	pack := func(modifier bytecode.Modifier, operand int) (bytecode.Word, error) {
		if operand > bytecode.MaxOperand {
			return 0, newAssembleError(InvalidReference, text, "operand %d exceeds the encodable range", operand)
		}
		word, err := bytecode.Pack(step.Operation, modifier, uint16(operand))
		if err != nil {
			return 0, newAssembleError(InvalidReference, text, "%v", err)
		}
		return word, nil
	}

	switch step.Operation {
	case bytecode.OpJump:
		if step.IsSkip() {
			return bytecode.Skip, nil
		}
		address, ok := context.Addresses[step.Operand]
		if !ok {
			return 0, newAssembleError(InvalidReference, text, "label %q is not defined", step.Operand)
		}
		return pack(step.Modifier, address)

	case bytecode.OpPush:
		switch step.Modifier {
		case bytecode.PushHandler:
			address, ok := context.Addresses[step.Operand]
			if !ok {
				return 0, newAssembleError(InvalidReference, text, "handler label %q is not defined", step.Operand)
			}
			return pack(step.Modifier, address)
		case bytecode.PushLiteral:
			return pack(step.Modifier, types.InternLiteral(step.Operand))
		case bytecode.PushConstant:
			index := types.Constants.IndexOf(step.Operand)
			if index == 0 {
				return 0, newAssembleError(InvalidReference, text, "constant %q is not defined", step.Operand)
			}
			return pack(step.Modifier, index)
		default:
			index := context.Parameters.IndexOf(step.Operand)
			if index == 0 {
				return 0, newAssembleError(InvalidReference, text, "parameter %q is not defined", step.Operand)
			}
			return pack(step.Modifier, index)
		}

	case bytecode.OpPop, bytecode.OpHandle:
		return pack(step.Modifier, 0)

	case bytecode.OpLoad, bytecode.OpStore:
		return pack(step.Modifier, context.Variables.Intern(step.Operand))

	case bytecode.OpInvoke:
		index := intrinsics.Index(step.Operand)
		if index == 0 {
			return 0, newAssembleError(InvalidReference, text, "intrinsic %q is not registered", step.Operand)
		}
		if !intrinsics.ValidArgumentCount(step.Operand, int(step.Modifier)) {
			return 0, newAssembleError(ArgumentValue, text, "intrinsic %q does not accept %d arguments", step.Operand, step.Modifier)
		}
		return pack(step.Modifier, index)

	case bytecode.OpExecute:
		return pack(step.Modifier, context.Procedures.Intern(step.Operand))

	default:
		return 0, newAssembleError(InvalidOperation, text, "unknown operation %d", step.Operation)
	}
}

// ---------------------------------------------------------------------------
// Parser: canonical assembly text to step records
// ---------------------------------------------------------------------------

var jumpModifiers = map[string]bytecode.Modifier{
	"NONE":  bytecode.JumpOnNone,
	"TRUE":  bytecode.JumpOnTrue,
	"FALSE": bytecode.JumpOnFalse,
}

var pushModifiers = map[string]bytecode.Modifier{
	"HANDLER":   bytecode.PushHandler,
	"CONSTANT":  bytecode.PushConstant,
	"PARAMETER": bytecode.PushParameter,
}

var popModifiers = map[string]bytecode.Modifier{
	"HANDLER":   bytecode.PopHandler,
	"COMPONENT": bytecode.PopComponent,
}

var operandSpaces = map[string]bytecode.Modifier{
	"VARIABLE": bytecode.OnVariable,
	"MESSAGE":  bytecode.OnMessage,
	"DRAFT":    bytecode.OnDraft,
	"DOCUMENT": bytecode.OnDocument,
}

var handleModifiers = map[string]bytecode.Modifier{
	"EXCEPTION": bytecode.HandleException,
	"RESULT":    bytecode.HandleResult,
}

var mnemonics = map[string]bytecode.Operation{
	"SKIP":    bytecode.OpJump,
	"JUMP":    bytecode.OpJump,
	"PUSH":    bytecode.OpPush,
	"POP":     bytecode.OpPop,
	"LOAD":    bytecode.OpLoad,
	"STORE":   bytecode.OpStore,
	"INVOKE":  bytecode.OpInvoke,
	"EXECUTE": bytecode.OpExecute,
	"HANDLE":  bytecode.OpHandle,
}

// ParseDocument parses canonical assembly text into step records with
// their labels attached.
func ParseDocument(document string) ([]bytecode.Instruction, error) {
	lines := strings.Split(document, "\n")
	var steps []bytecode.Instruction
	pending := ""

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		first, _, _ := strings.Cut(line, " ")
		if _, known := mnemonics[first]; !known {
			if strings.HasSuffix(line, ":") {
				label := strings.TrimSuffix(line, ":")
				if label == "" || strings.ContainsAny(label, " \t") {
					return nil, newAssembleError(ParseError, line, "malformed label line")
				}
				if pending != "" {
					return nil, newAssembleError(ParseError, line, "label %q is not bound to an instruction", pending)
				}
				pending = label
				continue
			}
			return nil, newAssembleError(InvalidOperation, line, "unknown operation %q", first)
		}

		// A literal's text may span lines; join until the closing
		// backtick.
		if strings.HasPrefix(line, "PUSH LITERAL `") && !hasClosedLiteral(line) {
			joined := lines[i]
			for {
				i++
				if i >= len(lines) {
					return nil, newAssembleError(ParseError, line, "unterminated literal")
				}
				joined += "\n" + lines[i]
				if strings.HasSuffix(lines[i], "`") {
					break
				}
			}
			line = strings.TrimLeft(joined, " \t")
		}

		step, err := parseInstruction(line)
		if err != nil {
			return nil, err
		}
		step.Label = pending
		pending = ""
		steps = append(steps, step)
	}

	if pending != "" {
		return nil, newAssembleError(ParseError, pending, "label %q is not bound to an instruction", pending)
	}
	return steps, nil
}

// hasClosedLiteral reports whether a PUSH LITERAL line closes its
// backtick on the same line.
func hasClosedLiteral(line string) bool {
	rest := line[len("PUSH LITERAL `"):]
	return strings.HasSuffix(rest, "`")
}

func parseInstruction(line string) (bytecode.Instruction, error) {
	var inst bytecode.Instruction
	fields := strings.Fields(line)
	op := fields[0]

	malformed := func() (bytecode.Instruction, error) {
		return inst, newAssembleError(ParseError, line, "malformed %s instruction", op)
	}

	switch op {
	case "SKIP":
		if len(fields) != 2 || fields[1] != "INSTRUCTION" {
			return malformed()
		}
		inst.Operation = bytecode.OpJump
		return inst, nil

	case "JUMP":
		if len(fields) < 3 || fields[1] != "TO" {
			return malformed()
		}
		inst.Operation = bytecode.OpJump
		inst.Operand = fields[2]
		switch len(fields) {
		case 3:
			inst.Modifier = bytecode.JumpAny
		case 5:
			modifier, ok := jumpModifiers[fields[4]]
			if fields[3] != "ON" || !ok {
				return malformed()
			}
			inst.Modifier = modifier
		default:
			return malformed()
		}
		return inst, nil

	case "PUSH":
		if len(fields) < 3 {
			return malformed()
		}
		inst.Operation = bytecode.OpPush
		if fields[1] == "LITERAL" {
			text, ok := literalText(line)
			if !ok {
				return malformed()
			}
			inst.Modifier = bytecode.PushLiteral
			inst.Operand = text
			return inst, nil
		}
		modifier, ok := pushModifiers[fields[1]]
		if !ok || len(fields) != 3 {
			return malformed()
		}
		inst.Modifier = modifier
		inst.Operand = fields[2]
		if modifier != bytecode.PushHandler {
			return requireSymbol(inst, line)
		}
		return inst, nil

	case "POP":
		modifier, ok := popModifiers[fields[len(fields)-1]]
		if !ok || len(fields) != 2 {
			return malformed()
		}
		inst.Operation = bytecode.OpPop
		inst.Modifier = modifier
		return inst, nil

	case "LOAD", "STORE":
		if len(fields) != 3 {
			return malformed()
		}
		modifier, ok := operandSpaces[fields[1]]
		if !ok {
			return malformed()
		}
		if op == "LOAD" {
			inst.Operation = bytecode.OpLoad
		} else {
			inst.Operation = bytecode.OpStore
		}
		inst.Modifier = modifier
		inst.Operand = fields[2]
		return requireSymbol(inst, line)

	case "INVOKE":
		if len(fields) < 2 {
			return malformed()
		}
		inst.Operation = bytecode.OpInvoke
		inst.Operand = fields[1]
		switch {
		case len(fields) == 2:
			inst.Modifier = 0
		case len(fields) == 4 && fields[2] == "WITH" && fields[3] == "ARGUMENT":
			inst.Modifier = 1
		case len(fields) == 5 && fields[2] == "WITH" && fields[4] == "ARGUMENTS":
			count, err := strconv.Atoi(fields[3])
			if err != nil || count < 2 || count > bytecode.MaxArguments {
				return malformed()
			}
			inst.Modifier = bytecode.Modifier(count)
		default:
			return malformed()
		}
		return requireSymbol(inst, line)

	case "EXECUTE":
		if len(fields) < 2 {
			return malformed()
		}
		inst.Operation = bytecode.OpExecute
		inst.Operand = fields[1]
		rest := strings.Join(fields[2:], " ")
		switch rest {
		case "":
			inst.Modifier = bytecode.WithNothing
		case "WITH ARGUMENTS":
			inst.Modifier = bytecode.WithArguments
		case "ON TARGET":
			inst.Modifier = bytecode.OnTarget
		case "ON TARGET WITH ARGUMENTS":
			inst.Modifier = bytecode.OnTargetWithArguments
		default:
			return malformed()
		}
		return requireSymbol(inst, line)

	case "HANDLE":
		modifier, ok := handleModifiers[fields[len(fields)-1]]
		if !ok || len(fields) != 2 {
			return malformed()
		}
		inst.Operation = bytecode.OpHandle
		inst.Modifier = modifier
		return inst, nil
	}
	return inst, newAssembleError(InvalidOperation, line, "unknown operation %q", op)
}

// literalText extracts the backtick-delimited text of a PUSH LITERAL
// line (which may contain embedded newlines after joining).
func literalText(line string) (string, bool) {
	open := strings.IndexByte(line, '`')
	if open < 0 || !strings.HasSuffix(line, "`") || open == len(line)-1 {
		return "", false
	}
	return line[open+1 : len(line)-1], true
}

// requireSymbol validates that an instruction's operand is a `$` symbol.
func requireSymbol(inst bytecode.Instruction, line string) (bytecode.Instruction, error) {
	if !strings.HasPrefix(inst.Operand, "$") {
		return inst, newAssembleError(ParseError, line, "operand %q is not a symbol", inst.Operand)
	}
	return inst, nil
}
