// Package bytecode defines the instruction model for the stack-oriented
// virtual processor: the eight operations, their modifier taxonomies, the
// symbolic instruction form, and the packed 16-bit word encoding.
package bytecode

import "fmt"

// Operation is one of the eight machine operations. SKIP is the all-zero
// degenerate of JUMP: jump addresses are 1-based, so opcode JUMP with a
// zero operand can never be a real jump and the processor fast-paths it.
type Operation uint8

const (
	OpJump Operation = iota
	OpPush
	OpPop
	OpLoad
	OpStore
	OpInvoke
	OpExecute
	OpHandle
)

// Modifier refines an operation. Each operation interprets the two
// modifier bits through its own taxonomy; for INVOKE the modifier is the
// literal argument count (0..3).
type Modifier uint8

// JUMP modifiers.
const (
	JumpAny Modifier = iota
	JumpOnNone
	JumpOnTrue
	JumpOnFalse
)

// PUSH modifiers.
const (
	PushHandler Modifier = iota
	PushLiteral
	PushConstant
	PushParameter
)

// POP modifiers.
const (
	PopHandler Modifier = iota
	PopComponent
)

// LOAD and STORE share one modifier taxonomy naming the operand space.
const (
	OnVariable Modifier = iota
	OnMessage
	OnDraft
	OnDocument
)

// EXECUTE modifiers.
const (
	WithNothing Modifier = iota
	WithArguments
	OnTarget
	OnTargetWithArguments
)

// HANDLE modifiers.
const (
	HandleException Modifier = iota
	HandleResult
)

// MaxArguments is the most arguments an INVOKE can pass; the modifier
// field holds the count directly.
const MaxArguments = 3

// OperationInfo provides metadata about each operation.
type OperationInfo struct {
	Name        string   // mnemonic
	Modifiers   []string // modifier names indexed by modifier value; nil for INVOKE
	HasOperand  bool     // whether the operand field is meaningful
	LabelValued bool     // whether the operand names a label rather than a symbol
}

var operationInfoTable = map[Operation]OperationInfo{
	OpJump:    {"JUMP", []string{"", "ON NONE", "ON TRUE", "ON FALSE"}, true, true},
	OpPush:    {"PUSH", []string{"HANDLER", "LITERAL", "CONSTANT", "PARAMETER"}, true, false},
	OpPop:     {"POP", []string{"HANDLER", "COMPONENT"}, false, false},
	OpLoad:    {"LOAD", []string{"VARIABLE", "MESSAGE", "DRAFT", "DOCUMENT"}, true, false},
	OpStore:   {"STORE", []string{"VARIABLE", "MESSAGE", "DRAFT", "DOCUMENT"}, true, false},
	OpInvoke:  {"INVOKE", nil, true, false},
	OpExecute: {"EXECUTE", []string{"", "WITH ARGUMENTS", "ON TARGET", "ON TARGET WITH ARGUMENTS"}, true, false},
	OpHandle:  {"HANDLE", []string{"EXCEPTION", "RESULT"}, false, false},
}

// GetOperationInfo returns metadata for an operation.
func GetOperationInfo(op Operation) OperationInfo {
	if info, ok := operationInfoTable[op]; ok {
		return info
	}
	return OperationInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint8(op))}
}

// String returns the mnemonic of an operation.
func (op Operation) String() string {
	return GetOperationInfo(op).Name
}

// ModifierName returns the canonical text of a modifier under this
// operation, or "" when the modifier is the zero default.
func (op Operation) ModifierName(m Modifier) string {
	info := GetOperationInfo(op)
	if info.Modifiers == nil || int(m) >= len(info.Modifiers) {
		return ""
	}
	return info.Modifiers[m]
}

// AllOperations returns the defined operations.
func AllOperations() []Operation {
	ops := make([]Operation, 0, len(operationInfoTable))
	for op := range operationInfoTable {
		ops = append(ops, op)
	}
	return ops
}
