package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/quill/pkg/ast"
	"github.com/chazu/quill/pkg/bytecode"
)

func TestAssembleReturnLiteral(t *testing.T) {
	types := NewTypeContext()
	context, err := Compile(types, ast.Procedure(clause(ast.KindReturnClause, ast.Literal("true"))))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if len(context.Bytecode) != 2 {
		t.Fatalf("bytecode length = %d, want 2", len(context.Bytecode))
	}

	index := types.Literals.IndexOf("true")
	if index != 1 {
		t.Fatalf("literal index = %d, want 1", index)
	}
	push, _ := bytecode.Pack(bytecode.OpPush, bytecode.PushLiteral, uint16(index))
	handle, _ := bytecode.Pack(bytecode.OpHandle, bytecode.HandleResult, 0)
	if context.Bytecode[0] != push {
		t.Errorf("word[0] = %v, want %v", context.Bytecode[0], push)
	}
	if context.Bytecode[1] != handle {
		t.Errorf("word[1] = %v, want %v", context.Bytecode[1], handle)
	}
}

func TestAssembleEmptyProcedure(t *testing.T) {
	types := NewTypeContext()
	context, err := Compile(types, ast.Procedure())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(context.Bytecode) != 2 {
		t.Errorf("bytecode length = %d, want 2", len(context.Bytecode))
	}
	if got := context.Bytecode[1].Operation(); got != bytecode.OpHandle {
		t.Errorf("final operation = %v, want HANDLE", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	handler := ast.NewText(ast.KindHandleClause, "e", ast.Literal("none"), ast.Procedure())
	statement := ast.Statement(ast.New(ast.KindIfClause,
		ast.Literal("true"), ast.Procedure(clause(ast.KindReturnClause, ast.Literal("1"))),
		ast.Procedure(),
	), handler)
	_, context := compileAssembly(t, ast.Procedure(statement))

	text := Format(context.Instructions, 0)
	steps, err := ParseDocument(text)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if diff := cmp.Diff(context.Instructions, steps); diff != "" {
		t.Errorf("parsed steps differ from compiled instructions (-want +got):\n%s", diff)
	}
	if again := Format(steps, 0); again != text {
		t.Errorf("format(parse(format())) differs:\n%s\n----\n%s", again, text)
	}
}

func TestParseIndentedDocument(t *testing.T) {
	_, context := compileAssembly(t, ast.Procedure(clause(ast.KindReturnClause, ast.Literal("true"))))
	text := Format(context.Instructions, 2)
	if !strings.HasPrefix(text, "        1.ReturnStatement:") {
		t.Fatalf("indented format = %q", text)
	}
	steps, err := ParseDocument(text)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if diff := cmp.Diff(context.Instructions, steps); diff != "" {
		t.Errorf("indented parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMultilineLiteral(t *testing.T) {
	document := "PUSH LITERAL `{\n    return none\n}`\nHANDLE RESULT\n"
	steps, err := ParseDocument(document)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	want := "{\n    return none\n}"
	if steps[0].Operand != want {
		t.Errorf("literal operand = %q, want %q", steps[0].Operand, want)
	}
	if got := Format(steps, 0); got != document {
		t.Errorf("format = %q, want %q", got, document)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     ErrorKind
	}{
		{"undefined jump label", "JUMP TO 1.Missing\n", InvalidReference},
		{"undefined handler label", "PUSH HANDLER 1.Missing\n", InvalidReference},
		{"unknown intrinsic", "INVOKE $bogus WITH 2 ARGUMENTS\n", InvalidReference},
		{"bad argument count", "INVOKE $sum WITH ARGUMENT\n", ArgumentValue},
		{"undefined constant", "PUSH CONSTANT $nope\n", InvalidReference},
		{"undefined parameter", "PUSH PARAMETER $nope\n", InvalidReference},
		{"unknown operation", "FROBNICATE $x\n", InvalidOperation},
		{"malformed jump", "JUMP 1.Loop\n", ParseError},
		{"malformed push", "PUSH NOWHERE $x\n", ParseError},
		{"bare symbol operand", "LOAD VARIABLE x\n", ParseError},
		{"dangling label", "1.Orphan:\n", ParseError},
		{"duplicate label", "1.A:\nSKIP INSTRUCTION\n1.A:\nHANDLE RESULT\n", ParseError},
		{"unterminated literal", "PUSH LITERAL `{\nHANDLE RESULT\n", ParseError},
		{"invoke with too many arguments", "INVOKE $sum WITH 4 ARGUMENTS\n", ParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Assemble(NewTypeContext(), NewProcedureContext(), tt.document)
			if !IsKind(err, tt.want) {
				t.Errorf("error = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestAssembleSkipEncodesAsZero(t *testing.T) {
	context := NewProcedureContext()
	if err := Assemble(NewTypeContext(), context, "SKIP INSTRUCTION\nHANDLE RESULT\n"); err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if context.Bytecode[0] != bytecode.Skip {
		t.Errorf("word[0] = %04X, want 0000", uint16(context.Bytecode[0]))
	}
}

func TestAssembleParameters(t *testing.T) {
	context := NewProcedureContext("x", "y")
	document := "PUSH PARAMETER $y\nHANDLE RESULT\n"
	if err := Assemble(NewTypeContext(), context, document); err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if got := context.Bytecode[0].Operand(); got != 2 {
		t.Errorf("parameter operand = %d, want 2", got)
	}
}

func TestDisassembleInvertsAssemble(t *testing.T) {
	handler := ast.NewText(ast.KindHandleClause, "e", ast.Literal("none"), ast.Procedure())
	statement := ast.Statement(ast.New(ast.KindEvaluateClause, ast.Literal("1")), handler)
	types := NewTypeContext()
	context, err := Compile(types, ast.Procedure(statement))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	instructions, err := Disassemble(types, context)
	if err != nil {
		t.Fatalf("Disassemble() error: %v", err)
	}
	if diff := cmp.Diff(context.Instructions, instructions); diff != "" {
		t.Errorf("disassembly mismatch (-want +got):\n%s", diff)
	}
}
