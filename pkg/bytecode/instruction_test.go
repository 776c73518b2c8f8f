package bytecode

import "testing"

func TestInstructionString(t *testing.T) {
	tests := []struct {
		inst Instruction
		want string
	}{
		{Instruction{Operation: OpJump}, "SKIP INSTRUCTION"},
		{Instruction{Operation: OpJump, Operand: "1.Loop"}, "JUMP TO 1.Loop"},
		{Instruction{Operation: OpJump, Modifier: JumpOnNone, Operand: "1.Loop"}, "JUMP TO 1.Loop ON NONE"},
		{Instruction{Operation: OpJump, Modifier: JumpOnTrue, Operand: "1.Loop"}, "JUMP TO 1.Loop ON TRUE"},
		{Instruction{Operation: OpJump, Modifier: JumpOnFalse, Operand: "1.Loop"}, "JUMP TO 1.Loop ON FALSE"},
		{Instruction{Operation: OpPush, Modifier: PushHandler, Operand: "1.Handlers"}, "PUSH HANDLER 1.Handlers"},
		{Instruction{Operation: OpPush, Modifier: PushLiteral, Operand: "true"}, "PUSH LITERAL `true`"},
		{Instruction{Operation: OpPush, Modifier: PushConstant, Operand: "$pi"}, "PUSH CONSTANT $pi"},
		{Instruction{Operation: OpPush, Modifier: PushParameter, Operand: "$x"}, "PUSH PARAMETER $x"},
		{Instruction{Operation: OpPop, Modifier: PopHandler}, "POP HANDLER"},
		{Instruction{Operation: OpPop, Modifier: PopComponent}, "POP COMPONENT"},
		{Instruction{Operation: OpLoad, Modifier: OnVariable, Operand: "$x"}, "LOAD VARIABLE $x"},
		{Instruction{Operation: OpLoad, Modifier: OnDocument, Operand: "$x"}, "LOAD DOCUMENT $x"},
		{Instruction{Operation: OpStore, Modifier: OnMessage, Operand: "$q"}, "STORE MESSAGE $q"},
		{Instruction{Operation: OpStore, Modifier: OnDraft, Operand: "$d"}, "STORE DRAFT $d"},
		{Instruction{Operation: OpInvoke, Operand: "$list"}, "INVOKE $list"},
		{Instruction{Operation: OpInvoke, Modifier: 1, Operand: "$factorial"}, "INVOKE $factorial WITH ARGUMENT"},
		{Instruction{Operation: OpInvoke, Modifier: 2, Operand: "$sum"}, "INVOKE $sum WITH 2 ARGUMENTS"},
		{Instruction{Operation: OpInvoke, Modifier: 3, Operand: "$range"}, "INVOKE $range WITH 3 ARGUMENTS"},
		{Instruction{Operation: OpExecute, Operand: "$init"}, "EXECUTE $init"},
		{Instruction{Operation: OpExecute, Modifier: WithArguments, Operand: "$init"}, "EXECUTE $init WITH ARGUMENTS"},
		{Instruction{Operation: OpExecute, Modifier: OnTarget, Operand: "$hasNext"}, "EXECUTE $hasNext ON TARGET"},
		{Instruction{Operation: OpExecute, Modifier: OnTargetWithArguments, Operand: "$getSubcomponent"}, "EXECUTE $getSubcomponent ON TARGET WITH ARGUMENTS"},
		{Instruction{Operation: OpHandle, Modifier: HandleException}, "HANDLE EXCEPTION"},
		{Instruction{Operation: OpHandle, Modifier: HandleResult}, "HANDLE RESULT"},
	}
	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTerminates(t *testing.T) {
	if !(Instruction{Operation: OpHandle, Modifier: HandleResult}).Terminates() {
		t.Error("HANDLE RESULT should terminate")
	}
	if !(Instruction{Operation: OpHandle, Modifier: HandleException}).Terminates() {
		t.Error("HANDLE EXCEPTION should terminate")
	}
	if (Instruction{Operation: OpJump, Operand: "1.Loop"}).Terminates() {
		t.Error("JUMP should not terminate")
	}
}

func TestOperationMetadata(t *testing.T) {
	for _, op := range AllOperations() {
		info := GetOperationInfo(op)
		if info.Name == "" {
			t.Errorf("operation %d has no name", op)
		}
		if op != OpInvoke && info.Modifiers == nil {
			t.Errorf("%s has no modifier taxonomy", info.Name)
		}
	}
	if len(AllOperations()) != 8 {
		t.Errorf("expected 8 operations, got %d", len(AllOperations()))
	}
}
