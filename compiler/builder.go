package compiler

import (
	"strconv"

	"github.com/chazu/quill/pkg/ast"
	"github.com/chazu/quill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Builder: symbolic instruction emission with label bookkeeping
// ---------------------------------------------------------------------------

// statementContext is the per-statement record the walker reads its
// labels from. The labels derive from the enclosing frame's lineage
// prefix and the statement's kind, which makes them unique across the
// procedure by construction.
type statementContext struct {
	MainClause    *ast.Node
	HandleClauses []*ast.Node
	Subclauses    []*ast.Node
	ClauseCount   int
	ClauseNumber  int

	StartLabel   string
	DoneLabel    string
	HandlerLabel string
	FailureLabel string
	SuccessLabel string

	// LoopLabel is set by while and with-each emission; break and
	// continue search enclosing statements for it.
	LoopLabel string
}

// HasClauses reports whether the statement's main clause carries nested
// blocks.
func (s *statementContext) HasClauses() bool {
	return len(s.Subclauses) > 0
}

// HasHandlers reports whether the statement carries handle clauses.
func (s *statementContext) HasHandlers() bool {
	return len(s.HandleClauses) > 0
}

// procedureFrame tracks one level of block nesting.
type procedureFrame struct {
	statementNumber int
	statementCount  int
	prefix          string // dot-separated lineage, "" at the root
	statement       *statementContext
}

// Builder accumulates symbolic instructions for one procedure, tracking
// the 1-based address counter, the frame stack, and at most one pending
// label.
type Builder struct {
	types   *TypeContext
	context *ProcedureContext

	address      int
	frames       []*procedureFrame
	pendingLabel string
	instructions []bytecode.Instruction

	// requiresFinalization is true whenever the tail of the procedure
	// has not already transferred control away.
	requiresFinalization bool
}

// NewBuilder creates a builder targeting the given contexts.
func NewBuilder(types *TypeContext, context *ProcedureContext) *Builder {
	return &Builder{
		types:                types,
		context:              context,
		address:              1,
		requiresFinalization: true,
	}
}

// Instructions returns the emitted instruction list.
func (b *Builder) Instructions() []bytecode.Instruction {
	return b.instructions
}

// frame returns the innermost procedure frame.
func (b *Builder) frame() *procedureFrame {
	return b.frames[len(b.frames)-1]
}

// Statement returns the innermost statement context.
func (b *Builder) Statement() *statementContext {
	return b.frame().statement
}

// PushProcedureContext enters a procedure or nested block. When a parent
// frame exists the child prefix extends the parent's lineage with the
// parent's statement and clause numbers, and the parent's clause number
// advances.
func (b *Builder) PushProcedureContext(procedure *ast.Node) {
	prefix := ""
	if len(b.frames) > 0 {
		parent := b.frame()
		statement := parent.statement
		prefix = parent.prefix + strconv.Itoa(parent.statementNumber) + "." +
			strconv.Itoa(statement.ClauseNumber) + "."
		statement.ClauseNumber++
	}
	b.frames = append(b.frames, &procedureFrame{
		statementNumber: 1,
		statementCount:  procedure.Size(),
		prefix:          prefix,
	})
}

// PopProcedureContext leaves the innermost procedure frame.
func (b *Builder) PopProcedureContext() {
	b.frames = b.frames[:len(b.frames)-1]
}

// PushStatementContext enters a statement, deriving its labels from the
// frame prefix and the main clause's kind.
func (b *Builder) PushStatementContext(statement *ast.Node) {
	frame := b.frame()
	mainClause := statement.Child(1)
	start := frame.prefix + strconv.Itoa(frame.statementNumber) + "." +
		mainClause.Kind.StatementName()

	var subclauses []*ast.Node
	for _, child := range mainClause.Children {
		if child.Kind == ast.KindProcedure {
			subclauses = append(subclauses, child)
		}
	}

	frame.statement = &statementContext{
		MainClause:    mainClause,
		HandleClauses: statement.Children[1:],
		Subclauses:    subclauses,
		ClauseCount:   len(subclauses),
		ClauseNumber:  1,
		StartLabel:    start,
		DoneLabel:     start + "Done",
		HandlerLabel:  start + "Handlers",
		FailureLabel:  start + "Failed",
		SuccessLabel:  start + "Succeeded",
	}
	b.requiresFinalization = true
}

// PopStatementContext leaves the current statement and advances the
// frame's statement number.
func (b *Builder) PopStatementContext() {
	frame := b.frame()
	frame.statement = nil
	frame.statementNumber++
}

// ClauseLabel derives a clause label from the current statement's
// lineage and clause number, e.g. "2.3.1.1.ConditionClause".
func (b *Builder) ClauseLabel(suffix string) string {
	frame := b.frame()
	return frame.prefix + strconv.Itoa(frame.statementNumber) + "." +
		strconv.Itoa(frame.statement.ClauseNumber) + "." + suffix
}

// NextClauseLabel derives the label the clause after the current one
// will receive, for forward jumps emitted before the intervening block
// advances the clause number.
func (b *Builder) NextClauseLabel(suffix string) string {
	frame := b.frame()
	return frame.prefix + strconv.Itoa(frame.statementNumber) + "." +
		strconv.Itoa(frame.statement.ClauseNumber+1) + "." + suffix
}

// StatementLabel derives an unnumbered per-statement label, e.g.
// "2.3.ElseClause".
func (b *Builder) StatementLabel(suffix string) string {
	frame := b.frame()
	return frame.prefix + strconv.Itoa(frame.statementNumber) + "." + suffix
}

// EnclosingLoop walks the frame stack outward for the nearest statement
// carrying a loop label.
func (b *Builder) EnclosingLoop() *statementContext {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if s := b.frames[i].statement; s != nil && s.LoopLabel != "" {
			return s
		}
	}
	return nil
}

// InsertLabel binds a label to the next emitted instruction. When a
// label is already pending a SKIP is emitted first so both labels
// resolve to consecutive addresses.
func (b *Builder) InsertLabel(label string) {
	if b.pendingLabel != "" {
		b.InsertSkip()
	}
	b.pendingLabel = label
}

// InsertInstruction appends an instruction, binding any pending label to
// its address.
func (b *Builder) InsertInstruction(instruction bytecode.Instruction) {
	if b.pendingLabel != "" {
		instruction.Label = b.pendingLabel
		b.context.Addresses[b.pendingLabel] = b.address
		b.pendingLabel = ""
	}
	b.instructions = append(b.instructions, instruction)
	b.address++
	b.requiresFinalization = !instruction.Terminates()
}

// InsertSkip emits a SKIP instruction.
func (b *Builder) InsertSkip() {
	b.InsertInstruction(bytecode.Instruction{Operation: bytecode.OpJump})
}

// InsertJump emits a jump to a label, conditioned by the modifier.
func (b *Builder) InsertJump(label string, modifier bytecode.Modifier) {
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpJump,
		Modifier:  modifier,
		Operand:   label,
	})
}

// InsertPush emits a PUSH. Literal operands are interned in the type
// context's literal catalog.
func (b *Builder) InsertPush(modifier bytecode.Modifier, operand string) {
	if modifier == bytecode.PushLiteral {
		b.types.InternLiteral(operand)
	}
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpPush,
		Modifier:  modifier,
		Operand:   operand,
	})
}

// InsertPop emits a POP.
func (b *Builder) InsertPop(modifier bytecode.Modifier) {
	b.InsertInstruction(bytecode.Instruction{Operation: bytecode.OpPop, Modifier: modifier})
}

// InsertLoad emits a LOAD, interning the variable symbol.
func (b *Builder) InsertLoad(modifier bytecode.Modifier, symbol string) {
	b.context.Variables.Intern(symbol)
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpLoad,
		Modifier:  modifier,
		Operand:   symbol,
	})
}

// InsertStore emits a STORE, interning the variable symbol.
func (b *Builder) InsertStore(modifier bytecode.Modifier, symbol string) {
	b.context.Variables.Intern(symbol)
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpStore,
		Modifier:  modifier,
		Operand:   symbol,
	})
}

// InsertInvoke emits an INVOKE of an intrinsic with the given argument
// count.
func (b *Builder) InsertInvoke(symbol string, arguments int) {
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpInvoke,
		Modifier:  bytecode.Modifier(arguments),
		Operand:   symbol,
	})
}

// InsertExecute emits an EXECUTE of a sub-procedure, interning its
// symbol.
func (b *Builder) InsertExecute(symbol string, modifier bytecode.Modifier) {
	b.context.Procedures.Intern(symbol)
	b.InsertInstruction(bytecode.Instruction{
		Operation: bytecode.OpExecute,
		Modifier:  modifier,
		Operand:   symbol,
	})
}

// InsertHandle emits a HANDLE.
func (b *Builder) InsertHandle(modifier bytecode.Modifier) {
	b.InsertInstruction(bytecode.Instruction{Operation: bytecode.OpHandle, Modifier: modifier})
}

// Finalize emits the result finaliser when the tail of the procedure has
// not already transferred control away, or when a label is still pending
// and needs an instruction to bind to.
func (b *Builder) Finalize() {
	if !b.requiresFinalization && b.pendingLabel == "" {
		return
	}
	b.InsertLoad(bytecode.OnVariable, ResultVariable)
	b.InsertHandle(bytecode.HandleResult)
}
