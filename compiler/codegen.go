package compiler

import (
	"strconv"

	"github.com/chazu/quill/pkg/ast"
	"github.com/chazu/quill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: compile a procedure syntax tree to symbolic instructions
// ---------------------------------------------------------------------------

// Intrinsic symbols for operator expressions.
var arithmeticIntrinsics = map[string]string{
	"+": "$sum",
	"-": "$difference",
	"*": "$product",
	"/": "$quotient",
	"%": "$remainder",
}

var comparisonIntrinsics = map[string]string{
	"<":       "$isLessThan",
	"=":       "$isEqualTo",
	">":       "$isMoreThan",
	"is":      "$isSameAs",
	"matches": "$isMatchedBy",
}

var logicalIntrinsics = map[string]string{
	"and":  "$and",
	"sans": "$sans",
	"xor":  "$xor",
	"or":   "$or",
}

var inversionIntrinsics = map[string]string{
	"-": "$inverse",
	"/": "$reciprocal",
	"*": "$conjugate",
}

// walker compiles one procedure tree by dispatching on node kinds and
// driving the instruction builder.
type walker struct {
	types   *TypeContext
	context *ProcedureContext
	builder *Builder
	temps   int
}

// CompileProcedure compiles a procedure syntax tree against a type
// context, returning the sealed procedure context with its symbolic
// instructions and canonical assembly text. The parameters are the
// procedure's declared parameter names in order.
func CompileProcedure(types *TypeContext, procedure *ast.Node, parameters ...string) (*ProcedureContext, error) {
	if err := Validate(procedure); err != nil {
		return nil, err
	}
	context := NewProcedureContext(parameters...)
	w := &walker{
		types:   types,
		context: context,
		builder: NewBuilder(types, context),
	}
	if err := w.compileBlock(procedure); err != nil {
		return nil, err
	}
	w.builder.Finalize()
	context.Instructions = w.builder.Instructions()
	context.Assembly = Format(context.Instructions, 0)
	return context, nil
}

// newTemporary allocates a fresh `$$<kind>-<n>` temporary variable name.
func (w *walker) newTemporary(kind string) string {
	w.temps++
	return "$$" + kind + "-" + strconv.Itoa(w.temps)
}

// compileBlock compiles a procedure node (the whole procedure or a
// nested block) inside its own frame.
func (w *walker) compileBlock(procedure *ast.Node) error {
	w.builder.PushProcedureContext(procedure)
	for _, statement := range procedure.Children {
		if err := w.compileStatement(statement); err != nil {
			return err
		}
	}
	w.builder.PopProcedureContext()
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// compileStatement wraps the main clause with the statement's label
// scaffolding and, when handle clauses are present, the exception
// handler state machine.
func (w *walker) compileStatement(statement *ast.Node) error {
	b := w.builder
	b.PushStatementContext(statement)
	st := b.Statement()

	b.InsertLabel(st.StartLabel)
	if st.HasHandlers() {
		b.InsertPush(bytecode.PushHandler, st.HandlerLabel)
	}

	if err := w.compileMainClause(st.MainClause); err != nil {
		return err
	}

	if st.HasClauses() || st.HasHandlers() {
		b.InsertLabel(st.DoneLabel)
	}

	if st.HasHandlers() {
		b.InsertPop(bytecode.PopHandler)
		b.InsertJump(st.SuccessLabel, bytecode.JumpAny)
		b.InsertLabel(st.HandlerLabel)
		for i, clause := range st.HandleClauses {
			if err := w.compileHandleClause(clause, i, len(st.HandleClauses)); err != nil {
				return err
			}
		}
		b.InsertLabel(st.FailureLabel)
		b.InsertHandle(bytecode.HandleException)
		b.InsertLabel(st.SuccessLabel)
		// Control continues past the statement at the success label.
		b.requiresFinalization = true
	}

	b.PopStatementContext()
	return nil
}

func (w *walker) compileMainClause(clause *ast.Node) error {
	switch clause.Kind {
	case ast.KindEvaluateClause:
		return w.compileEvaluateClause(clause)
	case ast.KindIfClause:
		return w.compileIfClause(clause)
	case ast.KindSelectClause:
		return w.compileSelectClause(clause)
	case ast.KindWhileClause:
		return w.compileWhileClause(clause)
	case ast.KindWithClause:
		return w.compileWithClause(clause)
	case ast.KindBreakClause:
		return w.compileBreakClause(clause)
	case ast.KindContinueClause:
		return w.compileContinueClause(clause)
	case ast.KindReturnClause:
		return w.compileReturnClause(clause)
	case ast.KindThrowClause:
		return w.compileThrowClause(clause)
	case ast.KindPublishClause:
		return w.compilePublishClause(clause)
	case ast.KindPostClause:
		return w.compilePostClause(clause)
	case ast.KindSaveClause:
		return w.compileSaveClause(clause)
	case ast.KindCommitClause:
		return w.compileCommitClause(clause)
	case ast.KindDiscardClause:
		return w.compileDiscardClause(clause)
	case ast.KindCheckoutClause:
		return w.compileCheckoutClause(clause)
	case ast.KindWaitClause:
		return w.compileWaitClause(clause)
	default:
		return newCompileError(InvalidOperation, clause, "unknown clause kind %q", clause.Kind)
	}
}

func (w *walker) compileEvaluateClause(clause *ast.Node) error {
	if clause.Size() == 2 {
		recipient := clause.Child(1)
		if err := w.prepareRecipient(recipient); err != nil {
			return err
		}
		if err := w.compileExpression(clause.Child(2)); err != nil {
			return err
		}
		return w.assignRecipient(recipient)
	}
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	w.builder.InsertStore(bytecode.OnVariable, ResultVariable)
	return nil
}

func (w *walker) compileIfClause(clause *ast.Node) error {
	b := w.builder
	st := b.Statement()
	pairs := clause.Size() / 2
	hasElse := clause.Size()%2 == 1
	elseLabel := b.StatementLabel("ElseClause")

	for i := 0; i < pairs; i++ {
		condition := clause.Child(2*i + 1)
		block := clause.Child(2*i + 2)

		b.InsertLabel(b.ClauseLabel("ConditionClause"))
		if err := w.compileExpression(condition); err != nil {
			return err
		}

		next := st.DoneLabel
		switch {
		case i < pairs-1:
			next = b.NextClauseLabel("ConditionClause")
		case hasElse:
			next = elseLabel
		}
		b.InsertJump(next, bytecode.JumpOnFalse)

		if err := w.compileBlock(block); err != nil {
			return err
		}
		if i < pairs-1 || hasElse {
			b.InsertJump(st.DoneLabel, bytecode.JumpAny)
		}
	}

	if hasElse {
		b.InsertLabel(elseLabel)
		return w.compileBlock(clause.Child(-1))
	}
	return nil
}

func (w *walker) compileSelectClause(clause *ast.Node) error {
	b := w.builder
	st := b.Statement()

	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	selector := w.newTemporary("selector")
	b.InsertStore(bytecode.OnVariable, selector)

	options := clause.Children[1:]
	pairs := len(options) / 2
	hasElse := len(options)%2 == 1
	elseLabel := b.StatementLabel("ElseClause")

	for i := 0; i < pairs; i++ {
		option := options[2*i]
		block := options[2*i+1]

		b.InsertLabel(b.ClauseLabel("OptionClause"))
		b.InsertLoad(bytecode.OnVariable, selector)
		if err := w.compileExpression(option); err != nil {
			return err
		}
		b.InsertInvoke("$isMatchedBy", 2)

		next := st.DoneLabel
		switch {
		case i < pairs-1:
			next = b.NextClauseLabel("OptionClause")
		case hasElse:
			next = elseLabel
		}
		b.InsertJump(next, bytecode.JumpOnFalse)

		if err := w.compileBlock(block); err != nil {
			return err
		}
		if i < pairs-1 || hasElse {
			b.InsertJump(st.DoneLabel, bytecode.JumpAny)
		}
	}

	if hasElse {
		b.InsertLabel(elseLabel)
		return w.compileBlock(clause.Child(-1))
	}
	return nil
}

func (w *walker) compileWhileClause(clause *ast.Node) error {
	b := w.builder
	st := b.Statement()
	st.LoopLabel = b.StatementLabel("ConditionClause")

	b.InsertLabel(st.LoopLabel)
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertJump(st.DoneLabel, bytecode.JumpOnFalse)
	if err := w.compileBlock(clause.Child(2)); err != nil {
		return err
	}
	b.InsertJump(st.LoopLabel, bytecode.JumpAny)
	return nil
}

func (w *walker) compileWithClause(clause *ast.Node) error {
	b := w.builder
	st := b.Statement()

	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertExecute("$getIterator", bytecode.OnTarget)
	iterator := w.newTemporary("iterator")
	b.InsertStore(bytecode.OnVariable, iterator)

	st.LoopLabel = b.StatementLabel("IterationClause")
	b.InsertLabel(st.LoopLabel)
	b.InsertLoad(bytecode.OnVariable, iterator)
	b.InsertExecute("$hasNext", bytecode.OnTarget)
	b.InsertJump(st.DoneLabel, bytecode.JumpOnFalse)
	b.InsertLoad(bytecode.OnVariable, iterator)
	b.InsertExecute("$getNext", bytecode.OnTarget)
	b.InsertStore(bytecode.OnVariable, symbolFor(clause.Text))

	if err := w.compileBlock(clause.Child(2)); err != nil {
		return err
	}
	b.InsertJump(st.LoopLabel, bytecode.JumpAny)
	return nil
}

func (w *walker) compileBreakClause(clause *ast.Node) error {
	loop := w.builder.EnclosingLoop()
	if loop == nil {
		return newCompileError(NoEnclosingLoop, clause, "break loop outside any loop statement")
	}
	w.builder.InsertJump(loop.DoneLabel, bytecode.JumpAny)
	return nil
}

func (w *walker) compileContinueClause(clause *ast.Node) error {
	loop := w.builder.EnclosingLoop()
	if loop == nil {
		return newCompileError(NoEnclosingLoop, clause, "continue loop outside any loop statement")
	}
	w.builder.InsertJump(loop.LoopLabel, bytecode.JumpAny)
	return nil
}

func (w *walker) compileReturnClause(clause *ast.Node) error {
	if clause.Size() == 1 {
		if err := w.compileExpression(clause.Child(1)); err != nil {
			return err
		}
	} else {
		w.builder.InsertPush(bytecode.PushLiteral, "none")
	}
	w.builder.InsertHandle(bytecode.HandleResult)
	return nil
}

func (w *walker) compileThrowClause(clause *ast.Node) error {
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	w.builder.InsertHandle(bytecode.HandleException)
	return nil
}

func (w *walker) compilePublishClause(clause *ast.Node) error {
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	w.builder.InsertStore(bytecode.OnMessage, EventQueueVariable)
	return nil
}

func (w *walker) compilePostClause(clause *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(clause.Child(2)); err != nil {
		return err
	}
	queue := w.newTemporary("queue")
	b.InsertStore(bytecode.OnVariable, queue)
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertStore(bytecode.OnMessage, queue)
	return nil
}

func (w *walker) compileSaveClause(clause *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(clause.Child(2)); err != nil {
		return err
	}
	location := w.newTemporary("location")
	b.InsertStore(bytecode.OnVariable, location)
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertStore(bytecode.OnDraft, location)
	return nil
}

func (w *walker) compileCommitClause(clause *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(clause.Child(2)); err != nil {
		return err
	}
	location := w.newTemporary("location")
	b.InsertStore(bytecode.OnVariable, location)
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertStore(bytecode.OnDocument, location)
	return nil
}

func (w *walker) compileDiscardClause(clause *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	location := w.newTemporary("location")
	b.InsertStore(bytecode.OnVariable, location)
	b.InsertPush(bytecode.PushLiteral, "none")
	b.InsertStore(bytecode.OnDraft, location)
	return nil
}

func (w *walker) compileCheckoutClause(clause *ast.Node) error {
	b := w.builder
	recipient := clause.Child(1)
	if err := w.prepareRecipient(recipient); err != nil {
		return err
	}
	if err := w.compileExpression(clause.Child(2)); err != nil {
		return err
	}
	location := w.newTemporary("location")
	b.InsertStore(bytecode.OnVariable, location)
	b.InsertLoad(bytecode.OnDocument, location)
	return w.assignRecipient(recipient)
}

func (w *walker) compileWaitClause(clause *ast.Node) error {
	b := w.builder
	recipient := clause.Child(1)
	if err := w.prepareRecipient(recipient); err != nil {
		return err
	}
	if err := w.compileExpression(clause.Child(2)); err != nil {
		return err
	}
	queue := w.newTemporary("queue")
	b.InsertStore(bytecode.OnVariable, queue)
	b.InsertLoad(bytecode.OnMessage, queue)
	return w.assignRecipient(recipient)
}

// compileHandleClause compiles one branch of a statement's handler
// chain. Each branch re-stores the thrown exception, matches it against
// the branch's template, and either runs the branch block or falls
// through to the next branch (or the failure label when last).
func (w *walker) compileHandleClause(clause *ast.Node, index, total int) error {
	b := w.builder
	st := b.Statement()
	b.InsertLabel(b.StatementLabel(strconv.Itoa(index+1) + ".HandleClause"))

	exception := symbolFor(clause.Text)
	b.InsertStore(bytecode.OnVariable, exception)
	b.InsertLoad(bytecode.OnVariable, exception)
	b.InsertLoad(bytecode.OnVariable, exception)
	if err := w.compileExpression(clause.Child(1)); err != nil {
		return err
	}
	b.InsertInvoke("$isMatchedBy", 2)

	next := st.FailureLabel
	if index < total-1 {
		next = b.StatementLabel(strconv.Itoa(index+2) + ".HandleClause")
	}
	b.InsertJump(next, bytecode.JumpOnFalse)

	b.InsertPop(bytecode.PopComponent)
	if err := w.compileBlock(clause.Child(2)); err != nil {
		return err
	}
	b.InsertJump(st.SuccessLabel, bytecode.JumpAny)
	return nil
}

// ---------------------------------------------------------------------------
// Recipients
// ---------------------------------------------------------------------------

// prepareRecipient emits the preparatory instructions for an assignment
// target. Bare symbols need none; a subcomponent recipient compiles its
// composite, hops over all but the final index, and builds the singleton
// list the final index and assigned value travel in.
func (w *walker) prepareRecipient(recipient *ast.Node) error {
	if recipient.Kind != ast.KindSubcomponent {
		return nil
	}
	if err := w.compileExpression(recipient.Child(1)); err != nil {
		return err
	}
	indices := recipient.Children[1:]
	for _, index := range indices[:len(indices)-1] {
		if err := w.compileIndexHop(index); err != nil {
			return err
		}
	}
	b := w.builder
	b.InsertInvoke("$list", 0)
	if err := w.compileExpression(indices[len(indices)-1]); err != nil {
		return err
	}
	b.InsertInvoke("$addItem", 2)
	return nil
}

// assignRecipient pops the assigned value into the recipient.
func (w *walker) assignRecipient(recipient *ast.Node) error {
	b := w.builder
	switch recipient.Kind {
	case ast.KindVariable:
		b.InsertStore(bytecode.OnVariable, symbolFor(recipient.Text))
		return nil
	case ast.KindSubcomponent:
		b.InsertInvoke("$addItem", 2)
		b.InsertInvoke("$parameters", 1)
		b.InsertExecute("$setSubcomponent", bytecode.OnTargetWithArguments)
		return nil
	default:
		return newCompileError(InvalidOperation, recipient, "invalid recipient kind %q", recipient.Kind)
	}
}

// compileIndexHop replaces the parent on the stack with the child the
// index addresses.
func (w *walker) compileIndexHop(index *ast.Node) error {
	b := w.builder
	b.InsertInvoke("$list", 0)
	if err := w.compileExpression(index); err != nil {
		return err
	}
	b.InsertInvoke("$addItem", 2)
	b.InsertInvoke("$parameters", 1)
	b.InsertExecute("$getSubcomponent", bytecode.OnTargetWithArguments)
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (w *walker) compileExpression(expression *ast.Node) error {
	b := w.builder
	switch expression.Kind {
	case ast.KindLiteral:
		b.InsertPush(bytecode.PushLiteral, expression.Text)
		return w.compileElementParameters(expression)

	case ast.KindSourceBlock:
		b.InsertPush(bytecode.PushLiteral, "{"+expression.Text+"}")
		return w.compileElementParameters(expression)

	case ast.KindVariable:
		symbol := symbolFor(expression.Text)
		switch {
		case w.context.Parameters.Contains(symbol):
			b.InsertPush(bytecode.PushParameter, symbol)
		case w.types.Constants.IndexOf(symbol) > 0:
			b.InsertPush(bytecode.PushConstant, symbol)
		default:
			b.InsertLoad(bytecode.OnVariable, symbol)
		}
		return nil

	case ast.KindArithmetic:
		return w.compileOperator(expression, arithmeticIntrinsics)
	case ast.KindComparison:
		return w.compileOperator(expression, comparisonIntrinsics)
	case ast.KindLogical:
		return w.compileOperator(expression, logicalIntrinsics)
	case ast.KindInversion:
		return w.compileOperator(expression, inversionIntrinsics)

	case ast.KindConcatenation:
		return w.compileIntrinsic(expression, "$concatenation")
	case ast.KindExponential:
		return w.compileIntrinsic(expression, "$exponential")
	case ast.KindFactorial:
		return w.compileIntrinsic(expression, "$factorial")
	case ast.KindComplement:
		return w.compileIntrinsic(expression, "$complement")
	case ast.KindMagnitude:
		return w.compileIntrinsic(expression, "$magnitude")
	case ast.KindDefault:
		return w.compileIntrinsic(expression, "$default")

	case ast.KindDereference:
		if err := w.compileExpression(expression.Child(1)); err != nil {
			return err
		}
		location := w.newTemporary("location")
		b.InsertStore(bytecode.OnVariable, location)
		b.InsertLoad(bytecode.OnDocument, location)
		return nil

	case ast.KindFunctionCall:
		return w.compileFunctionCall(expression)

	case ast.KindMessageCall:
		return w.compileMessageCall(expression)

	case ast.KindCollection:
		return w.compileCollection(expression)

	case ast.KindRange:
		return w.compileRange(expression)

	case ast.KindAssociation:
		return w.compileIntrinsic(expression, "$association")

	case ast.KindSubcomponent:
		if err := w.compileExpression(expression.Child(1)); err != nil {
			return err
		}
		for _, index := range expression.Children[1:] {
			if err := w.compileIndexHop(index); err != nil {
				return err
			}
		}
		return nil

	default:
		return newCompileError(InvalidOperation, expression, "unknown expression kind %q", expression.Kind)
	}
}

// compileElementParameters emits the parameterisation of an element.
func (w *walker) compileElementParameters(element *ast.Node) error {
	if element.Parameters == nil {
		return nil
	}
	if err := w.compileExpression(element.Parameters); err != nil {
		return err
	}
	w.builder.InsertInvoke("$setParameters", 2)
	return nil
}

// compileOperator compiles the operands left to right and invokes the
// intrinsic the operator maps to.
func (w *walker) compileOperator(expression *ast.Node, table map[string]string) error {
	intrinsic, ok := table[expression.Operator]
	if !ok {
		return newCompileError(InvalidOperation, expression,
			"unknown %s operator %q", expression.Kind, expression.Operator)
	}
	return w.compileIntrinsic(expression, intrinsic)
}

// compileIntrinsic compiles all operands then invokes the intrinsic.
func (w *walker) compileIntrinsic(expression *ast.Node, intrinsic string) error {
	for _, operand := range expression.Children {
		if err := w.compileExpression(operand); err != nil {
			return err
		}
	}
	w.builder.InsertInvoke(intrinsic, expression.Size())
	return nil
}

func (w *walker) compileFunctionCall(call *ast.Node) error {
	if call.Size() > bytecode.MaxArguments {
		return newCompileError(TooManyArguments, call,
			"function $%s called with %d arguments; at most %d are supported",
			call.Text, call.Size(), bytecode.MaxArguments)
	}
	for _, argument := range call.Children {
		if err := w.compileArgument(argument); err != nil {
			return err
		}
	}
	w.builder.InsertInvoke(symbolFor(call.Text), call.Size())
	return nil
}

func (w *walker) compileMessageCall(call *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(call.Child(1)); err != nil {
		return err
	}
	arguments := call.Children[1:]
	if len(arguments) == 0 {
		b.InsertExecute(symbolFor(call.Text), bytecode.OnTarget)
		return nil
	}
	if err := w.compileArgumentList(arguments); err != nil {
		return err
	}
	b.InsertExecute(symbolFor(call.Text), bytecode.OnTargetWithArguments)
	return nil
}

// compileArgumentList builds the arguments as a list and wraps it as a
// parameters container.
func (w *walker) compileArgumentList(arguments []*ast.Node) error {
	b := w.builder
	b.InsertInvoke("$list", 0)
	for _, argument := range arguments {
		if err := w.compileArgument(argument); err != nil {
			return err
		}
		b.InsertInvoke("$addItem", 2)
	}
	b.InsertInvoke("$parameters", 1)
	return nil
}

// compileArgument compiles one call-site argument. Named arguments
// contribute their value only.
func (w *walker) compileArgument(argument *ast.Node) error {
	if argument.Kind == ast.KindAssociation {
		return w.compileExpression(argument.Child(2))
	}
	return w.compileExpression(argument)
}

func (w *walker) compileCollection(collection *ast.Node) error {
	b := w.builder
	constructor := symbolFor(collection.Text)
	if collection.Parameters != nil {
		if err := w.compileExpression(collection.Parameters); err != nil {
			return err
		}
		b.InsertInvoke(constructor, 1)
	} else {
		b.InsertInvoke(constructor, 0)
	}
	for _, item := range collection.Items() {
		if item.Kind == ast.KindAssociation {
			if err := w.compileExpression(item.Child(1)); err != nil {
				return err
			}
			if err := w.compileExpression(item.Child(2)); err != nil {
				return err
			}
			b.InsertInvoke("$association", 2)
		} else {
			if err := w.compileExpression(item); err != nil {
				return err
			}
		}
		b.InsertInvoke("$addItem", 2)
	}
	return nil
}

func (w *walker) compileRange(rng *ast.Node) error {
	b := w.builder
	if err := w.compileExpression(rng.Child(1)); err != nil {
		return err
	}
	if err := w.compileExpression(rng.Child(2)); err != nil {
		return err
	}
	if rng.Parameters != nil {
		if err := w.compileExpression(rng.Parameters); err != nil {
			return err
		}
		b.InsertInvoke("$range", 3)
		return nil
	}
	b.InsertInvoke("$range", 2)
	return nil
}
