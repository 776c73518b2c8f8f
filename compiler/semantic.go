package compiler

import (
	"github.com/chazu/quill/pkg/ast"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: pre-codegen structural checks
// ---------------------------------------------------------------------------

// clauseShape records the child arity a main clause must carry.
type clauseShape struct {
	min, max  int
	recipient int // 1-based child index that must be a recipient, 0 if none
}

var clauseShapes = map[ast.Kind]clauseShape{
	ast.KindEvaluateClause: {1, 2, 0}, // recipient checked separately
	ast.KindIfClause:       {2, -1, 0},
	ast.KindSelectClause:   {3, -1, 0},
	ast.KindWhileClause:    {2, 2, 0},
	ast.KindWithClause:     {2, 2, 0},
	ast.KindBreakClause:    {0, 0, 0},
	ast.KindContinueClause: {0, 0, 0},
	ast.KindReturnClause:   {0, 1, 0},
	ast.KindThrowClause:    {1, 1, 0},
	ast.KindPublishClause:  {1, 1, 0},
	ast.KindPostClause:     {2, 2, 0},
	ast.KindSaveClause:     {2, 2, 0},
	ast.KindCommitClause:   {2, 2, 0},
	ast.KindDiscardClause:  {1, 1, 0},
	ast.KindCheckoutClause: {2, 2, 1},
	ast.KindWaitClause:     {2, 2, 1},
}

// Validate checks that a procedure tree is structurally sound before
// code generation: every statement carries a known main clause with the
// right child arity, handle clauses name their exception symbol, and
// assignment targets are recipients. The walker can then emit without
// re-checking shapes.
func Validate(procedure *ast.Node) error {
	return validateProcedure(procedure)
}

func validateProcedure(procedure *ast.Node) error {
	if procedure.Kind != ast.KindProcedure {
		return semanticError(procedure, "expected a procedure, got %q", procedure.Kind)
	}
	for _, statement := range procedure.Children {
		if err := validateStatement(statement); err != nil {
			return err
		}
	}
	return nil
}

func validateStatement(statement *ast.Node) error {
	if statement.Kind != ast.KindStatement || statement.Size() == 0 {
		return semanticError(statement, "malformed statement")
	}
	if err := validateMainClause(statement.Child(1)); err != nil {
		return err
	}
	for _, handler := range statement.Children[1:] {
		if err := validateHandleClause(handler); err != nil {
			return err
		}
	}
	return nil
}

func validateMainClause(clause *ast.Node) error {
	shape, ok := clauseShapes[clause.Kind]
	if !ok {
		return semanticError(clause, "unknown clause kind %q", clause.Kind)
	}
	if clause.Size() < shape.min || (shape.max >= 0 && clause.Size() > shape.max) {
		return semanticError(clause, "%s has %d children", clause.Kind, clause.Size())
	}
	if shape.recipient > 0 && !clause.Child(shape.recipient).IsRecipient() {
		return semanticError(clause, "%s target is not a recipient", clause.Kind)
	}

	switch clause.Kind {
	case ast.KindEvaluateClause:
		if clause.Size() == 2 && !clause.Child(1).IsRecipient() {
			return semanticError(clause, "assignment target is not a recipient")
		}
	case ast.KindWithClause:
		if clause.Text == "" {
			return semanticError(clause, "with-each clause names no item symbol")
		}
	}

	// Recurse into the clause's blocks.
	for _, child := range clause.Children {
		if child.Kind == ast.KindProcedure {
			if err := validateProcedure(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateHandleClause(handler *ast.Node) error {
	if handler.Kind != ast.KindHandleClause {
		return semanticError(handler, "expected a handle clause, got %q", handler.Kind)
	}
	if handler.Text == "" {
		return semanticError(handler, "handle clause names no exception symbol")
	}
	if handler.Size() != 2 {
		return semanticError(handler, "handle clause has %d children", handler.Size())
	}
	if handler.Child(2).Kind != ast.KindProcedure {
		return semanticError(handler, "handle clause has no block")
	}
	return validateProcedure(handler.Child(2))
}

func semanticError(node *ast.Node, format string, args ...any) *Error {
	err := newCompileError(InvalidOperation, node, format, args...)
	err.Module = "/compiler/semantic"
	return err
}
