// Package ast defines the syntax tree consumed by the procedure compiler.
//
// The tree is produced by an external document-notation parser. Nodes are
// deliberately generic: a kind tag, optional text and operator, and an
// ordered child list addressed by 1-based index (negative indices count
// from the end). The compiler dispatches on the kind tag.
package ast

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Node kinds
// ---------------------------------------------------------------------------

// Kind identifies the syntactic shape of a node.
type Kind string

const (
	// Structure
	KindProcedure Kind = "Procedure"
	KindStatement Kind = "Statement"

	// Main clauses
	KindEvaluateClause Kind = "EvaluateClause"
	KindIfClause       Kind = "IfClause"
	KindSelectClause   Kind = "SelectClause"
	KindWhileClause    Kind = "WhileClause"
	KindWithClause     Kind = "WithClause"
	KindBreakClause    Kind = "BreakClause"
	KindContinueClause Kind = "ContinueClause"
	KindReturnClause   Kind = "ReturnClause"
	KindThrowClause    Kind = "ThrowClause"
	KindPublishClause  Kind = "PublishClause"
	KindPostClause     Kind = "PostClause"
	KindSaveClause     Kind = "SaveClause"
	KindCommitClause   Kind = "CommitClause"
	KindDiscardClause  Kind = "DiscardClause"
	KindCheckoutClause Kind = "CheckoutClause"
	KindWaitClause     Kind = "WaitClause"

	// Handler clause (only valid inside a statement's handler chain)
	KindHandleClause Kind = "HandleClause"

	// Expressions
	KindLiteral       Kind = "Literal"
	KindVariable      Kind = "Variable"
	KindArithmetic    Kind = "Arithmetic"
	KindComparison    Kind = "Comparison"
	KindLogical       Kind = "Logical"
	KindConcatenation Kind = "Concatenation"
	KindExponential   Kind = "Exponential"
	KindFactorial     Kind = "Factorial"
	KindComplement    Kind = "Complement"
	KindInversion     Kind = "Inversion"
	KindMagnitude     Kind = "Magnitude"
	KindDefault       Kind = "Default"
	KindDereference   Kind = "Dereference"
	KindFunctionCall  Kind = "FunctionCall"
	KindMessageCall   Kind = "MessageCall"
	KindCollection    Kind = "Collection"
	KindRange         Kind = "Range"
	KindAssociation   Kind = "Association"
	KindSubcomponent  Kind = "Subcomponent"
	KindSourceBlock   Kind = "SourceBlock"
)

// StatementName derives the label component for a statement whose main
// clause has this kind: the kind name with its "Clause" suffix replaced
// by "Statement" ("IfClause" -> "IfStatement").
func (k Kind) StatementName() string {
	return strings.TrimSuffix(string(k), "Clause") + "Statement"
}

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// Node is one vertex of a procedure syntax tree.
type Node struct {
	Kind     Kind
	Text     string  // identifier, symbol, or literal source text
	Operator string  // operator text for operator expressions
	Children []*Node // ordered subtrees

	// Parameters is the optional parameterisation of elements, collections,
	// ranges, and source blocks.
	Parameters *Node
}

// Size returns the number of children.
func (n *Node) Size() int {
	return len(n.Children)
}

// Child returns the child at the given 1-based index. Negative indices
// count from the end (-1 is the last child). Returns nil when the index
// is out of range.
func (n *Node) Child(index int) *Node {
	switch {
	case index > 0 && index <= len(n.Children):
		return n.Children[index-1]
	case index < 0 && -index <= len(n.Children):
		return n.Children[len(n.Children)+index]
	default:
		return nil
	}
}

// Items returns the ordered child list. Collection-like callers range
// over it to visit each item in order.
func (n *Node) Items() []*Node {
	return n.Children
}

// IsRecipient reports whether the node can appear on the left-hand side
// of an assignment.
func (n *Node) IsRecipient() bool {
	return n.Kind == KindVariable || n.Kind == KindSubcomponent
}

// ---------------------------------------------------------------------------
// Constructors
//
// The external parser builds nodes directly; these helpers keep the
// toolchain's own tests and embedders terse.
// ---------------------------------------------------------------------------

// New creates a node of the given kind with the given children.
func New(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewText creates a node of the given kind carrying text and children.
func NewText(kind Kind, text string, children ...*Node) *Node {
	return &Node{Kind: kind, Text: text, Children: children}
}

// NewOperator creates an operator expression node.
func NewOperator(kind Kind, operator string, operands ...*Node) *Node {
	return &Node{Kind: kind, Operator: operator, Children: operands}
}

// Procedure creates a procedure node from a statement list.
func Procedure(statements ...*Node) *Node {
	return New(KindProcedure, statements...)
}

// Statement wraps a main clause and optional handle clauses.
func Statement(mainClause *Node, handleClauses ...*Node) *Node {
	children := append([]*Node{mainClause}, handleClauses...)
	return New(KindStatement, children...)
}

// Literal creates a literal element node from its source text.
func Literal(text string) *Node {
	return NewText(KindLiteral, text)
}

// Variable creates a variable reference node.
func Variable(name string) *Node {
	return NewText(KindVariable, name)
}

// ---------------------------------------------------------------------------
// Literal canonicalisation
// ---------------------------------------------------------------------------

// CanonicalLiteral normalises a literal's source text to its canonical
// value form so that equivalent literals collapse to one table entry.
// Numbers round-trip through their parsed value, booleans and none
// lower-case, and everything else keeps its trimmed source text.
func CanonicalLiteral(text string) string {
	trimmed := strings.TrimSpace(text)
	switch strings.ToLower(trimmed) {
	case "true", "false", "none":
		return strings.ToLower(trimmed)
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return strconv.FormatFloat(f, 'G', -1, 64)
	}
	return trimmed
}
