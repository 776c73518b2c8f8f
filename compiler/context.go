package compiler

import (
	"github.com/chazu/quill/pkg/ast"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/symbols"
)

// ---------------------------------------------------------------------------
// Contexts: the compilation state shared across the pipeline stages
// ---------------------------------------------------------------------------

// TypeContext is shared across all procedures of one type. The literal
// catalog's insertion order and the constant table's key order define the
// indices the bytecode refers to.
type TypeContext struct {
	Literals  *symbols.Catalog
	Constants *symbols.Table
}

// NewTypeContext creates an empty type context.
func NewTypeContext() *TypeContext {
	return &TypeContext{
		Literals:  symbols.NewCatalog(),
		Constants: symbols.NewTable(),
	}
}

// InternLiteral canonicalises a literal's source text and interns the
// value, returning its 1-based index.
func (t *TypeContext) InternLiteral(text string) int {
	return t.Literals.Intern(ast.CanonicalLiteral(text))
}

// TargetVariable is always present in a procedure's variable table; the
// processor binds it to the message target before the first instruction.
const TargetVariable = "$target"

// ResultVariable accumulates the value of bare evaluations and is loaded
// by the finaliser.
const ResultVariable = "$$result"

// EventQueueVariable names the queue publish statements store to.
const EventQueueVariable = "$$eventQueue"

// ProcedureContext is the compilation output for one procedure: the
// interned symbol tables, the label address table, the assembly in both
// symbolic and textual form, and finally the packed bytecode.
type ProcedureContext struct {
	Parameters *symbols.Catalog
	Variables  *symbols.Catalog
	Procedures *symbols.Catalog

	// Addresses maps each label to the 1-based address of the
	// instruction it is bound to.
	Addresses map[string]int

	Instructions []bytecode.Instruction
	Assembly     string
	Bytecode     []bytecode.Word
}

// NewProcedureContext creates a procedure context for the given parameter
// symbols (bare names; the `$` prefix is applied here).
func NewProcedureContext(parameters ...string) *ProcedureContext {
	params := symbols.NewCatalog()
	for _, name := range parameters {
		params.Intern(symbolFor(name))
	}
	return &ProcedureContext{
		Parameters: params,
		Variables:  symbols.NewCatalog(TargetVariable),
		Procedures: symbols.NewCatalog(),
		Addresses:  make(map[string]int),
	}
}

// symbolFor prefixes a bare identifier with `$`, leaving already-prefixed
// symbols untouched.
func symbolFor(name string) string {
	if len(name) > 0 && name[0] == '$' {
		return name
	}
	return "$" + name
}
