package ast

import "testing"

func TestChildIndexing(t *testing.T) {
	node := New(KindProcedure,
		Literal("1"),
		Literal("2"),
		Literal("3"),
	)

	if node.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", node.Size())
	}
	if got := node.Child(1).Text; got != "1" {
		t.Errorf("Child(1).Text = %q, want %q", got, "1")
	}
	if got := node.Child(3).Text; got != "3" {
		t.Errorf("Child(3).Text = %q, want %q", got, "3")
	}
	if got := node.Child(-1).Text; got != "3" {
		t.Errorf("Child(-1).Text = %q, want %q", got, "3")
	}
	if got := node.Child(-3).Text; got != "1" {
		t.Errorf("Child(-3).Text = %q, want %q", got, "1")
	}
	if node.Child(0) != nil {
		t.Error("Child(0) should be nil")
	}
	if node.Child(4) != nil {
		t.Error("Child(4) should be nil")
	}
	if node.Child(-4) != nil {
		t.Error("Child(-4) should be nil")
	}
}

func TestStatementName(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindIfClause, "IfStatement"},
		{KindReturnClause, "ReturnStatement"},
		{KindEvaluateClause, "EvaluateStatement"},
		{KindWithClause, "WithStatement"},
	}
	for _, tt := range tests {
		if got := tt.kind.StatementName(); got != tt.want {
			t.Errorf("%s.StatementName() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCanonicalLiteral(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"true", "true"},
		{"TRUE", "true"},
		{" none ", "none"},
		{"42", "42"},
		{"042", "42"},
		{"3.14000", "3.14"},
		{"1e3", "1000"},
		{`"hello"`, `"hello"`},
		{"<quill://example>", "<quill://example>"},
	}
	for _, tt := range tests {
		if got := CanonicalLiteral(tt.text); got != tt.want {
			t.Errorf("CanonicalLiteral(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestIsRecipient(t *testing.T) {
	if !Variable("x").IsRecipient() {
		t.Error("variable should be a recipient")
	}
	sub := New(KindSubcomponent, Variable("x"), Literal("1"))
	if !sub.IsRecipient() {
		t.Error("subcomponent should be a recipient")
	}
	if Literal("1").IsRecipient() {
		t.Error("literal should not be a recipient")
	}
}
