package compiler

import (
	"testing"
)

// FuzzParseDocument checks that the assembly parser never panics and
// that any document it accepts formats back to a fixed point.
func FuzzParseDocument(f *testing.F) {
	f.Add("SKIP INSTRUCTION\n")
	f.Add("1.ReturnStatement:\nPUSH LITERAL `true`\nHANDLE RESULT\n")
	f.Add("JUMP TO 1.Loop ON FALSE\n")
	f.Add("PUSH LITERAL `{\n    return none\n}`\n")
	f.Add("EXECUTE $getIterator ON TARGET\n")
	f.Add("INVOKE $sum WITH 2 ARGUMENTS\n")
	f.Add("LOAD DRAFT $$location-1\nSTORE MESSAGE $$queue-2\n")
	f.Add("POP HANDLER\nHANDLE EXCEPTION\n")

	f.Fuzz(func(t *testing.T, document string) {
		steps, err := ParseDocument(document)
		if err != nil {
			return
		}
		text := Format(steps, 0)
		again, err := ParseDocument(text)
		if err != nil {
			t.Fatalf("canonical form failed to re-parse: %v\n%s", err, text)
		}
		if Format(again, 0) != text {
			t.Fatalf("format is not a fixed point:\n%s", text)
		}
	})
}

// FuzzLiteralInterning checks that literal interning is idempotent for
// arbitrary source texts.
func FuzzLiteralInterning(f *testing.F) {
	f.Add("true")
	f.Add("042")
	f.Add("3.14000")
	f.Add(`"text"`)

	f.Fuzz(func(t *testing.T, text string) {
		types := NewTypeContext()
		first := types.InternLiteral(text)
		second := types.InternLiteral(text)
		if first != second {
			t.Fatalf("interning %q twice yielded %d then %d", text, first, second)
		}
	})
}
