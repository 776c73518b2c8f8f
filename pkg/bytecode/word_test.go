package bytecode

import (
	"bytes"
	"testing"
)

func TestPackFields(t *testing.T) {
	word, err := Pack(OpPush, PushLiteral, 42)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if word.Operation() != OpPush {
		t.Errorf("Operation() = %v, want PUSH", word.Operation())
	}
	if word.Modifier() != PushLiteral {
		t.Errorf("Modifier() = %d, want %d", word.Modifier(), PushLiteral)
	}
	if word.Operand() != 42 {
		t.Errorf("Operand() = %d, want 42", word.Operand())
	}
}

func TestPackRoundTrip(t *testing.T) {
	for _, op := range AllOperations() {
		for modifier := Modifier(0); modifier <= 3; modifier++ {
			for _, operand := range []uint16{0, 1, 2047} {
				word, err := Pack(op, modifier, operand)
				if err != nil {
					t.Fatalf("Pack(%v, %d, %d) error: %v", op, modifier, operand, err)
				}
				if word.Operation() != op || word.Modifier() != modifier || word.Operand() != operand {
					t.Errorf("round trip of (%v, %d, %d) yielded (%v, %d, %d)",
						op, modifier, operand, word.Operation(), word.Modifier(), word.Operand())
				}
			}
		}
	}
}

func TestPackRanges(t *testing.T) {
	if _, err := Pack(OpJump, JumpAny, MaxOperand+1); err == nil {
		t.Error("Pack should reject operands wider than 11 bits")
	}
	if _, err := Pack(OpJump, Modifier(4), 0); err == nil {
		t.Error("Pack should reject modifiers wider than 2 bits")
	}
}

func TestSkipWord(t *testing.T) {
	if !Skip.IsSkip() {
		t.Error("Skip.IsSkip() = false")
	}
	if Skip.Operation() != OpJump {
		t.Errorf("Skip.Operation() = %v, want JUMP", Skip.Operation())
	}
	word, _ := Pack(OpJump, JumpAny, 1)
	if word.IsSkip() {
		t.Error("a real jump must not read as SKIP")
	}
}

func TestWordsToBytes(t *testing.T) {
	words := []Word{0x2801, 0xE800}
	data := WordsToBytes(words)
	want := []byte{0x28, 0x01, 0xE8, 0x00}
	if !bytes.Equal(data, want) {
		t.Errorf("WordsToBytes() = %X, want %X", data, want)
	}

	back, err := WordsFromBytes(data)
	if err != nil {
		t.Fatalf("WordsFromBytes() error: %v", err)
	}
	if len(back) != 2 || back[0] != words[0] || back[1] != words[1] {
		t.Errorf("WordsFromBytes() = %v, want %v", back, words)
	}

	if _, err := WordsFromBytes([]byte{0x01}); err == nil {
		t.Error("WordsFromBytes should reject odd byte counts")
	}
}
