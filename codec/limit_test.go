package codec

import (
	"strings"
	"testing"
)

func TestLimitRejectsOversizedDecode(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 8}

	big := []byte(strings.Repeat("a", 9))
	if _, err := c.Decode(big); err == nil {
		t.Fatalf("Decode should reject payloads above MaxDecode")
	}

	// Encode is never limited.
	b, err := c.Encode(strings.Repeat("a", 100))
	if err != nil || len(b) != 100 {
		t.Fatalf("Encode: len=%d err=%v", len(b), err)
	}
}

func TestLimitPassthrough(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 0} // disabled
	v, err := c.Decode([]byte(strings.Repeat("a", 1024)))
	if err != nil || len(v) != 1024 {
		t.Fatalf("disabled limit should pass through: len=%d err=%v", len(v), err)
	}
}
