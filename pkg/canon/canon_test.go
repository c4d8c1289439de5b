package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty input",
			text: "",
			want: "",
		},
		{
			name: "already canonical",
			text: "section 12 applies",
			want: "section 12 applies",
		},
		{
			name: "collapses runs and newlines",
			text: "  section\t12\n\napplies  ",
			want: "section 12 applies",
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			want: "",
		},
		{
			name: "unicode spaces",
			text: "a b c",
			want: "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.text)
			if got != tt.want {
				t.Errorf("Canonicalize() = %q, want %q", got, tt.want)
			}
			if again := Canonicalize(got); again != got {
				t.Errorf("Canonicalize() not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestDigest(t *testing.T) {
	emptySum := sha256.Sum256(nil)
	if got := Digest(""); got != hex.EncodeToString(emptySum[:]) {
		t.Errorf("Digest(\"\") = %q, want hash of empty bytes", got)
	}

	a := Digest("the  court\nheld")
	b := Digest("the court held")
	if a != b {
		t.Errorf("digests differ for whitespace-equivalent texts: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Digest() length = %d, want 64", len(a))
	}
	if Digest("the court held") != a {
		t.Error("Digest() not stable across calls")
	}
}

func TestContentUUID(t *testing.T) {
	if got := ContentUUID(""); got != "00000000-0000-0000-0000-000000000000" {
		t.Errorf("ContentUUID(\"\") = %q, want all-zero UUID", got)
	}
	if got := ContentUUID("   \n"); got != "00000000-0000-0000-0000-000000000000" {
		t.Errorf("ContentUUID(whitespace) = %q, want all-zero UUID", got)
	}

	a := ContentUUID("statute   of\tlimitations")
	b := ContentUUID("statute of limitations")
	if a != b {
		t.Errorf("UUIDs differ for whitespace-equivalent texts: %q vs %q", a, b)
	}
	if a == "00000000-0000-0000-0000-000000000000" {
		t.Error("non-empty text mapped to zero UUID")
	}
	if len(a) != 36 {
		t.Errorf("ContentUUID() length = %d, want 36", len(a))
	}
}
