package utils

import "testing"

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Delivery Van 001 ", "Delivery Van 001"},
		{"<b>Cargo</b> Truck", "Cargo Truck"},
		{"Van\x00\x07 One", "Van One"},
		{"multi\n line\tname", "multi line name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeLabel(tt.in); got != tt.want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	if got := SanitizeIdentifier(" van-001\x00 "); got != "van-001" {
		t.Errorf("got %q", got)
	}
	if got := SanitizeIdentifier("a b"); got != "a b" {
		t.Errorf("inner space changed: %q", got)
	}
	if got := SanitizeIdentifier("van\t-\n001"); got != "van-001" {
		t.Errorf("inner control characters kept: %q", got)
	}
	if got := SanitizeIdentifier("\x01\x02 \x7f"); got != "" {
		t.Errorf("control-only id = %q, want empty", got)
	}
}
