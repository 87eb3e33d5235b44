package constants

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Category
		ok    bool
	}{
		{"empty falls back to misc", "", Misc, false},
		{"exact korean label", "식비", Food, true},
		{"synonym korean", "편의점", Groceries, true},
		{"synonym english lowercased", "Coffee", Cafe, true},
		{"whitespace trimmed", "  taxi  ", Transport, true},
		{"unknown label", "낚시용품", Misc, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Canonicalize(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Canonicalize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsAllowedImageType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"IMAGE/PNG", true},
		{"image/jpeg; charset=binary", true},
		{"image/gif", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAllowedImageType(tt.mediaType); got != tt.want {
			t.Errorf("IsAllowedImageType(%q) = %v, want %v", tt.mediaType, got, tt.want)
		}
	}
}
