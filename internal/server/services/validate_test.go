package services

import "testing"

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"a.b+tag@sub.example.co", true},
		{"UPPER@EXAMPLE.ORG", true},
		{"", false},
		{"plainaddress", false},
		{"missing@tld", false},
		{"@example.com", false},
		{"user@example.c", false},
		{"spaces in@example.com", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestAnyBlank(t *testing.T) {
	if anyBlank("a", "b") {
		t.Error("no blank fields, got true")
	}
	if !anyBlank("a", "  ") {
		t.Error("whitespace-only field should count as blank")
	}
	if !anyBlank("") {
		t.Error("empty field should count as blank")
	}
}
