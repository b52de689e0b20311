package identity

import "testing"

func TestIsGuest(t *testing.T) {
	tests := []struct {
		name  string
		email string
		disp  string
		want  bool
	}{
		{"empty email", "", "Alice", true},
		{"whitespace email", "   ", "Alice", true},
		{"guest token in email", "guest123@school.example", "Someone", true},
		{"anon token in email", "ANON-device@school.example", "Someone", true},
		{"trial token in name", "kid@school.example", "Trial User", true},
		{"temp token in name", "kid@school.example", "temp-chromebook", true},
		{"regular student", "alice@school.example", "Alice Jones", false},
		{"token as substring counts", "tempest@school.example", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGuest(tt.email, tt.disp); got != tt.want {
				t.Errorf("IsGuest(%q, %q) = %v, want %v", tt.email, tt.disp, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Alice@School.Example "); got != "alice@school.example" {
		t.Errorf("Normalize() = %q", got)
	}
}

func TestLooksLikeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"alice@school.example", true},
		{"a@b.c", true},
		{"not-an-email", false},
		{"@nodomain.com", false},
		{"user@nodot", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeEmail(tt.in); got != tt.want {
			t.Errorf("LooksLikeEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
