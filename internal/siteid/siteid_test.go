package siteid

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ana-flores", "ANA-FLORES"},
		{"  Ana Flores  ", "ANAFLORES"},
		{"loja_do_ze", "LOJADOZE"},
		{"café-123", "CAF-123"},
		{"MAIÚSCULA", "MAISCULA"},
		{"---", "---"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"ABC", true},
		{"AB", false},
		{"", false},
		{"A234567890123456789012345678901", false}, // 31 chars
		{"A23456789012345678901234567890", true},   // 30 chars
	}

	for _, tc := range cases {
		if got := Valid(tc.in); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeThenValidRejectsShortIDs(t *testing.T) {
	// Stripping can shrink an id below the minimum length.
	normalized := Normalize("a!b")
	if Valid(normalized) {
		t.Fatalf("expected %q to be invalid after normalization", normalized)
	}
}
