package billing

import "testing"

func TestIsActiveStatus(t *testing.T) {
	active := []string{
		"approved", "APPROVED", "Approved",
		"authorized", "accredited",
		"recurring_charges", "RECURRING_CHARGES",
		"active", " active ",
	}
	for _, s := range active {
		if !IsActiveStatus(s) {
			t.Errorf("IsActiveStatus(%q) = false, want true", s)
		}
	}

	inactive := []string{
		"", "cancelled", "refunded", "chargeback",
		"pending", "aproved", "recurring", "authorised",
	}
	for _, s := range inactive {
		if IsActiveStatus(s) {
			t.Errorf("IsActiveStatus(%q) = true, want false", s)
		}
	}
}

func TestCanonical(t *testing.T) {
	if got := Canonical("  APPROVED "); got != "approved" {
		t.Errorf("Canonical = %q, want %q", got, "approved")
	}
	if got := Canonical(""); got != "" {
		t.Errorf("Canonical(empty) = %q, want empty", got)
	}
}

func TestNormalizePlan(t *testing.T) {
	cases := []struct {
		in   string
		want Plan
	}{
		{"vip", PlanVIP},
		{"VIP", PlanVIP},
		{"essential", PlanEssential},
		{"", PlanEssential},
		{"premium", PlanEssential},
	}
	for _, tc := range cases {
		if got := NormalizePlan(tc.in); got != tc.want {
			t.Errorf("NormalizePlan(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
