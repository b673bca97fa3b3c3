// Package billing holds the closed billing status vocabulary and plan tiers
// shared by the reconciliation engine, the status resolver and the access
// gate.
package billing

import "strings"

// Status is the canonical lower-case billing status stored on snapshots.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusAuthorized Status = "authorized"
	StatusAccredited Status = "accredited"
	StatusRecurring  Status = "recurring_charges"
	StatusActive     Status = "active"
	StatusPending    Status = "pending"
)

// activeStatuses is the only set of raw provider statuses that counts as
// paid. Anything else (cancelled, refunded, chargeback, typos, empty) maps
// to "not active".
var activeStatuses = map[string]struct{}{
	string(StatusApproved):   {},
	string(StatusAuthorized): {},
	string(StatusAccredited): {},
	string(StatusRecurring):  {},
	string(StatusActive):     {},
}

// IsActiveStatus reports whether a raw provider status means "active/paid".
// Case-insensitive, pure.
func IsActiveStatus(raw string) bool {
	_, ok := activeStatuses[Canonical(raw)]
	return ok
}

// Canonical lower-cases and trims a raw provider status.
func Canonical(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Plan identifies a subscription tier.
type Plan string

const (
	PlanEssential Plan = "essential"
	PlanVIP       Plan = "vip"
)

// NormalizePlan maps free-form plan names onto a known tier, defaulting to
// essential.
func NormalizePlan(raw string) Plan {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PlanVIP):
		return PlanVIP
	default:
		return PlanEssential
	}
}
