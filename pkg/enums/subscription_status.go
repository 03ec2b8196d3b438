package enums

import "fmt"

// SubscriptionStatus mirrors the billing provider's subscription state, plus the
// local cancel_pending state set while a provider-side cancellation is awaiting
// its deletion webhook.
type SubscriptionStatus string

const (
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusCancelPending SubscriptionStatus = "cancel_pending"
	SubscriptionStatusIncomplete    SubscriptionStatus = "incomplete"
	SubscriptionStatusPastDue       SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled      SubscriptionStatus = "canceled"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusCancelPending,
	SubscriptionStatusIncomplete,
	SubscriptionStatusPastDue,
	SubscriptionStatusCanceled,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
