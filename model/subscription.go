// model/subscription.go
package model

import (
	"fmt"
	"time"
)

// SubscriptionStatus mirrors the billing backend's subscription lifecycle.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionLocked   SubscriptionStatus = "locked"
)

// SubscriptionSnapshot is the cached billing state consulted by the
// subscription gate. IsReadOnly is the only field the gate acts on; the rest
// is carried for the billing screens.
type SubscriptionSnapshot struct {
	IsReadOnly     bool               `json:"isReadOnly"`
	Status         SubscriptionStatus `json:"status"`
	TrialEndsAt    *time.Time         `json:"trialEndsAt,omitempty"`
	GraceExpiresAt *time.Time         `json:"graceExpiresAt,omitempty"`
}

func (s SubscriptionSnapshot) Validate() error {
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue,
		SubscriptionCanceled, SubscriptionLocked:
		return nil
	default:
		return fmt.Errorf("unknown subscription status: %q", s.Status)
	}
}
