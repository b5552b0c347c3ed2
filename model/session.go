// model/session.go
package model

import (
	"errors"
	"time"
)

var ErrNegativeDeviceMemory = errors.New("device memory cannot be negative")

// SessionState is the idle-monitor state. LoggedOut and Expired are terminal
// until the subject authenticates again.
type SessionState int

const (
	SessionActive SessionState = iota
	SessionWarning
	SessionLoggedOut
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "ACTIVE"
	case SessionWarning:
		return "WARNING"
	case SessionLoggedOut:
		return "LOGGED_OUT"
	case SessionExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state admits no further idle transitions.
func (s SessionState) Terminal() bool {
	return s == SessionLoggedOut || s == SessionExpired
}

// LifecycleEventType identifies a session-lifecycle signal on the bus.
type LifecycleEventType string

const (
	EventActivity     LifecycleEventType = "activity"
	EventExpired      LifecycleEventType = "expired"
	EventIdleLogout   LifecycleEventType = "idle-logout"
	EventManualLogout LifecycleEventType = "manual-logout"
)

// LifecycleEvent is published on the session signal bus.
type LifecycleEvent struct {
	Type      LifecycleEventType `json:"type"`
	TenantID  string             `json:"tenantId"`
	SubjectID string             `json:"subjectId"`
	Reason    string             `json:"reason,omitempty"`
	At        time.Time          `json:"at"`
}
