package models

import (
	"time"
)

// USSDSession is the ephemeral state of one gateway conversation, keyed by
// the gateway-assigned session ID. It lives in memory only: the gateway
// re-sends the accumulated input on every turn, so losing a session just
// forces the caller to redial.
type USSDSession struct {
	SessionID       string           `json:"session_id"`
	PhoneNumber     string           `json:"phone_number"`
	SelectedFeature string           `json:"selected_feature"` // a QueryType value, empty until the menu turn
	Officer         *OfficerSnapshot `json:"officer"`          // nil until authentication succeeds
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

// Authenticated reports whether the session is bound to an officer.
// Binding the snapshot and the identity is a single assignment, so a
// session can never be half-authenticated.
func (s *USSDSession) Authenticated() bool {
	return s.Officer != nil
}
