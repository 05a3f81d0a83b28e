// Package queue contains the background consumer that listens for
// invitation events and writes the outbound mail log.
package queue

// InviteIssuedEvent is the payload published to the invite.issued
// queue when an invitation is created. It carries enough for a mailer
// or audit consumer to act without querying the primary database.
type InviteIssuedEvent struct {
	FamilyID   uint64 `json:"family_id"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Token      string `json:"token"`
	InvitedBy  string `json:"invited_by"`
	ExpiresAt  string `json:"expires_at"`
}
