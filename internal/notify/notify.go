// Package notify delivers invitation notifications to invited email
// addresses. Delivery is best-effort: the inviting transaction has
// already committed by the time a sender runs.
package notify

import "context"

// Invite carries everything a delivery channel needs to notify an
// invitee.
type Invite struct {
	FamilyID   uint64 `json:"family_id"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Token      string `json:"token"`
	InvitedBy  string `json:"invited_by"`
	ExpiresAt  string `json:"expires_at"`
}

// Sender is a delivery channel for invitation notifications.
type Sender interface {
	SendInvite(ctx context.Context, inv Invite) error
}

// NopSender discards notifications. Used in tests and when no broker
// is configured.
type NopSender struct{}

func (NopSender) SendInvite(ctx context.Context, inv Invite) error { return nil }
