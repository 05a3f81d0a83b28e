package model

import "time"

// InvitationStatus enumerates the lifecycle states of an invitation.
// PENDING is the only non-terminal state; every transition out of it
// (ACCEPTED, EXPIRED, REVOKED) is final.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
	InvitationRevoked  InvitationStatus = "REVOKED"
)

// Invitation binds a random token to exactly one family and one invitee
// email. Invitations are never physically deleted; terminal rows remain as
// an audit trail. At most one PENDING invitation may exist per
// (family, email) pair at any time — the storage layer enforces this.
//
// Fields:
//  ID         – primary key identifier.
//  FamilyID   – family the invitee is being asked to join.
//  Email      – lower-cased invitee address.
//  Role       – role granted on acceptance; always assignable (never PRIMARY).
//  InvitedBy  – user who issued the invitation.
//  Token      – cryptographically random hex token, unique and indexed.
//  Status     – lifecycle state, see InvitationStatus.
//  ExpiresAt  – deadline after which the invitation lazily expires.
//  AcceptedAt – set when the status transitions to ACCEPTED.
//  AcceptedBy – user who accepted, set together with AcceptedAt.
type Invitation struct {
	ID         uint64
	FamilyID   uint64
	Email      string
	Role       Role
	InvitedBy  uint64
	Token      string
	Status     InvitationStatus
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	AcceptedBy *uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExpiredBy reports whether a still-pending invitation has passed its
// deadline at the given instant. Terminal invitations are never considered
// newly expired.
func (i Invitation) ExpiredBy(now time.Time) bool {
	return i.Status == InvitationPending && now.After(i.ExpiresAt)
}
