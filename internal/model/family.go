package model

import "time"

// Role is the closed set of membership roles within a family. PRIMARY is
// established exactly once, at family creation, and can never be assigned,
// removed or re-roled afterwards. Only ADMIN and MEMBER are assignable
// through invitations or role changes.
type Role string

const (
	RolePrimary Role = "PRIMARY"
	RoleAdmin   Role = "ADMIN"
	RoleMember  Role = "MEMBER"
)

// Assignable reports whether the role may be granted through an invitation
// or a membership role change.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleMember
}

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	return r == RolePrimary || r.Assignable()
}

// Family is the aggregate root for a household. The membership list is
// owned exclusively by the family: no other entity may append or remove a
// member record. Exactly one member holds the PRIMARY role and it is always
// the creator.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the family.
//  CreatedBy – user who created the family; immutable after creation.
//  Members   – memberships, unique per user id.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Family struct {
	ID        uint64
	Name      string
	CreatedBy uint64
	Members   []FamilyMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member returns the membership record for the given user, if present.
func (f Family) Member(userID uint64) (FamilyMember, bool) {
	for _, m := range f.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return FamilyMember{}, false
}

// FamilyMember is one row of a family's membership list.
//
// Fields:
//  FamilyID    – owning family.
//  UserID      – member user; unique within the family.
//  Role        – PRIMARY, ADMIN or MEMBER.
//  Permissions – free-form permission hints, unused by the core policy.
//  JoinedAt    – when the membership was appended.
type FamilyMember struct {
	ID          uint64
	FamilyID    uint64
	UserID      uint64
	Role        Role
	Permissions string
	JoinedAt    time.Time
}
