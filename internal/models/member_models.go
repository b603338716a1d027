package models

import "time"

// Member represents a registered customer. The core only reads members and
// mutates their point balance; account management lives elsewhere.
type Member struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Point     int       `json:"point" db:"point"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is the caller identity an order belongs to: an authenticated
// member or an anonymous guest, never both.
type Identity struct {
	MemberID *int64
	GuestID  *string
}

// IsMember reports whether the identity belongs to an authenticated member.
func (i Identity) IsMember() bool {
	return i.MemberID != nil
}

// Valid reports whether exactly one side of the identity is set.
func (i Identity) Valid() bool {
	return (i.MemberID != nil) != (i.GuestID != nil && *i.GuestID != "")
}

// MemberIdentity builds a member-side identity.
func MemberIdentity(memberID int64) Identity {
	return Identity{MemberID: &memberID}
}

// GuestIdentity builds a guest-side identity.
func GuestIdentity(guestID string) Identity {
	return Identity{GuestID: &guestID}
}
