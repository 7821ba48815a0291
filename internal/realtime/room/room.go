// Package room derives broadcast room keys from domain identifiers.
//
// Keys are pure functions of actor ids so any producer can address a room
// without a directory lookup.
package room

import "fmt"

// ActorType discriminates the two connecting parties.
type ActorType string

const (
	ActorUser    ActorType = "user"
	ActorCompany ActorType = "company"
)

// Valid reports whether the actor type is one of the known values.
func (t ActorType) Valid() bool {
	return t == ActorUser || t == ActorCompany
}

// Personal returns the room every connection is auto-joined to.
func Personal(actor ActorType, id string) string {
	return fmt.Sprintf("%s_%s", actor, id)
}

// Chat returns the room shared by a user and a company. Argument order is
// part of the contract: user first, company second. Both sides must derive
// the key the same way or they end up in different rooms.
func Chat(userID, companyID string) string {
	return fmt.Sprintf("chat_%s_%s", userID, companyID)
}

// Subscription returns the room carrying subscription lifecycle events for
// a user.
func Subscription(userID string) string {
	return "subscription_" + userID
}

// Company returns the company-update room. The key is the bare company id
// with no prefix; clients already subscribe to it that way, so the quirk is
// kept for compatibility.
func Company(companyID string) string {
	return companyID
}
