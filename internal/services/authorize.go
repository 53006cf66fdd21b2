package services

import "github.com/orderdesk/apiserver/types"

// Authorize allows admins everything and everyone else only what they own.
func Authorize(actor types.User, ownerID int) error {
	if actor.Admin || ownerID == actor.ID {
		return nil
	}
	return ErrForbidden
}

// AuthorizeAdmin allows admins only. User ids start at 1, so owner 0 never matches.
func AuthorizeAdmin(actor types.User) error {
	return Authorize(actor, 0)
}
