// Package identity describes who is calling into the sales core. Handlers
// resolve it once per request and pass it explicitly to every operation.
package identity

import (
	"errors"
	"fmt"

	"bloom/internal/domain/carts"
)

var ErrNoCartOwner = errors.New("request carries neither a user nor a session")

type Kind string

const (
	KindGuest Kind = "guest"
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Identity is Admin, User(id) or Guest(session). Any of them may also carry
// the request's session id.
type Identity struct {
	kind      Kind
	userID    int64
	sessionID string
}

func Guest(sessionID string) Identity {
	return Identity{kind: KindGuest, sessionID: sessionID}
}

func User(id int64, sessionID string) Identity {
	return Identity{kind: KindUser, userID: id, sessionID: sessionID}
}

func Admin(sessionID string) Identity {
	return Identity{kind: KindAdmin, sessionID: sessionID}
}

func (i Identity) Kind() Kind        { return i.kind }
func (i Identity) IsAdmin() bool     { return i.kind == KindAdmin }
func (i Identity) SessionID() string { return i.sessionID }

func (i Identity) UserID() (int64, bool) {
	return i.userID, i.kind == KindUser
}

// CartOwner keys the caller's cart: the user id for users, the session id
// for guests and admins.
func (i Identity) CartOwner() (carts.Owner, error) {
	if i.kind == KindUser {
		return carts.UserOwner(i.userID), nil
	}
	if i.sessionID == "" {
		return carts.Owner{}, ErrNoCartOwner
	}
	return carts.SessionOwner(i.sessionID), nil
}

// Owns reports whether the caller placed something keyed by owner. Admins
// own everything.
func (i Identity) Owns(owner carts.Owner) bool {
	if i.IsAdmin() {
		return true
	}
	mine, err := i.CartOwner()
	if err != nil {
		return false
	}
	return mine.Key() == owner.Key()
}

func (i Identity) String() string {
	switch i.kind {
	case KindUser:
		return fmt.Sprintf("user:%d", i.userID)
	case KindAdmin:
		return "admin"
	default:
		return "guest:" + i.sessionID
	}
}
