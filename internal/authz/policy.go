// Package authz decides who may do what to a booking.
package authz

import (
	"errors"
	"strings"

	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
)

type Action string

const (
	ActionViewAll   Action = "view_all"
	ActionViewOwn   Action = "view_own"
	ActionCreate    Action = "create"
	ActionSetStatus Action = "set_status"
	ActionDelete    Action = "delete"
)

var (
	ErrUnauthenticated = errors.New("authz: no authenticated actor")
	ErrForbidden       = errors.New("authz: action not permitted")
)

// Actor is the authenticated identity making a request.
type Actor struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == model.RoleAdmin
}

// CanActFor reports whether the actor may create bookings on behalf of someone else.
func (a *Actor) CanActFor() bool {
	return a != nil && (a.Role == model.RoleAdmin || a.Role == model.RoleTeacher)
}

// Request describes one attempted action. OwnerID is the identity that owns, or
// would own, the booking. TargetStatus is only read for ActionSetStatus.
type Request struct {
	Actor        *Actor
	Action       Action
	OwnerID      string
	TargetStatus model.BookingStatus
}

// Decide returns nil when the request is allowed, ErrUnauthenticated when there is
// no actor, and ErrForbidden otherwise. It has no side effects.
func Decide(req Request) error {
	actor := req.Actor
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return ErrUnauthenticated
	}

	if actor.Role == model.RoleAdmin {
		return nil
	}

	isOwner := req.OwnerID != "" && req.OwnerID == actor.ID

	switch req.Action {
	case ActionCreate:
		if req.OwnerID == "" || isOwner || actor.Role == model.RoleTeacher {
			return nil
		}
	case ActionViewOwn:
		if isOwner {
			return nil
		}
	case ActionSetStatus:
		if isOwner && req.TargetStatus == model.StatusCancelled {
			return nil
		}
	case ActionDelete:
		if isOwner {
			return nil
		}
	}

	return ErrForbidden
}

// Authorize is Decide translated into the HTTP error taxonomy.
func Authorize(req Request) error {
	err := Decide(req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthenticated):
		return apperrors.Unauthorized("Authentication required")
	default:
		return apperrors.Forbidden(forbiddenMessage(req.Action))
	}
}

func forbiddenMessage(action Action) string {
	switch action {
	case ActionViewAll, ActionViewOwn:
		return "You do not have permission to view this booking"
	case ActionCreate:
		return "You do not have permission to book for another user"
	case ActionSetStatus:
		return "You do not have permission to change this booking's status"
	case ActionDelete:
		return "You do not have permission to delete this booking"
	default:
		return "Forbidden"
	}
}
