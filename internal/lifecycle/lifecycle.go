// Package lifecycle holds the supply request state machine: which
// actions exist, who may trigger them, and what each one does to a
// request's status and owner status.  It has no I/O so both the
// client (to decide which controls to offer) and the stub service (to
// enforce authoritatively) share the same table.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

var (
	// ErrNotPermitted means the actor's role (or ownership) does not
	// allow the action at all.
	ErrNotPermitted = errors.New("action not permitted")
	// ErrInvalidTransition means the action is not legal from the
	// request's current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownAction is returned for an action outside the table.
	ErrUnknownAction = errors.New("unknown action")
)

// Action names a request operation.
type Action string

const (
	ActionApprove       Action = "approve"
	ActionMarkOrdered   Action = "mark-ordered"
	ActionMarkDelivered Action = "mark-delivered"
	ActionReject        Action = "reject"
	ActionCancel        Action = "cancel"
	ActionEdit          Action = "edit"
	ActionUploadPhoto   Action = "upload-photo"
	ActionEscalate      Action = "escalate"
	ActionOwnerApprove  Action = "owner-approve"
	ActionOwnerReject   Action = "owner-reject"
)

// Actor is whoever attempts an action.  UserID is zero when the
// caller's profile could not be loaded.
type Actor struct {
	Role   model.Role
	UserID int64
}

type rule struct {
	role model.Role
	// from lists the statuses the action is legal in.
	from []model.Status
	// owner is the owner status required before the action, if any.
	owner model.OwnerStatus
	// creatorOnly restricts the action to the request's creator.
	creatorOnly bool
	// to is the resulting status; empty keeps the current one.
	to model.Status
	// ownerTo is the resulting owner status; empty keeps the current one.
	ownerTo model.OwnerStatus
}

var pendingOnly = []model.Status{model.StatusPending}

// table is the full transition table.  Managers may jump from pending
// straight to any manager state and may only move forward after that:
// approved -> ordered -> delivered.
var table = map[Action]rule{
	ActionApprove: {role: model.RoleManager, from: pendingOnly, to: model.StatusApproved},
	ActionMarkOrdered: {role: model.RoleManager,
		from: []model.Status{model.StatusPending, model.StatusApproved}, to: model.StatusOrdered},
	ActionMarkDelivered: {role: model.RoleManager,
		from: []model.Status{model.StatusPending, model.StatusApproved, model.StatusOrdered}, to: model.StatusDelivered},
	ActionReject:       {role: model.RoleManager, from: pendingOnly, to: model.StatusRejected},
	ActionCancel:       {role: model.RoleWorker, from: pendingOnly, creatorOnly: true, to: model.StatusCanceled},
	ActionEdit:         {role: model.RoleWorker, from: pendingOnly, creatorOnly: true},
	ActionUploadPhoto:  {role: model.RoleWorker, from: pendingOnly, creatorOnly: true},
	ActionEscalate:     {role: model.RoleManager, from: pendingOnly, owner: model.OwnerNone, ownerTo: model.OwnerPending},
	ActionOwnerApprove: {role: model.RoleOwner, from: pendingOnly, owner: model.OwnerPending, ownerTo: model.OwnerApproved},
	ActionOwnerReject:  {role: model.RoleOwner, from: pendingOnly, owner: model.OwnerPending, ownerTo: model.OwnerRejected},
}

// order fixes the sequence Available reports actions in.
var order = []Action{
	ActionEscalate,
	ActionApprove, ActionMarkOrdered, ActionMarkDelivered, ActionReject,
	ActionEdit, ActionCancel, ActionUploadPhoto,
	ActionOwnerApprove, ActionOwnerReject,
}

// Check returns nil when actor may perform a on r.  Role or ownership
// failures wrap ErrNotPermitted; state failures wrap ErrInvalidTransition.
func Check(r model.Request, actor Actor, a Action) error {
	ru, ok := table[a]
	if !ok {
		return fmt.Errorf("%s: %w", a, ErrUnknownAction)
	}
	if actor.Role != ru.role {
		return fmt.Errorf("%s by %s: %w", a, actor.Role, ErrNotPermitted)
	}
	// Ownership is only enforced when both ids are known.
	if ru.creatorOnly && actor.UserID != 0 && r.CreatedBy != 0 && actor.UserID != r.CreatedBy {
		return fmt.Errorf("%s on request %d: not the creator: %w", a, r.ID, ErrNotPermitted)
	}
	if !statusIn(r.Status, ru.from) {
		return fmt.Errorf("%s from status %q: %w", a, r.Status, ErrInvalidTransition)
	}
	if ru.owner != "" && ownerStatus(r) != ru.owner {
		return fmt.Errorf("%s with owner status %q: %w", a, ownerStatus(r), ErrInvalidTransition)
	}
	return nil
}

// Apply checks the action and returns the request as it looks after
// it.  Edits and photo uploads leave both statuses untouched; the
// field changes themselves are made by the caller.  An owner decision
// never changes Status.
func Apply(r model.Request, actor Actor, a Action) (model.Request, error) {
	if err := Check(r, actor, a); err != nil {
		return r, err
	}
	ru := table[a]
	out := r
	out.OwnerStatus = ownerStatus(r)
	if ru.to != "" {
		out.Status = ru.to
	}
	if ru.ownerTo != "" {
		out.OwnerStatus = ru.ownerTo
	}
	return out, nil
}

// Available lists the actions actor may perform on r, in display order.
func Available(r model.Request, actor Actor) []Action {
	var out []Action
	for _, a := range order {
		if Check(r, actor, a) == nil {
			out = append(out, a)
		}
	}
	return out
}

// Allowed reports whether a is among Available(r, actor).
func Allowed(r model.Request, actor Actor, a Action) bool {
	return Check(r, actor, a) == nil
}

// ForStatus maps a requested target status to the action that
// produces it.  It is how a status update call is interpreted.
func ForStatus(s model.Status) (Action, error) {
	switch s {
	case model.StatusApproved:
		return ActionApprove, nil
	case model.StatusOrdered:
		return ActionMarkOrdered, nil
	case model.StatusDelivered:
		return ActionMarkDelivered, nil
	case model.StatusRejected:
		return ActionReject, nil
	case model.StatusCanceled:
		return ActionCancel, nil
	}
	return "", fmt.Errorf("status %q: %w", s, ErrUnknownAction)
}

// ForDecision maps an owner verdict to its action.
func ForDecision(d model.OwnerStatus) (Action, error) {
	switch d {
	case model.OwnerApproved:
		return ActionOwnerApprove, nil
	case model.OwnerRejected:
		return ActionOwnerReject, nil
	}
	return "", fmt.Errorf("decision %q: %w", d, ErrUnknownAction)
}

// TargetStatus returns the status an action moves a request to, if it
// changes Status at all.
func TargetStatus(a Action) (model.Status, bool) {
	ru, ok := table[a]
	if !ok || ru.to == "" {
		return "", false
	}
	return ru.to, true
}

func statusIn(s model.Status, set []model.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func ownerStatus(r model.Request) model.OwnerStatus {
	if r.OwnerStatus == "" {
		return model.OwnerNone
	}
	return r.OwnerStatus
}
