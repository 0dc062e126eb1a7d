package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

// CreateComplex adds a complex.  Owners only.
func (a *App) CreateComplex(ctx context.Context, name string) (model.Complex, error) {
	var out model.Complex
	err := a.run(ctx, "Create complex", func(ctx context.Context) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return invalid("name", "complex name is required")
		}
		if a.sess.Role() != model.RoleOwner {
			return fmt.Errorf("create complex as %s: %w", a.sess.Role(), lifecycle.ErrNotPermitted)
		}
		cx, err := a.api.CreateComplex(ctx, name)
		if err != nil {
			return err
		}
		out = cx
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindComplexCreated, ComplexID: cx.ID, Detail: cx.Name})
		return a.load(ctx, session.DatasetComplexes)
	})
	return out, err
}

// Invite issues an invite and returns the link to hand to the invitee.
// Owners choose role and complex (the first complex by default);
// managers invite workers into their own complex.
func (a *App) Invite(ctx context.Context, f view.InviteForm) (string, error) {
	var link string
	err := a.run(ctx, "Invite", func(ctx context.Context) error {
		in, err := view.BuildInvite(a.sess.Role(), f, a.sess.Snapshot().Complexes)
		if err != nil {
			return invalid("invite", err.Error())
		}
		inv, err := a.api.CreateInvite(ctx, in)
		if err != nil {
			return err
		}
		link = view.InviteLink(a.origin, inv.Token)
		a.mu.Lock()
		a.lastInvite = link
		a.mu.Unlock()
		ev := queue.ActivityEvent{Kind: queue.KindInviteCreated, Detail: in.Username}
		if inv.ComplexID != nil {
			ev.ComplexID = *inv.ComplexID
		}
		a.publish(ctx, ev)
		return a.load(ctx, session.DatasetUsers)
	})
	return link, err
}

// ResetPassword sets a new password on a managed account.
func (a *App) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	return a.run(ctx, "Reset", func(ctx context.Context) error {
		if newPassword == "" {
			return invalid("password", "new password is required")
		}
		if _, err := a.managed(userID); err != nil {
			return err
		}
		if err := a.api.ResetPassword(ctx, userID, newPassword); err != nil {
			return err
		}
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindUserPasswordReset, UserID: userID})
		return a.load(ctx, session.DatasetUsers)
	})
}

// ToggleActive disables an active account or enables an inactive one.
func (a *App) ToggleActive(ctx context.Context, userID int64) error {
	return a.run(ctx, "Update", func(ctx context.Context) error {
		u, err := a.managed(userID)
		if err != nil {
			return err
		}
		enable := !u.Active
		if err := a.api.SetActive(ctx, userID, enable); err != nil {
			return err
		}
		kind := queue.KindUserDisabled
		if enable {
			kind = queue.KindUserEnabled
		}
		a.publish(ctx, queue.ActivityEvent{Kind: kind, UserID: userID})
		return a.load(ctx, session.DatasetUsers)
	})
}

// DeleteUser removes a managed account.
func (a *App) DeleteUser(ctx context.Context, userID int64) error {
	return a.run(ctx, "Delete", func(ctx context.Context) error {
		if _, err := a.managed(userID); err != nil {
			return err
		}
		if err := a.api.DeleteUser(ctx, userID); err != nil {
			return err
		}
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindUserDeleted, UserID: userID})
		return a.load(ctx, session.DatasetUsers)
	})
}

// managed returns the cached account if the session holder may manage it.
func (a *App) managed(userID int64) (model.User, error) {
	if !a.sess.Authenticated() {
		return model.User{}, session.ErrNotAuthenticated
	}
	u, ok := a.sess.FindUser(userID)
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", userID, ErrUnknownUser)
	}
	if !view.CanManage(a.sess.Role(), u) {
		return model.User{}, fmt.Errorf("manage %s %s: %w", u.Role.Label(), u.Username, lifecycle.ErrNotPermitted)
	}
	return u, nil
}
