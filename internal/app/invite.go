package app

import (
	"context"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
)

// AcceptedNotice is shown once an invite was accepted.
const AcceptedNotice = "password set; you can now log in"

// ValidateInvite resolves the invite token taken from the fragment to
// the account it activates.
func (a *App) ValidateInvite(ctx context.Context) (model.InviteTarget, error) {
	var out model.InviteTarget
	err := a.run(ctx, "Validate invite", func(ctx context.Context) error {
		tok := a.inviteToken()
		if tok == "" {
			return ErrNoInvite
		}
		t, err := a.api.ValidateInvite(ctx, tok)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// AcceptInvite sets the invitee's password.  Both entries must be
// non-empty and equal before anything is sent.  On success the invite
// fragment is dropped so the view falls back to login, or to the
// dashboard of a session that was already signed in.
func (a *App) AcceptInvite(ctx context.Context, password, confirm string) error {
	return a.run(ctx, "Accept invite", func(ctx context.Context) error {
		tok := a.inviteToken()
		if tok == "" {
			return ErrNoInvite
		}
		if password == "" || password != confirm {
			return invalid("password", "passwords must match")
		}
		if err := a.api.AcceptInvite(ctx, tok, password); err != nil {
			return err
		}
		a.mu.Lock()
		a.invite = ""
		a.notice = AcceptedNotice
		a.mu.Unlock()
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindInviteAccepted})
		// An existing session gets its dashboard back.  The password
		// is set either way, so a load failure is only reported.
		if a.needsPreload() {
			if err := a.preload(ctx); err != nil {
				a.setErr(err)
			}
		}
		return nil
	})
}
