package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

// RequestForm is the raw input of the create and edit forms.
type RequestForm struct {
	Item     string
	Quantity string
	Project  string
	Notes    string
}

// CreateRequest submits a new request.  Item, project and a positive
// quantity are required before anything is sent.
func (a *App) CreateRequest(ctx context.Context, f RequestForm) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Create", func(ctx context.Context) error {
		if !a.View().CanCreateRequest {
			return fmt.Errorf("create request as %s: %w", a.sess.Role(), lifecycle.ErrNotPermitted)
		}
		item, project := strings.TrimSpace(f.Item), strings.TrimSpace(f.Project)
		if item == "" {
			return invalid("item", "item is required")
		}
		if project == "" {
			return invalid("project", "project is required")
		}
		q, err := model.ParseQuantity(f.Quantity)
		if err != nil || q <= 0 {
			return invalid("quantity", "quantity must be a positive number")
		}
		r, err := a.api.CreateRequest(ctx, model.RequestDraft{
			Item:     item,
			Quantity: q,
			Project:  project,
			Notes:    strings.TrimSpace(f.Notes),
		})
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestCreated, RequestID: r.ID, Detail: r.Item})
		return a.load(ctx, session.DatasetRequests)
	})
	return out, err
}

// EditRequest changes the fields of a pending request the caller
// created.  Empty item, quantity or project keep their value; notes are
// always replaced.
func (a *App) EditRequest(ctx context.Context, id int64, f RequestForm) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Edit", func(ctx context.Context) error {
		if err := a.guard(id, lifecycle.ActionEdit); err != nil {
			return err
		}
		p, err := model.PatchFromForm(f.Item, f.Quantity, f.Project, f.Notes)
		if err != nil {
			return invalid("quantity", err.Error())
		}
		if p.Quantity != nil && *p.Quantity <= 0 {
			return invalid("quantity", "quantity must be a positive number")
		}
		r, err := a.api.EditRequest(ctx, id, p)
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestEdited, RequestID: id})
		return a.load(ctx, session.DatasetRequests)
	})
	return out, err
}

// CancelRequest cancels a pending request the caller created.
func (a *App) CancelRequest(ctx context.Context, id int64) (model.Request, error) {
	return a.SetStatus(ctx, id, model.StatusCanceled)
}

// SetStatus moves a request to s through the matching lifecycle action.
func (a *App) SetStatus(ctx context.Context, id int64, s model.Status) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Update", func(ctx context.Context) error {
		action, err := lifecycle.ForStatus(s)
		if err != nil {
			return err
		}
		if err := a.guard(id, action); err != nil {
			return err
		}
		r, err := a.api.UpdateStatus(ctx, id, s)
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestStatusChanged, RequestID: id, Status: string(s)})
		return a.load(ctx, session.DatasetRequests)
	})
	return out, err
}

// Escalate raises a pending request to the owner.
func (a *App) Escalate(ctx context.Context, id int64) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Escalate", func(ctx context.Context) error {
		if err := a.guard(id, lifecycle.ActionEscalate); err != nil {
			return err
		}
		r, err := a.api.Escalate(ctx, id)
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestEscalated, RequestID: id})
		return a.load(ctx, session.DatasetRequests)
	})
	return out, err
}

// OwnerDecide records the owner's verdict on an escalated request.
// The request's status is not changed.
func (a *App) OwnerDecide(ctx context.Context, id int64, decision model.OwnerStatus) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Owner action", func(ctx context.Context) error {
		action, err := lifecycle.ForDecision(decision)
		if err != nil {
			return err
		}
		if err := a.guard(id, action); err != nil {
			return err
		}
		r, err := a.api.OwnerDecision(ctx, id, decision)
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestOwnerDecided, RequestID: id, Status: string(decision)})
		ds := []session.Dataset{session.DatasetInbox}
		if a.sess.Loaded(session.DatasetRequests) {
			ds = append(ds, session.DatasetRequests)
		}
		return a.load(ctx, ds...)
	})
	return out, err
}

// UploadPhoto attaches a photo to a pending request the caller
// created.  Without a file nothing is sent.
func (a *App) UploadPhoto(ctx context.Context, id int64, filename string, photo io.Reader) (model.Request, error) {
	var out model.Request
	err := a.run(ctx, "Upload", func(ctx context.Context) error {
		if photo == nil || strings.TrimSpace(filename) == "" {
			return invalid("photo", "choose a photo first")
		}
		if err := a.guard(id, lifecycle.ActionUploadPhoto); err != nil {
			return err
		}
		r, err := a.api.UploadPhoto(ctx, id, filename, photo)
		if err != nil {
			return err
		}
		out = r
		a.publish(ctx, queue.ActivityEvent{Kind: queue.KindRequestPhoto, RequestID: id, Detail: r.PhotoURL})
		return a.load(ctx, session.DatasetRequests)
	})
	return out, err
}

// Actions lists the controls offered for request id on the current
// screen.
func (a *App) Actions(id int64) ([]lifecycle.Action, error) {
	r, ok := a.sess.FindRequest(id)
	if !ok {
		return nil, fmt.Errorf("request %d: %w", id, ErrUnknownRequest)
	}
	return view.RequestActions(a.View(), a.sess.Actor(), r), nil
}

// guard checks action against the cached copy of request id.  The
// service stays the authority; this only keeps controls that would be
// refused from being sent.
func (a *App) guard(id int64, action lifecycle.Action) error {
	if !a.sess.Authenticated() {
		return session.ErrNotAuthenticated
	}
	r, ok := a.sess.FindRequest(id)
	if !ok {
		return fmt.Errorf("request %d: %w", id, ErrUnknownRequest)
	}
	return lifecycle.Check(r, a.sess.Actor(), action)
}
