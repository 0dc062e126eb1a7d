package lifecycle

import (
	"errors"
	"testing"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

var (
	owner   = Actor{Role: model.RoleOwner, UserID: 1}
	manager = Actor{Role: model.RoleManager, UserID: 2}
	worker  = Actor{Role: model.RoleWorker, UserID: 3}
	other   = Actor{Role: model.RoleWorker, UserID: 4}
)

func pending() model.Request {
	return model.Request{ID: 10, Item: "Cement", Quantity: 10, Project: "Site A",
		Status: model.StatusPending, OwnerStatus: model.OwnerNone, CreatedBy: worker.UserID}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name       string
		actor      Actor
		action     Action
		wantStatus model.Status
		wantOwner  model.OwnerStatus
	}{
		{"approve", manager, ActionApprove, model.StatusApproved, model.OwnerNone},
		{"ordered", manager, ActionMarkOrdered, model.StatusOrdered, model.OwnerNone},
		{"delivered", manager, ActionMarkDelivered, model.StatusDelivered, model.OwnerNone},
		{"reject", manager, ActionReject, model.StatusRejected, model.OwnerNone},
		{"cancel", worker, ActionCancel, model.StatusCanceled, model.OwnerNone},
		{"edit", worker, ActionEdit, model.StatusPending, model.OwnerNone},
		{"escalate", manager, ActionEscalate, model.StatusPending, model.OwnerPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(pending(), tt.actor, tt.action)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got.Status != tt.wantStatus || got.OwnerStatus != tt.wantOwner {
				t.Errorf("got (%s, %s), want (%s, %s)", got.Status, got.OwnerStatus, tt.wantStatus, tt.wantOwner)
			}
		})
	}
}

func TestWorkerActionsOnlyWhilePending(t *testing.T) {
	for _, s := range []model.Status{model.StatusApproved, model.StatusOrdered, model.StatusDelivered, model.StatusRejected, model.StatusCanceled} {
		r := pending()
		r.Status = s
		for _, a := range []Action{ActionEdit, ActionCancel, ActionUploadPhoto} {
			if err := Check(r, worker, a); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s from %s: got %v, want ErrInvalidTransition", a, s, err)
			}
		}
		if got := Available(r, worker); len(got) != 0 {
			t.Errorf("worker actions offered on %s request: %v", s, got)
		}
	}
}

func TestCreatorOnly(t *testing.T) {
	if err := Check(pending(), other, ActionCancel); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("cancel by non-creator: got %v, want ErrNotPermitted", err)
	}
	unknown := Actor{Role: model.RoleWorker}
	if err := Check(pending(), unknown, ActionEdit); err != nil {
		t.Errorf("edit with unknown actor id: %v", err)
	}
}

func TestRoleGuards(t *testing.T) {
	if err := Check(pending(), worker, ActionApprove); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("worker approve: got %v", err)
	}
	if err := Check(pending(), owner, ActionEscalate); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("owner escalate: got %v", err)
	}
	if err := Check(pending(), manager, Action("bogus")); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("bogus action: got %v", err)
	}
}

func TestEscalateThenOwnerDecision(t *testing.T) {
	r, err := Apply(pending(), manager, ActionEscalate)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	for _, a := range Available(r, manager) {
		if a == ActionEscalate {
			t.Fatal("escalate still offered after escalation")
		}
	}
	if _, err := Apply(r, manager, ActionEscalate); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("re-escalate: got %v", err)
	}

	decided, err := Apply(r, owner, ActionOwnerApprove)
	if err != nil {
		t.Fatalf("owner approve: %v", err)
	}
	if decided.OwnerStatus != model.OwnerApproved {
		t.Errorf("owner status = %s, want approved", decided.OwnerStatus)
	}
	if decided.Status != model.StatusPending {
		t.Errorf("status = %s, want pending (owner decisions never change status)", decided.Status)
	}

	// A decided request cannot go back to pending or none.
	for _, a := range []Action{ActionEscalate, ActionOwnerApprove, ActionOwnerReject} {
		actor := owner
		if a == ActionEscalate {
			actor = manager
		}
		if _, err := Apply(decided, actor, a); err == nil {
			t.Errorf("%s on decided request succeeded", a)
		}
	}
}

func TestOwnerDecisionRequiresEscalation(t *testing.T) {
	if err := Check(pending(), owner, ActionOwnerReject); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("owner reject without escalation: got %v", err)
	}
}

func TestManagerForwardProgression(t *testing.T) {
	r := pending()
	r.Status = model.StatusApproved
	if err := Check(r, manager, ActionMarkOrdered); err != nil {
		t.Errorf("approved -> ordered: %v", err)
	}
	if err := Check(r, manager, ActionReject); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approved -> rejected: got %v", err)
	}
	r.Status = model.StatusDelivered
	if got := Available(r, manager); len(got) != 0 {
		t.Errorf("actions offered on delivered request: %v", got)
	}
}

func TestForStatus(t *testing.T) {
	a, err := ForStatus(model.StatusCanceled)
	if err != nil || a != ActionCancel {
		t.Errorf("ForStatus(canceled) = %s, %v", a, err)
	}
	if _, err := ForStatus(model.StatusPending); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("ForStatus(pending): got %v", err)
	}
	if to, ok := TargetStatus(ActionEscalate); ok {
		t.Errorf("escalate should not change status, got %s", to)
	}
}
