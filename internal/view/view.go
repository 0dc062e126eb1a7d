// Package view decides what the client shows for a role: which
// screen, which tabs, which datasets to load, which per-request
// controls to offer and which accounts may be managed.  All of it is
// advisory; the service enforces the same rules on its side.
package view

import (
	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
)

// Screen is a top-level view.
type Screen string

const (
	ScreenLogin        Screen = "login"
	ScreenAcceptInvite Screen = "accept-invite"
	ScreenOwnerInbox   Screen = "owner-inbox"
	ScreenOwnerAll     Screen = "owner-all"
	ScreenOwnerAdmin   Screen = "owner-admin"
	ScreenManager      Screen = "manager"
	ScreenWorker       Screen = "worker"
)

// Tab is one of the owner's tabs.  Other roles have a single screen.
type Tab string

const (
	TabInbox Tab = "inbox"
	TabAll   Tab = "all"
	TabAdmin Tab = "admin"
)

// ParseTab accepts the three owner tab names.
func ParseTab(s string) (Tab, bool) {
	switch t := Tab(s); t {
	case TabInbox, TabAll, TabAdmin:
		return t, true
	}
	return "", false
}

// View is the resolved state of the client for a role and tab.
type View struct {
	Screen Screen
	// Tab is the effective owner tab; empty for other roles.
	Tab  Tab
	Tabs []Tab
	// Datasets are the collections this screen displays.
	Datasets []session.Dataset
	// CanCreateRequest is true on the worker screen.
	CanCreateRequest bool
	// CanCreateComplex is true on the owner admin tab.
	CanCreateComplex bool
	// InviteRoles lists the roles this screen may invite; empty means
	// no invite form.
	InviteRoles []model.Role
	// ManageableRoles lists the roles whose accounts may be managed.
	ManageableRoles []model.Role
}

// Resolve maps the session role, selected tab and invite token to a
// View.  A non-empty invite token wins over everything else, including
// an authenticated session.  An unknown tab falls back to the role's
// default.
func Resolve(role model.Role, tab Tab, inviteToken string) View {
	if inviteToken != "" {
		return View{Screen: ScreenAcceptInvite}
	}
	switch role {
	case model.RoleOwner:
		if _, ok := ParseTab(string(tab)); !ok {
			tab = DefaultTab(role)
		}
		v := View{Tab: tab, Tabs: []Tab{TabInbox, TabAll, TabAdmin}}
		switch tab {
		case TabInbox:
			v.Screen = ScreenOwnerInbox
			v.Datasets = []session.Dataset{session.DatasetInbox}
		case TabAll:
			v.Screen = ScreenOwnerAll
			v.Datasets = []session.Dataset{session.DatasetRequests}
		case TabAdmin:
			v.Screen = ScreenOwnerAdmin
			v.Datasets = []session.Dataset{session.DatasetComplexes, session.DatasetUsers}
			v.CanCreateComplex = true
			v.InviteRoles = InviteRoles(role)
			v.ManageableRoles = ManageableRoles(role)
		}
		return v
	case model.RoleManager:
		return View{
			Screen:          ScreenManager,
			Datasets:        []session.Dataset{session.DatasetRequests, session.DatasetUsers},
			InviteRoles:     InviteRoles(role),
			ManageableRoles: ManageableRoles(role),
		}
	case model.RoleWorker:
		return View{
			Screen:           ScreenWorker,
			Datasets:         []session.Dataset{session.DatasetRequests},
			CanCreateRequest: true,
		}
	}
	return View{Screen: ScreenLogin}
}

// DefaultTab is the tab shown right after login.
func DefaultTab(role model.Role) Tab {
	if role == model.RoleOwner {
		return TabInbox
	}
	return ""
}

// Preload lists what is fetched right after login or restore, beyond
// the profile.
func Preload(role model.Role) []session.Dataset {
	switch role {
	case model.RoleOwner:
		return []session.Dataset{session.DatasetInbox, session.DatasetRequests, session.DatasetComplexes, session.DatasetUsers}
	case model.RoleManager:
		return []session.Dataset{session.DatasetRequests, session.DatasetComplexes, session.DatasetUsers}
	case model.RoleWorker:
		return []session.Dataset{session.DatasetRequests}
	}
	return nil
}

// RequestActions lists the controls offered for r.  Owners get
// decisions only on their inbox screen; the all-requests tab is read
// only.
func RequestActions(v View, actor lifecycle.Actor, r model.Request) []lifecycle.Action {
	if v.Screen == ScreenOwnerAll || v.Screen == ScreenOwnerAdmin {
		return nil
	}
	return lifecycle.Available(r, actor)
}

// FilterInbox keeps the pending requests that were escalated.
func FilterInbox(rs []model.Request) []model.Request {
	out := make([]model.Request, 0, len(rs))
	for _, r := range rs {
		st := r.OwnerStatus
		if st == "" {
			st = model.OwnerNone
		}
		if r.Status == model.StatusPending && st != model.OwnerNone {
			out = append(out, r)
		}
	}
	return out
}

// ManageableRoles lists which account roles actor may reset, toggle
// or delete.
func ManageableRoles(actor model.Role) []model.Role {
	switch actor {
	case model.RoleOwner:
		return []model.Role{model.RoleManager, model.RoleWorker}
	case model.RoleManager:
		return []model.Role{model.RoleWorker}
	}
	return nil
}

// CanManage reports whether actor may manage target.  Owners manage any
// non-owner account, managers manage workers, workers manage nobody.
func CanManage(actor model.Role, target model.User) bool {
	for _, r := range ManageableRoles(actor) {
		if r == target.Role {
			return true
		}
	}
	return false
}

// InviteRoles lists the roles actor may invite.
func InviteRoles(actor model.Role) []model.Role {
	switch actor {
	case model.RoleOwner:
		return []model.Role{model.RoleManager, model.RoleWorker}
	case model.RoleManager:
		return []model.Role{model.RoleWorker}
	}
	return nil
}
