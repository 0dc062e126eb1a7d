// Package app is the client controller.  It owns the session, talks
// to the service through the API client and resolves what is shown
// through the view package.  Actions are gated by a single in-flight
// flag; each failure is recorded as the current error string and every
// successful mutation is followed by a refetch of the lists it affects.
package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/events"
	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

var (
	// ErrBusy is returned when another action is still in flight.
	ErrBusy = errors.New("another action is in progress")
	// ErrUnknownRequest means the id is not in any loaded list.
	ErrUnknownRequest = errors.New("unknown request")
	// ErrUnknownUser means the id is not in the loaded user list.
	ErrUnknownUser = errors.New("unknown user")
	// ErrNoInvite means no invite token is being handled.
	ErrNoInvite = errors.New("no invite token")
)

// ValidationError is a short-circuit: the input was rejected before
// any call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// API is the subset of the HTTP client the controller uses.
type API interface {
	session.Authenticator
	Me(ctx context.Context) (*model.User, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	OwnerInbox(ctx context.Context) ([]model.Request, error)
	CreateRequest(ctx context.Context, d model.RequestDraft) (model.Request, error)
	EditRequest(ctx context.Context, id int64, p model.RequestPatch) (model.Request, error)
	UpdateStatus(ctx context.Context, id int64, s model.Status) (model.Request, error)
	Escalate(ctx context.Context, id int64) (model.Request, error)
	OwnerDecision(ctx context.Context, id int64, decision model.OwnerStatus) (model.Request, error)
	UploadPhoto(ctx context.Context, id int64, filename string, photo io.Reader) (model.Request, error)
	ListComplexes(ctx context.Context) ([]model.Complex, error)
	CreateComplex(ctx context.Context, name string) (model.Complex, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateInvite(ctx context.Context, in model.InviteRequest) (model.Invite, error)
	ValidateInvite(ctx context.Context, token string) (model.InviteTarget, error)
	AcceptInvite(ctx context.Context, token, password string) error
	ResetPassword(ctx context.Context, userID int64, newPassword string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	DeleteUser(ctx context.Context, userID int64) error
}

// Options carries the optional collaborators of an App.
type Options struct {
	// Origin prefixes invite links.
	Origin    string
	Publisher events.Publisher
	Metrics   *metrics.Client
	Log       *zap.Logger
}

// App is safe for concurrent use, but only one action runs at a time.
type App struct {
	sess    *session.Session
	api     API
	pub     events.Publisher
	metrics *metrics.Client
	log     *zap.Logger
	origin  string

	busy atomic.Bool

	mu         sync.Mutex
	tab        view.Tab
	invite     string
	errMsg     string
	notice     string
	lastInvite string
}

func New(sess *session.Session, api API, opts Options) *App {
	a := &App{
		sess:    sess,
		api:     api,
		pub:     opts.Publisher,
		metrics: opts.Metrics,
		log:     opts.Log,
		origin:  opts.Origin,
	}
	if a.pub == nil {
		a.pub = events.Nop{}
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// Session exposes the underlying session.
func (a *App) Session() *session.Session { return a.sess }

// Start routes on the initial URL fragment, restores the persisted
// session and preloads its data.  An invite fragment suppresses the
// preload: the accept-invite screen needs none of it.  Leaving the
// invite flow later loads what was skipped.
func (a *App) Start(ctx context.Context, fragment string) error {
	a.setInvite(view.InviteToken(fragment))
	if err := a.sess.Restore(ctx); err != nil {
		a.setErr(err)
		return err
	}
	if !a.sess.Authenticated() {
		return nil
	}
	a.setTab(view.DefaultTab(a.sess.Role()))
	if a.inviteToken() != "" {
		return nil
	}
	return a.Preload(ctx)
}

// Navigate is called with the URL fragment whenever it changes.  An
// accept-invite fragment takes precedence over the authenticated view
// until it is cleared; clearing it brings the dashboard back and
// preloads it if nothing was loaded yet.
func (a *App) Navigate(ctx context.Context, fragment string) error {
	if left := a.setInvite(view.InviteToken(fragment)); left && a.needsPreload() {
		return a.Preload(ctx)
	}
	return nil
}

// setInvite replaces the invite token and reports whether the invite
// flow was left.
func (a *App) setInvite(tok string) (left bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tok != a.invite {
		a.notice = ""
	}
	left = a.invite != "" && tok == ""
	a.invite = tok
	return left
}

// needsPreload reports whether an authenticated session is missing any
// dataset its role preloads.
func (a *App) needsPreload() bool {
	role := a.sess.Role()
	if role == "" || !a.sess.Authenticated() {
		return false
	}
	for _, d := range view.Preload(role) {
		if !a.sess.Loaded(d) {
			return true
		}
	}
	return false
}

// View resolves the current screen.
func (a *App) View() view.View {
	return view.Resolve(a.sess.Role(), a.Tab(), a.inviteToken())
}

func (a *App) Tab() view.Tab {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tab
}

// Err is the current error string; empty when the last action
// succeeded.
func (a *App) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errMsg
}

// Notice is the last success message worth showing, if any.
func (a *App) Notice() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notice
}

// Busy reports whether an action is in flight.
func (a *App) Busy() bool { return a.busy.Load() }

// LastInviteLink is the link produced by the most recent invite.
func (a *App) LastInviteLink() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastInvite
}

// Login authenticates as claimed and preloads the role's data.  A
// preload failure is reported but leaves the session established.
func (a *App) Login(ctx context.Context, username, password string, claimed model.Role) error {
	username = strings.TrimSpace(username)
	return a.run(ctx, "Login", func(ctx context.Context) error {
		if username == "" || password == "" {
			return invalid("credentials", "username and password are required")
		}
		if err := a.sess.Login(ctx, a.api, username, password, claimed); err != nil {
			return err
		}
		a.mu.Lock()
		a.tab = view.DefaultTab(claimed)
		a.lastInvite = ""
		a.mu.Unlock()
		return a.preload(ctx)
	})
}

// Logout clears the session and everything cached under it.  It is not
// gated by the in-flight flag; results of fetches still in flight are
// discarded when they land.
func (a *App) Logout(ctx context.Context) error {
	err := a.sess.Logout(ctx)
	a.mu.Lock()
	a.tab = ""
	a.lastInvite = ""
	a.errMsg = ""
	a.notice = ""
	a.mu.Unlock()
	if err != nil {
		a.setErr(err)
	}
	a.metrics.Action("Logout", outcome(err))
	return err
}

// Preload fetches the profile and every dataset of the role.
func (a *App) Preload(ctx context.Context) error {
	return a.run(ctx, "Preload", a.preload)
}

func (a *App) preload(ctx context.Context) error {
	gen := a.sess.Generation()
	role := a.sess.Role()
	if role == "" {
		return session.ErrNotAuthenticated
	}
	a.loadProfile(ctx, gen)
	return a.loadGen(ctx, gen, view.Preload(role)...)
}

// SelectTab switches the owner tab and loads the tab's datasets that
// were not loaded yet.
func (a *App) SelectTab(ctx context.Context, tab view.Tab) error {
	return a.run(ctx, "Select tab", func(ctx context.Context) error {
		if a.sess.Role() != model.RoleOwner {
			return invalid("tab", "tabs are only available to owners")
		}
		t, ok := view.ParseTab(string(tab))
		if !ok {
			return invalid("tab", "unknown tab "+string(tab))
		}
		a.setTab(t)
		var missing []session.Dataset
		for _, d := range a.View().Datasets {
			if !a.sess.Loaded(d) {
				missing = append(missing, d)
			}
		}
		return a.load(ctx, missing...)
	})
}

// Refresh refetches every dataset of the current screen.
func (a *App) Refresh(ctx context.Context) error {
	return a.run(ctx, "Refresh", func(ctx context.Context) error {
		if !a.sess.Authenticated() {
			return session.ErrNotAuthenticated
		}
		return a.load(ctx, a.View().Datasets...)
	})
}

// run executes one user action under the in-flight flag.  The current
// error is cleared first and replaced by the action's failure, if any.
func (a *App) run(ctx context.Context, action string, fn func(context.Context) error) error {
	if !a.busy.CompareAndSwap(false, true) {
		a.metrics.Action(action, "skipped")
		return ErrBusy
	}
	defer a.busy.Store(false)

	a.mu.Lock()
	a.errMsg = ""
	a.mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	a.metrics.Action(action, outcome(err))
	if err != nil {
		a.setErr(err)
		a.log.Warn("action failed", zap.String("action", action), zap.Error(err))
		return err
	}
	a.log.Debug("action done", zap.String("action", action), zap.Duration("took", time.Since(start)))
	return nil
}

func outcome(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "skipped"
	}
	return "error"
}

func (a *App) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errMsg = err.Error()
}

func (a *App) setTab(t view.Tab) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tab = t
}

func (a *App) inviteToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.invite
}

// loadProfile fetches the caller's account.  A failure leaves the
// profile nil; the lists the user sees surface the real problem.
func (a *App) loadProfile(ctx context.Context, gen uint64) {
	u, err := a.api.Me(ctx)
	if err != nil {
		a.log.Warn("profile fetch failed", zap.Error(err))
	}
	a.sess.SetProfile(gen, u)
}

// load fetches datasets concurrently for the current login.  A failed
// fetch resets its list to empty; the failures are joined into the
// returned error.
func (a *App) load(ctx context.Context, ds ...session.Dataset) error {
	return a.loadGen(ctx, a.sess.Generation(), ds...)
}

// loadGen is load for login generation gen.  Results that arrive after
// a logout or another login are dropped by the session.
func (a *App) loadGen(ctx context.Context, gen uint64, ds ...session.Dataset) error {
	if len(ds) == 0 {
		return nil
	}
	errs := make([]error, len(ds))
	var wg sync.WaitGroup
	for i, d := range ds {
		wg.Add(1)
		go func(i int, d session.Dataset) {
			defer wg.Done()
			errs[i] = a.fetch(ctx, gen, d)
		}(i, d)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (a *App) fetch(ctx context.Context, gen uint64, d session.Dataset) error {
	switch d {
	case session.DatasetRequests:
		rs, err := a.api.ListRequests(ctx)
		if err != nil {
			rs = nil
		}
		a.sess.SetRequests(gen, rs)
		return err
	case session.DatasetInbox:
		rs, err := a.api.OwnerInbox(ctx)
		if err != nil {
			rs = nil
		}
		a.sess.SetInbox(gen, view.FilterInbox(rs))
		return err
	case session.DatasetComplexes:
		cs, err := a.api.ListComplexes(ctx)
		if err != nil {
			cs = nil
		}
		a.sess.SetComplexes(gen, cs)
		return err
	case session.DatasetUsers:
		us, err := a.api.ListUsers(ctx)
		if err != nil {
			us = nil
		}
		a.sess.SetUsers(gen, us)
		return err
	}
	return nil
}

// publish sends an activity event stamped with the session holder.
// Failures are logged only.
func (a *App) publish(ctx context.Context, ev queue.ActivityEvent) {
	actor := a.sess.Actor()
	ev.ActorRole = string(actor.Role)
	ev.ActorID = actor.UserID
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := a.pub.Publish(ctx, ev); err != nil {
		a.log.Warn("publish activity event", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
