package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/construction-supply-tracker/internal/client"
	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/events"
	"github.com/iliyamo/construction-supply-tracker/internal/handler"
	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
	"github.com/iliyamo/construction-supply-tracker/internal/router"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

const origin = "https://supply.example.com"

// fixture is a running stub with an owner, a complex, a manager and a
// worker onboarded through invites.
type fixture struct {
	srv     *httptest.Server
	owner   *App
	manager *App
	worker  *App
	rec     *events.Recorder
}

func startStub(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.StubConfig{
		JWTSecret:     "test-secret",
		AccessTTLMin:  60,
		BcryptCost:    bcrypt.MinCost,
		OwnerUsername: "olivia",
		OwnerPassword: "owner-pass",
		InviteTTL:     time.Hour,
	}
	repos := handler.NewRepos()
	if _, err := handler.SeedOwner(cfg, repos); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	srv := httptest.NewServer(router.New(cfg, repos, zaptest.NewLogger(t), nil))
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T, baseURL string, store session.Store, pub events.Publisher) *App {
	t.Helper()
	log := zaptest.NewLogger(t)
	sess := session.New(store, log)
	api := client.New(baseURL, sess, client.WithLogger(log))
	return New(sess, api, Options{Origin: origin, Publisher: pub, Log: log})
}

// onboard accepts invite link as a fresh client and logs in.
func onboard(t *testing.T, baseURL, link, username, password string, role model.Role) *App {
	t.Helper()
	ctx := context.Background()
	a := newApp(t, baseURL, session.NewMemoryStore(), nil)
	if err := a.Start(ctx, link); err != nil {
		t.Fatalf("Start with invite: %v", err)
	}
	target, err := a.ValidateInvite(ctx)
	if err != nil {
		t.Fatalf("ValidateInvite: %v", err)
	}
	if target.Username != username || target.Role != role {
		t.Fatalf("invite target = %+v", target)
	}
	if err := a.AcceptInvite(ctx, password, password); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if err := a.Login(ctx, username, password, role); err != nil {
		t.Fatalf("Login %s: %v", username, err)
	}
	return a
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	srv := startStub(t)
	rec := &events.Recorder{}

	owner := newApp(t, srv.URL, session.NewMemoryStore(), rec)
	if err := owner.Login(ctx, "olivia", "owner-pass", model.RoleOwner); err != nil {
		t.Fatalf("owner login: %v", err)
	}
	if _, err := owner.CreateComplex(ctx, "North"); err != nil {
		t.Fatalf("CreateComplex: %v", err)
	}
	link, err := owner.Invite(ctx, view.InviteForm{Username: "mason", Role: model.RoleManager})
	if err != nil {
		t.Fatalf("invite manager: %v", err)
	}
	manager := onboard(t, srv.URL, link, "mason", "manager-pass", model.RoleManager)

	link, err = manager.Invite(ctx, view.InviteForm{Username: "wren"})
	if err != nil {
		t.Fatalf("invite worker: %v", err)
	}
	worker := onboard(t, srv.URL, link, "wren", "worker-pass", model.RoleWorker)
	worker.pub = rec

	return &fixture{srv: srv, owner: owner, manager: manager, worker: worker, rec: rec}
}

func TestWorkflowEscalationAndOwnerDecision(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	r, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Cement", Quantity: "10", Project: "Site A"})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if r.Status != model.StatusPending || r.OwnerStatus != model.OwnerNone {
		t.Fatalf("new request = %s/%s", r.Status, r.OwnerStatus)
	}
	if got := f.worker.Session().Snapshot().Requests; len(got) != 1 || got[0].ID != r.ID {
		t.Fatalf("worker list after create = %+v", got)
	}

	if err := f.manager.Refresh(ctx); err != nil {
		t.Fatalf("manager refresh: %v", err)
	}
	esc, err := f.manager.Escalate(ctx, r.ID)
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if esc.OwnerStatus != model.OwnerPending {
		t.Fatalf("owner_status after escalate = %s", esc.OwnerStatus)
	}
	actions, err := f.manager.Actions(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range actions {
		if a == lifecycle.ActionEscalate {
			t.Fatalf("escalate still offered: %v", actions)
		}
	}

	if err := f.owner.Refresh(ctx); err != nil {
		t.Fatalf("owner refresh: %v", err)
	}
	inbox := f.owner.Session().Snapshot().Inbox
	if len(inbox) != 1 || inbox[0].ID != r.ID {
		t.Fatalf("owner inbox = %+v", inbox)
	}
	decided, err := f.owner.OwnerDecide(ctx, r.ID, model.OwnerApproved)
	if err != nil {
		t.Fatalf("OwnerDecide: %v", err)
	}
	if decided.OwnerStatus != model.OwnerApproved || decided.Status != model.StatusPending {
		t.Fatalf("after owner approval = %s/%s", decided.Status, decided.OwnerStatus)
	}
	if _, err := f.owner.OwnerDecide(ctx, r.ID, model.OwnerRejected); !errors.Is(err, ErrUnknownRequest) && !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("second decision: got %v", err)
	}

	kinds := map[string]bool{}
	for _, ev := range f.rec.Events() {
		kinds[ev.Kind] = true
	}
	for _, k := range []string{queue.KindComplexCreated, queue.KindInviteCreated, queue.KindRequestCreated, queue.KindRequestOwnerDecided} {
		if !kinds[k] {
			t.Errorf("event %s not published (got %v)", k, kinds)
		}
	}
}

func TestWorkerCannotEditAfterApproval(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	r, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Rebar", Quantity: "4", Project: "Site B"})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	edited, err := f.worker.EditRequest(ctx, r.ID, RequestForm{Quantity: "6", Notes: "urgent"})
	if err != nil {
		t.Fatalf("EditRequest: %v", err)
	}
	if edited.Quantity != 6 || edited.Item != "Rebar" || edited.Notes != "urgent" {
		t.Fatalf("edited = %+v", edited)
	}

	if err := f.manager.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.SetStatus(ctx, r.ID, model.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.worker.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	actions, err := f.worker.Actions(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 0 {
		t.Errorf("worker offered %v on an approved request", actions)
	}
	if _, err := f.worker.EditRequest(ctx, r.ID, RequestForm{Item: "Steel"}); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("edit after approval: got %v", err)
	}
	if _, err := f.worker.CancelRequest(ctx, r.ID); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("cancel after approval: got %v", err)
	}

	// Forward progression after approval.
	if _, err := f.manager.SetStatus(ctx, r.ID, model.StatusOrdered); err != nil {
		t.Fatalf("mark ordered: %v", err)
	}
	if _, err := f.manager.SetStatus(ctx, r.ID, model.StatusDelivered); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
}

func TestLoginRoleMismatchEstablishesNothing(t *testing.T) {
	ctx := context.Background()
	srv := startStub(t)
	store := session.NewMemoryStore()
	a := newApp(t, srv.URL, store, nil)

	err := a.Login(ctx, "olivia", "owner-pass", model.RoleWorker)
	var mm *session.RoleMismatchError
	if !errors.As(err, &mm) || mm.Actual != model.RoleOwner {
		t.Fatalf("Login: got %v", err)
	}
	if a.Session().Authenticated() || store.Len() != 0 {
		t.Errorf("session established after mismatch (store len %d)", store.Len())
	}
	if want := "this account is Owner; switch selector to Owner"; a.Err() != want {
		t.Errorf("Err() = %q, want %q", a.Err(), want)
	}
	if a.View().Screen != view.ScreenLogin {
		t.Errorf("screen = %s", a.View().Screen)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.owner.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.owner.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	s := f.owner.Session()
	if s.Token() != "" || s.Role() != "" || s.Profile() != nil {
		t.Errorf("credential survived logout")
	}
	c := s.Snapshot()
	if len(c.Requests)+len(c.Inbox)+len(c.Users)+len(c.Complexes) != 0 {
		t.Errorf("cache survived logout: %+v", c)
	}
	for _, d := range []session.Dataset{session.DatasetRequests, session.DatasetInbox, session.DatasetUsers, session.DatasetComplexes} {
		if s.Loaded(d) {
			t.Errorf("%s still marked loaded", d)
		}
	}
	if f.owner.LastInviteLink() != "" {
		t.Errorf("invite link survived logout")
	}
}

func TestRestoreReusesToken(t *testing.T) {
	ctx := context.Background()
	srv := startStub(t)
	store := session.NewMemoryStore()

	first := newApp(t, srv.URL, store, nil)
	if err := first.Login(ctx, "olivia", "owner-pass", model.RoleOwner); err != nil {
		t.Fatalf("Login: %v", err)
	}
	token := first.Session().Token()

	restarted := newApp(t, srv.URL, store, nil)
	if err := restarted.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if restarted.Session().Token() != token {
		t.Errorf("token not reused")
	}
	if p := restarted.Session().Profile(); p == nil || p.Username != "olivia" {
		t.Errorf("profile after restore = %+v", p)
	}
	if !restarted.Session().Loaded(session.DatasetInbox) {
		t.Errorf("inbox not preloaded after restore")
	}
	if restarted.View().Screen != view.ScreenOwnerInbox {
		t.Errorf("screen = %s", restarted.View().Screen)
	}
}

func TestInviteFragmentTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	if err := f.owner.Navigate(ctx, "#accept-invite=abc"); err != nil {
		t.Fatalf("Navigate to invite: %v", err)
	}
	if got := f.owner.View().Screen; got != view.ScreenAcceptInvite {
		t.Fatalf("screen with invite fragment = %s", got)
	}
	if err := f.owner.Navigate(ctx, ""); err != nil {
		t.Fatalf("Navigate away from invite: %v", err)
	}
	if got := f.owner.View().Screen; got != view.ScreenOwnerInbox {
		t.Fatalf("screen after fragment cleared = %s", got)
	}
	if !f.owner.Session().Loaded(session.DatasetInbox) {
		t.Errorf("inbox not loaded after fragment cleared")
	}

	if _, err := f.owner.ValidateInvite(ctx); !errors.Is(err, ErrNoInvite) {
		t.Errorf("ValidateInvite without token: %v", err)
	}
	if err := f.owner.Navigate(ctx, origin+"/#accept-invite=does-not-exist"); err != nil {
		t.Fatal(err)
	}
	_, err := f.owner.ValidateInvite(ctx)
	if code, ok := client.StatusCode(err); !ok || code != 404 {
		t.Errorf("ValidateInvite unknown token: %v", err)
	}
}

// restoredOwner returns a fresh client whose owner session is restored
// from a store written by an earlier login, started on fragment.
func restoredOwner(t *testing.T, fragment string) (*App, *httptest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := startStub(t)
	store := session.NewMemoryStore()
	first := newApp(t, srv.URL, store, nil)
	if err := first.Login(ctx, "olivia", "owner-pass", model.RoleOwner); err != nil {
		t.Fatalf("Login: %v", err)
	}
	a := newApp(t, srv.URL, store, nil)
	if err := a.Start(ctx, fragment); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !a.Session().Authenticated() {
		t.Fatal("session not restored")
	}
	return a, srv
}

func TestLeavingInviteFragmentPreloads(t *testing.T) {
	ctx := context.Background()
	a, _ := restoredOwner(t, "#accept-invite=abc")
	if a.Session().Loaded(session.DatasetInbox) {
		t.Fatalf("inbox preloaded behind the invite screen")
	}
	if err := a.Navigate(ctx, ""); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := a.View().Screen; got != view.ScreenOwnerInbox {
		t.Fatalf("screen = %s", got)
	}
	for _, d := range view.Preload(model.RoleOwner) {
		if !a.Session().Loaded(d) {
			t.Errorf("%s not loaded after leaving the invite screen", d)
		}
	}
	if p := a.Session().Profile(); p == nil || p.Username != "olivia" {
		t.Errorf("profile = %+v", p)
	}
}

func TestAcceptInviteWithRestoredSessionPreloads(t *testing.T) {
	ctx := context.Background()
	srv := startStub(t)
	store := session.NewMemoryStore()
	first := newApp(t, srv.URL, store, nil)
	if err := first.Login(ctx, "olivia", "owner-pass", model.RoleOwner); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := first.CreateComplex(ctx, "North"); err != nil {
		t.Fatalf("CreateComplex: %v", err)
	}
	link, err := first.Invite(ctx, view.InviteForm{Username: "mason", Role: model.RoleManager})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	a := newApp(t, srv.URL, store, nil)
	if err := a.Start(ctx, link); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.Session().Loaded(session.DatasetInbox) {
		t.Fatalf("inbox preloaded behind the invite screen")
	}
	if err := a.AcceptInvite(ctx, "mason-pass", "mason-pass"); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if got := a.View().Screen; got != view.ScreenOwnerInbox {
		t.Errorf("screen after accept = %s", got)
	}
	if !a.Session().Loaded(session.DatasetInbox) || !a.Session().Loaded(session.DatasetComplexes) {
		t.Errorf("dashboard not loaded after accept")
	}
	if a.Notice() != AcceptedNotice {
		t.Errorf("notice = %q", a.Notice())
	}
}

func TestAcceptInviteValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	link, err := f.owner.Invite(ctx, view.InviteForm{Username: "nia", Role: model.RoleWorker})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if !strings.HasPrefix(link, origin+"/#accept-invite=") || f.owner.LastInviteLink() != link {
		t.Fatalf("link = %q", link)
	}

	a := newApp(t, f.srv.URL, session.NewMemoryStore(), nil)
	if err := a.Navigate(ctx, link); err != nil {
		t.Fatal(err)
	}
	var ve *ValidationError
	if err := a.AcceptInvite(ctx, "one", "two"); !errors.As(err, &ve) || a.Err() != "passwords must match" {
		t.Fatalf("mismatched passwords: %v / %q", err, a.Err())
	}
	if err := a.AcceptInvite(ctx, "", ""); !errors.As(err, &ve) {
		t.Fatalf("empty password: %v", err)
	}
	if err := a.AcceptInvite(ctx, "nia-pass", "nia-pass"); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if a.Notice() != AcceptedNotice || a.View().Screen != view.ScreenLogin {
		t.Errorf("after accept: notice %q screen %s", a.Notice(), a.View().Screen)
	}

	// Single use.
	if err := a.Navigate(ctx, link); err != nil {
		t.Fatal(err)
	}
	err = a.AcceptInvite(ctx, "again", "again")
	if code, ok := client.StatusCode(err); !ok || code != 410 {
		t.Errorf("second accept: %v", err)
	}
}

func TestValidationShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	var ve *ValidationError
	if _, err := f.worker.CreateRequest(ctx, RequestForm{Quantity: "3", Project: "P"}); !errors.As(err, &ve) {
		t.Fatalf("missing item: %v", err)
	}
	if f.worker.Err() != "item is required" {
		t.Errorf("Err() = %q", f.worker.Err())
	}
	if _, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Sand", Quantity: "0", Project: "P"}); !errors.As(err, &ve) {
		t.Errorf("zero quantity: %v", err)
	}
	if _, err := f.worker.UploadPhoto(ctx, 1, "", nil); !errors.As(err, &ve) {
		t.Errorf("upload without file: %v", err)
	}
	if _, err := f.owner.Invite(ctx, view.InviteForm{Username: "   "}); !errors.As(err, &ve) {
		t.Errorf("blank invite username: %v", err)
	}
	if _, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Sand", Quantity: "NaN", Project: "P"}); !errors.As(err, &ve) {
		t.Errorf("NaN quantity: %v", err)
	}
	if err := f.worker.Login(ctx, "   ", "worker-pass", model.RoleWorker); !errors.As(err, &ve) {
		t.Errorf("blank username: %v", err)
	}
	if !f.worker.Session().Authenticated() {
		t.Errorf("a short-circuited login touched the session")
	}
	if len(f.worker.Session().Snapshot().Requests) != 0 {
		t.Errorf("a short-circuited create reached the service")
	}
}

func TestUploadPhoto(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Tiles", Quantity: "12", Project: "Lobby"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.worker.UploadPhoto(ctx, r.ID, "tiles.png", strings.NewReader("\x89PNG\r\n\x1a\nfake"))
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if !strings.Contains(out.PhotoURL, "/uploads/") {
		t.Errorf("photo_url = %q", out.PhotoURL)
	}
}

func TestBusyFlagRejectsSecondAction(t *testing.T) {
	f := setup(t)
	f.worker.busy.Store(true)
	defer f.worker.busy.Store(false)
	if _, err := f.worker.CreateRequest(context.Background(), RequestForm{Item: "x", Quantity: "1", Project: "y"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
}

func TestFailedFetchResetsList(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if _, err := f.worker.CreateRequest(ctx, RequestForm{Item: "Gravel", Quantity: "2", Project: "Yard"}); err != nil {
		t.Fatal(err)
	}
	f.srv.Close()
	if err := f.worker.Refresh(ctx); err == nil {
		t.Fatal("Refresh against a closed server succeeded")
	}
	if n := len(f.worker.Session().Snapshot().Requests); n != 0 {
		t.Errorf("stale requests kept: %d", n)
	}
	if f.worker.Err() == "" {
		t.Error("no error surfaced")
	}
}

func TestManagerAccountManagement(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.manager.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	users := f.manager.Session().Snapshot().Users
	var wren model.User
	for _, u := range users {
		if u.Username == "wren" {
			wren = u
		}
	}
	if wren.ID == 0 {
		t.Fatalf("worker not in manager's user list: %+v", users)
	}
	if err := f.manager.ToggleActive(ctx, wren.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}
	a := newApp(t, f.srv.URL, session.NewMemoryStore(), nil)
	err := a.Login(ctx, "wren", "worker-pass", model.RoleWorker)
	if code, ok := client.StatusCode(err); !ok || code != 403 {
		t.Fatalf("login while disabled: %v", err)
	}
	if err := f.manager.ToggleActive(ctx, wren.ID); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := f.manager.ResetPassword(ctx, wren.ID, "new-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := a.Login(ctx, "wren", "new-pass", model.RoleWorker); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	// The manager cannot manage the owner, who is not even listed.
	if err := f.manager.DeleteUser(ctx, 1); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("delete owner: %v", err)
	}
	if err := f.manager.DeleteUser(ctx, wren.ID); err != nil {
		t.Fatalf("delete worker: %v", err)
	}
	for _, u := range f.manager.Session().Snapshot().Users {
		if u.ID == wren.ID {
			t.Errorf("deleted worker still listed")
		}
	}
}

func TestSelectTabLoadsMissingData(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.owner.SelectTab(ctx, view.TabAdmin); err != nil {
		t.Fatalf("SelectTab: %v", err)
	}
	v := f.owner.View()
	if v.Screen != view.ScreenOwnerAdmin || !v.CanCreateComplex {
		t.Errorf("admin view = %+v", v)
	}
	if err := f.worker.SelectTab(ctx, view.TabAll); err == nil {
		t.Error("worker switched tabs")
	}
}

// gatedAPI serves a worker login and holds ListRequests open while
// gate is set.
type gatedAPI struct {
	API
	gate    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAPI) Login(ctx context.Context, username, password string) (model.LoginResult, error) {
	return model.LoginResult{Token: "worker-token", Role: model.RoleWorker}, nil
}

func (g *gatedAPI) Me(ctx context.Context) (*model.User, error) {
	return &model.User{ID: 7, Username: "wren", Role: model.RoleWorker}, nil
}

func (g *gatedAPI) ListRequests(ctx context.Context) ([]model.Request, error) {
	if g.gate.Load() {
		close(g.entered)
		<-g.release
	}
	return []model.Request{{ID: 1, Item: "Cement", Quantity: 1, Project: "A", CreatedBy: 7}}, nil
}

func TestLogoutDiscardsInFlightFetch(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	sess := session.New(session.NewMemoryStore(), log)
	api := &gatedAPI{entered: make(chan struct{}), release: make(chan struct{})}
	a := New(sess, api, Options{Log: log})
	if err := a.Login(ctx, "wren", "pw", model.RoleWorker); err != nil {
		t.Fatalf("Login: %v", err)
	}

	api.gate.Store(true)
	done := make(chan error, 1)
	go func() { done <- a.Refresh(ctx) }()
	<-api.entered
	if err := a.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if sess.Authenticated() {
		t.Fatal("authenticated after logout")
	}
	if n := len(sess.Snapshot().Requests); n != 0 {
		t.Errorf("%d requests cached after logout", n)
	}
	if sess.Loaded(session.DatasetRequests) {
		t.Errorf("requests marked loaded after logout")
	}
}
