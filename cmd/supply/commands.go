package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/construction-supply-tracker/internal/app"
	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"login":         {"login -u USER -p PASS --role owner|manager|worker", cmdLogin},
	"logout":        {"logout", cmdLogout},
	"status":        {"status", cmdStatus},
	"refresh":       {"refresh", cmdRefresh},
	"requests":      {"requests", cmdRequests},
	"inbox":         {"inbox", cmdInbox},
	"actions":       {"actions ID", cmdActions},
	"create":        {"create --item X --quantity N --project P [--notes T]", cmdCreate},
	"edit":          {"edit ID [--item X] [--quantity N] [--project P] [--notes T]", cmdEdit},
	"cancel":        {"cancel ID", cmdCancel},
	"set-status":    {"set-status ID approved|ordered|delivered|rejected", cmdSetStatus},
	"escalate":      {"escalate ID", cmdEscalate},
	"decide":        {"decide ID approved|rejected", cmdDecide},
	"photo":         {"photo ID FILE", cmdPhoto},
	"complexes":     {"complexes", cmdComplexes},
	"add-complex":   {"add-complex NAME", cmdAddComplex},
	"users":         {"users", cmdUsers},
	"invite":        {"invite -u USER [--role manager|worker] [--complex ID]", cmdInvite},
	"accept-invite": {"accept-invite LINK --password P --confirm P", cmdAcceptInvite},
	"reset":         {"reset USER_ID --password P", cmdReset},
	"toggle":        {"toggle USER_ID", cmdToggle},
	"delete-user":   {"delete-user USER_ID", cmdDeleteUser},
}

func printUsage(fs *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "usage: supply [--link URL] COMMAND [ARGS]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	fs.PrintDefaults()
}

func newHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

func flags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// positional parses args with fs and returns exactly n positional
// arguments.
func positional(fs *pflag.FlagSet, args []string, n int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), n, fs.NArg())
	}
	return fs.Args(), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// oneID handles the commands whose only argument is an id.
func oneID(name string, args []string) (int64, error) {
	rest, err := positional(flags(name), args, 1)
	if err != nil {
		return 0, err
	}
	return parseID(rest[0])
}

func cmdLogin(ctx context.Context, a *app.App, args []string) error {
	var username, password, role string
	fs := flags("login")
	fs.StringVarP(&username, "username", "u", "", "username")
	fs.StringVarP(&password, "password", "p", "", "password")
	fs.StringVar(&role, "role", "", "role to sign in as")
	if _, err := positional(fs, args, 0); err != nil {
		return err
	}
	claimed, err := model.ParseRole(role)
	if err != nil {
		return err
	}
	before := a.Session().Token()
	if err := a.Login(ctx, strings.TrimSpace(username), password, claimed); err != nil {
		if !a.Session().Authenticated() || a.Session().Token() == before {
			return err
		}
		// Signed in, but a dataset failed to load.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	fmt.Printf("signed in as %s (%s)\n", username, claimed)
	return nil
}

func cmdLogout(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("logout"), args, 0); err != nil {
		return err
	}
	if err := a.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func cmdStatus(_ context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("status"), args, 0); err != nil {
		return err
	}
	v := a.View()
	w := newTable()
	defer w.Flush()
	fmt.Fprintf(w, "screen\t%s\n", v.Screen)
	sess := a.Session()
	if !sess.Authenticated() {
		fmt.Fprintf(w, "session\tnone\n")
		return nil
	}
	fmt.Fprintf(w, "role\t%s\n", sess.Role())
	if p := sess.Profile(); p != nil {
		fmt.Fprintf(w, "user\t%s (#%d)\n", p.Username, p.ID)
	}
	if v.Tab != "" {
		fmt.Fprintf(w, "tab\t%s\n", v.Tab)
	}
	if exp, ok := session.TokenExpiry(sess.Token()); ok {
		fmt.Fprintf(w, "token expires\t%s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func cmdRefresh(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("refresh"), args, 0); err != nil {
		return err
	}
	return a.Refresh(ctx)
}

func cmdRequests(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("requests"), args, 0); err != nil {
		return err
	}
	if a.Session().Role() == model.RoleOwner {
		if err := a.SelectTab(ctx, view.TabAll); err != nil {
			return err
		}
	}
	printRequests(a.Session().Snapshot().Requests)
	return nil
}

func cmdInbox(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("inbox"), args, 0); err != nil {
		return err
	}
	if err := a.SelectTab(ctx, view.TabInbox); err != nil {
		return err
	}
	printRequests(a.Session().Snapshot().Inbox)
	return nil
}

func cmdActions(_ context.Context, a *app.App, args []string) error {
	id, err := oneID("actions", args)
	if err != nil {
		return err
	}
	acts, err := a.Actions(id)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		fmt.Println("no actions available")
		return nil
	}
	for _, act := range acts {
		fmt.Println(act)
	}
	return nil
}

func requestFlags(name string, f *app.RequestForm) *pflag.FlagSet {
	fs := flags(name)
	fs.StringVar(&f.Item, "item", "", "item requested")
	fs.StringVar(&f.Quantity, "quantity", "", "quantity, a positive number")
	fs.StringVar(&f.Project, "project", "", "project or site")
	fs.StringVar(&f.Notes, "notes", "", "free text notes")
	return fs
}

func cmdCreate(ctx context.Context, a *app.App, args []string) error {
	var f app.RequestForm
	if _, err := positional(requestFlags("create", &f), args, 0); err != nil {
		return err
	}
	r, err := a.CreateRequest(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("created request #%d\n", r.ID)
	return nil
}

func cmdEdit(ctx context.Context, a *app.App, args []string) error {
	var f app.RequestForm
	rest, err := positional(requestFlags("edit", &f), args, 1)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	r, err := a.EditRequest(ctx, id, f)
	if err != nil {
		return err
	}
	printRequests([]model.Request{r})
	return nil
}

func cmdCancel(ctx context.Context, a *app.App, args []string) error {
	id, err := oneID("cancel", args)
	if err != nil {
		return err
	}
	r, err := a.CancelRequest(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("request #%d is %s\n", r.ID, r.Status)
	return nil
}

func cmdSetStatus(ctx context.Context, a *app.App, args []string) error {
	rest, err := positional(flags("set-status"), args, 2)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	s, err := model.ParseStatus(rest[1])
	if err != nil {
		return err
	}
	r, err := a.SetStatus(ctx, id, s)
	if err != nil {
		return err
	}
	fmt.Printf("request #%d is %s\n", r.ID, r.Status)
	return nil
}

func cmdEscalate(ctx context.Context, a *app.App, args []string) error {
	id, err := oneID("escalate", args)
	if err != nil {
		return err
	}
	r, err := a.Escalate(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("request #%d escalated (owner status %s)\n", r.ID, r.OwnerStatus)
	return nil
}

func cmdDecide(ctx context.Context, a *app.App, args []string) error {
	rest, err := positional(flags("decide"), args, 2)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	d, err := model.ParseOwnerStatus(rest[1])
	if err != nil {
		return err
	}
	r, err := a.OwnerDecide(ctx, id, d)
	if err != nil {
		return err
	}
	fmt.Printf("request #%d owner status %s\n", r.ID, r.OwnerStatus)
	return nil
}

func cmdPhoto(ctx context.Context, a *app.App, args []string) error {
	rest, err := positional(flags("photo"), args, 2)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	f, err := os.Open(rest[1])
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := a.UploadPhoto(ctx, id, filepath.Base(rest[1]), f)
	if err != nil {
		return err
	}
	fmt.Printf("photo attached to #%d: %s\n", r.ID, r.PhotoURL)
	return nil
}

func cmdComplexes(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("complexes"), args, 0); err != nil {
		return err
	}
	if a.Session().Role() == model.RoleOwner {
		if err := a.SelectTab(ctx, view.TabAdmin); err != nil {
			return err
		}
	}
	printComplexes(a.Session().Snapshot().Complexes)
	return nil
}

func cmdAddComplex(ctx context.Context, a *app.App, args []string) error {
	rest, err := positional(flags("add-complex"), args, 1)
	if err != nil {
		return err
	}
	c, err := a.CreateComplex(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Printf("created complex #%d %s\n", c.ID, c.Name)
	return nil
}

func cmdUsers(ctx context.Context, a *app.App, args []string) error {
	if _, err := positional(flags("users"), args, 0); err != nil {
		return err
	}
	if a.Session().Role() == model.RoleOwner {
		if err := a.SelectTab(ctx, view.TabAdmin); err != nil {
			return err
		}
	}
	snap := a.Session().Snapshot()
	printUsers(snap.Users, snap.Complexes)
	return nil
}

func cmdInvite(ctx context.Context, a *app.App, args []string) error {
	var f view.InviteForm
	var role string
	fs := flags("invite")
	fs.StringVarP(&f.Username, "username", "u", "", "username of the new account")
	fs.StringVar(&role, "role", string(model.RoleWorker), "manager or worker (owners only)")
	fs.Int64Var(&f.ComplexID, "complex", 0, "complex id (owners only; defaults to the first complex)")
	if _, err := positional(fs, args, 0); err != nil {
		return err
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return err
	}
	f.Role = r
	if a.Session().Role() == model.RoleOwner {
		if err := a.SelectTab(ctx, view.TabAdmin); err != nil {
			return err
		}
	}
	link, err := a.Invite(ctx, f)
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}

func cmdAcceptInvite(ctx context.Context, a *app.App, args []string) error {
	var password, confirm string
	fs := flags("accept-invite")
	fs.StringVar(&password, "password", "", "new password")
	fs.StringVar(&confirm, "confirm", "", "new password again")
	rest, err := positional(fs, args, 1)
	if err != nil {
		return err
	}
	link := rest[0]
	if !strings.Contains(link, "#") {
		link = view.InviteLink("", link)
	}
	if err := a.Navigate(ctx, link); err != nil {
		return err
	}

	target, err := a.ValidateInvite(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("invite for %s (%s)\n", target.Username, target.Role)
	if err := a.AcceptInvite(ctx, password, confirm); err != nil {
		return err
	}
	fmt.Println(a.Notice())
	return nil
}

func cmdReset(ctx context.Context, a *app.App, args []string) error {
	var password string
	fs := flags("reset")
	fs.StringVar(&password, "password", "", "new password")
	rest, err := positional(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	if err := loadUsers(ctx, a); err != nil {
		return err
	}
	if err := a.ResetPassword(ctx, id, password); err != nil {
		return err
	}
	fmt.Printf("password of user #%d reset\n", id)
	return nil
}

func cmdToggle(ctx context.Context, a *app.App, args []string) error {
	id, err := oneID("toggle", args)
	if err != nil {
		return err
	}
	if err := loadUsers(ctx, a); err != nil {
		return err
	}
	if err := a.ToggleActive(ctx, id); err != nil {
		return err
	}
	if u, ok := a.Session().FindUser(id); ok {
		fmt.Printf("user #%d active=%t\n", id, u.Active)
	}
	return nil
}

func cmdDeleteUser(ctx context.Context, a *app.App, args []string) error {
	id, err := oneID("delete-user", args)
	if err != nil {
		return err
	}
	if err := loadUsers(ctx, a); err != nil {
		return err
	}
	if err := a.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Printf("user #%d deleted\n", id)
	return nil
}

// loadUsers makes sure the user list is cached.  Owners only load it on
// the admin tab.
func loadUsers(ctx context.Context, a *app.App) error {
	if a.Session().Role() == model.RoleOwner {
		return a.SelectTab(ctx, view.TabAdmin)
	}
	return nil
}
