// Package session holds the authenticated identity of the client
// process: the bearer token, the role it was issued for, the profile
// fetched for it and the collections loaded under it.  Token and role
// are mirrored to a Store on every change so a restarted process can
// pick up where it left off.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

var (
	// ErrRoleMismatch is returned by Login when the account's role is
	// not the one the caller selected.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrNotAuthenticated is returned by operations that need a token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned by Login when the session was logged
	// out while the credentials were being checked.
	ErrSuperseded = errors.New("session changed during login")
)

// RoleMismatchError carries both roles so callers can tell the user
// which dashboard the account belongs to.
type RoleMismatchError struct {
	Claimed model.Role
	Actual  model.Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("this account is %s; switch selector to %s", e.Actual.Label(), e.Actual.Label())
}

func (e *RoleMismatchError) Unwrap() error { return ErrRoleMismatch }

// Authenticator exchanges credentials for a token.  The HTTP client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (model.LoginResult, error)
}

// Dataset names one of the cached collections.
type Dataset string

const (
	DatasetRequests  Dataset = "requests"
	DatasetInbox     Dataset = "inbox"
	DatasetComplexes Dataset = "complexes"
	DatasetUsers     Dataset = "users"
)

// Cache is a copy of the collections loaded under the session.
type Cache struct {
	Requests  []model.Request
	Inbox     []model.Request
	Users     []model.User
	Complexes []model.Complex
}

// Session is safe for concurrent use.  There is at most one active
// credential per Session.
type Session struct {
	store Store
	log   *zap.Logger

	mu sync.RWMutex
	// gen changes on every login and logout.  Writes made on behalf of
	// an older generation are dropped.
	gen     uint64
	token   string
	role    model.Role
	profile *model.User
	cache   Cache
	loaded  map[Dataset]bool
}

// New returns an unauthenticated session backed by store.  Call
// Restore to load a previously persisted credential.
func New(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, log: log, loaded: map[Dataset]bool{}}
}

// Restore loads the persisted token and role.  Missing or partial
// state leaves the session unauthenticated; a stored role that is not
// a known role is discarded along with its token.  Token freshness is
// not checked here.
func (s *Session) Restore(ctx context.Context) error {
	token, okT, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	rawRole, okR, err := s.store.Get(ctx, KeyRole)
	if err != nil {
		return fmt.Errorf("restore role: %w", err)
	}
	if !okT || !okR || token == "" {
		s.mu.Lock()
		s.token, s.role = "", ""
		s.mu.Unlock()
		if okT != okR {
			s.log.Warn("discarding partial persisted session")
			return s.persist(ctx, "", "")
		}
		return nil
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		s.log.Warn("discarding persisted session with unknown role", zap.String("role", rawRole))
		return s.persist(ctx, "", "")
	}
	s.mu.Lock()
	s.token, s.role = token, role
	s.mu.Unlock()
	s.log.Debug("session restored", zap.String("role", role.String()))
	return nil
}

// Login exchanges the credentials through auth.  The returned role
// must equal claimed; otherwise no session is established and a
// *RoleMismatchError is returned.  Any failure leaves the session
// cleared, with nothing persisted.
func (s *Session) Login(ctx context.Context, auth Authenticator, username, password string, claimed model.Role) error {
	if !claimed.Valid() {
		return fmt.Errorf("claimed role %q: %w", claimed, model.ErrInvalidValue)
	}
	gen := s.Generation()
	res, err := auth.Login(ctx, strings.TrimSpace(username), password)
	if err == nil && res.Token == "" {
		err = errors.New("login failed: no token returned")
	}
	if err == nil && res.Role != claimed {
		err = &RoleMismatchError{Claimed: claimed, Actual: res.Role}
	}
	if err != nil {
		if cerr := s.clear(ctx); cerr != nil {
			s.log.Warn("clearing session after failed login", zap.Error(cerr))
		}
		return err
	}
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.resetLocked()
	s.token, s.role = res.Token, res.Role
	s.mu.Unlock()
	if err := s.persist(ctx, res.Token, res.Role); err != nil {
		return err
	}
	s.log.Info("logged in", zap.String("role", res.Role.String()))
	return nil
}

// Logout clears the credential, the profile and every cached
// collection, and removes the persisted keys.
func (s *Session) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.resetLocked()
	s.token, s.role = "", ""
	s.mu.Unlock()
	return s.persist(ctx, "", "")
}

// resetLocked starts a new generation and drops profile and cached
// data.  s.mu must be held.
func (s *Session) resetLocked() {
	s.gen++
	s.profile = nil
	s.cache = Cache{}
	s.loaded = map[Dataset]bool{}
}

// persist mirrors token and role to the store.  Empty values remove
// their key instead of storing an empty string.
func (s *Session) persist(ctx context.Context, token string, role model.Role) error {
	if err := put(ctx, s.store, KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := put(ctx, s.store, KeyRole, string(role)); err != nil {
		return fmt.Errorf("persist role: %w", err)
	}
	return nil
}

func put(ctx context.Context, st Store, key, value string) error {
	if value == "" {
		return st.Delete(ctx, key)
	}
	return st.Set(ctx, key, value)
}

// Token returns the bearer token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) Authenticated() bool { return s.Token() != "" }

// Generation identifies the current login.  Capture it before a fetch
// and hand it to the setter; a logout or login in between makes the
// setter drop the result.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Profile returns the fetched account, or nil if it is unknown.
func (s *Session) Profile() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile stores the fetched account.  It reports false and stores
// nothing when gen is stale.
func (s *Session) SetProfile(gen uint64, u *model.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	if u == nil {
		s.profile = nil
		return true
	}
	p := *u
	s.profile = &p
	return true
}

// Actor describes the session holder for lifecycle checks.
func (s *Session) Actor() lifecycle.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := lifecycle.Actor{Role: s.role}
	if s.profile != nil {
		a.UserID = s.profile.ID
	}
	return a
}

// Snapshot returns a copy of the cached collections.
func (s *Session) Snapshot() Cache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Cache{
		Requests:  append([]model.Request(nil), s.cache.Requests...),
		Inbox:     append([]model.Request(nil), s.cache.Inbox...),
		Users:     append([]model.User(nil), s.cache.Users...),
		Complexes: append([]model.Complex(nil), s.cache.Complexes...),
	}
}

// Loaded reports whether d was fetched since login.
func (s *Session) Loaded(d Dataset) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[d]
}

// SetRequests replaces the cached request list and marks it loaded.
// Like every setter it reports false and changes nothing when gen is
// stale.
func (s *Session) SetRequests(gen uint64, v []model.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.cache.Requests = append([]model.Request(nil), v...)
	s.loaded[DatasetRequests] = true
	return true
}

func (s *Session) SetInbox(gen uint64, v []model.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.cache.Inbox = append([]model.Request(nil), v...)
	s.loaded[DatasetInbox] = true
	return true
}

func (s *Session) SetUsers(gen uint64, v []model.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.cache.Users = append([]model.User(nil), v...)
	s.loaded[DatasetUsers] = true
	return true
}

func (s *Session) SetComplexes(gen uint64, v []model.Complex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.cache.Complexes = append([]model.Complex(nil), v...)
	s.loaded[DatasetComplexes] = true
	return true
}

// FindRequest looks id up in the cached request list and inbox.
func (s *Session) FindRequest(id int64) (model.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]model.Request{s.cache.Requests, s.cache.Inbox} {
		for _, r := range list {
			if r.ID == id {
				return r, true
			}
		}
	}
	return model.Request{}, false
}

// FindUser looks id up in the cached user list.
func (s *Session) FindUser(id int64) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.cache.Users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}
