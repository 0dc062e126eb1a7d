package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// UserRecord is an account plus its credential.  PasswordHash is
// empty until the invite is accepted.
type UserRecord struct {
	model.User
	PasswordHash string
}

// UserRepo stores accounts and invites.
type UserRepo struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*UserRecord
	invites map[string]*InviteRecord
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: map[int64]*UserRecord{}, invites: map[string]*InviteRecord{}}
}

// Create inserts an account.  Usernames are unique, compared case
// insensitively after trimming.
func (r *UserRepo) Create(username, passwordHash string, role model.Role, complexID *int64, active bool) (model.User, error) {
	username = strings.TrimSpace(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return model.User{}, ErrConflict
		}
	}
	r.nextID++
	rec := &UserRecord{
		User: model.User{
			ID:        r.nextID,
			Username:  username,
			Role:      role,
			ComplexID: copyID(complexID),
			Active:    active,
		},
		PasswordHash: passwordHash,
	}
	r.users[rec.ID] = rec
	return rec.User, nil
}

// GetByUsername fetches an account by username.
func (r *UserRepo) GetByUsername(username string) (UserRecord, error) {
	username = strings.TrimSpace(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return *u, nil
		}
	}
	return UserRecord{}, ErrNotFound
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(id int64) (UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return *u, nil
}

// List returns the accounts accepted by keep, ordered by id.
func (r *UserRepo) List(keep func(model.User) bool) []model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if keep == nil || keep(u.User) {
			out = append(out, u.User)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *UserRepo) SetPassword(id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *UserRepo) SetActive(id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	return nil
}

// Delete removes an account and any invite issued for it.
func (r *UserRepo) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	for tok, inv := range r.invites {
		if inv.UserID == id {
			delete(r.invites, tok)
		}
	}
	return nil
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// InviteRecord ties an invite token to the account it activates.
type InviteRecord struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	UsedAt    *time.Time
}
