package repository

import "time"

// StoreInvite records a new invite token for userID.
func (r *UserRepo) StoreInvite(token string, userID int64, exp time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[token] = &InviteRecord{Token: token, UserID: userID, ExpiresAt: exp}
}

// ValidateInvite returns the account an unused, unexpired token
// activates.
func (r *UserRepo) ValidateInvite(token string, now time.Time) (UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, err := r.usableInvite(token, now)
	if err != nil {
		return UserRecord{}, err
	}
	u, ok := r.users[inv.UserID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return *u, nil
}

// ConsumeInvite sets the password, activates the account and marks the
// token used, all at once.  A token can be consumed exactly once.
func (r *UserRepo) ConsumeInvite(token, passwordHash string, now time.Time) (UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, err := r.usableInvite(token, now)
	if err != nil {
		return UserRecord{}, err
	}
	u, ok := r.users[inv.UserID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	used := now
	inv.UsedAt = &used
	u.PasswordHash = passwordHash
	u.Active = true
	return *u, nil
}

func (r *UserRepo) usableInvite(token string, now time.Time) (*InviteRecord, error) {
	inv, ok := r.invites[token]
	if !ok {
		return nil, ErrNotFound
	}
	if inv.UsedAt != nil || now.After(inv.ExpiresAt) {
		return nil, ErrExpired
	}
	return inv, nil
}
