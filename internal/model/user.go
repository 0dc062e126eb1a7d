package model

// User is an account as reported by the service.  ComplexID is nil only
// for owners.  Accounts are never hard deleted in place; deletion is a
// terminal call against the service.
//
// Fields:
//  ID        – unique numeric id.
//  Username  – unique login name.
//  Role      – owner, manager or worker.
//  ComplexID – complex the account belongs to (nil for owners).
//  Active    – whether the account may log in.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	ComplexID *int64 `json:"complex_id"`
	Active    bool   `json:"active"`
}

// InComplex reports whether the user belongs to complex id.
func (u User) InComplex(id int64) bool {
	return u.ComplexID != nil && *u.ComplexID == id
}

// Complex is an organizational site.  Only owners create complexes and
// they are never renamed or removed.
type Complex struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoginResult is what a successful credential exchange returns.
type LoginResult struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// InviteRequest is the body of an invite call.  Managers send only the
// username; the service fixes role and complex to worker in the
// manager's own complex.
type InviteRequest struct {
	Username  string `json:"username"`
	Role      Role   `json:"role,omitempty"`
	ComplexID *int64 `json:"complex_id,omitempty"`
}

// Invite is a single-use onboarding credential.
//
// Fields:
//  Token     – opaque token embedded in the invite link.
//  Username  – account the invite activates.
//  Role      – role of that account.
//  ComplexID – complex of that account.
type Invite struct {
	Token     string `json:"invite_token"`
	Username  string `json:"username,omitempty"`
	Role      Role   `json:"role,omitempty"`
	ComplexID *int64 `json:"complex_id,omitempty"`
}

// InviteTarget is the account an invite token validates to.
type InviteTarget struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
