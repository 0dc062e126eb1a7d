package view

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

var (
	// ErrMissingUsername means the invite form has no username.
	ErrMissingUsername = errors.New("username required")
	// ErrPickComplex means an owner invite has no usable complex.
	ErrPickComplex = errors.New("pick a complex")
	// ErrInviteRole means the role cannot be invited by this actor.
	ErrInviteRole = errors.New("role cannot be invited")
)

// InviteForm is what the user typed into an invite form.  Managers
// only fill Username.
type InviteForm struct {
	Username  string
	Role      model.Role
	ComplexID int64
}

// BuildInvite turns the form into the request body for actor.  Owners
// must name a manager or worker role and a complex from complexes;
// when ComplexID is zero the first known complex is used.  Managers
// send only the username so the service pins role and complex.
func BuildInvite(actor model.Role, f InviteForm, complexes []model.Complex) (model.InviteRequest, error) {
	username := strings.TrimSpace(f.Username)
	if username == "" {
		return model.InviteRequest{}, ErrMissingUsername
	}
	switch actor {
	case model.RoleOwner:
		role := f.Role
		if role == "" {
			role = model.RoleManager
		}
		if role != model.RoleManager && role != model.RoleWorker {
			return model.InviteRequest{}, fmt.Errorf("%s: %w", role, ErrInviteRole)
		}
		id := f.ComplexID
		if id == 0 && len(complexes) > 0 {
			id = complexes[0].ID
		}
		if !hasComplex(complexes, id) {
			return model.InviteRequest{}, ErrPickComplex
		}
		return model.InviteRequest{Username: username, Role: role, ComplexID: &id}, nil
	case model.RoleManager:
		if f.Role != "" && f.Role != model.RoleWorker {
			return model.InviteRequest{}, fmt.Errorf("%s: %w", f.Role, ErrInviteRole)
		}
		return model.InviteRequest{Username: username}, nil
	}
	return model.InviteRequest{}, fmt.Errorf("%s: %w", actor, ErrInviteRole)
}

func hasComplex(cs []model.Complex, id int64) bool {
	if id == 0 {
		return false
	}
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// FragmentKey is the fragment parameter carrying an invite token.
const FragmentKey = "accept-invite"

// InviteLink builds "<origin>/#accept-invite=<token>".  The fragment
// form resolves on static hosting without server-side routes.
func InviteLink(origin, token string) string {
	return strings.TrimRight(origin, "/") + "/#" + FragmentKey + "=" + url.QueryEscape(token)
}

var fragmentRe = regexp.MustCompile(`^#?accept-invite=([^&]+)`)

// InviteToken extracts the invite token from a URL fragment (with or
// without the leading '#') or from a full invite link.  It returns ""
// when there is none.
func InviteToken(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[i:]
	}
	m := fragmentRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	tok, err := url.QueryUnescape(m[1])
	if err != nil {
		return ""
	}
	return tok
}
