package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/repository"
	"github.com/iliyamo/construction-supply-tracker/internal/utils"
	"github.com/iliyamo/construction-supply-tracker/internal/view"
)

// AdminHandler serves complexes, accounts and invites.
type AdminHandler struct {
	base
	now func() time.Time
}

func NewAdminHandler(cfg config.StubConfig, repos Repos, log *zap.Logger) *AdminHandler {
	return &AdminHandler{base: newBase(cfg, repos, log), now: time.Now}
}

// ListComplexes handles GET /complexes.  Managers only see their own.
func (h *AdminHandler) ListComplexes(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	return c.JSON(http.StatusOK, h.Repos.Complexes.List(func(cx model.Complex) bool {
		return u.Role == model.RoleOwner || u.InComplex(cx.ID)
	}))
}

// CreateComplex handles POST /complexes {name}.
func (h *AdminHandler) CreateComplex(c echo.Context) error {
	if _, err := h.caller(c); err != nil {
		return done(err)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid request body"))
	}
	if strings.TrimSpace(body.Name) == "" {
		return done(fail(c, http.StatusBadRequest, "name is required"))
	}
	cx, err := h.Repos.Complexes.Create(body.Name)
	if err != nil {
		return done(fail(c, http.StatusInternalServerError, "could not create complex"))
	}
	return c.JSON(http.StatusCreated, cx)
}

// ListUsers handles GET /users.  Owners see every account, managers
// the workers of their complex.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	return c.JSON(http.StatusOK, h.Repos.Users.List(func(o model.User) bool {
		if u.Role == model.RoleOwner {
			return true
		}
		return o.Role == model.RoleWorker && u.ComplexID != nil && o.InComplex(*u.ComplexID)
	}))
}

// CreateInvite handles POST /invites {username, role?, complex_id?}.
// It creates an inactive account without a password and returns the
// token that activates it.  A manager's invite is always a worker in
// the manager's complex.
func (h *AdminHandler) CreateInvite(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	var body model.InviteRequest
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		return done(fail(c, http.StatusBadRequest, "username is required"))
	}

	role, complexID := body.Role, body.ComplexID
	switch u.Role {
	case model.RoleOwner:
		if role != model.RoleManager && role != model.RoleWorker {
			return done(fail(c, http.StatusBadRequest, "role must be manager or worker"))
		}
		if complexID == nil {
			return done(fail(c, http.StatusBadRequest, "pick a complex"))
		}
		if _, err := h.Repos.Complexes.Get(*complexID); err != nil {
			return done(fail(c, http.StatusBadRequest, "unknown complex"))
		}
	case model.RoleManager:
		if role != "" && role != model.RoleWorker {
			return done(fail(c, http.StatusForbidden, "managers may only invite workers"))
		}
		role, complexID = model.RoleWorker, u.ComplexID
	default:
		return done(fail(c, http.StatusForbidden, "forbidden"))
	}

	target, err := h.Repos.Users.Create(username, "", role, complexID, false)
	if errors.Is(err, repository.ErrConflict) {
		return done(fail(c, http.StatusConflict, "username already exists"))
	}
	if err != nil {
		return done(fail(c, http.StatusInternalServerError, "create user failed"))
	}
	token, err := utils.NewInviteToken()
	if err != nil {
		_ = h.Repos.Users.Delete(target.ID)
		return done(fail(c, http.StatusInternalServerError, "issue invite failed"))
	}
	h.Repos.Users.StoreInvite(token, target.ID, h.now().Add(h.Cfg.InviteTTL))
	h.logger(c).Info("invite issued",
		zap.Int64("user_id", target.ID),
		zap.String("role", string(role)),
		zap.Int64("by", u.ID),
	)
	return c.JSON(http.StatusCreated, model.Invite{
		Token:     token,
		Username:  target.Username,
		Role:      target.Role,
		ComplexID: target.ComplexID,
	})
}

// ValidateInvite handles GET /invites/:token/validate.  It needs no
// credential.
func (h *AdminHandler) ValidateInvite(c echo.Context) error {
	u, err := h.Repos.Users.ValidateInvite(c.Param("token"), h.now())
	if err != nil {
		return done(inviteError(c, err))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": model.InviteTarget{Username: u.Username, Role: u.Role},
	})
}

// AcceptInvite handles POST /accept-invite {token, password}.
func (h *AdminHandler) AcceptInvite(c echo.Context) error {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	if body.Token == "" || body.Password == "" {
		return done(fail(c, http.StatusBadRequest, "token/password required"))
	}
	hash, err := utils.HashPassword(body.Password, h.Cfg.BcryptCost)
	if err != nil {
		return done(fail(c, http.StatusInternalServerError, "hash failed"))
	}
	u, err := h.Repos.Users.ConsumeInvite(body.Token, hash, h.now())
	if err != nil {
		return done(inviteError(c, err))
	}
	h.logger(c).Info("invite accepted", zap.Int64("user_id", u.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password set"})
}

// ResetPassword handles PATCH /users/:id/password {new_password}.
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	target, err := h.managed(c)
	if err != nil {
		return done(err)
	}
	var body struct {
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	if body.NewPassword == "" {
		return done(fail(c, http.StatusBadRequest, "new_password is required"))
	}
	hash, err := utils.HashPassword(body.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return done(fail(c, http.StatusInternalServerError, "hash failed"))
	}
	if err := h.Repos.Users.SetPassword(target.ID, hash); err != nil {
		return done(fail(c, http.StatusNotFound, "user not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Enable handles PATCH /users/:id/enable.
func (h *AdminHandler) Enable(c echo.Context) error { return h.setActive(c, true) }

// Disable handles PATCH /users/:id/disable.
func (h *AdminHandler) Disable(c echo.Context) error { return h.setActive(c, false) }

func (h *AdminHandler) setActive(c echo.Context, active bool) error {
	target, err := h.managed(c)
	if err != nil {
		return done(err)
	}
	if err := h.Repos.Users.SetActive(target.ID, active); err != nil {
		return done(fail(c, http.StatusNotFound, "user not found"))
	}
	target.Active = active
	return c.JSON(http.StatusOK, target.User)
}

// DeleteUser handles DELETE /users/:id.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	target, err := h.managed(c)
	if err != nil {
		return done(err)
	}
	if err := h.Repos.Users.Delete(target.ID); err != nil {
		return done(fail(c, http.StatusNotFound, "user not found"))
	}
	return c.NoContent(http.StatusNoContent)
}

// managed loads the :id account and checks the caller may manage it:
// owners manage any non-owner, managers the workers of their complex.
func (h *AdminHandler) managed(c echo.Context) (repository.UserRecord, error) {
	u, err := h.caller(c)
	if err != nil {
		return repository.UserRecord{}, err
	}
	id, err := paramID(c)
	if err != nil {
		return repository.UserRecord{}, err
	}
	target, err := h.Repos.Users.GetByID(id)
	if err != nil {
		return repository.UserRecord{}, fail(c, http.StatusNotFound, "user not found")
	}
	if !view.CanManage(u.Role, target.User) {
		return repository.UserRecord{}, fail(c, http.StatusForbidden, "forbidden")
	}
	if u.Role == model.RoleManager && (u.ComplexID == nil || !target.InComplex(*u.ComplexID)) {
		return repository.UserRecord{}, fail(c, http.StatusForbidden, "user belongs to another complex")
	}
	return target, nil
}

func inviteError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrExpired) {
		return fail(c, http.StatusGone, "invite expired or already used")
	}
	return fail(c, http.StatusNotFound, "invalid invite")
}
