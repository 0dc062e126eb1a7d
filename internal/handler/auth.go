package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/utils"
)

// AuthHandler serves login and the caller's profile.
type AuthHandler struct {
	base
}

func NewAuthHandler(cfg config.StubConfig, repos Repos, log *zap.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(cfg, repos, log)}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies the credentials and returns {token, role}.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return done(fail(c, http.StatusBadRequest, "username/password required"))
	}

	u, err := h.Repos.Users.GetByUsername(req.Username)
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return done(fail(c, http.StatusUnauthorized, "invalid credentials"))
	}
	if !u.Active {
		return done(fail(c, http.StatusForbidden, "account disabled"))
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		h.logger(c).Error("issue access token", zap.Error(err))
		return done(fail(c, http.StatusInternalServerError, "issue token failed"))
	}
	return c.JSON(http.StatusOK, model.LoginResult{Token: access.Token, Role: u.Role})
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	return c.JSON(http.StatusOK, u.User)
}

// SeedOwner creates the owner account the stub starts with.  It is a
// no-op when the username already exists.
func SeedOwner(cfg config.StubConfig, repos Repos) (model.User, error) {
	if u, err := repos.Users.GetByUsername(cfg.OwnerUsername); err == nil {
		return u.User, nil
	}
	hash, err := utils.HashPassword(cfg.OwnerPassword, cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	return repos.Users.Create(cfg.OwnerUsername, hash, model.RoleOwner, nil, true)
}
