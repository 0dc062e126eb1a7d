package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/middleware"
	"github.com/iliyamo/construction-supply-tracker/internal/repository"
)

// Repos bundles the in-memory stores every handler works on.
type Repos struct {
	Users     *repository.UserRepo
	Complexes *repository.ComplexRepo
	Requests  *repository.RequestRepo
}

// NewRepos returns empty stores.
func NewRepos() Repos {
	return Repos{
		Users:     repository.NewUserRepo(),
		Complexes: repository.NewComplexRepo(),
		Requests:  repository.NewRequestRepo(),
	}
}

// base carries what all handlers share.
type base struct {
	Cfg   config.StubConfig
	Repos Repos
	Log   *zap.Logger
}

func newBase(cfg config.StubConfig, repos Repos, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	if repos.Users == nil || repos.Complexes == nil || repos.Requests == nil {
		panic("nil repository passed to handler")
	}
	return base{Cfg: cfg, Repos: repos, Log: log}
}

// logger returns the request scoped logger set by AccessLog.
func (b base) logger(c echo.Context) *zap.Logger {
	if l, ok := c.Get("logger").(*zap.Logger); ok {
		return l
	}
	return b.Log
}

// caller loads the authenticated account.  Deleted accounts are
// unauthorized and disabled accounts forbidden, even with a token that
// has not expired yet.
func (b base) caller(c echo.Context) (repository.UserRecord, error) {
	uid, _, ok := middleware.Identity(c)
	if !ok {
		return repository.UserRecord{}, fail(c, http.StatusUnauthorized, "unauthorized")
	}
	u, err := b.Repos.Users.GetByID(uid)
	if err != nil {
		return repository.UserRecord{}, fail(c, http.StatusUnauthorized, "unknown account")
	}
	if !u.Active {
		return repository.UserRecord{}, fail(c, http.StatusForbidden, "account disabled")
	}
	return u, nil
}

// errHandled tells a handler the response was already written.
var errHandled = errors.New("response written")

// fail writes {"error": msg} and returns errHandled, or the write
// error.  Handlers return nil when they see errHandled.
func fail(c echo.Context, status int, msg string) error {
	if err := c.JSON(status, echo.Map{"error": msg}); err != nil {
		return err
	}
	return errHandled
}

// done converts a helper error into a handler return value.
func done(err error) error {
	if errors.Is(err, errHandled) {
		return nil
	}
	return err
}

// paramID parses the :id path parameter.
func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fail(c, http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// lifecycleError maps a rejected transition to its HTTP reply.
func lifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNotPermitted):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrUnknownAction):
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return fail(c, http.StatusInternalServerError, "transition failed")
}
