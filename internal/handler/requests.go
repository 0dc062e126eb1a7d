package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/lifecycle"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
	"github.com/iliyamo/construction-supply-tracker/internal/repository"
)

// maxPhotoBytes caps an uploaded photo.
const maxPhotoBytes = 10 << 20

// RequestHandler serves supply requests.  Every state change goes
// through lifecycle.Apply so the stub enforces the same table the
// client uses to offer controls.
type RequestHandler struct {
	base
}

func NewRequestHandler(cfg config.StubConfig, repos Repos, log *zap.Logger) *RequestHandler {
	return &RequestHandler{base: newBase(cfg, repos, log)}
}

// List handles GET /requests: workers see their own, managers their
// complex, owners everything.
func (h *RequestHandler) List(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	return c.JSON(http.StatusOK, h.Repos.Requests.List(visibleTo(u)))
}

// OwnerInbox handles GET /owner/requests: pending requests that were
// escalated.  ?status= narrows by owner status.
func (h *RequestHandler) OwnerInbox(c echo.Context) error {
	if _, err := h.caller(c); err != nil {
		return done(err)
	}
	var want model.OwnerStatus
	if s := c.QueryParam("status"); s != "" {
		v, err := model.ParseOwnerStatus(s)
		if err != nil {
			return done(fail(c, http.StatusBadRequest, err.Error()))
		}
		want = v
	}
	return c.JSON(http.StatusOK, h.Repos.Requests.List(func(r model.Request) bool {
		if r.Status != model.StatusPending || r.OwnerStatus == model.OwnerNone {
			return false
		}
		return want == "" || r.OwnerStatus == want
	}))
}

type draftReq struct {
	Item     string         `json:"item"`
	Quantity model.Quantity `json:"quantity"`
	Project  string         `json:"project"`
	Notes    string         `json:"notes"`
}

// Create handles POST /requests.  Only workers raise requests.
func (h *RequestHandler) Create(c echo.Context) error {
	u, err := h.caller(c)
	if err != nil {
		return done(err)
	}
	var req draftReq
	if err := c.Bind(&req); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	item, project := strings.TrimSpace(req.Item), strings.TrimSpace(req.Project)
	if item == "" || project == "" {
		return done(fail(c, http.StatusBadRequest, "item and project are required"))
	}
	if req.Quantity <= 0 {
		return done(fail(c, http.StatusBadRequest, "quantity must be positive"))
	}
	r := h.Repos.Requests.Create(model.Request{
		Item:        item,
		Quantity:    req.Quantity,
		Project:     project,
		Notes:       strings.TrimSpace(req.Notes),
		Status:      model.StatusPending,
		OwnerStatus: model.OwnerNone,
		CreatedBy:   u.ID,
		ComplexID:   u.ComplexID,
	})
	h.logger(c).Info("request created", zap.Int64("request_id", r.ID), zap.Int64("user_id", u.ID))
	return c.JSON(http.StatusCreated, r)
}

type patchReq struct {
	Item     *string         `json:"item"`
	Quantity *model.Quantity `json:"quantity"`
	Project  *string         `json:"project"`
	Notes    *string         `json:"notes"`
}

// Edit handles PATCH /requests/:id.  Absent fields are kept.
func (h *RequestHandler) Edit(c echo.Context) error {
	u, r, err := h.load(c)
	if err != nil {
		return done(err)
	}
	if err := lifecycle.Check(r, actorOf(u), lifecycle.ActionEdit); err != nil {
		return done(lifecycleError(c, err))
	}
	var req patchReq
	if err := c.Bind(&req); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid body"))
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return done(fail(c, http.StatusBadRequest, "quantity must be positive"))
	}
	return h.mutate(c, r.ID, func(cur *model.Request) error {
		if err := lifecycle.Check(*cur, actorOf(u), lifecycle.ActionEdit); err != nil {
			return err
		}
		if req.Item != nil {
			if v := strings.TrimSpace(*req.Item); v != "" {
				cur.Item = v
			}
		}
		if req.Project != nil {
			if v := strings.TrimSpace(*req.Project); v != "" {
				cur.Project = v
			}
		}
		if req.Quantity != nil {
			cur.Quantity = *req.Quantity
		}
		if req.Notes != nil {
			cur.Notes = strings.TrimSpace(*req.Notes)
		}
		return nil
	})
}

// SetStatus handles PATCH /requests/:id/status {status}.  The target
// status selects the lifecycle action.
func (h *RequestHandler) SetStatus(c echo.Context) error {
	u, r, err := h.load(c)
	if err != nil {
		return done(err)
	}
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid status"))
	}
	action, err := lifecycle.ForStatus(body.Status)
	if err != nil {
		return done(fail(c, http.StatusBadRequest, err.Error()))
	}
	return h.transition(c, u, r, action)
}

// Escalate handles PATCH /requests/:id/escalate.
func (h *RequestHandler) Escalate(c echo.Context) error {
	u, r, err := h.load(c)
	if err != nil {
		return done(err)
	}
	return h.transition(c, u, r, lifecycle.ActionEscalate)
}

// OwnerDecision handles PATCH /requests/:id/owner {decision}.  Status
// is left alone; the decision is an annotation.
func (h *RequestHandler) OwnerDecision(c echo.Context) error {
	u, r, err := h.load(c)
	if err != nil {
		return done(err)
	}
	var body struct {
		Decision model.OwnerStatus `json:"decision"`
	}
	if err := c.Bind(&body); err != nil {
		return done(fail(c, http.StatusBadRequest, "invalid decision"))
	}
	action, err := lifecycle.ForDecision(body.Decision)
	if err != nil {
		return done(fail(c, http.StatusBadRequest, err.Error()))
	}
	return h.transition(c, u, r, action)
}

// UploadPhoto handles POST /requests/:id/photo with multipart field
// "photo".
func (h *RequestHandler) UploadPhoto(c echo.Context) error {
	u, r, err := h.load(c)
	if err != nil {
		return done(err)
	}
	if err := lifecycle.Check(r, actorOf(u), lifecycle.ActionUploadPhoto); err != nil {
		return done(lifecycleError(c, err))
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return done(fail(c, http.StatusBadRequest, "photo is required"))
	}
	if fh.Size > maxPhotoBytes {
		return done(fail(c, http.StatusRequestEntityTooLarge, "photo too large"))
	}
	f, err := fh.Open()
	if err != nil {
		return done(fail(c, http.StatusBadRequest, "unreadable photo"))
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		return done(fail(c, http.StatusBadRequest, "unreadable photo"))
	}

	name := fmt.Sprintf("%d-%s%s", r.ID, uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))
	h.Repos.Requests.SavePhoto(repository.Photo{
		Name:        name,
		ContentType: http.DetectContentType(data),
		Data:        data,
	})
	photoURL := h.Cfg.PublicURL + "/uploads/" + name
	return h.mutate(c, r.ID, func(cur *model.Request) error {
		if err := lifecycle.Check(*cur, actorOf(u), lifecycle.ActionUploadPhoto); err != nil {
			return err
		}
		cur.PhotoURL = photoURL
		return nil
	})
}

// Photo handles GET /uploads/:name.
func (h *RequestHandler) Photo(c echo.Context) error {
	p, err := h.Repos.Requests.Photo(c.Param("name"))
	if err != nil {
		return done(fail(c, http.StatusNotFound, "photo not found"))
	}
	return c.Blob(http.StatusOK, p.ContentType, p.Data)
}

// load resolves the caller and the :id request, enforcing visibility:
// a request outside the caller's scope is reported as missing.
func (h *RequestHandler) load(c echo.Context) (repository.UserRecord, model.Request, error) {
	u, err := h.caller(c)
	if err != nil {
		return u, model.Request{}, err
	}
	id, err := paramID(c)
	if err != nil {
		return u, model.Request{}, err
	}
	r, err := h.Repos.Requests.Get(id)
	if err != nil || !visibleTo(u)(r) {
		return u, model.Request{}, fail(c, http.StatusNotFound, "request not found")
	}
	return u, r, nil
}

// transition applies a to the stored request.  The lifecycle check
// runs against the latest state, not the copy load returned.
func (h *RequestHandler) transition(c echo.Context, u repository.UserRecord, r model.Request, a lifecycle.Action) error {
	return h.mutate(c, r.ID, func(cur *model.Request) error {
		next, err := lifecycle.Apply(*cur, actorOf(u), a)
		if err != nil {
			return err
		}
		h.logger(c).Info("request transition",
			zap.Int64("request_id", cur.ID),
			zap.String("action", string(a)),
			zap.String("status", string(next.Status)),
			zap.String("owner_status", string(next.OwnerStatus)),
		)
		*cur = next
		return nil
	})
}

// mutate runs fn on request id under the repository lock and replies
// with the stored result.
func (h *RequestHandler) mutate(c echo.Context, id int64, fn func(*model.Request) error) error {
	r, err := h.Repos.Requests.Mutate(id, fn)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return done(fail(c, http.StatusNotFound, "request not found"))
	case err != nil:
		return done(lifecycleError(c, err))
	}
	return c.JSON(http.StatusOK, r)
}

func actorOf(u repository.UserRecord) lifecycle.Actor {
	return lifecycle.Actor{Role: u.Role, UserID: u.ID}
}

// visibleTo returns the listing scope of u.
func visibleTo(u repository.UserRecord) func(model.Request) bool {
	switch u.Role {
	case model.RoleOwner:
		return func(model.Request) bool { return true }
	case model.RoleManager:
		return func(r model.Request) bool { return r.ComplexID != nil && u.InComplex(*r.ComplexID) }
	default:
		return func(r model.Request) bool { return r.CreatedBy == u.ID }
	}
}
