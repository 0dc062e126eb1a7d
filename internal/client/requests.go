package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// Login exchanges credentials for a token and role.  A 2xx reply
// without a token is reported as a failure.
func (c *Client) Login(ctx context.Context, username, password string) (model.LoginResult, error) {
	cl, err := jsonCall("Login", http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return model.LoginResult{}, err
	}
	cl.auth = false
	raw, err := c.do(ctx, cl)
	if err != nil {
		return model.LoginResult{}, err
	}
	res, err := decodeObject[model.LoginResult]("Login", raw)
	if err != nil {
		return model.LoginResult{}, err
	}
	if res.Token == "" {
		return model.LoginResult{}, &APIError{Action: "Login", StatusCode: http.StatusOK}
	}
	return res, nil
}

// Me fetches the caller's profile.  A body that does not describe a
// user yields nil.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	raw, err := c.do(ctx, call{action: "Load profile", method: http.MethodGet, path: "/me", auth: true})
	if err != nil {
		return nil, err
	}
	u, err := decodeObject[*model.User]("Load profile", raw)
	if err != nil || u == nil || u.ID == 0 {
		return nil, err
	}
	return u, nil
}

// ListRequests returns the requests visible to the caller: their own
// for workers, their complex for managers, all of them for owners.
func (c *Client) ListRequests(ctx context.Context) ([]model.Request, error) {
	raw, err := c.do(ctx, call{action: "Load requests", method: http.MethodGet, path: "/requests", auth: true})
	if err != nil {
		return []model.Request{}, err
	}
	rs, err := decodeList[model.Request]("Load requests", raw)
	return normalizeAll(rs), err
}

// OwnerInbox returns the escalated requests awaiting an owner decision.
func (c *Client) OwnerInbox(ctx context.Context) ([]model.Request, error) {
	raw, err := c.do(ctx, call{action: "Load owner inbox", method: http.MethodGet, path: "/owner/requests?status=pending", auth: true})
	if err != nil {
		return []model.Request{}, err
	}
	rs, err := decodeList[model.Request]("Load owner inbox", raw)
	return normalizeAll(rs), err
}

func (c *Client) CreateRequest(ctx context.Context, d model.RequestDraft) (model.Request, error) {
	return c.requestMutation(ctx, "Create", http.MethodPost, "/requests", d)
}

func (c *Client) EditRequest(ctx context.Context, id int64, p model.RequestPatch) (model.Request, error) {
	return c.requestMutation(ctx, "Edit", http.MethodPatch, fmt.Sprintf("/requests/%d", id), p)
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, s model.Status) (model.Request, error) {
	return c.requestMutation(ctx, "Update", http.MethodPatch, fmt.Sprintf("/requests/%d/status", id),
		map[string]model.Status{"status": s})
}

func (c *Client) Escalate(ctx context.Context, id int64) (model.Request, error) {
	return c.requestMutation(ctx, "Escalate", http.MethodPatch, fmt.Sprintf("/requests/%d/escalate", id), nil)
}

// OwnerDecision records the owner's verdict (approved or rejected).
func (c *Client) OwnerDecision(ctx context.Context, id int64, decision model.OwnerStatus) (model.Request, error) {
	return c.requestMutation(ctx, "Owner action", http.MethodPatch, fmt.Sprintf("/requests/%d/owner", id),
		map[string]model.OwnerStatus{"decision": decision})
}

// UploadPhoto sends the file as multipart field "photo".
func (c *Client) UploadPhoto(ctx context.Context, id int64, filename string, photo io.Reader) (model.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", filepath.Base(filename))
	if err != nil {
		return model.Request{}, fmt.Errorf("Upload: %w", err)
	}
	if _, err := io.Copy(fw, photo); err != nil {
		return model.Request{}, fmt.Errorf("Upload: read photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Request{}, fmt.Errorf("Upload: %w", err)
	}
	raw, err := c.do(ctx, call{
		action:      "Upload",
		method:      http.MethodPost,
		path:        fmt.Sprintf("/requests/%d/photo", id),
		body:        &buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
	})
	if err != nil {
		return model.Request{}, err
	}
	r, err := decodeObject[model.Request]("Upload", raw)
	r.Normalize()
	return r, err
}

func (c *Client) requestMutation(ctx context.Context, action, method, path string, payload any) (model.Request, error) {
	cl, err := jsonCall(action, method, path, payload)
	if err != nil {
		return model.Request{}, err
	}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return model.Request{}, err
	}
	r, err := decodeObject[model.Request](action, raw)
	r.Normalize()
	return r, err
}
