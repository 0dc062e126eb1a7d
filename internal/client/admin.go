package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

func (c *Client) ListComplexes(ctx context.Context) ([]model.Complex, error) {
	raw, err := c.do(ctx, call{action: "Load complexes", method: http.MethodGet, path: "/complexes", auth: true})
	if err != nil {
		return []model.Complex{}, err
	}
	return decodeList[model.Complex]("Load complexes", raw)
}

func (c *Client) CreateComplex(ctx context.Context, name string) (model.Complex, error) {
	cl, err := jsonCall("Create complex", http.MethodPost, "/complexes", map[string]string{"name": name})
	if err != nil {
		return model.Complex{}, err
	}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return model.Complex{}, err
	}
	return decodeObject[model.Complex]("Create complex", raw)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	raw, err := c.do(ctx, call{action: "Load users", method: http.MethodGet, path: "/users", auth: true})
	if err != nil {
		return []model.User{}, err
	}
	return decodeList[model.User]("Load users", raw)
}

// CreateInvite issues an invite and returns its token.
func (c *Client) CreateInvite(ctx context.Context, in model.InviteRequest) (model.Invite, error) {
	cl, err := jsonCall("Invite", http.MethodPost, "/invites", in)
	if err != nil {
		return model.Invite{}, err
	}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return model.Invite{}, err
	}
	inv, err := decodeObject[model.Invite]("Invite", raw)
	if err != nil {
		return model.Invite{}, err
	}
	if inv.Token == "" {
		return model.Invite{}, &APIError{Action: "Invite", StatusCode: http.StatusOK, Message: "invite created without a token"}
	}
	return inv, nil
}

// ValidateInvite resolves an invite token to the account it activates.
// It needs no credential.
func (c *Client) ValidateInvite(ctx context.Context, token string) (model.InviteTarget, error) {
	raw, err := c.do(ctx, call{
		action: "Validate invite",
		method: http.MethodGet,
		path:   "/invites/" + url.PathEscape(token) + "/validate",
	})
	if err != nil {
		return model.InviteTarget{}, err
	}
	body, err := decodeObject[struct {
		User model.InviteTarget `json:"user"`
	}]("Validate invite", raw)
	return body.User, err
}

// AcceptInvite sets the password for the invited account.
func (c *Client) AcceptInvite(ctx context.Context, token, password string) error {
	cl, err := jsonCall("Accept invite", http.MethodPost, "/accept-invite", map[string]string{
		"token":    token,
		"password": password,
	})
	if err != nil {
		return err
	}
	cl.auth = false
	_, err = c.do(ctx, cl)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	cl, err := jsonCall("Reset", http.MethodPatch, fmt.Sprintf("/users/%d/password", userID),
		map[string]string{"new_password": newPassword})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, cl)
	return err
}

// SetActive enables or disables an account.
func (c *Client) SetActive(ctx context.Context, userID int64, active bool) error {
	ep := "disable"
	if active {
		ep = "enable"
	}
	_, err := c.do(ctx, call{action: "Update", method: http.MethodPatch, path: fmt.Sprintf("/users/%d/%s", userID, ep), auth: true})
	return err
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	_, err := c.do(ctx, call{action: "Delete", method: http.MethodDelete, path: fmt.Sprintf("/users/%d", userID), auth: true})
	return err
}
