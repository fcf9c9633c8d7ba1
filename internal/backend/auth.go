package backend

import (
	"context"
	"net/http"

	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
)

// SignInResult carries the Set-Cookie headers the browser needs to hold the session.
type SignInResult struct {
	Response  userDatamodel.SignInResponse
	SetCookie []string
}

func (c *Client) SignInEmail(ctx context.Context, req userDatamodel.SignInRequest) (*SignInResult, error) {
	var resp userDatamodel.SignInResponse
	header, err := c.mutate(ctx, "auth.sign_in", http.MethodPost, "/auth/sign-in/email", req, &resp)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Response: resp, SetCookie: header.Values("Set-Cookie")}, nil
}

// SignOut destroys the backend session and returns the cookie-clearing headers.
func (c *Client) SignOut(ctx context.Context) ([]string, error) {
	header, err := c.mutate(ctx, "auth.sign_out", http.MethodPost, "/auth/sign-out", struct{}{}, nil)
	if err != nil {
		return nil, err
	}
	return header.Values("Set-Cookie"), nil
}

// GetSession returns nil without error when the caller is not signed in.
// It is never retried.
func (c *Client) GetSession(ctx context.Context) (*userDatamodel.SessionSnapshot, error) {
	var snap *userDatamodel.SessionSnapshot
	_, err := c.do(ctx, call{op: "auth.get_session", method: http.MethodGet, path: "/auth/get-session"}, &snap)
	if err != nil {
		if IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	if snap == nil || snap.Session == nil || snap.User == nil {
		return nil, nil
	}
	return snap, nil
}
