package backend

import (
	"context"
	"net/http"
	"net/url"

	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
)

type userEnvelope struct {
	User userDatamodel.User `json:"user"`
}

func (c *Client) CreateUser(ctx context.Context, req userDatamodel.CreateUserRequest) (*userDatamodel.User, error) {
	var resp userEnvelope
	if _, err := c.mutate(ctx, "admin.create_user", http.MethodPost, "/auth/admin/create-user", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, req userDatamodel.UpdateUserRequest) (*userDatamodel.User, error) {
	var resp userDatamodel.User
	if _, err := c.mutate(ctx, "admin.update_user", http.MethodPost, "/auth/admin/update-user", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BanUser(ctx context.Context, req userDatamodel.BanUserRequest) (*userDatamodel.User, error) {
	var resp userEnvelope
	if _, err := c.mutate(ctx, "admin.ban_user", http.MethodPost, "/auth/admin/ban-user", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) SetUserPassword(ctx context.Context, req userDatamodel.SetPasswordRequest) (bool, error) {
	var resp struct {
		Status bool `json:"status"`
	}
	if _, err := c.mutate(ctx, "admin.set_user_password", http.MethodPost, "/auth/admin/set-user-password", req, &resp); err != nil {
		return false, err
	}
	return resp.Status, nil
}

func (c *Client) ListUsers(ctx context.Context, q userDatamodel.ListUsersQuery) (*userDatamodel.ListUsersResponse, error) {
	var resp userDatamodel.ListUsersResponse
	if err := c.read(ctx, "admin.list_users", "/auth/admin/list-users", ListUsersValues(q), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUserSessions is a POST on the backend but has no side effects, so it is read with retries.
func (c *Client) ListUserSessions(ctx context.Context, userID string) (*userDatamodel.ListSessionsResponse, error) {
	var resp userDatamodel.ListSessionsResponse
	body := map[string]string{"userId": userID}
	if _, err := c.do(ctx, call{op: "admin.list_user_sessions", method: http.MethodPost, path: "/auth/admin/list-user-sessions", body: body, retry: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func ListUsersValues(q userDatamodel.ListUsersQuery) url.Values {
	v := url.Values{}
	setString(v, "searchValue", q.SearchValue)
	setString(v, "searchField", q.SearchField)
	setString(v, "searchOperator", q.SearchOperator)
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)
	setString(v, "sortBy", q.SortBy)
	setString(v, "sortDirection", q.SortDirection)
	setString(v, "filterField", q.FilterField)
	setString(v, "filterValue", q.FilterValue)
	setString(v, "filterOperator", q.FilterOperator)
	return v
}
