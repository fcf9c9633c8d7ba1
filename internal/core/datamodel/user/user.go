package user

import "time"

// User is the backend's user record as the dashboard sees it.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Image         string     `json:"image,omitempty"`
	Role          string     `json:"role,omitempty"`
	RahatRole     string     `json:"rahatRole,omitempty"`
	Jurisdiction  string     `json:"jurisdiction,omitempty"`
	Banned        bool       `json:"banned,omitempty"`
	BanReason     string     `json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Session is the server-issued session bound to a user. The dashboard only ever holds a copy.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Token          string    `json:"token,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	ImpersonatedBy string    `json:"impersonatedBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// SessionSnapshot is the body of GET /auth/get-session.
type SessionSnapshot struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
}

type SignInRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type SignInResponse struct {
	Redirect bool   `json:"redirect"`
	Token    string `json:"token,omitempty"`
	User     *User  `json:"user"`
}

type ProfileData struct {
	RahatRole    string `json:"rahatRole,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Data     ProfileData `json:"data"`
}

type UpdateUserData struct {
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	RahatRole    string `json:"rahatRole,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

type UpdateUserRequest struct {
	UserID string         `json:"userId"`
	Data   UpdateUserData `json:"data"`
}

type BanUserRequest struct {
	UserID       string `json:"userId"`
	BanReason    string `json:"banReason"`
	BanExpiresIn string `json:"banExpiresIn,omitempty"`
}

type SetPasswordRequest struct {
	UserID      string `json:"userId"`
	NewPassword string `json:"newPassword"`
}

type ListUsersQuery struct {
	SearchValue    string
	SearchField    string
	SearchOperator string
	Limit          int
	Offset         int
	SortBy         string
	SortDirection  string
	FilterField    string
	FilterValue    string
	FilterOperator string
}

type ListUsersResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// ThanaIncharge is a search hit from the case service, which keys users by _id.
type ThanaIncharge struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role,omitempty"`
	RahatRole     string    `json:"rahatRole"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
