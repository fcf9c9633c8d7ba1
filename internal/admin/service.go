// Package admin manages dashboard user accounts through the backend's admin API.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/access"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	"github.com/frahmantamala/rahat-dashboard/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
)

const MinPasswordLength = 8

var (
	KeyAdmin    = cache.NewKey("admin")
	KeyUsers    = KeyAdmin.Append("users")
	KeySessions = KeyAdmin.Append("sessions")
)

// Admin lists are always refetched on view; the cache only collapses concurrent loads.
const listTTL time.Duration = 0

type Backend interface {
	CreateUser(ctx context.Context, req userDatamodel.CreateUserRequest) (*userDatamodel.User, error)
	UpdateUser(ctx context.Context, req userDatamodel.UpdateUserRequest) (*userDatamodel.User, error)
	BanUser(ctx context.Context, req userDatamodel.BanUserRequest) (*userDatamodel.User, error)
	SetUserPassword(ctx context.Context, req userDatamodel.SetPasswordRequest) (bool, error)
	ListUsers(ctx context.Context, q userDatamodel.ListUsersQuery) (*userDatamodel.ListUsersResponse, error)
	ListUserSessions(ctx context.Context, userID string) (*userDatamodel.ListSessionsResponse, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	backend   Backend
	cache     *cache.Cache
	publisher Publisher
	logger    *slog.Logger
}

func NewService(b Backend, c *cache.Cache, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}
	return &Service{backend: b, cache: c, publisher: publisher, logger: logger}
}

func rahatRoleRule(required bool) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		s, _ := value.(string)
		if s == "" && !required {
			return nil
		}
		if _, err := access.ParseRahatRole(s); err != nil {
			return errors.NewValidationFieldError("rahatRole", "rahatRole must be a known rahat role", errors.ErrCodeInvalidRole)
		}
		return nil
	}
}

func ValidateCreateUser(req userDatamodel.CreateUserRequest) *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", req.Name).Required()
	v.Field("email", req.Email).Required().Email()
	v.Field("password", req.Password).Required().MinLength(MinPasswordLength)
	v.Field("rahatRole", req.Data.RahatRole).Required().Custom(rahatRoleRule(true))
	return v.Validate()
}

func ValidateUpdateUser(req userDatamodel.UpdateUserRequest) *errors.AppError {
	v := validation.NewValidator()
	v.Field("userId", req.UserID).Required()
	if req.Data.Email != "" {
		v.Field("email", req.Data.Email).Email()
	}
	v.Field("rahatRole", req.Data.RahatRole).Custom(rahatRoleRule(false))
	return v.Validate()
}

func (s *Service) upstream(err error, title string) *errors.AppError {
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Title != "" {
			title = apiErr.Title
		}
		message := apiErr.Message
		if message == "" {
			message = title
		}
		return errors.NewUpstreamError(apiErr.Status, title, message, err)
	}
	return errors.NewUpstreamError(0, title, "The relief service could not be reached. Please try again.", err)
}

func (s *Service) changed(ctx context.Context, userID, action string) {
	s.cache.Invalidate(KeyUsers, KeySessions.Append(userID))
	if action != "create_user" {
		// The target's scope is unknown here, so every viewer's session snapshot
		// is refetched before the next guard decision.
		s.cache.Invalidate(session.Key)
	}
	if s.publisher == nil {
		return
	}
	actor := events.Actor{UserID: errors.UserIDFromContext(ctx), RahatRole: errors.RahatRoleFromContext(ctx)}
	if err := s.publisher.Publish(ctx, events.NewCaseEvent(events.EventTypeUserAdministered, "", actor, action, userID)); err != nil {
		s.logger.Warn("failed to publish admin event", "action", action, "error", err)
	}
}

func (s *Service) CreateUser(ctx context.Context, req userDatamodel.CreateUserRequest) (*userDatamodel.User, error) {
	if err := ValidateCreateUser(req); err != nil {
		return nil, err
	}
	u, err := s.backend.CreateUser(ctx, req)
	if err != nil {
		s.logger.Error("failed to create user", "email", req.Email, "error", err)
		return nil, s.upstream(err, "Failed to create user")
	}
	s.logger.Info("user created", "user_id", u.ID, "rahat_role", req.Data.RahatRole)
	s.changed(ctx, u.ID, "create_user")
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, req userDatamodel.UpdateUserRequest) (*userDatamodel.User, error) {
	if err := ValidateUpdateUser(req); err != nil {
		return nil, err
	}
	u, err := s.backend.UpdateUser(ctx, req)
	if err != nil {
		return nil, s.upstream(err, "Failed to update user")
	}
	s.changed(ctx, req.UserID, "update_user")
	return u, nil
}

func (s *Service) BanUser(ctx context.Context, req userDatamodel.BanUserRequest) (*userDatamodel.User, error) {
	v := validation.NewValidator()
	v.Field("userId", req.UserID).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	u, err := s.backend.BanUser(ctx, req)
	if err != nil {
		return nil, s.upstream(err, "Failed to ban user")
	}
	s.logger.Info("user banned", "user_id", req.UserID)
	s.changed(ctx, req.UserID, "ban_user")
	return u, nil
}

func (s *Service) SetUserPassword(ctx context.Context, req userDatamodel.SetPasswordRequest) error {
	v := validation.NewValidator()
	v.Field("userId", req.UserID).Required()
	v.Field("newPassword", req.NewPassword).Required().MinLength(MinPasswordLength)
	if err := v.Validate(); err != nil {
		return err
	}
	ok, err := s.backend.SetUserPassword(ctx, req)
	if err != nil {
		return s.upstream(err, "Failed to set password")
	}
	if !ok {
		return errors.NewUpstreamError(http.StatusBadGateway, "Failed to set password", "The password was not changed.", nil)
	}
	s.changed(ctx, req.UserID, "set_user_password")
	return nil
}

func (s *Service) ListUsers(ctx context.Context, q userDatamodel.ListUsersQuery) (*userDatamodel.ListUsersResponse, error) {
	scope := cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)
	key := KeyUsers.Append(backend.ListUsersValues(q).Encode())
	resp, err := cache.Fetch(ctx, s.cache, scope, key, listTTL, func(ctx context.Context) (*userDatamodel.ListUsersResponse, error) {
		return s.backend.ListUsers(ctx, q)
	})
	if err != nil {
		return nil, s.upstream(err, "Failed to load users")
	}
	return resp, nil
}

func (s *Service) ListUserSessions(ctx context.Context, userID string) (*userDatamodel.ListSessionsResponse, error) {
	if userID == "" {
		return nil, errors.NewValidationFieldError("userId", "userId is required", errors.ErrCodeValidationFailed)
	}
	scope := cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)
	resp, err := cache.Fetch(ctx, s.cache, scope, KeySessions.Append(userID), listTTL, func(ctx context.Context) (*userDatamodel.ListSessionsResponse, error) {
		return s.backend.ListUserSessions(ctx, userID)
	})
	if err != nil {
		return nil, s.upstream(err, "Failed to load sessions")
	}
	return resp, nil
}
