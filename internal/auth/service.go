// Package auth signs viewers in and out through the relief backend and guards
// the dashboard's routes with the viewer's session.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
)

const MessageSignedOut = "Signed out successfully"

type Backend interface {
	SignInEmail(ctx context.Context, req userDatamodel.SignInRequest) (*backend.SignInResult, error)
	SignOut(ctx context.Context) ([]string, error)
}

type Service struct {
	backend Backend
	cache   *cache.Cache
	logger  *slog.Logger
}

func NewService(b Backend, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}
	return &Service{backend: b, cache: c, logger: logger}
}

// SignIn checks the form, asks the backend for a session and drops whatever
// session snapshot the viewer had cached.
func (s *Service) SignIn(ctx context.Context, dto SignInDTO) (*backend.SignInResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	res, err := s.backend.SignInEmail(ctx, userDatamodel.SignInRequest{
		Email:      dto.Email,
		Password:   dto.Password,
		RememberMe: dto.RememberMe,
	})
	if err != nil {
		s.logger.Warn("sign-in rejected", "email", dto.Email, "error", err)
		return nil, signInError(err)
	}

	s.cache.InvalidateScope(cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie), session.Key)
	for _, raw := range res.SetCookie {
		for _, c := range (&http.Response{Header: http.Header{"Set-Cookie": {raw}}}).Cookies() {
			s.cache.InvalidateScope(cache.ScopeFor(c.Name+"="+c.Value), session.Key)
		}
	}
	return res, nil
}

func signInError(err error) *errors.AppError {
	status := http.StatusBadGateway
	code := ""
	if apiErr, ok := backend.AsAPIError(err); ok {
		status = apiErr.Status
		code = apiErr.Code
	}
	f := DescribeSignInError(code)
	return errors.NewUpstreamError(status, f.Title, f.Description, err)
}

// SignOut ends the backend session and forgets everything cached for the viewer.
func (s *Service) SignOut(ctx context.Context) ([]string, error) {
	scope := cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)
	cookies, err := s.backend.SignOut(ctx)
	s.cache.ClearScope(scope)
	if err != nil {
		s.logger.Error("sign-out failed", "error", err)
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Message != "" {
			return nil, errors.NewUpstreamError(apiErr.Status, "Failed to sign out", apiErr.Message, err)
		}
		return nil, errors.NewUpstreamError(0, "Failed to sign out", "The relief service could not be reached. Please try again.", err)
	}
	return cookies, nil
}
