package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
)

const (
	DefaultDelay = 2 * time.Second
	DefaultLimit = 50
	ThanaTTL     = 5 * time.Minute
)

var KeyThanaSearch = cache.NewKey("thana-incharge", "search")

type ThanaBackend interface {
	SearchThanaIncharge(ctx context.Context, q backend.SearchQuery) (*backend.DocsPage[userDatamodel.ThanaIncharge], error)
}

// ThanaService looks up thana incharge officers for the create-case form.
type ThanaService struct {
	backend ThanaBackend
	cache   *cache.Cache
	limit   int
	logger  *slog.Logger
}

func NewThanaService(b ThanaBackend, c *cache.Cache, limit int, logger *slog.Logger) *ThanaService {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}
	return &ThanaService{backend: b, cache: c, limit: limit, logger: logger}
}

// Search always asks for the first page; the picker shows at most one page of matches.
func (s *ThanaService) Search(ctx context.Context, q string) (*backend.DocsPage[userDatamodel.ThanaIncharge], error) {
	query := backend.SearchQuery{
		PageQuery: backend.PageQuery{Page: 1, Limit: s.limit},
		Q:         strings.TrimSpace(q),
	}
	scope := cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)
	key := KeyThanaSearch.Append(query.Values().Encode())

	page, err := cache.Fetch(ctx, s.cache, scope, key, ThanaTTL, func(ctx context.Context) (*backend.DocsPage[userDatamodel.ThanaIncharge], error) {
		return s.backend.SearchThanaIncharge(ctx, query)
	})
	if err != nil {
		s.logger.Error("thana incharge search failed", "q", query.Q, "error", err)
		if apiErr, ok := backend.AsAPIError(err); ok {
			return nil, errors.NewUpstreamError(apiErr.Status, "Search failed", apiErr.Message, err)
		}
		return nil, errors.NewUpstreamError(0, "Search failed", "The relief service could not be reached. Please try again.", err)
	}
	return page, nil
}
