package session

import "context"

type ctxKey struct{}

func ContextWithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// ProviderFromContext returns nil when no session was loaded for the request.
func ProviderFromContext(ctx context.Context) *Provider {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(ctxKey{}).(*Provider)
	return p
}
