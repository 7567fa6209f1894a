package remote

import (
	"context"
	"net/http"

	"github.com/DSACMS/student-verification-api/pkg/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HeaderPreservingClient copies the original request headers onto redirects
// so Authorization survives a hop to another host.
func HeaderPreservingClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) > 0 {
				r.Header = via[0].Header.Clone()
			}

			return nil
		},
	}
}

// BearerHTTPClient sends accessToken on every request using a static token source.
// An empty token returns the base client unchanged.
func BearerHTTPClient(ctx context.Context, accessToken string, base *http.Client) *http.Client {
	if base == nil {
		base = HeaderPreservingClient()
	}
	if accessToken == "" {
		return base
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	return oauth2.NewClient(ctx, src)
}

func ClientCredentialsHTTPClient(ctx context.Context, cc *clientcredentials.Config, base *http.Client) *http.Client {
	if base == nil {
		base = HeaderPreservingClient()
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, cc.TokenSource(ctx))
}

// NewProviderHTTPClient picks the provider auth mode from cfg. Tokens from
// the client credentials grant are cached and refreshed by oauth2.
func NewProviderHTTPClient(ctx context.Context, cfg *core.ProviderConfig) *http.Client {
	if cfg.TokenURL != "" {
		return ClientCredentialsHTTPClient(ctx, &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}, nil)
	}

	return BearerHTTPClient(ctx, cfg.AccessToken, nil)
}
