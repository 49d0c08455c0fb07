package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/placekit-labs/placekit/internal/config"
	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/manifest"
	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/placekit-labs/placekit/internal/server"
)

var errNoPortal = errors.New("no portal configured: set portal.webhook, or portal.domain with an oauth token")

// clientOptions returns the transport options shared by every client.
func clientOptions(s *config.Settings) []rest.Option {
	return []rest.Option{
		rest.WithTimeout(s.RPC.Timeout),
		rest.WithRateLimit(s.RPC.QPS, s.RPC.Burst),
		rest.WithLogger(cliLog),
		rest.WithMetrics(cliStats),
	}
}

func oauthConfig(s *config.Settings) rest.OAuthConfig {
	return rest.OAuthConfig{
		ClientID:     s.OAuth.ClientID,
		ClientSecret: s.OAuth.ClientSecret,
		TokenURL:     s.OAuth.TokenURL,
	}
}

// newClient builds a REST client from settings: the incoming webhook when
// one is configured, otherwise the portal domain with OAuth tokens.
func newClient(ctx context.Context, s *config.Settings) (*rest.Client, error) {
	opts := clientOptions(s)
	if s.UsesWebhook() {
		return rest.New(s.Portal.Webhook, opts...)
	}
	if s.Portal.Domain == "" || (s.OAuth.AccessToken == "" && s.OAuth.RefreshToken == "") {
		return nil, errNoPortal
	}
	tok := rest.NewToken(s.OAuth.AccessToken, s.OAuth.RefreshToken, 0)
	endpoint, err := rest.OAuthEndpoint(s.Portal.Domain)
	if err != nil {
		return nil, err
	}
	opts = append(opts, rest.WithTokenSource(rest.TokenSource(ctx, oauthConfig(s), tok)))
	return rest.New(endpoint, opts...)
}

// newHandshake returns a handshake over the configured portal.
func newHandshake(s *config.Settings) *handshake.Handshake {
	return handshake.New(handshake.Connect(func(ctx context.Context) (rest.Caller, error) {
		return newClient(ctx, s)
	}))
}

// serverClientFactory builds per-install clients from portal-posted tokens.
// The server has already checked auth.Domain against server.allowed_domains.
func serverClientFactory(s *config.Settings) server.ClientFactory {
	return func(ctx context.Context, auth server.Auth) (rest.Caller, error) {
		endpoint, err := rest.OAuthEndpoint(auth.Domain)
		if err != nil {
			return nil, err
		}
		tok := rest.NewToken(auth.AccessToken, auth.RefreshToken, auth.ExpiresIn)
		opts := append(clientOptions(s), rest.WithTokenSource(rest.TokenSource(ctx, oauthConfig(s), tok)))
		return rest.New(endpoint, opts...)
	}
}

// loadManifest returns the manifest at path (the embedded one when empty),
// validated and checked against the running version.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path == "" {
		path = settings.App.Manifest
	}
	if path != "" {
		result, err := manifest.ValidateFile(path)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, fmt.Errorf("manifest %s has %d validation issue(s), run `validate %s` for details", path, len(result.Issues), path)
		}
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if err := manifest.CheckCompatibility(m, buildVersion); err != nil {
		return nil, err
	}
	return m, nil
}
