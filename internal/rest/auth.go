package rest

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenURL is the portal's OAuth token endpoint.
const DefaultTokenURL = "https://oauth.bitrix.info/oauth/token/"

// OAuthConfig holds application credentials used to refresh access tokens.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// TokenSource returns a token source for tok. With client credentials it
// refreshes expired tokens against the token endpoint; without them the
// token is used as-is.
func TokenSource(ctx context.Context, cfg OAuthConfig, tok *oauth2.Token) oauth2.TokenSource {
	if cfg.ClientID == "" || tok.RefreshToken == "" {
		return oauth2.StaticTokenSource(tok)
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return conf.TokenSource(ctx, tok)
}

// NewToken builds a token from portal-issued values. expiresIn is in
// seconds; zero leaves the expiry unknown.
func NewToken(access, refresh string, expiresIn int) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
	if expiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return tok
}

// Ping calls user.current, which succeeds once credentials are accepted.
func Ping(ctx context.Context, c Caller) error {
	_, err := c.CallMethod(ctx, MethodUserCurrent, nil)
	return err
}
