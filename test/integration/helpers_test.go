//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/placekit-labs/placekit/internal/rest/resttest"
)

const (
	accessToken  = "fresh-access"
	refreshToken = "refresh-1"
	clientID     = "local.app"
	clientSecret = "secret"
)

// testEnv is an isolated portal plus an OAuth token endpoint.
type testEnv struct {
	Portal    *resttest.Portal
	PortalURL string // REST endpoint, https://<domain>/rest/ shape
	TokenURL  string
	Refreshes *atomic.Int32
	Dir       string
}

// setupTestEnv starts a portal that only accepts accessToken and a token
// endpoint that exchanges refreshToken for it.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		Portal:    resttest.NewPortal(),
		Refreshes: &atomic.Int32{},
		Dir:       t.TempDir(),
	}
	env.Portal.Token = accessToken

	portal := resttest.NewServer(env.Portal)
	t.Cleanup(portal.Close)
	env.PortalURL = portal.URL + "/rest/"

	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("grant_type") != "refresh_token" ||
			r.Form.Get("refresh_token") != refreshToken ||
			r.Form.Get("client_id") != clientID ||
			r.Form.Get("client_secret") != clientSecret {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		env.Refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"token_type":    "bearer",
		})
	}))
	t.Cleanup(tokens.Close)
	env.TokenURL = tokens.URL + "/oauth/token/"

	return env
}

// connect returns a handshake whose client authenticates with tok.
func (env *testEnv) connect(tok string, refresh string) *handshake.Handshake {
	return handshake.New(handshake.Connect(func(ctx context.Context) (rest.Caller, error) {
		ts := rest.TokenSource(ctx, rest.OAuthConfig{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     env.TokenURL,
		}, rest.NewToken(tok, refresh, 0))
		return rest.New(env.PortalURL, rest.WithTokenSource(ts))
	}))
}

// writeManifest writes a manifest file into the env dir and returns its path.
func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func assertBindings(t *testing.T, p *resttest.Portal, want ...resttest.Binding) {
	t.Helper()
	got := p.Bindings()
	if len(got) != len(want) {
		t.Fatalf("got %d bindings, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Placement != want[i].Placement || got[i].Handler != want[i].Handler {
			t.Errorf("binding[%d] = %s %s, want %s %s",
				i, got[i].Placement, got[i].Handler, want[i].Placement, want[i].Handler)
		}
	}
}
