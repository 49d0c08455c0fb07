package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/placekit-labs/placekit/internal/branding"
	"github.com/placekit-labs/placekit/internal/platform"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Settings is the resolved configuration for a single invocation.
type Settings struct {
	Portal PortalSettings `mapstructure:"portal"`
	OAuth  OAuthSettings  `mapstructure:"oauth"`
	App    AppSettings    `mapstructure:"app"`
	RPC    RPCSettings    `mapstructure:"rpc"`
	Log    LogSettings    `mapstructure:"log"`
	Server ServerSettings `mapstructure:"server"`
}

// PortalSettings locates the CRM portal REST endpoint.
type PortalSettings struct {
	// Webhook is an incoming-webhook base URL (https://portal/rest/<user>/<code>/).
	Webhook string `mapstructure:"webhook"`
	// Domain is the portal host used with OAuth access tokens.
	Domain string `mapstructure:"domain"`
}

// OAuthSettings holds application credentials and the current token pair.
type OAuthSettings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenURL     string `mapstructure:"token_url"`
}

// AppSettings describes where the widget is hosted.
type AppSettings struct {
	// PageURL is the URL of the app's entry page; the handler URL is derived from it.
	PageURL string `mapstructure:"page_url"`
	// Manifest overrides the embedded placement manifest.
	Manifest string `mapstructure:"manifest"`
}

// RPCSettings tunes the REST transport.
type RPCSettings struct {
	// Timeout bounds each HTTP round trip. Zero means no timeout.
	Timeout     time.Duration `mapstructure:"timeout"`
	QPS         float64       `mapstructure:"qps"`
	Burst       int           `mapstructure:"burst"`
	Concurrency int           `mapstructure:"concurrency"`
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ServerSettings configures `placekit serve`.
type ServerSettings struct {
	Addr string `mapstructure:"addr"`
	// PublicURL is the externally visible base URL. Set it when serving
	// behind a proxy unless TrustForwarded is on.
	PublicURL string `mapstructure:"public_url"`
	// AllowedDomains lists portal domain suffixes the install endpoint may
	// call. A trailing ".*" matches any top-level domain.
	AllowedDomains []string `mapstructure:"allowed_domains"`
	// TrustForwarded honours X-Forwarded-Proto and X-Forwarded-Host.
	TrustForwarded bool `mapstructure:"trust_forwarded"`
}

// UsesWebhook reports whether REST calls go through an incoming webhook.
func (s *Settings) UsesWebhook() bool {
	return s.Portal.Webhook != ""
}

// Dir returns the path to the config directory (~/.placekit/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.placekit/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.webhook", "")
	v.SetDefault("portal.domain", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.access_token", "")
	v.SetDefault("oauth.refresh_token", "")
	v.SetDefault("oauth.token_url", "https://oauth.bitrix.info/oauth/token/")
	v.SetDefault("app.page_url", "")
	v.SetDefault("app.manifest", "")
	v.SetDefault("rpc.timeout", time.Duration(0))
	v.SetDefault("rpc.qps", 2.0)
	v.SetDefault("rpc.burst", 2)
	v.SetDefault("rpc.concurrency", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.allowed_domains", []string{"bitrix24.*"})
	v.SetDefault("server.trust_forwarded", false)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings from path (FilePath() when empty) and the environment.
// A missing config file is not an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = FilePath()
	}
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}

// Get returns a config value by key from path (FilePath() when empty).
// Returns empty string if not set.
func Get(path, key string) string {
	if path == "" {
		path = FilePath()
	}
	v := newViper(path)
	_ = v.ReadInConfig()
	return v.GetString(key)
}

// Set writes a config key-value pair to path (FilePath() when empty).
// Only keys already in the file and the new key are written: defaults and
// environment values stay out of it. The file is created owner-only.
func Set(path, key, value string) error {
	if path == "" {
		if err := EnsureDir(); err != nil {
			return err
		}
		path = FilePath()
	}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, platform.PrivateFileMode)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	f.Close()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetConfigPermissions(platform.PrivateFileMode)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	v.Set(key, value)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return platform.RestrictToOwner(path)
}

func isNotExist(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}
