package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/manifest"
	"github.com/placekit-labs/placekit/internal/metrics"
	"github.com/placekit-labs/placekit/internal/placement"
	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/placekit-labs/placekit/internal/widget"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Auth is the portal credentials posted to the install page.
type Auth struct {
	Domain       string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// ClientFactory builds a portal client for one install request.
type ClientFactory func(ctx context.Context, auth Auth) (rest.Caller, error)

// Config holds the server dependencies.
type Config struct {
	Addr string
	// PublicURL is the externally visible base URL of the app. When empty
	// the page URL is rebuilt from the request, so behind a proxy either set
	// it or enable TrustForwarded.
	PublicURL string
	// AllowedDomains restricts the portal domains an install request may
	// name. Empty means DefaultAllowedDomains.
	AllowedDomains []string
	// TrustForwarded makes the page URL honour X-Forwarded-Proto and
	// X-Forwarded-Host.
	TrustForwarded bool
	Manifest       *manifest.Manifest
	NewClient ClientFactory
	Renderer  widget.Renderer
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Server serves the install and widget pages.
type Server struct {
	cfg    Config
	engine *gin.Engine
	specs  []placement.Spec
}

// New builds the router. Manifest and NewClient are required.
func New(cfg Config) (*Server, error) {
	if cfg.Manifest == nil {
		return nil, errors.New("server: manifest is required")
	}
	if cfg.NewClient == nil {
		return nil, errors.New("server: client factory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = DefaultAllowedDomains
	}

	tmpl, err := widget.Templates()
	if err != nil {
		return nil, err
	}
	if cfg.Renderer == nil {
		cfg.Renderer = widget.NewTemplateRenderer(tmpl, cfg.Manifest.Description)
	}

	s := &Server{
		cfg:   cfg,
		specs: placement.SpecsFromManifest(cfg.Manifest),
	}
	s.engine = s.routes(tmpl)
	return s, nil
}

func (s *Server) routes(tmpl *template.Template) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(RequestID(), Recovery(s.cfg.Logger), Logging(s.cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))

	entry := "/" + s.cfg.Manifest.EntryFile
	r.GET(entry, s.install)
	r.POST(entry, s.install)

	w := "/" + s.cfg.Manifest.WidgetFile
	r.GET(w, s.render)
	r.POST(w, s.render)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) install(c *gin.Context) {
	log := requestLogger(c)
	page := widget.InstallPage{AppName: s.cfg.Manifest.Name}

	if err := c.Request.ParseForm(); err != nil {
		s.installFailed(c, http.StatusBadRequest, page, err)
		return
	}
	auth, err := authFromForm(c.Request.Form, s.cfg.AllowedDomains)
	if err != nil {
		s.installFailed(c, http.StatusBadRequest, page, err)
		return
	}

	hs := handshake.New(handshake.Connect(func(ctx context.Context) (rest.Caller, error) {
		return s.cfg.NewClient(ctx, auth)
	}))
	installer := placement.NewInstaller(hs,
		placement.WithFiles(s.cfg.Manifest.EntryFile, s.cfg.Manifest.WidgetFile),
		placement.WithLogger(log),
		placement.WithMetrics(s.cfg.Metrics),
	)

	report, err := installer.Install(c.Request.Context(), s.specs, s.pageURL(c))
	if err != nil {
		s.installFailed(c, http.StatusBadGateway, page, err)
		return
	}

	page.HandlerURL = report.HandlerURL
	for _, o := range report.Succeeded() {
		page.Bound = append(page.Bound, o.Placement)
	}
	for _, o := range report.Failed() {
		page.Failed = append(page.Failed, fmt.Sprintf("%s: %v", o.Placement, o.Err))
	}
	for _, w := range report.Warnings {
		page.Warnings = append(page.Warnings, w.Error())
	}
	s.cfg.Metrics.RecordInstallRequest(len(page.Failed) == 0)
	c.HTML(http.StatusOK, widget.InstallTemplate, page)
}

func (s *Server) installFailed(c *gin.Context, status int, page widget.InstallPage, err error) {
	_ = c.Error(err)
	s.cfg.Metrics.RecordInstallRequest(false)
	page.Error = err.Error()
	c.HTML(status, widget.InstallTemplate, page)
}

func (s *Server) render(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	info, err := widget.Parse(c.Request.Form)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.cfg.Renderer.Render(c.Writer, info); err != nil {
		_ = c.Error(err)
		requestLogger(c).Error("widget render failed", zap.String("placement", info.Placement), zap.Error(err))
	}
}

// pageURL is the URL the portal opened the install page with.
func (s *Server) pageURL(c *gin.Context) string {
	query := ""
	if q := c.Request.URL.RawQuery; q != "" {
		query = "?" + q
	}
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + c.Request.URL.Path + query
	}

	scheme, host := "http", c.Request.Host
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if s.cfg.TrustForwarded {
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
			host = strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	return scheme + "://" + host + c.Request.URL.Path + query
}

func authFromForm(form url.Values, allowed []string) (Auth, error) {
	get := form.Get
	auth := Auth{
		Domain:       get(widget.FieldDomain),
		AccessToken:  get(widget.FieldAuthID),
		RefreshToken: get(widget.FieldRefreshID),
	}
	if auth.Domain == "" || auth.AccessToken == "" {
		return auth, fmt.Errorf("install request needs %s and %s", widget.FieldDomain, widget.FieldAuthID)
	}
	domain, err := checkDomain(auth.Domain, allowed)
	if err != nil {
		return auth, err
	}
	auth.Domain = domain
	if ttl := get(widget.FieldAuthTTL); ttl != "" {
		n, err := strconv.Atoi(ttl)
		if err != nil {
			return auth, fmt.Errorf("invalid %s %q: %w", widget.FieldAuthTTL, ttl, err)
		}
		auth.ExpiresIn = n
	}
	return auth, nil
}
