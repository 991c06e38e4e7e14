package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/push"
	"github.com/idilsaglam/tada/internal/session"
	"github.com/idilsaglam/tada/internal/stats"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/ui"
)

// app is one instance of every long-lived component, wired together.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	creds   *session.Store
	session *session.Session
	client  *api.Client
	store   *store.Store
	stats   *stats.Reconciler
	push    *push.Channel

	logFile io.Closer
}

// loadConfig reads the config and applies the display flags.
func (e *env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(e.flags.configPath)
	if err != nil {
		return nil, err
	}
	if e.flags.verbose {
		cfg.LogLevel = "debug"
	}
	theme := cfg.Theme
	if e.flags.theme != "" {
		theme = e.flags.theme
	}
	ui.SetTheme(theme)
	return cfg, nil
}

// setup builds the app once per invocation. logTo receives the log
// records; nil means stderr.
func (e *env) setup(logTo io.Writer) (*app, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if logTo == nil {
		logTo = e.errOut
	}
	logger := cfg.NewLogger(logTo)

	creds, err := session.NewStore(cfg.CredentialsDir)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(creds, logger)
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Options{
		BaseURL:   cfg.APIURL,
		Tokens:    sess,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	sess.SetAuthenticator(client)

	st := store.New(store.Options{Remote: client, Logger: logger})
	e.app = &app{
		cfg:     cfg,
		log:     logger,
		creds:   creds,
		session: sess,
		client:  client,
		store:   st,
		stats:   stats.New(stats.Options{Ledger: st, Remote: client, Viewer: sess, Logger: logger}),
		push:    push.New(push.Options{URL: cfg.PushURL, Tokens: sess, Applier: st, Logger: logger}),
	}
	return e.app, nil
}

// requireAuth is setup for commands that talk to the todo endpoints. A
// token without a known owner, as with TADA_TOKEN, is resolved first so
// role checks see the right user.
func (e *env) requireAuth(ctx context.Context) (*app, error) {
	a, err := e.setup(nil)
	if err != nil {
		return nil, err
	}
	if !a.session.IsAuthenticated() {
		return nil, usagef("not logged in. Set %s or run `tada auth login`", "TADA_TOKEN")
	}
	if _, ok := a.session.User(); !ok {
		if _, err := a.session.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("load current user: %w", err)
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
	}
}
