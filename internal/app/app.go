// Package app builds the request layer once at startup and hands it to the
// views. Its methods are everything the rest of the application may call.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pechorka/xmum-wiki/internal/bootstrap"
	"github.com/pechorka/xmum-wiki/internal/client"
	"github.com/pechorka/xmum-wiki/internal/config"
	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pechorka/xmum-wiki/internal/service/session"
	"github.com/pechorka/xmum-wiki/internal/service/token"
	"github.com/pechorka/xmum-wiki/internal/storage"
	"github.com/pechorka/xmum-wiki/internal/uistate"
	"github.com/sirupsen/logrus"
)

type App struct {
	store   *storage.Storage
	catalog io.Closer
	tokens  *token.Store
	client  *client.Client
	session *session.Service
	ui      *uistate.Store
	log     logrus.FieldLogger
}

// Options overrides collaborators that New would otherwise build itself.
type Options struct {
	HTTPClient *http.Client
	// Sink receives user notices. Defaults to a console sink on stderr.
	Sink notify.Sink
	// Now replaces time.Now for token expiry checks.
	Now func() time.Time
}

func New(cfg config.Config, log logrus.FieldLogger, opts Options) (*App, error) {
	if opts.Sink == nil {
		opts.Sink = notify.NewConsoleSink(os.Stderr)
	}

	tr, catalog, err := bootstrap.Translator(cfg.Locale, log)
	if err != nil {
		return nil, err
	}
	store, err := bootstrap.Storage(cfg.Storage)
	if err != nil {
		return nil, errors.Join(err, catalog.Close())
	}

	n := notify.New(opts.Sink, tr, cfg.Locale.Lang, log)
	var tokenOpts []token.Option
	if opts.Now != nil {
		tokenOpts = append(tokenOpts, token.WithClock(opts.Now))
	}
	tokens := token.NewStore(store, n, log, tokenOpts...)
	c, err := client.New(cfg.API.BaseURL, tokens, client.Options{
		HTTPClient: opts.HTTPClient,
		Notifier:   n,
		Logger:     log,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close(), catalog.Close())
	}

	return &App{
		store:   store,
		catalog: catalog,
		tokens:  tokens,
		client:  c,
		session: session.NewService(c, tokens, n, log),
		ui:      uistate.New(),
		log:     log,
	}, nil
}

// Close releases the storage and stops watching the message catalogue.
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.catalog.Close())
}

func (a *App) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return a.client.Get(ctx, path)
}

func (a *App) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return a.client.Post(ctx, path, body)
}

func (a *App) Login(ctx context.Context, identifier, code string) (string, error) {
	return a.session.Login(ctx, identifier, code)
}

func (a *App) Logout(ctx context.Context) (json.RawMessage, error) {
	return a.session.Logout(ctx)
}

func (a *App) IsUnauthenticated() bool {
	return a.tokens.IsUnauthenticated()
}

func (a *App) TakeAccessToken() (string, bool) {
	return a.tokens.Take()
}

func (a *App) AccessHeader() http.Header {
	return a.client.AccessHeader()
}

// Dispatch routes a call result to h, with the default failure and error
// handlers filling in for nil ones.
func (a *App) Dispatch(data json.RawMessage, err error, h client.Handlers) {
	a.client.Dispatch(data, err, h)
}

// UI is the shared UI state cell.
func (a *App) UI() *uistate.Store {
	return a.ui
}
