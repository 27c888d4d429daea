// Package devserver serves a built front end during development and forwards
// its API calls to the backend, so both share one origin.
package devserver

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pechorka/xmum-wiki/internal/config"
	"github.com/pechorka/xmum-wiki/internal/devserver/internal/respond"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg    config.DevServerConfig
	target *url.URL
	log    logrus.FieldLogger
	router chi.Router
}

func New(cfg config.DevServerConfig, log logrus.FieldLogger) (*Server, error) {
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, errors.Wrap(err, "parse proxy target")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Errorf("proxy target %q must be an absolute url", cfg.Target)
	}
	cfg.Base = normalizeBase(cfg.Base)
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")

	s := &Server{
		cfg:    cfg,
		target: target,
		log:    log.WithField("component", "devserver"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving %s on %s, proxying %s to %s", s.cfg.Base, s.cfg.Addr, s.cfg.APIPrefix, s.target)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return errors.Wrap(err, "dev server stopped")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down dev server")
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	proxy := s.proxy()
	r.Handle(s.cfg.APIPrefix+"/*", proxy)
	r.Handle(s.cfg.APIPrefix, proxy)
	if s.cfg.Base != "/" {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.cfg.Base, http.StatusFound)
		})
		r.Get(strings.TrimSuffix(s.cfg.Base, "/"), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.cfg.Base, http.StatusMovedPermanently)
		})
	}
	r.Get(s.cfg.Base+"*", s.static)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorWithText(w, s.log, http.StatusNotFound, respond.CODE_NOT_FOUND, "not found")
	})
	return r
}

// proxy strips the API prefix and rewrites Host to the target's, the way the
// backend expects to be addressed directly.
func (s *Server) proxy() http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			stripped := strings.TrimPrefix(r.In.URL.Path, s.cfg.APIPrefix)
			if stripped == "" {
				stripped = "/"
			}
			r.Out.URL.Path = stripped
			r.Out.URL.RawPath = ""
			r.SetURL(s.target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.WithError(err).WithField("path", r.URL.Path).Warn("backend unreachable")
			respond.ErrorWithText(w, s.log, http.StatusBadGateway, respond.CODE_BAD_GATEWAY, "backend unavailable")
		},
	}
}

// static serves files from the build directory. Paths without a file fall
// back to index.html, the front end router resolves them.
func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, s.cfg.Base)
	clean := path.Clean("/" + rel)
	file := filepath.Join(s.cfg.StaticDir, filepath.FromSlash(clean))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		http.ServeFile(w, r, file)
		return
	}
	index := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		respond.ErrorWithText(w, s.log, http.StatusNotFound, respond.CODE_NOT_FOUND, "front end is not built")
		return
	}
	http.ServeFile(w, r, index)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request served")
	})
}

func normalizeBase(base string) string {
	base = "/" + strings.Trim(base, "/")
	if base != "/" {
		base += "/"
	}
	return base
}
