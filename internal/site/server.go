package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/708u/mdblog"
)

// Server serves the views of the collection held by a Store.
type Server struct {
	addr   string
	views  *Views
	store  *Store
	logger mdblog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server for addr. It does not listen until
// Start is called.
func NewServer(addr string, views *Views, store *Store, logger mdblog.Logger) *Server {
	if logger == nil {
		logger = mdblog.NopLogger()
	}
	s := &Server{
		addr:   addr,
		views:  views,
		store:  store,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routes mounted under the views' base path:
//
//	GET {base}                 list view, ?tag= filters
//	GET {base}tags/{tag}/      list view of one tag
//	GET {base}posts/{id}/      detail view
//	GET {base}assets/style.css stylesheet
//
// Everything else gets the not-found view with status 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /tags/{tag}/{$}", s.handleTag)
	mux.HandleFunc("GET /posts/{id}/{$}", s.handlePost)
	mux.HandleFunc("GET /tags/{tag}", s.redirectToDir("tags", "tag"))
	mux.HandleFunc("GET /posts/{id}", s.redirectToDir("posts", "id"))
	mux.HandleFunc("GET /assets/style.css", handleStyle)
	mux.HandleFunc("/", s.handleNotFound)

	base := s.views.BasePath()
	if base == "/" {
		return mux
	}
	prefix := strings.TrimSuffix(base, "/")
	outer := http.NewServeMux()
	outer.Handle(prefix, http.RedirectHandler(base, http.StatusMovedPermanently))
	outer.Handle(base, http.StripPrefix(prefix, mux))
	outer.HandleFunc("/", s.handleNotFound)
	return outer
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, r.URL.Query().Get("tag"))
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, r.PathValue("tag"))
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, tag string) {
	c := s.store.Collection()
	if tag != "" && len(c.WithTag(tag)) == 0 {
		s.handleNotFound(w, r)
		return
	}
	s.write(w, r, http.StatusOK, func(buf *bytes.Buffer) error {
		return s.views.RenderList(buf, c, tag)
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Collection().Get(r.PathValue("id"))
	if errors.Is(err, mdblog.ErrPostNotFound) {
		s.handleNotFound(w, r)
		return
	}
	s.write(w, r, http.StatusOK, func(buf *bytes.Buffer) error {
		return s.views.RenderPost(buf, p)
	})
}

// redirectToDir sends /section/x to /section/x/.
func (s *Server) redirectToDir(section, wildcard string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.PathValue(wildcard)
		if v == "" {
			s.handleNotFound(w, r)
			return
		}
		http.Redirect(w, r, s.views.url(section, v), http.StatusMovedPermanently)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusNotFound, func(buf *bytes.Buffer) error {
		return s.views.RenderNotFound(buf)
	})
}

func handleStyle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(styleCSS)
}

// write renders a page into memory first so a template error can
// still become a 500.
func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("rendering page", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Start begins listening and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Addr returns the listen address, with the actual port once started.
func (s *Server) Addr() string {
	return s.addr
}
