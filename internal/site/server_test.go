package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/708u/mdblog"
)

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()
	s := NewServer(":0", testViews(t, "/"), NewStore(testCollection(t)), nil)
	h := s.Handler()

	tests := []struct {
		name     string
		target   string
		status   int
		titles   []string
		heading  string
		location string
	}{
		{name: "list", target: "/", status: http.StatusOK, titles: []string{"Newer", "Hello"}},
		{name: "query tag", target: "/?tag=x", status: http.StatusOK, titles: []string{"Hello"}},
		{name: "tag page", target: "/tags/y/", status: http.StatusOK, titles: []string{"Newer", "Hello"}},
		{name: "escaped tag", target: "/tags/two%20words/", status: http.StatusOK, titles: []string{"Newer"}},
		{name: "unknown tag", target: "/tags/nope/", status: http.StatusNotFound, heading: NotFoundMessage},
		{name: "unknown query tag", target: "/?tag=nope", status: http.StatusNotFound, heading: NotFoundMessage},
		{name: "post", target: "/posts/hello/", status: http.StatusOK, heading: "Hello"},
		{name: "missing post", target: "/posts/missing/", status: http.StatusNotFound, heading: NotFoundMessage},
		{name: "post without slash", target: "/posts/hello", status: http.StatusMovedPermanently, location: "/posts/hello/"},
		{name: "tag without slash", target: "/tags/x", status: http.StatusMovedPermanently, location: "/tags/x/"},
		{name: "unknown path", target: "/nowhere/at/all", status: http.StatusNotFound, heading: NotFoundMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.location != "" {
				if got := rec.Header().Get("Location"); got != tt.location {
					t.Errorf("Location = %q, want %q", got, tt.location)
				}
				return
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			doc := parseHTML(t, rec.Body.Bytes())
			if tt.titles != nil {
				if got := texts(doc.Find(".post-card h2")); !slices.Equal(got, tt.titles) {
					t.Errorf("post titles = %q, want %q", got, tt.titles)
				}
			}
			if tt.heading != "" {
				got := strings.TrimSpace(doc.Find("article h1, .not-found").First().Text())
				if got != tt.heading {
					t.Errorf("heading = %q, want %q", got, tt.heading)
				}
			}
		})
	}
}

func TestServerStyle(t *testing.T) {
	t.Parallel()
	s := NewServer(":0", testViews(t, "/"), NewStore(testCollection(t)), nil)

	rec := serve(t, s.Handler(), "/assets/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != string(styleCSS) {
		t.Error("stylesheet body differs from embedded file")
	}
}

func TestServerBasePath(t *testing.T) {
	t.Parallel()
	s := NewServer(":0", testViews(t, "/blog/"), NewStore(testCollection(t)), nil)
	h := s.Handler()

	tests := []struct {
		target   string
		status   int
		location string
	}{
		{target: "/blog/", status: http.StatusOK},
		{target: "/blog/posts/hello/", status: http.StatusOK},
		{target: "/blog/assets/style.css", status: http.StatusOK},
		{target: "/blog/posts/hello", status: http.StatusMovedPermanently, location: "/blog/posts/hello/"},
		{target: "/blog", status: http.StatusMovedPermanently, location: "/blog/"},
		{target: "/blogroll", status: http.StatusNotFound},
		{target: "/posts/hello/", status: http.StatusNotFound},
		{target: "/", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.location != "" {
				if got := rec.Header().Get("Location"); got != tt.location {
					t.Errorf("Location = %q, want %q", got, tt.location)
				}
			}
		})
	}

	doc := parseHTML(t, serve(t, h, "/blog/").Body.Bytes())
	if got := attrs(doc.Find(".post-card h2 > a"), "href"); !slices.Equal(got, []string{"/blog/posts/newer/", "/blog/posts/hello/"}) {
		t.Errorf("post links = %q", got)
	}
}

func TestServerServesReplacedCollection(t *testing.T) {
	t.Parallel()
	store := NewStore(testCollection(t))
	h := NewServer(":0", testViews(t, "/"), store, nil).Handler()

	if rec := serve(t, h, "/posts/fresh/"); rec.Code != http.StatusNotFound {
		t.Fatalf("status before reload = %d, want 404", rec.Code)
	}

	old := store.Replace(testCollection(t, &mdblog.Post{ID: "fresh", Title: "Fresh"}))
	if old == nil || old.Len() != 2 {
		t.Errorf("Replace returned %v, want the previous collection", old)
	}

	if rec := serve(t, h, "/posts/fresh/"); rec.Code != http.StatusOK {
		t.Errorf("status after reload = %d, want 200", rec.Code)
	}
	if rec := serve(t, h, "/posts/hello/"); rec.Code != http.StatusNotFound {
		t.Errorf("old post status = %d, want 404", rec.Code)
	}
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()
	s := NewServer("127.0.0.1:0", testViews(t, "/"), NewStore(testCollection(t)), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/posts/hello/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<h1>Hello</h1>") {
		t.Errorf("body missing heading:\n%s", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := http.Get("http://" + s.Addr() + "/"); err == nil {
		t.Error("server still answering after Stop")
	}
}
