package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/708u/mdblog"
)

// ErrUnsafeOutDir is returned when a clean build would remove the
// working directory or the file system root.
var ErrUnsafeOutDir = errors.New("refusing to clean output directory")

const filePerm = 0o644

// Builder writes a collection out as a static site:
//
//	index.html
//	posts/<id>/index.html
//	tags/<tag>/index.html
//	404.html
//	assets/style.css
type Builder struct {
	views  *Views
	outDir string
	clean  bool
	limit  int
	logger mdblog.Logger
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithClean removes the output directory before writing.
func WithClean() BuildOption {
	return func(b *Builder) { b.clean = true }
}

// WithConcurrency limits how many pages are rendered at once.
func WithConcurrency(n int) BuildOption {
	return func(b *Builder) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithBuildLogger sets the logger for written pages.
func WithBuildLogger(l mdblog.Logger) BuildOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder writing into outDir.
func NewBuilder(views *Views, outDir string, opts ...BuildOption) *Builder {
	b := &Builder{
		views:  views,
		outDir: outDir,
		limit:  runtime.GOMAXPROCS(0),
		logger: mdblog.NopLogger(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

type buildJob struct {
	path   string
	render func(io.Writer) error
}

// Build writes every page of c and returns the number of files
// written.
func (b *Builder) Build(ctx context.Context, c *mdblog.Collection) (int, error) {
	if b.clean {
		if err := b.removeOutDir(); err != nil {
			return 0, err
		}
	}

	jobs := b.jobs(c)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return b.write(job)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	b.logger.Info("site built", "dir", b.outDir, "files", len(jobs))
	return len(jobs), nil
}

func (b *Builder) jobs(c *mdblog.Collection) []buildJob {
	jobs := []buildJob{
		{
			path:   "index.html",
			render: func(w io.Writer) error { return b.views.RenderList(w, c, "") },
		},
		{
			path:   "404.html",
			render: b.views.RenderNotFound,
		},
		{
			path: filepath.Join("assets", "style.css"),
			render: func(w io.Writer) error {
				_, err := w.Write(styleCSS)
				return err
			},
		},
	}
	for _, p := range c.Posts() {
		jobs = append(jobs, buildJob{
			path:   filepath.Join("posts", p.ID, "index.html"),
			render: func(w io.Writer) error { return b.views.RenderPost(w, p) },
		})
	}
	for _, tag := range c.Tags() {
		if !isPathSegment(tag) {
			b.logger.Warn("tag page skipped", "tag", tag)
			continue
		}
		jobs = append(jobs, buildJob{
			path:   filepath.Join("tags", tag, "index.html"),
			render: func(w io.Writer) error { return b.views.RenderList(w, c, tag) },
		})
	}
	return jobs
}

// isPathSegment reports whether s can name one directory.
func isPathSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func (b *Builder) write(job buildJob) error {
	var buf bytes.Buffer
	if err := job.render(&buf); err != nil {
		return fmt.Errorf("rendering %s: %w", job.path, err)
	}
	path := filepath.Join(b.outDir, job.path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", job.path, err)
	}
	if err := writeFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	b.logger.Debug("wrote page", "path", path)
	return nil
}

func (b *Builder) removeOutDir() error {
	dir := filepath.Clean(b.outDir)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	wd, _ := os.Getwd()
	if dir == "." || abs == wd || abs == filepath.Dir(abs) {
		return fmt.Errorf("%w: %s", ErrUnsafeOutDir, b.outDir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cleaning %s: %w", dir, err)
	}
	return nil
}
