package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/708u/mdblog"
	"github.com/708u/mdblog/internal/site"
)

const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	Addr  string `help:"Listen address, overrides the config." short:"a"`
	Watch bool   `help:"Reload posts when files in the posts directory change." short:"w"`
}

func (c *ServeCmd) Run(e *env) error {
	addr := e.cfg.Serve.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	posts, err := e.load(e.cfg.Posts.Strict)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	views, err := e.views()
	if err != nil {
		return err
	}
	store := site.NewStore(posts)

	srv := site.NewServer(addr, views, store, e.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	e.logger.Info("serving", "url", "http://"+srv.Addr()+views.BasePath(), "posts", posts.Len())

	watchErr := make(chan error, 1)
	if c.Watch {
		w := site.NewWatcher(e.cfg.Posts.Dir, store,
			func(context.Context) (*mdblog.Collection, error) {
				return e.load(e.cfg.Posts.Strict)
			},
			site.WithWatchLogger(e.logger),
		)
		go func() { watchErr <- w.Run(e.ctx) }()
	}

	select {
	case <-e.ctx.Done():
	case err = <-watchErr:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := srv.Stop(ctx); stopErr != nil {
		return stopErr
	}
	return err
}

type BuildCmd struct {
	Out   string `help:"Output directory, overrides the config." short:"o" type:"path"`
	Clean bool   `help:"Remove the output directory first."`
}

func (c *BuildCmd) Run(e *env) error {
	out := e.cfg.Build.OutDir
	if c.Out != "" {
		out = c.Out
	}

	posts, err := e.load(e.cfg.Posts.Strict)
	if err != nil {
		return err
	}
	views, err := e.views()
	if err != nil {
		return err
	}

	opts := []site.BuildOption{site.WithBuildLogger(e.logger)}
	if c.Clean {
		opts = append(opts, site.WithClean())
	}
	n, err := site.NewBuilder(views, out, opts...).Build(e.ctx, posts)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.w, "wrote %d files to %s\n", n, out)
	return nil
}

type ListCmd struct {
	Tag string `help:"Only list posts with this tag." short:"t"`
}

func (c *ListCmd) Run(e *env) error {
	posts, err := e.load(e.cfg.Posts.Strict)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(e.w, 0, 0, 2, ' ', 0)
	for _, p := range posts.WithTag(c.Tag) {
		date := "-"
		if !p.Date.IsZero() {
			date = p.Date.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", date, p.ID, p.Title, mdblog.JoinTags(p.Tags))
	}
	return w.Flush()
}

type CheckCmd struct{}

func (c *CheckCmd) Run(e *env) error {
	posts, err := e.load(false)
	if err != nil {
		return err
	}

	skipped := posts.Skipped()
	for _, s := range skipped {
		fmt.Fprintf(e.w, "%s: %v\n", filepath.Join(e.cfg.Posts.Dir, s.Path), s.Err)
	}
	fmt.Fprintf(e.w, "%d posts ok, %d malformed\n", posts.Len(), len(skipped))
	if len(skipped) > 0 {
		return errMalformed
	}
	return nil
}

type NewCmd struct {
	Title string `arg:"" help:"Post title."`
	Tags  string `help:"Comma separated tags."`
	Date  string `help:"Post date (default today)."`
	Slug  string `help:"File name without .md (default derived from the title)."`
}

func (c *NewCmd) Run(e *env) error {
	name := c.Slug
	if name == "" {
		var err error
		if name, err = slugify(c.Title); err != nil {
			return fmt.Errorf("cannot derive a file name from title %q, use --slug: %w", c.Title, err)
		}
	}
	date := c.Date
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	doc := &mdblog.Document{
		FrontMatter: mdblog.FrontMatter{
			Title: c.Title,
			Date:  date,
			Tags:  mdblog.SplitTags(c.Tags),
		},
		Body: "\n",
	}

	dir := e.cfg.Posts.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating posts directory: %w", err)
	}
	path := filepath.Join(dir, name+".md")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	if _, err := f.Write(mdblog.FormatDocument(doc)); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(e.w, path)
	return nil
}

// slugify turns "Héllo, World!" into "hello-world". Accents are
// folded first so they survive normalization.
func slugify(title string) (string, error) {
	foldMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(foldMarks, title)
	if err != nil {
		plain = title
	}
	return slug.Normalize(plain)
}
