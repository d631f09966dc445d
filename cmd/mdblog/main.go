package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/708u/mdblog"
	"github.com/708u/mdblog/internal/md"
	"github.com/708u/mdblog/internal/site"
)

var errMalformed = errors.New("malformed documents found")

var _ mdblog.Logger = (*glog.BaseLogger)(nil)

// noMathScript disables the math script in the site config.
const noMathScript = "none"

type CLI struct {
	Config  string           `help:"Path to the config file (default ./mdblog.toml)." short:"c" type:"path"`
	Posts   string           `help:"Posts directory, overrides the config." short:"p" type:"path"`
	Verbose bool             `help:"Log debug details." short:"v"`
	Version kong.VersionFlag `help:"Print version."`

	Serve ServeCmd `cmd:"" help:"Serve the blog over HTTP."`
	Build BuildCmd `cmd:"" help:"Write the blog as a static site."`
	List  ListCmd  `cmd:"" help:"List posts, most recent first."`
	Check CheckCmd `cmd:"" help:"Report malformed post documents. Exits with 1 if any are found."`
	New   NewCmd   `cmd:"" help:"Create a new post document."`
}

// env is what every command runs with.
type env struct {
	ctx    context.Context
	cfg    *mdblog.Config
	logger mdblog.Logger
	w      io.Writer
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("mdblog"),
		kong.Description("A markdown blog with math support."),
		kong.Vars{"version": versionString()},
		kong.UsageOnError(),
	)

	cfg, err := mdblog.LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mdblog: %v\n", err)
		return 2
	}
	if cli.Posts != "" {
		cfg.Posts.Dir = cli.Posts
	}

	e := &env{
		ctx:    ctx,
		cfg:    cfg,
		logger: newLogger(os.Stderr, cli.Verbose),
		w:      os.Stdout,
	}
	return exitCode(kctx.Run(e))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMalformed):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "mdblog: %v\n", err)
		return 2
	}
}

// newLogger writes console lines to w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *glog.BaseLogger {
	level := glog.Info
	if verbose {
		level = glog.Debug
	}
	return glog.NewLogger(
		glog.WithLevel(level),
		glog.WithLoggerTypeConsole(),
		glog.WithWriter(w),
	)
}

func (e *env) renderer() *md.Renderer {
	r := e.cfg.Render
	return md.New(md.Options{
		HardWraps:      r.HardWraps == nil || *r.HardWraps,
		Unsafe:         r.UnsafeHTML,
		HighlightStyle: r.HighlightStyle,
	})
}

// load reads the configured posts directory.
func (e *env) load(strict bool) (*mdblog.Collection, error) {
	opts := []mdblog.LoaderOption{
		mdblog.WithLogger(e.logger),
		mdblog.WithPreviewLength(e.cfg.Posts.PreviewLength),
	}
	if strict {
		opts = append(opts, mdblog.WithStrict())
	}
	return mdblog.NewLoader(os.DirFS(e.cfg.Posts.Dir), ".", e.renderer(), opts...).Load(e.ctx)
}

func (e *env) views() (*site.Views, error) {
	script := e.cfg.Site.MathScript
	if script == noMathScript {
		script = ""
	}
	return site.NewViews(site.Config{
		Title:      e.cfg.Site.Title,
		BasePath:   e.cfg.Site.BasePath,
		MathScript: script,
	})
}
