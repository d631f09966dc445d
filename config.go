package mdblog

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is read from the working directory when no
// config path is given.
const DefaultConfigFile = "mdblog.toml"

// DefaultMathScript loads MathJax, which typesets the \( \) and \[ \]
// spans the renderer emits.
const DefaultMathScript = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-chtml.js"

// Config holds the mdblog configuration loaded from TOML.
type Config struct {
	Site   SiteConfig   `toml:"site"`
	Posts  PostsConfig  `toml:"posts"`
	Render RenderConfig `toml:"render"`
	Serve  ServeConfig  `toml:"serve"`
	Build  BuildConfig  `toml:"build"`
}

// SiteConfig controls what the views show and where they live.
type SiteConfig struct {
	Title string `toml:"title"`

	// BasePath is the URL prefix the blog is served under, e.g. "/blog/".
	BasePath string `toml:"base_path"`

	// MathScript is the script URL included on every page.
	// Set to "none" to omit it.
	MathScript string `toml:"math_script"`
}

// PostsConfig controls post loading.
type PostsConfig struct {
	Dir string `toml:"dir"`

	// PreviewLength is the preview length target in characters.
	PreviewLength int `toml:"preview_length"`

	// Strict fails the load on a malformed document instead of
	// skipping it.
	Strict bool `toml:"strict"`
}

// RenderConfig controls markdown rendering.
type RenderConfig struct {
	// HardWraps renders newlines as line breaks. Defaults to true.
	HardWraps *bool `toml:"hard_wraps"`

	UnsafeHTML bool `toml:"unsafe_html"`

	// HighlightStyle is a chroma style name. Empty disables
	// highlighting.
	HighlightStyle string `toml:"highlight_style"`
}

type ServeConfig struct {
	Addr string `toml:"addr"`
}

type BuildConfig struct {
	OutDir string `toml:"out_dir"`
}

// LoadConfig reads a TOML configuration file and fills in defaults.
// If path is empty, DefaultConfigFile is used.
// Returns the default Config without error when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Writings"
	}
	if c.Site.BasePath == "" {
		c.Site.BasePath = "/"
	}
	if c.Site.MathScript == "" {
		c.Site.MathScript = DefaultMathScript
	}
	if c.Posts.Dir == "" {
		c.Posts.Dir = "posts"
	}
	if c.Posts.PreviewLength <= 0 {
		c.Posts.PreviewLength = DefaultPreviewLength
	}
	if c.Render.HardWraps == nil {
		hardWraps := true
		c.Render.HardWraps = &hardWraps
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	if c.Build.OutDir == "" {
		c.Build.OutDir = "dist"
	}
}
