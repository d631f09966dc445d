package md

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
	meta "go.abhg.dev/goldmark/frontmatter"
)

// metaParser is a reusable goldmark parser with frontmatter support.
var metaParser = goldmark.New(
	goldmark.WithExtensions(
		&meta.Extender{Mode: meta.SetMetadata},
	),
).Parser()

// Metadata decodes the YAML (---) or TOML (+++) front matter block
// at the start of data. The map is empty if there is no block or
// it could not be decoded.
func Metadata(data []byte) map[string]any {
	doc := metaParser.Parse(text.NewReader(data))
	return doc.OwnerDocument().Meta()
}
