// Package source defines where graph documents come from.
//
// A [Source] returns an [io.Document] for either the whole graph (empty
// focal) or the neighbourhood of one focal node. Sources never build stores
// themselves; callers pass the document to [io.Build] or [io.Populate], so
// every source shares the same validation.
//
// Implementations:
//
//   - [File]: a JSON, YAML or TOML file on disk
//   - content.Client: the HTTP content service
//   - mongo.Source: a MongoDB collection of node records
package source

import (
	"context"

	"github.com/matzehuels/knowmap/pkg/io"
)

// Source loads graph documents.
type Source interface {
	// Load returns the records for focal and everything it depends on, or
	// the whole graph when focal is empty.
	Load(ctx context.Context, focal string) (*io.Document, error)
	// Name identifies the source kind in logs and metrics.
	Name() string
}

// File reads a graph document from a local file. The format follows the
// file extension.
type File struct {
	Path string
}

// Load reads the file. A file always holds the whole graph, so focal only
// sets the document's key node.
func (f File) Load(ctx context.Context, focal string) (*io.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := io.ImportDocument(f.Path)
	if err != nil {
		return nil, err
	}
	if focal != "" {
		doc.KeyNode = focal
	}
	return doc, nil
}

// Name returns "file".
func (File) Name() string { return "file" }

var _ Source = File{}
