package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "cannot infer graph format from %q (want .json, .yaml or .toml)", path)
}

// Decode parses data in the given format into a Document.
//
// Empty input and a literal null both yield [ErrEmptyDocument]: a source
// that answered with nothing is reported, not silently treated as an empty
// graph. A document with an empty node map is valid.
func Decode(data []byte, format Format) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var doc *Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		doc = &Document{}
		if _, err := toml.Decode(string(data), doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}

	if doc == nil {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// ReadDocument reads all of r and decodes it. ReadDocument does not close r.
func ReadDocument(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Decode(data, format)
}

// ReadJSON decodes a JSON document from r and builds a store from it.
//
// The input is an object mapping node ids to records:
//
//	{
//	  "nodes": {
//	    "vectors":  {"title": "Vectors"},
//	    "matrices": {"dependencies": [{"from_tag": "vectors"}]}
//	  }
//	}
//
// Errors wrap the failing node's context; use errors.As with
// [*kgraph.MalformedInputError] to inspect validation failures.
func ReadJSON(r io.Reader) (*kgraph.Store, error) {
	return read(r, FormatJSON)
}

// ReadYAML is like [ReadJSON] for YAML input.
func ReadYAML(r io.Reader) (*kgraph.Store, error) {
	return read(r, FormatYAML)
}

// ReadTOML is like [ReadJSON] for TOML input, where each node is a
// [nodes.<id>] table and dependencies are [[nodes.<id>.dependencies]] arrays.
func ReadTOML(r io.Reader) (*kgraph.Store, error) {
	return read(r, FormatTOML)
}

func read(r io.Reader, format Format) (*kgraph.Store, error) {
	doc, err := ReadDocument(r, format)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// ImportDocument reads and decodes the file at path, choosing the format
// from its extension.
func ImportDocument(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := ReadDocument(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Import reads the graph file at path and builds a store from it.
func Import(path string) (*kgraph.Store, error) {
	doc, err := ImportDocument(path)
	if err != nil {
		return nil, err
	}
	s, err := Build(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
