// Package io converts between serialized graph documents and the in-memory
// store.
//
// # Document Format
//
// A document maps node ids to records, using the content service's field
// names:
//
//	{
//	  "key_node": "eigenvalues",
//	  "nodes": {
//	    "vectors": {"title": "Vectors", "summary": "..."},
//	    "matrices": {
//	      "dependencies": [{"from_tag": "vectors", "reason": "entries are vectors"}]
//	    }
//	  }
//	}
//
// Every record field is optional. An edge's to_tag defaults to the node that
// owns it; from_tag is required. The same structure is accepted as YAML and
// TOML.
//
// # Import
//
// Use [Import] to build a store from a file path (the format follows the
// extension), or [ReadJSON], [ReadYAML] and [ReadTOML] for readers:
//
//	store, err := io.Import("graph.yaml")
//
// [Build] and [Populate] turn an already decoded [Document] into store
// contents. Validation failures surface as [*kgraph.MalformedInputError]; an
// empty or null document as [ErrEmptyDocument].
//
// # Export
//
// [WriteJSON] and [Export] write a store snapshot back as a document, so a
// fetched graph can be saved and re-imported later. [WriteSubgraphJSON]
// writes an extracted subgraph with display titles and BFS levels for API
// consumers. [Hash] fingerprints a snapshot for cache keys.
//
// [*kgraph.MalformedInputError]: github.com/matzehuels/knowmap/pkg/kgraph.MalformedInputError
package io
