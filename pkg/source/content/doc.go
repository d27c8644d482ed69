// Package content fetches graph documents from the knowledge-map content
// service.
//
// Two endpoints are used, both answering {"nodes": {id: record, ...}}:
//
//	GET {base}/nodes               the whole graph
//	GET {base}/nodes/{id}?set=map  a node and the map it depends on
//
// Transient failures (transport errors, 5xx, 429) are retried with
// [httputil.Policy]; a 404 is a NOT_FOUND error and a null body is
// [io.ErrEmptyDocument]. Decoded documents are cached through an optional
// [httputil.Cache].
package content
