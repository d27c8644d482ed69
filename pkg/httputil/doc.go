// Package httputil holds the plumbing shared by HTTP collaborators such as
// the content-service client.
//
// # Response cache
//
// [Cache] stores decoded responses as JSON in any [cache.Cache] backend
// (file for the CLI, memory or Redis for the server). Keys are namespaced per
// collaborator:
//
//	c := httputil.NewCache(backend, nil, cache.TTLHTTP).Namespace("content")
//	var doc io.Document
//	if ok, _ := c.Get(ctx, "nodes/pca", &doc); !ok {
//	    doc = fetch()
//	    c.Set(ctx, "nodes/pca", doc)
//	}
//
// # Retry
//
// [Policy.Do] retries transient failures with exponential backoff. Only
// errors wrapped in [RetryableError] (network errors, 5xx responses) and
// rate-limit errors are retried; a 404 or a decode error returns at once.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return fetchOnce(ctx)
//	})
//
// [DefaultPolicy] makes three attempts, starting at one second.
package httputil
