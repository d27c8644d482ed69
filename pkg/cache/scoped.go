package cache

// ScopedKeyer wraps a Keyer with a prefix so that several graphs or
// deployments can share one backend without colliding.
//
// Example usage:
//
//	// Keys for a server instance bound to one content service
//	k := NewScopedKeyer(NewDefaultKeyer(), "content:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// DOTKey generates a prefixed key for serialized DOT.
func (k *ScopedKeyer) DOTKey(graphHash string, opts DOTKeyOpts) string {
	return k.prefix + k.inner.DOTKey(graphHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(dotHash, opts)
}
