package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey names a cached content-service response.
	HTTPKey(namespace, key string) string
	// DOTKey names serialized DOT for a graph snapshot and extraction options.
	DOTKey(graphHash string, opts DOTKeyOpts) string
	// ArtifactKey names a rendered artifact of a DOT source.
	ArtifactKey(dotHash string, opts ArtifactKeyOpts) string
}

// DOTKeyOpts are the options that change serialized DOT.
type DOTKeyOpts struct {
	Focal       string `json:"focal"`
	Depth       int    `json:"depth"`
	BottomToTop bool   `json:"bottom_to_top"`
	WrapWidth   int    `json:"wrap_width"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// DOTKey hashes the graph hash together with opts.
func (DefaultKeyer) DOTKey(graphHash string, opts DOTKeyOpts) string {
	return hashKey("dot", graphHash, opts)
}

// ArtifactKey hashes the DOT hash together with opts.
func (DefaultKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", dotHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
