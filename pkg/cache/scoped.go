package cache

// ScopedKeyer wraps a Keyer with a prefix, isolating the entries of one
// configuration (for example one API base URL or one tenant) from others
// that share the same backend.
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
func (k *ScopedKeyer) HTTPKey(namespace, url string) string {
	return k.prefix + k.inner.HTTPKey(namespace, url)
}

// GraphKey generates a prefixed key for graph export caching.
func (k *ScopedKeyer) GraphKey(documentHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(documentHash, opts)
}
