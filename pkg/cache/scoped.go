package cache

// ScopedKeyer wraps a Keyer with a prefix so that several servers or users
// can share one backend without seeing each other's entries.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "lab-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ImportKey implements [Keyer].
func (k *ScopedKeyer) ImportKey(contentHash string, opts ImportKeyOpts) string {
	return k.prefix + k.inner.ImportKey(contentHash, opts)
}

// SynthKey implements [Keyer].
func (k *ScopedKeyer) SynthKey(contentHash string, opts SynthKeyOpts) string {
	return k.prefix + k.inner.SynthKey(contentHash, opts)
}

// RenderKey implements [Keyer].
func (k *ScopedKeyer) RenderKey(designHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(designHash, opts)
}
