package cache

// Keyer builds cache keys. Implementations must be deterministic: the same
// inputs always give the same key.
type Keyer interface {
	// ImportKey keys the parsed result of a GDS file with the given
	// content hash.
	ImportKey(contentHash string, opts ImportKeyOpts) string

	// SynthKey keys a library part template synthesised from a GDS file.
	SynthKey(contentHash string, opts SynthKeyOpts) string

	// RenderKey keys an SVG preview of a design or cell.
	RenderKey(designHash string, opts RenderKeyOpts) string
}

// ImportKeyOpts are the import settings that change the result.
type ImportKeyOpts struct {
	Type  string `json:"type"`
	Chip  string `json:"chip"`
	Merge bool   `json:"merge"`
}

// SynthKeyOpts are the synthesis settings that change the result.
type SynthKeyOpts struct {
	Name string `json:"name"`
	Chip string `json:"chip"`
}

// RenderKeyOpts are the render settings that change the result.
type RenderKeyOpts struct {
	Cell  string  `json:"cell"`
	Width float64 `json:"width"`
}

// DefaultKeyer hashes its inputs under a per-kind prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ImportKey implements [Keyer].
func (DefaultKeyer) ImportKey(contentHash string, opts ImportKeyOpts) string {
	return hashKey("import", contentHash, opts)
}

// SynthKey implements [Keyer].
func (DefaultKeyer) SynthKey(contentHash string, opts SynthKeyOpts) string {
	return hashKey("synth", contentHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(designHash string, opts RenderKeyOpts) string {
	return hashKey("render", designHash, opts)
}
