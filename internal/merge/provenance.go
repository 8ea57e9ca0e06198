package merge

import (
	"slices"
	"sort"
	"sync"
)

// Provenance maps each leaf path written during a run to the converters
// that asserted it, in fold order. A nil *Provenance records nothing.
type Provenance struct {
	mu    sync.RWMutex
	paths map[string][]string
}

// NewProvenance returns an empty index.
func NewProvenance() *Provenance {
	return &Provenance{paths: make(map[string][]string)}
}

// Record notes that source asserted the leaf at path.
func (p *Provenance) Record(path []string, source string) {
	if p == nil {
		return
	}
	key := JoinPath(path)

	p.mu.Lock()
	defer p.mu.Unlock()
	srcs := p.paths[key]
	if len(srcs) > 0 && srcs[len(srcs)-1] == source {
		return
	}
	p.paths[key] = append(srcs, source)
}

// Sources returns the converters that asserted the leaf at a joined path.
// The last entry is the one whose value survived.
func (p *Provenance) Sources(path string) []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.paths[path])
}

// Paths returns every recorded leaf path, sorted.
func (p *Provenance) Paths() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.paths))
	for k := range p.paths {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the whole index.
func (p *Provenance) Map() map[string][]string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string][]string, len(p.paths))
	for k, v := range p.paths {
		out[k] = slices.Clone(v)
	}
	return out
}
