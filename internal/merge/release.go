package merge

import (
	"bytes"
	"encoding/json"
	"sync"
)

// Fragment is the partial document one converter asserts. A nil or empty
// fragment asserts nothing.
type Fragment map[string]any

// NewFragment builds a fragment holding value at path.
func NewFragment(value any, path ...string) (Fragment, error) {
	f := Fragment{}
	if err := Set(f, value, path...); err != nil {
		return nil, err
	}
	return f, nil
}

// Release is the accumulating output document. It is mutated only through
// Merger.Fold and becomes read-only once frozen.
type Release struct {
	mu     sync.RWMutex
	root   map[string]any
	frozen bool
}

// NewRelease returns an empty, unfrozen release.
func NewRelease() *Release {
	return &Release{root: make(map[string]any)}
}

// NewReleaseFrom returns an unfrozen release holding a copy of doc.
func NewReleaseFrom(doc map[string]any) *Release {
	root, _ := deepCopy(doc).(map[string]any)
	if root == nil {
		root = make(map[string]any)
	}
	return &Release{root: root}
}

// Fold merges frag into r, attributing conflicts to source. Each fold is
// applied whole: no reader observes a partially merged fragment.
func (m *Merger) Fold(r *Release, frag Fragment, source string) error {
	if len(frag) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	s := step{m: m, source: source}
	s.mapping(r.root, frag, nil)
	return nil
}

// Freeze makes r read-only. Freezing twice is harmless.
func (r *Release) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether r has been frozen.
func (r *Release) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns a copy of the value at path.
func (r *Release) Get(path ...string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := Lookup(r.root, path...)
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Snapshot returns a deep copy of the whole document.
func (r *Release) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return deepCopy(r.root).(map[string]any)
}

// Len returns the number of top-level fields.
func (r *Release) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.root)
}

// MarshalJSON encodes the document without HTML escaping.
func (r *Release) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.root); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
