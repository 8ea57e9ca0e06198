package orchestrator

import (
	"fmt"
	"sort"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
)

// CoherenceIssue is an inconsistency found in a merged release.
type CoherenceIssue struct {
	Path        string // joined path of the offending value
	Description string // what is inconsistent
}

// CheckCoherence performs a lightweight post-merge scan of doc. It flags
// duplicate identifiers inside keyed lists, keyed-list entities without an
// identifier, and relatedLots entries naming a lot absent from
// tender.lots. Maps are walked in sorted key order so the result is
// deterministic.
func CheckCoherence(doc map[string]any, identifierKeys []string) []CoherenceIssue {
	if len(identifierKeys) == 0 {
		identifierKeys = merge.DefaultIdentifierKeys
	}
	c := &coherence{keys: identifierKeys, lots: lotIDs(doc)}
	c.walk(doc, nil)
	return c.issues
}

type coherence struct {
	keys   []string
	lots   map[string]bool
	issues []CoherenceIssue
}

func (c *coherence) walk(v any, path []string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := append(path[:len(path):len(path)], k)
			if k == "relatedLots" {
				c.relatedLots(val[k], p)
			}
			c.walk(val[k], p)
		}
	case []any:
		key := c.listKey(val)
		seen := make(map[string]int, len(val))
		for i, item := range val {
			seg := fmt.Sprintf("[%d]", i)
			if key != "" {
				m, _ := item.(map[string]any)
				id, ok := m[key]
				if !ok || id == nil {
					c.add(append(path[:len(path):len(path)], seg), "entity in keyed list has no %q", key)
				} else {
					seg = fmt.Sprintf("[%s=%v]", key, id)
					ids := fmt.Sprintf("%T:%v", id, id)
					if first, dup := seen[ids]; dup {
						c.add(path, "duplicate identifier %v at positions %d and %d", id, first, i)
					} else {
						seen[ids] = i
					}
				}
			}
			c.walk(item, append(path[:len(path):len(path)], seg))
		}
	}
}

func (c *coherence) listKey(items []any) string {
	for _, key := range c.keys {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				if v, ok := m[key]; ok && v != nil {
					return key
				}
			}
		}
	}
	return ""
}

func (c *coherence) relatedLots(v any, path []string) {
	refs, ok := v.([]any)
	if !ok {
		return
	}
	for _, ref := range refs {
		id, ok := ref.(string)
		if !ok {
			continue
		}
		if !c.lots[id] {
			c.add(path, "references unknown lot %q", id)
		}
	}
}

func (c *coherence) add(path []string, format string, args ...any) {
	c.issues = append(c.issues, CoherenceIssue{
		Path:        merge.JoinPath(path),
		Description: fmt.Sprintf(format, args...),
	})
}

// lotIDs collects the identifiers of tender.lots.
func lotIDs(doc map[string]any) map[string]bool {
	ids := make(map[string]bool)
	lots, ok := merge.Lookup(doc, "tender", "lots")
	if !ok {
		return ids
	}
	items, _ := lots.([]any)
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				ids[id] = true
			}
		}
	}
	return ids
}
