package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
)

// GenerateMermaid produces a Mermaid graph TD diagram of a release's lot
// structure. Lot groups become subgraphs around their related lots; bids
// point at the lots they were submitted for.
func GenerateMermaid(doc map[string]any) string {
	// Build entity → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	lots := entityIDs(doc, "tender", "lots")
	titles := entityField(doc, "title", "tender", "lots")

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Emit lot group subgraphs.
	grouped := make(map[string]bool)
	for _, g := range entityList(doc, "tender", "lotGroups") {
		id, _ := g["id"].(string)
		members := stringList(g["relatedLots"])
		if id == "" || len(members) == 0 {
			continue
		}
		sort.Strings(members)
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID("group:"+id), id))
		for _, lot := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID("lot:"+lot), lotLabel(lot, titles[lot])))
			grouped[lot] = true
		}
		sb.WriteString("  end\n")
	}

	// Emit ungrouped lots.
	for _, lot := range lots {
		if !grouped[lot] {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID("lot:"+lot), lotLabel(lot, titles[lot])))
		}
	}

	// Emit bid edges.
	for _, b := range entityList(doc, "bids", "details") {
		id, _ := b["id"].(string)
		if id == "" {
			continue
		}
		bidID := getID("bid:" + id)
		sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", bidID, escape(id)))
		for _, lot := range stringList(b["relatedLots"]) {
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", bidID, getID("lot:"+lot)))
		}
	}

	return sb.String()
}

// lotLabel returns "id: title", with the title cut to 40 characters.
func lotLabel(id, title string) string {
	if title == "" {
		return escape(id)
	}
	if r := []rune(title); len(r) > 40 {
		title = string(r[:40]) + "…"
	}
	return escape(id + ": " + title)
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func entityList(doc map[string]any, path ...string) []map[string]any {
	v, ok := merge.Lookup(doc, path...)
	if !ok {
		return nil
	}
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func entityIDs(doc map[string]any, path ...string) []string {
	var ids []string
	for _, e := range entityList(doc, path...) {
		if id, ok := e["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func entityField(doc map[string]any, field string, path ...string) map[string]string {
	out := make(map[string]string)
	for _, e := range entityList(doc, path...) {
		id, _ := e["id"].(string)
		if v, ok := e[field].(string); ok && id != "" {
			out[id] = v
		}
	}
	return out
}

func stringList(v any) []string {
	items, _ := v.([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
