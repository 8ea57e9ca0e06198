package converters

import (
	"context"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

const companyIDXPath = "efac:Company/cac:PartyIdentification/cbc:ID"

func partyTerms() []Term {
	return []Term{
		term("BT-500", "organization names as parties",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachOrganization(src, func(org notice.Node) map[string]any {
					name := org.Text("efac:Company/cac:PartyName/cbc:Name")
					if name == "" {
						return nil
					}
					return map[string]any{"name": name}
				})
			}),
		term("OPT-200", "organization technical identifiers as party ids",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachOrganization(src, func(notice.Node) map[string]any {
					return map[string]any{}
				})
			}),
	}
}

// eachOrganization builds one parties entity per identified organization.
// An empty, non-nil mapping from fields still yields an entity carrying
// only its id.
func eachOrganization(src *notice.Notice, fields func(org notice.Node) map[string]any) (merge.Fragment, error) {
	var parties []map[string]any
	for _, org := range src.Nodes(organizationXPath) {
		id := org.Text(companyIDXPath)
		if id == "" {
			continue
		}
		f := fields(org)
		if f == nil {
			continue
		}
		f["id"] = id
		parties = append(parties, f)
	}
	return entities(parties, "parties")
}
