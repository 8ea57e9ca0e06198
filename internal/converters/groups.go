package converters

import (
	"context"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

func groupTerms() []Term {
	return []Term{
		term("BT-330", "lot group identifiers as tender lotGroups",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				var groups []map[string]any
				for _, id := range src.Root().Texts(groupXPath + "/cbc:ID") {
					groups = append(groups, map[string]any{"id": id})
				}
				return entities(groups, "tender", "lotGroups")
			}),
		term("BT-1375", "lots included in each lot group",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				var groups []map[string]any
				for _, g := range src.Nodes("cac:TenderingTerms/cac:LotDistribution/cac:LotsGroup") {
					id := g.Text("cbc:LotsGroupID")
					lots := g.Texts("cac:ProcurementProjectLotReference/cbc:ID")
					if id == "" || len(lots) == 0 {
						continue
					}
					related := make([]any, len(lots))
					for i, l := range lots {
						related[i] = l
					}
					groups = append(groups, map[string]any{"id": id, "relatedLots": related})
				}
				return entities(groups, "tender", "lotGroups")
			}),
	}
}
