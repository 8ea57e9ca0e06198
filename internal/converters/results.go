package converters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

// TenderReferenceScheme labels BT-3201 identifiers.
const TenderReferenceScheme = "eforms-tender-reference"

func resultTerms() []Term {
	return []Term{
		term("BT-3201", "tender identifiers as bid identifiers",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachTender(src, func(tender notice.Node) (map[string]any, error) {
					ref := tender.Text("efac:TenderReference/cbc:ID")
					if ref == "" {
						return nil, nil
					}
					return map[string]any{"identifiers": []any{
						map[string]any{"id": ref, "scheme": TenderReferenceScheme},
					}}, nil
				})
			}),
		term("BT-13714", "lot each tender was submitted for",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachTender(src, func(tender notice.Node) (map[string]any, error) {
					lot := tender.Text("efac:TenderLot/cbc:ID")
					if lot == "" {
						return nil, nil
					}
					return map[string]any{"relatedLots": []any{lot}}, nil
				})
			}),
		term("BT-171", "tender rank",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachTender(src, func(tender notice.Node) (map[string]any, error) {
					code := tender.Text("cbc:RankCode")
					if code == "" {
						return nil, nil
					}
					rank, err := strconv.Atoi(code)
					if err != nil {
						return nil, fmt.Errorf("invalid rank %q", code)
					}
					return map[string]any{"rank": rank}, nil
				})
			}),
		term("BT-720", "tender value",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachTender(src, func(tender notice.Node) (map[string]any, error) {
					value, err := amount(tender.First("cac:LegalMonetaryTotal/cbc:PayableAmount"))
					if err != nil || value == nil {
						return nil, err
					}
					return map[string]any{"value": value}, nil
				})
			}),
	}
}
