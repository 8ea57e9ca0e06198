package converters

import (
	"context"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

const openTenderEventXPath = "cac:TenderingProcess/cac:OpenTenderEvent"

// submissionPolicies maps esubmission codes to OCDS submission terms.
// Unknown codes pass through.
var submissionPolicies = map[string]string{
	"required":    "required",
	"allowed":     "allowed",
	"not-allowed": "notAllowed",
}

func lotTerms() []Term {
	return []Term{
		term("BT-137", "lot identifiers as tender lots",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				var lots []map[string]any
				for _, id := range src.Root().Texts(lotXPath + "/cbc:ID") {
					lots = append(lots, map[string]any{"id": id})
				}
				return entities(lots, "tender", "lots")
			}),
		term("BT-21-Lot", "lot title",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, textField("cac:ProcurementProject/cbc:Name", "title"))
			}),
		term("BT-27-Lot", "lot estimated value",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					value, err := amount(lot.First("cac:ProcurementProject/cac:RequestedTenderTotal/cbc:EstimatedOverallContractAmount"))
					if err != nil || value == nil {
						return nil, err
					}
					return map[string]any{"value": value}, nil
				})
			}),
		term("BT-131", "lot tender submission deadline",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					period := lot.First("cac:TenderingProcess/cac:TenderSubmissionDeadlinePeriod")
					date := period.Text("cbc:EndDate")
					if date == "" {
						return nil, nil
					}
					end, err := dateTime(date, period.Text("cbc:EndTime"), "23:59:59")
					if err != nil {
						return nil, err
					}
					return map[string]any{"tenderPeriod": map[string]any{"endDate": end}}, nil
				})
			}),
		term("BT-17", "lot electronic submission policy",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					code := lot.Text("cac:TenderingProcess/cbc:SubmissionMethodCode[@listName='esubmission']")
					if code == "" {
						return nil, nil
					}
					if policy, ok := submissionPolicies[code]; ok {
						code = policy
					}
					return map[string]any{"submissionTerms": map[string]any{"electronicSubmissionPolicy": code}}, nil
				})
			}),
		term("BT-132", "lot public opening date",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					event := lot.First(openTenderEventXPath)
					date := event.Text("cbc:OccurrenceDate")
					if date == "" {
						return nil, nil
					}
					ts, err := dateTime(date, event.Text("cbc:OccurrenceTime"), "00:00:00")
					if err != nil {
						return nil, err
					}
					return map[string]any{"bidOpening": map[string]any{"date": ts}}, nil
				})
			}),
		term("BT-133", "lot public opening place",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					place := lot.Text(openTenderEventXPath + "/cac:OccurenceLocation/cbc:Description")
					if place == "" {
						return nil, nil
					}
					return map[string]any{"bidOpening": map[string]any{
						"location": map[string]any{"description": place},
					}}, nil
				})
			}),
		term("BT-134", "lot public opening description",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return eachLot(src, func(lot notice.Node) (map[string]any, error) {
					desc := lot.Text(openTenderEventXPath + "/cbc:Description")
					if desc == "" {
						return nil, nil
					}
					return map[string]any{"bidOpening": map[string]any{"description": desc}}, nil
				})
			}),
	}
}

// textField returns a field builder copying the text at xpath into key.
func textField(xpath, key string) func(notice.Node) (map[string]any, error) {
	return func(n notice.Node) (map[string]any, error) {
		v := n.Text(xpath)
		if v == "" {
			return nil, nil
		}
		return map[string]any{key: v}, nil
	}
}
