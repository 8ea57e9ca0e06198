package converters

import (
	"context"
	"fmt"
	"strings"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

func procedureTerms(ocidPrefix string) []Term {
	return []Term{
		term("OPP-OCID", "ocid from the procedure identifier",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				folder := src.Text("cbc:ContractFolderID")
				if folder == "" {
					return nil, nil
				}
				return scalar(ocidPrefix+"-"+folder, "ocid")
			}),
		term("BT-701", "notice identifier as release id",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return scalar(src.NoticeID(), "id")
			}),
		term("BT-05", "notice dispatch date and time as release date", dispatchDate),
		term("BT-02", "notice type as release tag and tender status", noticeType),
		term("BT-04", "procedure identifier as tender id",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return scalar(src.Text("cbc:ContractFolderID"), "tender", "id")
			}),
		term("BT-21", "procedure title",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return scalar(src.Text("cac:ProcurementProject/cbc:Name"), "tender", "title")
			}),
		term("BT-24", "procedure description",
			func(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
				return scalar(src.Text("cac:ProcurementProject/cbc:Description"), "tender", "description")
			}),
		term("BT-23", "main nature as tender mainProcurementCategory", mainNature),
	}
}

func dispatchDate(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
	date := src.Text("cbc:IssueDate")
	if date == "" {
		return nil, nil
	}
	ts, err := dateTime(date, src.Text("cbc:IssueTime"), "00:00:00")
	if err != nil {
		return nil, err
	}
	return scalar(ts, "date")
}

// noticeStages maps notice subtype prefixes to release tags and tender
// status.
var noticeStages = []struct {
	prefix string
	tag    []any
	status string
}{
	{"pin-", []any{"planning"}, "planned"},
	{"pmc", []any{"planning"}, "planned"},
	{"cn-", []any{"tender"}, "active"},
	{"subco", []any{"tender"}, "active"},
	{"can-", []any{"award", "contract"}, "complete"},
	{"veat", []any{"award", "contract"}, "complete"},
	{"corr", []any{"tenderUpdate"}, ""},
}

func noticeType(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
	code := src.NoticeType()
	if code == "" {
		return nil, nil
	}
	for _, s := range noticeStages {
		if !strings.HasPrefix(code, s.prefix) {
			continue
		}
		frag := merge.Fragment{"tag": s.tag}
		if s.status != "" {
			frag["tender"] = map[string]any{"status": s.status}
		}
		return frag, nil
	}
	return nil, fmt.Errorf("unknown notice type %q", code)
}

var procurementCategories = map[string]string{
	"works":    "works",
	"services": "services",
	"supplies": "goods",
	"combined": "",
}

func mainNature(_ context.Context, src *notice.Notice) (merge.Fragment, error) {
	code := src.Text("cac:ProcurementProject/cbc:ProcurementTypeCode[@listName='contract-nature']")
	if code == "" {
		return nil, nil
	}
	category, ok := procurementCategories[code]
	if !ok {
		return nil, fmt.Errorf("unknown contract nature %q", code)
	}
	return scalar(category, "tender", "mainProcurementCategory")
}
