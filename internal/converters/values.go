package converters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

const (
	extensionXPath    = "ext:UBLExtensions/ext:UBLExtension/ext:ExtensionContent/efext:EformsExtension"
	organizationXPath = extensionXPath + "/efac:Organizations/efac:Organization"
	lotTenderXPath    = extensionXPath + "/efac:NoticeResult/efac:LotTender"
	lotXPath          = "cac:ProcurementProjectLot[cbc:ID/@schemeName='Lot']"
	groupXPath        = "cac:ProcurementProjectLot[cbc:ID/@schemeName='LotsGroup']"
)

// entities wraps items as the keyed list at path. No items means the term
// is absent.
func entities(items []map[string]any, path ...string) (merge.Fragment, error) {
	if len(items) == 0 {
		return nil, nil
	}
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item
	}
	return merge.NewFragment(list, path...)
}

// scalar wraps a non-empty value at path.
func scalar(value string, path ...string) (merge.Fragment, error) {
	if value == "" {
		return nil, nil
	}
	return merge.NewFragment(value, path...)
}

// eachLot builds one tender.lots entity per lot for which fields returns
// a non-empty mapping.
func eachLot(src *notice.Notice, fields func(lot notice.Node) (map[string]any, error)) (merge.Fragment, error) {
	return each(src.Nodes(lotXPath), "cbc:ID", fields, "tender", "lots")
}

// eachTender builds one bids.details entity per LotTender.
func eachTender(src *notice.Notice, fields func(tender notice.Node) (map[string]any, error)) (merge.Fragment, error) {
	return each(src.Nodes(lotTenderXPath), "cbc:ID[@schemeName='tender']", fields, "bids", "details")
}

func each(nodes []notice.Node, idXPath string, fields func(notice.Node) (map[string]any, error), path ...string) (merge.Fragment, error) {
	var items []map[string]any
	for _, n := range nodes {
		id := n.Text(idXPath)
		if id == "" {
			continue
		}
		f, err := fields(n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		if len(f) == 0 {
			continue
		}
		f["id"] = id
		items = append(items, f)
	}
	return entities(items, path...)
}

// dateTime joins an eForms date ("2024-03-19+01:00") and optional time
// ("12:00:00+01:00") into an RFC 3339 timestamp. The time's zone wins over
// the date's; fallback is used when tm is empty.
func dateTime(date, tm, fallback string) (string, error) {
	if len(date) < 10 {
		return "", fmt.Errorf("invalid date %q", date)
	}
	day, zone := date[:10], date[10:]
	clock := fallback
	if tm != "" {
		if len(tm) < 8 {
			return "", fmt.Errorf("invalid time %q", tm)
		}
		clock = tm[:8]
		if z := tm[8:]; z != "" {
			zone = z
		}
	}
	if zone == "" {
		zone = "Z"
	}

	s := day + "T" + clock + zone
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("invalid date-time %q: %w", s, err)
	}
	return t.Format(time.RFC3339), nil
}

// amount reads a monetary element as an OCDS value.
func amount(n notice.Node) (map[string]any, error) {
	if !n.Valid() || n.Value() == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(n.Value(), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", n.Value())
	}
	value := map[string]any{"amount": v}
	if c := strings.TrimSpace(n.Attr("currencyID")); c != "" {
		value["currency"] = c
	}
	return value, nil
}
