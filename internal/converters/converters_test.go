package converters

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const namespaces = `xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
 xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
 xmlns:efac="http://data.europa.eu/p27/eforms-ubl-extension-aggregate-components/1"
 xmlns:efext="http://data.europa.eu/p27/eforms-ubl-extensions/1"
 xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"`

// parse wraps body in a ContractNotice root declaring the eForms prefixes.
func parse(t *testing.T, body string) *notice.Notice {
	t.Helper()
	n, err := notice.ParseString(`<ContractNotice ` + namespaces + `>` + body + `</ContractNotice>`)
	require.NoError(t, err)
	return n
}

func fixture(t *testing.T, name string) *notice.Notice {
	t.Helper()
	n, err := notice.ParseFile("../../testdata/notices/" + name)
	require.NoError(t, err)
	return n
}

func find(t *testing.T, id string) Term {
	t.Helper()
	for _, term := range Registry(Options{}) {
		if term.ID() == id {
			return term
		}
	}
	t.Fatalf("no term %s", id)
	return Term{}
}

func convertJSON(t *testing.T, id string, src *notice.Notice) string {
	t.Helper()
	frag, err := find(t, id).Convert(context.Background(), src)
	require.NoError(t, err)
	data, err := json.Marshal(frag)
	require.NoError(t, err)
	return string(data)
}

func TestRegistry_Order(t *testing.T) {
	want := []string{
		"OPP-OCID", "BT-701", "BT-05", "BT-02", "BT-04", "BT-21", "BT-24", "BT-23",
		"BT-137", "BT-21-Lot", "BT-27-Lot", "BT-131", "BT-17", "BT-132", "BT-133", "BT-134",
		"BT-330", "BT-1375",
		"BT-500", "OPT-200",
		"BT-3201", "BT-13714", "BT-171", "BT-720",
	}
	var got []string
	for _, term := range Registry(Options{}) {
		got = append(got, term.ID())
		assert.NotEmpty(t, term.Description(), term.ID())
	}
	assert.Equal(t, want, got)
	assert.Len(t, Converters(Options{}), len(want))
}

func TestTerms_AbsentYieldsNil(t *testing.T) {
	src := parse(t, "")
	for _, term := range Registry(Options{}) {
		t.Run(term.ID(), func(t *testing.T) {
			frag, err := term.Convert(context.Background(), src)
			require.NoError(t, err)
			assert.Empty(t, frag)
		})
	}
}

func TestTerm_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := find(t, "BT-04").Convert(ctx, parse(t, `<cbc:ContractFolderID>X</cbc:ContractFolderID>`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOCID(t *testing.T) {
	src := parse(t, `<cbc:ContractFolderID>abc</cbc:ContractFolderID>`)
	assert.JSONEq(t, `{"ocid":"ocds-prefix-abc"}`, convertJSON(t, "OPP-OCID", src))

	custom := Registry(Options{OCIDPrefix: "ocds-0c46vo"})[0]
	frag, err := custom.Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "ocds-0c46vo-abc", frag["ocid"])
}

func TestNoticeType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"pin-only", `{"tag":["planning"],"tender":{"status":"planned"}}`},
		{"cn-standard", `{"tag":["tender"],"tender":{"status":"active"}}`},
		{"can-social", `{"tag":["award","contract"],"tender":{"status":"complete"}}`},
		{"corr", `{"tag":["tenderUpdate"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			src := parse(t, `<cbc:NoticeTypeCode>`+tt.code+`</cbc:NoticeTypeCode>`)
			assert.JSONEq(t, tt.want, convertJSON(t, "BT-02", src))
		})
	}

	_, err := find(t, "BT-02").Convert(context.Background(), parse(t, `<cbc:NoticeTypeCode>bogus</cbc:NoticeTypeCode>`))
	assert.ErrorContains(t, err, `unknown notice type "bogus"`)
}

func TestMainNature(t *testing.T) {
	body := func(code string) string {
		return `<cac:ProcurementProject><cbc:ProcurementTypeCode listName="contract-nature">` + code +
			`</cbc:ProcurementTypeCode></cac:ProcurementProject>`
	}
	assert.JSONEq(t, `{"tender":{"mainProcurementCategory":"goods"}}`, convertJSON(t, "BT-23", parse(t, body("supplies"))))
	assert.JSONEq(t, `null`, convertJSON(t, "BT-23", parse(t, body("combined"))))

	_, err := find(t, "BT-23").Convert(context.Background(), parse(t, body("spaceships")))
	assert.Error(t, err)
}

func TestDateTime(t *testing.T) {
	tests := []struct {
		name, date, tm, fallback string
		want                     string
		wantErr                  bool
	}{
		{"date and time zone", "2019-11-26+01:00", "13:38:54+01:00", "00:00:00", "2019-11-26T13:38:54+01:00", false},
		{"time zone wins", "2019-11-26Z", "13:38:54+02:00", "00:00:00", "2019-11-26T13:38:54+02:00", false},
		{"date zone only", "2019-11-26+01:00", "13:38:54", "00:00:00", "2019-11-26T13:38:54+01:00", false},
		{"fallback time", "2019-11-26Z", "", "23:59:59", "2019-11-26T23:59:59Z", false},
		{"no zone is utc", "2019-11-26", "", "00:00:00", "2019-11-26T00:00:00Z", false},
		{"short date", "2019-11", "", "00:00:00", "", true},
		{"bad month", "2019-13-26Z", "", "00:00:00", "", true},
		{"short time", "2019-11-26Z", "13:38", "00:00:00", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dateTime(tt.date, tt.tm, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLotValue_InvalidAmount(t *testing.T) {
	src := parse(t, `<cac:ProcurementProjectLot><cbc:ID schemeName="Lot">LOT-0001</cbc:ID>
		<cac:ProcurementProject><cac:RequestedTenderTotal>
		<cbc:EstimatedOverallContractAmount currencyID="EUR">lots</cbc:EstimatedOverallContractAmount>
		</cac:RequestedTenderTotal></cac:ProcurementProject></cac:ProcurementProjectLot>`)

	_, err := find(t, "BT-27-Lot").Convert(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, `LOT-0001: invalid amount "lots"`, err.Error())
}

func TestTenderRank_Invalid(t *testing.T) {
	src := parse(t, `<ext:UBLExtensions><ext:UBLExtension><ext:ExtensionContent><efext:EformsExtension>
		<efac:NoticeResult><efac:LotTender><cbc:ID schemeName="tender">TEN-0001</cbc:ID>
		<cbc:RankCode>first</cbc:RankCode></efac:LotTender></efac:NoticeResult>
		</efext:EformsExtension></ext:ExtensionContent></ext:UBLExtension></ext:UBLExtensions>`)

	_, err := find(t, "BT-171").Convert(context.Background(), src)
	assert.ErrorContains(t, err, `TEN-0001: invalid rank "first"`)
}

func TestLotTerms_Fixture(t *testing.T) {
	src := fixture(t, "contract-notice.xml")

	assert.JSONEq(t, `{"tender":{"lots":[{"id":"LOT-0001"},{"id":"LOT-0002"}]}}`, convertJSON(t, "BT-137", src))
	assert.JSONEq(t, `{"tender":{"lots":[
		{"id":"LOT-0001","submissionTerms":{"electronicSubmissionPolicy":"required"}},
		{"id":"LOT-0002","submissionTerms":{"electronicSubmissionPolicy":"notAllowed"}}]}}`,
		convertJSON(t, "BT-17", src))
	assert.JSONEq(t, `{"tender":{"lots":[{"id":"LOT-0001","bidOpening":{"location":{"description":"Room 3"}}}]}}`,
		convertJSON(t, "BT-133", src))
	assert.JSONEq(t, `{"tender":{"lotGroups":[{"id":"GLO-0001","relatedLots":["LOT-0001","LOT-0002"]}]}}`,
		convertJSON(t, "BT-1375", src))
}

func runFixture(t *testing.T, name string) *orchestrator.Result {
	t.Helper()
	p, err := orchestrator.NewPipeline(orchestrator.Config{Workers: 4}, Converters(Options{}))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	res, err := p.Run(context.Background(), fixture(t, name))
	require.NoError(t, err)
	return res
}

func TestPipeline_ContractNotice(t *testing.T) {
	res := runFixture(t, "contract-notice.xml")

	want := `{
	  "ocid": "ocds-prefix-aff2863e-b4cc-4e91-baba-b3b85f709117",
	  "id": "f252f386-55ac-4fa8-9be4-9f950b9904c8",
	  "date": "2024-03-19T12:00:00+01:00",
	  "tag": ["tender"],
	  "tender": {
	    "id": "aff2863e-b4cc-4e91-baba-b3b85f709117",
	    "status": "active",
	    "title": "Road maintenance framework",
	    "description": "Resurfacing and winter maintenance of regional roads.",
	    "mainProcurementCategory": "works",
	    "lots": [
	      {
	        "id": "LOT-0001",
	        "title": "Resurfacing, northern district",
	        "value": {"amount": 250000, "currency": "EUR"},
	        "tenderPeriod": {"endDate": "2024-04-22T10:00:00+01:00"},
	        "submissionTerms": {"electronicSubmissionPolicy": "required"},
	        "bidOpening": {
	          "date": "2024-04-22T14:00:00+01:00",
	          "description": "Opening is public; bidders may attend.",
	          "location": {"description": "Room 3"}
	        }
	      },
	      {
	        "id": "LOT-0002",
	        "title": "Winter maintenance",
	        "value": {"amount": 120000, "currency": "EUR"},
	        "tenderPeriod": {"endDate": "2024-04-23T23:59:59Z"},
	        "submissionTerms": {"electronicSubmissionPolicy": "notAllowed"}
	      }
	    ],
	    "lotGroups": [{"id": "GLO-0001", "relatedLots": ["LOT-0001", "LOT-0002"]}]
	  },
	  "parties": [
	    {"id": "ORG-0001", "name": "Ministry of Public Works"},
	    {"id": "ORG-0002", "name": "Review Body of the Republic"}
	  ]
	}`

	got, err := json.Marshal(res.Release)
	require.NoError(t, err)
	assert.True(t, jsonpatch.Equal([]byte(want), got), "release:\n%s", got)

	assert.Equal(t, 20, res.Count(orchestrator.StatusApplied))
	assert.Equal(t, 4, res.Count(orchestrator.StatusSkipped))
	assert.Zero(t, res.Count(orchestrator.StatusErrored))
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Issues)
}

func TestPipeline_ResultNotice(t *testing.T) {
	res := runFixture(t, "result-notice.xml")

	want := `{
	  "ocid": "ocds-prefix-aff2863e-b4cc-4e91-baba-b3b85f709117",
	  "id": "0c3a5f0e-6a0b-4a7d-9d0e-2b1f7e3c9a11",
	  "date": "2024-06-03T09:30:00Z",
	  "tag": ["award", "contract"],
	  "tender": {
	    "id": "aff2863e-b4cc-4e91-baba-b3b85f709117",
	    "status": "complete",
	    "title": "Road maintenance framework",
	    "mainProcurementCategory": "works",
	    "lots": [{"id": "LOT-0001", "title": "Resurfacing, northern district"}]
	  },
	  "parties": [
	    {"id": "ORG-0001", "name": "Ministry of Public Works"},
	    {"id": "ORG-0003", "name": "Northern Asphalt Ltd"}
	  ],
	  "bids": {
	    "details": [
	      {
	        "id": "TEN-0001",
	        "identifiers": [{"id": "BID-ROADS/2024-017", "scheme": "eforms-tender-reference"}],
	        "relatedLots": ["LOT-0001"],
	        "rank": 1,
	        "value": {"amount": 238500.5, "currency": "EUR"}
	      },
	      {
	        "id": "TEN-0002",
	        "relatedLots": ["LOT-0001"],
	        "rank": 2,
	        "value": {"amount": 241000, "currency": "EUR"}
	      }
	    ]
	  }
	}`

	got, err := json.Marshal(res.Release)
	require.NoError(t, err)
	assert.True(t, jsonpatch.Equal([]byte(want), got), "release:\n%s", got)
	assert.Zero(t, res.Count(orchestrator.StatusErrored))
	assert.Empty(t, res.Conflicts)
}
