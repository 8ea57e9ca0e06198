package notice

import (
	"errors"
	"testing"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture resolves a notice under testdata/notices. Tests run from
// internal/notice/, so the relative path is ../../testdata/...
func fixture(name string) string {
	return "../../testdata/notices/" + name
}

func TestParseFile_ContractNotice(t *testing.T) {
	n, err := ParseFile(fixture("contract-notice.xml"))
	require.NoError(t, err)

	assert.Equal(t, "ContractNotice", n.RootName())
	assert.Equal(t, "f252f386-55ac-4fa8-9be4-9f950b9904c8", n.NoticeID())
	assert.Equal(t, "cn-standard", n.NoticeType())
	assert.Equal(t, "aff2863e-b4cc-4e91-baba-b3b85f709117", n.Text("cbc:ContractFolderID"))
}

func TestNotice_PrefixedQueries(t *testing.T) {
	n, err := ParseFile(fixture("contract-notice.xml"))
	require.NoError(t, err)

	lots := n.Nodes("cac:ProcurementProjectLot[cbc:ID/@schemeName='Lot']")
	require.Len(t, lots, 2)
	assert.Equal(t, "LOT-0001", lots[0].Text("cbc:ID"))
	assert.Equal(t, "Room 3", lots[0].Text("cac:TenderingProcess/cac:OpenTenderEvent/cac:OccurenceLocation/cbc:Description"))

	amount := lots[1].First("cac:ProcurementProject/cac:RequestedTenderTotal/cbc:EstimatedOverallContractAmount")
	require.True(t, amount.Valid())
	assert.Equal(t, "cbc:EstimatedOverallContractAmount", amount.Name())
	assert.Equal(t, "120000", amount.Value())
	assert.Equal(t, "EUR", amount.Attr("currencyID"))

	names := n.Root().Texts("ext:UBLExtensions/ext:UBLExtension/ext:ExtensionContent/efext:EformsExtension/efac:Organizations/efac:Organization/efac:Company/cac:PartyName/cbc:Name")
	assert.Equal(t, []string{"Ministry of Public Works", "Review Body of the Republic"}, names)
}

func TestNode_MissingAndInvalid(t *testing.T) {
	n, err := ParseString(`<Root><a>1</a></Root>`)
	require.NoError(t, err)

	missing := n.Root().First("b")
	assert.False(t, missing.Valid())
	assert.Equal(t, "", missing.Value())
	assert.Equal(t, "", missing.Attr("x"))
	assert.Nil(t, missing.Nodes("a"))
	assert.Equal(t, "", n.Text("b/c"))

	assert.Nil(t, n.Nodes("a[")) // invalid expression
	assert.Equal(t, "1", n.Text("a"))
	assert.Equal(t, "", n.NoticeID())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"truncated file", func() error { _, err := ParseFile(fixture("malformed.xml")); return err }},
		{"no root", func() error { _, err := ParseString(`<?xml version="1.0"?>`); return err }},
		{"not xml", func() error { _, err := ParseString(`<a><b></a>`); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedSource)
			assert.True(t, merge.IsKind(err, merge.KindMalformedSource))

			var srcErr *SourceError
			assert.True(t, errors.As(err, &srcErr))
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(fixture("does-not-exist.xml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedSource)
}
