package orchestrator

import (
	"context"
	"testing"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/stretchr/testify/require"
)

// emptyNotice parses a minimal notice with no business terms.
func emptyNotice(t *testing.T) *notice.Notice {
	t.Helper()
	src, err := notice.ParseString(`<ContractNotice></ContractNotice>`)
	require.NoError(t, err)
	return src
}

// constant returns a converter that always asserts frag.
func constant(id string, frag merge.Fragment) Converter {
	return NewConverter(id, func(context.Context, *notice.Notice) (merge.Fragment, error) {
		return frag, nil
	})
}

// failing returns a converter that always errors.
func failing(id string, err error) Converter {
	return NewConverter(id, func(context.Context, *notice.Notice) (merge.Fragment, error) {
		return nil, err
	})
}

func newTestPipeline(t *testing.T, cfg Config, convs ...Converter) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, convs)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func statuses(res *Result) []Status {
	out := make([]Status, len(res.Outcomes))
	for i, o := range res.Outcomes {
		out[i] = o.Status
	}
	return out
}
