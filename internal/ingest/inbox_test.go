package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/internal/async"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// flakyDrafter fails its first call and succeeds afterwards.
type flakyDrafter struct {
	calls int
}

func (d *flakyDrafter) Draft(context.Context, pipeline.DraftRequest) (*pipeline.Result, error) {
	d.calls++
	if d.calls == 1 {
		return nil, errors.New("completion service 503")
	}
	return readyResult(), nil
}

func TestInbox_RetriesAfterFailedDraft(t *testing.T) {
	p := writeFile(t, t.TempDir(), "job.txt", "Fixed faucet, 2 hours at $80/hr")

	d := &flakyDrafter{}
	s := &memSaver{}
	in := NewInbox(d, extract.NewExtractor(extract.Config{}, nil), s, nil)

	err := in.Process(context.Background(), async.Job{Path: p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion service 503")

	require.NoError(t, in.Process(context.Background(), async.Job{Path: p}))
	assert.Equal(t, 2, d.calls)
	require.Len(t, s.saved, 1)

	results := in.Results()
	require.Len(t, results, 2)
	assert.False(t, results[1].Deduplicated)
	assert.Equal(t, "inv-1", results[1].InvoiceID)

	// once saved, the same content is a duplicate
	require.NoError(t, in.Process(context.Background(), async.Job{Path: p}))
	assert.True(t, in.Results()[2].Deduplicated)
	assert.Equal(t, 2, d.calls)
}

type errSaver struct{ err error }

func (s errSaver) Save(context.Context, repository.SaveRequest) (*entity.SavedInvoice, error) {
	return nil, s.err
}

func TestInbox_RetriesAfterFailedSave(t *testing.T) {
	p := writeFile(t, t.TempDir(), "job.txt", "Fixed faucet")

	d := &stubDrafter{res: readyResult()}
	in := NewInbox(d, extract.NewExtractor(extract.Config{}, nil), errSaver{err: errors.New("db locked")}, nil)
	require.Error(t, in.Process(context.Background(), async.Job{Path: p}))
	require.Error(t, in.Process(context.Background(), async.Job{Path: p}))
	assert.Equal(t, 2, d.calls)
}
