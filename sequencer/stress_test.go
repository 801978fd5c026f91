package sequencer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/seqdb"
	"github.com/pg-sharding/tradeseq/sequencer"
	"github.com/pg-sharding/tradeseq/sequencer/dbseq"
)

// staleSeq hands out every value twice, like two unlocked readers would.
type staleSeq struct {
	mu sync.Mutex
	n  int64
}

func (s *staleSeq) NextID(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n / 2, nil
}

func (s *staleSeq) NextTradeID(ctx context.Context) (int64, error) {
	return s.NextID(ctx, "TRADE_SEQ")
}

func (s *staleSeq) CurrID(_ context.Context, _ string) (int64, error) {
	return s.n / 2, nil
}

func TestStressNoDuplicates(t *testing.T) {
	ctx := context.Background()
	db, err := seqdb.NewMemSeqDB("")
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, "foo", 0))

	report, err := sequencer.Stress(ctx, dbseq.NewDBSeq(db), "foo", 4, 50)
	require.NoError(t, err)

	assert.Equal(t, int64(200), report.Dispensed)
	assert.Equal(t, int64(200), report.Distinct)
	assert.Empty(t, report.Duplicates)
}

func TestStressReportsDuplicates(t *testing.T) {
	report, err := sequencer.Stress(context.Background(), &staleSeq{}, "foo", 2, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(10), report.Dispensed)
	assert.Equal(t, int64(6), report.Distinct)
	assert.Equal(t, []int64{1, 2, 3, 4}, report.Duplicates)
}

func TestStressStopsOnError(t *testing.T) {
	db, err := seqdb.NewMemSeqDB("")
	require.NoError(t, err)

	_, err = sequencer.Stress(context.Background(), dbseq.NewDBSeq(db), "ORDER_SEQ", 3, 10)
	assert.True(t, seqerror.IsNotFound(err))
}
