package seqdb_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
	"github.com/pg-sharding/tradeseq/seqdb"
)

func TestMemNextVal(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := seqdb.NewMemSeqDB("")
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, sequences.TradeSeq, 100))

	v, err := db.NextVal(ctx, sequences.TradeSeq)
	assert.NoError(err)
	assert.Equal(int64(100), v)
	v, err = db.NextVal(ctx, sequences.TradeSeq)
	assert.NoError(err)
	assert.Equal(int64(101), v)

	curr, err := db.CurrVal(ctx, sequences.TradeSeq)
	assert.NoError(err)
	assert.Equal(int64(102), curr)

	_, err = db.NextVal(ctx, "ORDER_SEQ")
	assert.True(seqerror.IsNotFound(err))
	assert.Contains(err.Error(), "ORDER_SEQ")
	_, err = db.CurrVal(ctx, "ORDER_SEQ")
	assert.True(seqerror.IsNotFound(err))

	seqs, err := db.ListSequences(ctx)
	assert.NoError(err)
	assert.Len(seqs, 1)
}

// must run with -race
func TestMemNextValRacing(t *testing.T) {
	ctx := context.Background()
	db, err := seqdb.NewMemSeqDB("")
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, "foo", 0))

	got := sync.Map{}
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := db.NextVal(ctx, "foo")
			assert.NoError(t, err)
			got.Store(v, true)
		}()
	}
	wg.Wait()

	for i := int64(0); i < 100; i++ {
		_, ok := got.Load(i)
		assert.True(t, ok, "value %d was never dispensed", i)
	}
}

func TestMemCreateDrop(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := seqdb.NewMemSeqDB("")
	require.NoError(t, err)

	assert.NoError(db.CreateSequence(ctx, "foo", 3))
	assert.True(seqerror.IsDuplicate(db.CreateSequence(ctx, "foo", 9)))
	assert.NoError(db.DropSequence(ctx, "foo"))
	assert.True(seqerror.IsNotFound(db.DropSequence(ctx, "foo")))
}

func TestMemBackupRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memseqdb.json")

	db, err := seqdb.RestoreMemSeqDB(path)
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, sequences.TradeSeq, 100))
	_, err = db.NextVal(ctx, sequences.TradeSeq)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	restored, err := seqdb.RestoreMemSeqDB(path)
	require.NoError(t, err)
	v, err := restored.NextVal(ctx, sequences.TradeSeq)
	assert.NoError(err)
	assert.Equal(int64(101), v)
}

func TestMemBackupCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memseqdb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := seqdb.RestoreMemSeqDB(path)
	assert.ErrorIs(t, err, &seqerror.SeqError{ErrorCode: seqerror.SEQ_CORRUPTED_DATA})
}

func TestMemNextValDumpFailureRollsBack(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "memseqdb.json")

	db, err := seqdb.RestoreMemSeqDB(path)
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, "foo", 10))

	// a directory in place of the temp file makes every dump fail
	require.NoError(t, os.Mkdir(path+".tmp", 0755))

	_, err = db.NextVal(ctx, "foo")
	assert.True(seqerror.IsDataAccess(err))

	curr, err := db.CurrVal(ctx, "foo")
	assert.NoError(err)
	assert.Equal(int64(10), curr)
}

func TestMemCreateDropDumpFailureRollsBack(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memseqdb.json")

	db, err := seqdb.RestoreMemSeqDB(path)
	require.NoError(t, err)
	require.NoError(t, db.CreateSequence(ctx, "foo", 10))
	require.NoError(t, os.Mkdir(path+".tmp", 0755))

	assert.True(seqerror.IsDataAccess(db.CreateSequence(ctx, "bar", 1)))
	_, err = db.CurrVal(ctx, "bar")
	assert.True(seqerror.IsNotFound(err))

	assert.True(seqerror.IsDataAccess(db.DropSequence(ctx, "foo")))
	curr, err := db.CurrVal(ctx, "foo")
	assert.NoError(err)
	assert.Equal(int64(10), curr)

	seqs, err := db.ListSequences(ctx)
	assert.NoError(err)
	assert.Equal([]*sequences.Sequence{sequences.NewSequence("foo", 10)}, seqs)
}
