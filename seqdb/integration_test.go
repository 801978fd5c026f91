package seqdb_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/seqdb"
)

// These tests talk to real servers and are skipped unless
// SEQDB_PG_DSN / SEQDB_ETCD_ADDR point at them.

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func checkBackend(t *testing.T, db seqdb.SeqDB, concurrent bool) {
	assert := assert.New(t)
	ctx := context.Background()
	name := uniqueName("TRADE_SEQ")

	require.NoError(t, db.CreateSequence(ctx, name, 100))
	t.Cleanup(func() { _ = db.DropSequence(context.Background(), name) })

	v, err := db.NextVal(ctx, name)
	assert.NoError(err)
	assert.Equal(int64(100), v)
	v, err = db.NextVal(ctx, name)
	assert.NoError(err)
	assert.Equal(int64(101), v)

	curr, err := db.CurrVal(ctx, name)
	assert.NoError(err)
	assert.Equal(int64(102), curr)

	_, err = db.NextVal(ctx, uniqueName("ORDER_SEQ"))
	assert.True(seqerror.IsNotFound(err))

	assert.True(seqerror.IsDuplicate(db.CreateSequence(ctx, name, 1)))

	if !concurrent {
		return
	}

	got := sync.Map{}
	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := db.NextVal(ctx, name)
			if assert.NoError(err) {
				_, dup := got.LoadOrStore(v, true)
				assert.False(dup, "value %d dispensed twice", v)
			}
		}()
	}
	wg.Wait()
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("SEQDB_PG_DSN")
	if dsn == "" {
		t.Skip("SEQDB_PG_DSN is not set")
	}

	for _, driver := range []string{config.DriverPgx, config.DriverPostgres} {
		for _, mode := range []string{config.LockModeRow, config.LockModeAtomic} {
			t.Run(driver+"/"+mode, func(t *testing.T) {
				cfg := &config.Sequencer{
					Driver:            driver,
					StorageConnString: dsn,
					LockMode:          mode,
					Isolation:         "read_committed",
					PgxTraceLevel:     "warn",
				}
				cfg.ApplyDefaults()
				require.NoError(t, cfg.Validate())

				db, err := seqdb.NewSeqDB(context.Background(), cfg)
				require.NoError(t, err)
				defer db.Close()

				sqldb, ok := db.(*seqdb.SQLSeqDB)
				require.True(t, ok)
				require.NoError(t, sqldb.InitSchema(context.Background()))

				checkBackend(t, db, true)
			})
		}
	}
}

func TestEtcdBackend(t *testing.T) {
	addr := os.Getenv("SEQDB_ETCD_ADDR")
	if addr == "" {
		t.Skip("SEQDB_ETCD_ADDR is not set")
	}

	db, err := seqdb.NewEtcdSeqDB(addr)
	require.NoError(t, err)
	defer db.Close()

	checkBackend(t, db, true)

	seqs, err := db.ListSequences(context.Background())
	assert.NoError(t, err)
	for _, s := range seqs {
		assert.NotContains(t, s.Name, "/")
	}
}
