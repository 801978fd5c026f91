package seqdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/seqdb"
)

func TestNewSeqDBSelectsBackend(t *testing.T) {
	ctx := context.Background()

	mem, err := seqdb.NewSeqDB(ctx, &config.Sequencer{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &seqdb.MemSeqDB{}, mem)

	cfg := &config.Sequencer{
		Driver:            config.DriverSQLite,
		StorageConnString: filepath.Join(t.TempDir(), "stocks.db"),
	}
	cfg.ApplyDefaults()
	sqlDB, err := seqdb.NewSeqDB(ctx, cfg)
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.IsType(t, &seqdb.SQLSeqDB{}, sqlDB)

	_, err = seqdb.NewSeqDB(ctx, &config.Sequencer{Backend: "redis"})
	assert.ErrorIs(t, err, &seqerror.SeqError{ErrorCode: seqerror.SEQ_CONFIG_ERROR})
}

func TestOpenSQLBadPgxConnString(t *testing.T) {
	cfg := &config.Sequencer{
		Driver:            config.DriverPgx,
		StorageConnString: "host=localhost port=notaport",
	}
	cfg.ApplyDefaults()

	_, err := seqdb.OpenSQL(context.Background(), cfg)
	assert.ErrorIs(t, err, &seqerror.SeqError{ErrorCode: seqerror.SEQ_CONFIG_ERROR})
}
