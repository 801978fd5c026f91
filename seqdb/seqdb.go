package seqdb

import (
	"context"

	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
)

// SeqDB is a sequence storage backend.
type SeqDB interface {
	sequences.SequenceMgr

	Close() error
}

// NewSeqDB opens the backend selected by cfg.Backend.
func NewSeqDB(ctx context.Context, cfg *config.Sequencer) (SeqDB, error) {
	switch cfg.Backend {
	case config.BackendSQL:
		db, err := OpenSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewSQLSeqDB(db, cfg)
	case config.BackendEtcd:
		return NewEtcdSeqDB(cfg.QdbAddr)
	case config.BackendMemory:
		return RestoreMemSeqDB(cfg.MemBackupPath)
	default:
		return nil, seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown backend %q", cfg.Backend)
	}
}
