package dbseq

import (
	"context"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
	"github.com/pg-sharding/tradeseq/sequencer"
)

// DBSeq is the sequence repository over a storage backend.
type DBSeq struct {
	mgr sequences.SequenceMgr
}

var _ sequencer.SeqAM = &DBSeq{}

func NewDBSeq(mgr sequences.SequenceMgr) *DBSeq {
	return &DBSeq{
		mgr: mgr,
	}
}

// NextID implements sequencer.SeqAM.
func (d *DBSeq) NextID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return -1, seqerror.New(seqerror.SEQ_INVALID_NAME, "sequence name must not be empty")
	}

	id, err := d.mgr.NextVal(ctx, name)
	if err != nil {
		seqlog.Zero.Debug().Err(err).Str("sequence", name).Msg("failed to get next id")
		return -1, seqerror.DataAccess(err)
	}

	seqlog.Zero.Debug().
		Str("sequence", name).
		Int64("id", id).
		Msg("dispensed id")
	return id, nil
}

// NextTradeID implements sequencer.SeqAM.
func (d *DBSeq) NextTradeID(ctx context.Context) (int64, error) {
	return d.NextID(ctx, sequences.TradeSeq)
}

// CurrID implements sequencer.SeqAM.
func (d *DBSeq) CurrID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return -1, seqerror.New(seqerror.SEQ_INVALID_NAME, "sequence name must not be empty")
	}
	id, err := d.mgr.CurrVal(ctx, name)
	if err != nil {
		return -1, seqerror.DataAccess(err)
	}
	return id, nil
}
