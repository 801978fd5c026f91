package sequencer

import "context"

// SeqAM dispenses identifiers from named sequences.
type SeqAM interface {
	// NextID returns the current value of the sequence and advances it by one.
	NextID(ctx context.Context, name string) (int64, error)
	// NextTradeID is NextID on sequences.TradeSeq.
	NextTradeID(ctx context.Context) (int64, error)
	// CurrID returns the value the next NextID call would dispense.
	CurrID(ctx context.Context, name string) (int64, error)
}
