package sequences

// TradeSeq names the sequence trade identifiers are dispensed from.
const TradeSeq = "TRADE_SEQ"

// Sequence is one named counter. NextID is the value the next dispense returns.
type Sequence struct {
	Name   string `db:"name" json:"name"`
	NextID int64  `db:"nextid" json:"next_id"`
}

func NewSequence(name string, nextID int64) *Sequence {
	return &Sequence{
		Name:   name,
		NextID: nextID,
	}
}
