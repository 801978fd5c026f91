package sequences

import (
	"context"
)

//go:generate mockgen -source=seqmgr.go -destination=mock/seqmgr.go -package=mock

// SequenceMgr is the storage contract every backend fulfils.
//
// NextVal returns the stored value of the named sequence and leaves it
// incremented by one. A missing sequence is reported as SEQ_NOT_FOUND and
// leaves storage untouched.
type SequenceMgr interface {
	ListSequences(ctx context.Context) ([]*Sequence, error)
	NextVal(ctx context.Context, seqName string) (int64, error)
	CurrVal(ctx context.Context, seqName string) (int64, error)

	CreateSequence(ctx context.Context, seqName string, initialValue int64) error
	DropSequence(ctx context.Context, seqName string) error
}
