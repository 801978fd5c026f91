package seqdb

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
)

// MemSeqDB keeps sequences in process memory, optionally mirrored to a JSON
// file after every change.
type MemSeqDB struct {
	mu sync.RWMutex

	Sequences map[string]int64 `json:"sequences"`

	backupPath string
}

var _ SeqDB = &MemSeqDB{}

func NewMemSeqDB(backupPath string) (*MemSeqDB, error) {
	return &MemSeqDB{
		Sequences:  map[string]int64{},
		backupPath: backupPath,
	}, nil
}

// RestoreMemSeqDB loads state from backupPath. A missing file is created
// empty.
func RestoreMemSeqDB(backupPath string) (*MemSeqDB, error) {
	db, err := NewMemSeqDB(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return db, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		seqlog.Zero.Info().Err(err).Msg("memseqdb backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return db, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return db, nil
	}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, seqerror.Wrap(seqerror.SEQ_CORRUPTED_DATA, err)
	}
	if db.Sequences == nil {
		db.Sequences = map[string]int64{}
	}
	return db, nil
}

func (q *MemSeqDB) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, state, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, q.backupPath)
}

// setState stores value under seqName, or removes seqName when drop is set,
// and writes the backup. If the backup cannot be written the previous entry
// is put back. Callers hold mu.
func (q *MemSeqDB) setState(seqName string, value int64, drop bool) error {
	prev, had := q.Sequences[seqName]
	if drop {
		delete(q.Sequences, seqName)
	} else {
		q.Sequences[seqName] = value
	}

	err := q.DumpState()
	if err == nil {
		return nil
	}
	if had {
		q.Sequences[seqName] = prev
	} else {
		delete(q.Sequences, seqName)
	}
	seqlog.Zero.Error().Err(err).Str("sequence", seqName).Msg("memseqdb: dump failed, change reverted")
	return seqerror.DataAccess(pkgerrors.Wrapf(err, "failed to save state of sequence %q", seqName))
}

func (q *MemSeqDB) ListSequences(_ context.Context) ([]*sequences.Sequence, error) {
	seqlog.Zero.Debug().Msg("memseqdb: list sequences")
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make([]*sequences.Sequence, 0, len(q.Sequences))
	for name, next := range q.Sequences {
		ret = append(ret, sequences.NewSequence(name, next))
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret, nil
}

func (q *MemSeqDB) NextVal(_ context.Context, seqName string) (int64, error) {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("memseqdb: next val")
	q.mu.Lock()
	defer q.mu.Unlock()

	next, ok := q.Sequences[seqName]
	if !ok {
		return -1, seqerror.NotFound(seqName)
	}
	if err := q.setState(seqName, next+1, false); err != nil {
		return -1, err
	}
	return next, nil
}

func (q *MemSeqDB) CurrVal(_ context.Context, seqName string) (int64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	next, ok := q.Sequences[seqName]
	if !ok {
		return -1, seqerror.NotFound(seqName)
	}
	return next, nil
}

func (q *MemSeqDB) CreateSequence(_ context.Context, seqName string, initialValue int64) error {
	seqlog.Zero.Debug().Str("sequence", seqName).Int64("initial", initialValue).Msg("memseqdb: add sequence")
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.Sequences[seqName]; ok {
		return seqerror.Newf(seqerror.SEQ_DUPLICATE, "sequence %q already exists", seqName)
	}
	return q.setState(seqName, initialValue, false)
}

func (q *MemSeqDB) DropSequence(_ context.Context, seqName string) error {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("memseqdb: drop sequence")
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.Sequences[seqName]; !ok {
		return seqerror.NotFound(seqName)
	}
	return q.setState(seqName, 0, true)
}

func (q *MemSeqDB) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.DumpState()
}
