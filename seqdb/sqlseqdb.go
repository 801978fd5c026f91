package seqdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
)

//go:embed schema.sql
var schemaTemplate string

// SQLSeqDB dispenses values from a relational table with columns
// (name, nextid). Every dispense runs in its own transaction.
type SQLSeqDB struct {
	db        *sqlx.DB
	lockMode  string
	isolation sql.IsolationLevel

	schemaQ string
	selectQ string
	lockQ   string
	updateQ string
	atomicQ string
	listQ   string
	insertQ string
	deleteQ string
}

var _ SeqDB = &SQLSeqDB{}

func NewSQLSeqDB(db *sqlx.DB, cfg *config.Sequencer) (*SQLSeqDB, error) {
	isolation, err := cfg.IsolationLevel()
	if err != nil {
		return nil, err
	}
	if cfg.LockMode == config.LockModeNone {
		seqlog.Zero.Warn().
			Str("table", cfg.TableName).
			Msg("sequences are read and written without a row lock, concurrent callers may receive duplicate ids")
	}

	t := cfg.TableName
	return &SQLSeqDB{
		db:        db,
		lockMode:  cfg.LockMode,
		isolation: isolation,

		schemaQ: fmt.Sprintf(schemaTemplate, t),
		selectQ: db.Rebind(fmt.Sprintf("SELECT name, nextid FROM %s WHERE name = ?", t)),
		lockQ:   db.Rebind(fmt.Sprintf("SELECT name, nextid FROM %s WHERE name = ? FOR UPDATE", t)),
		updateQ: db.Rebind(fmt.Sprintf("UPDATE %s SET nextid = ? WHERE name = ?", t)),
		atomicQ: db.Rebind(fmt.Sprintf("UPDATE %s SET nextid = nextid + 1 WHERE name = ? RETURNING name, nextid - 1 AS nextid", t)),
		listQ:   fmt.Sprintf("SELECT name, nextid FROM %s ORDER BY name", t),
		insertQ: db.Rebind(fmt.Sprintf("INSERT INTO %s (name, nextid) VALUES (?, ?)", t)),
		deleteQ: db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE name = ?", t)),
	}, nil
}

// DB exposes the underlying pool.
func (q *SQLSeqDB) DB() *sqlx.DB {
	return q.db
}

// InitSchema creates the sequence table if it is absent.
func (q *SQLSeqDB) InitSchema(ctx context.Context) error {
	return q.timed(seqlog.StmtTypeDDL, q.schemaQ, func() error {
		_, err := q.db.ExecContext(ctx, q.schemaQ)
		return seqerror.DataAccess(err)
	})
}

// inTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise.
func (q *SQLSeqDB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := q.db.BeginTxx(ctx, &sql.TxOptions{Isolation: q.isolation})
	if err != nil {
		return seqerror.DataAccess(pkgerrors.Wrap(err, "failed to begin transaction"))
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			seqlog.Zero.Error().Err(rbErr).Msg("sqlseqdb: rollback failed")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return seqerror.DataAccess(pkgerrors.Wrap(err, "failed to commit transaction"))
	}
	return nil
}

func (q *SQLSeqDB) timed(typ seqlog.StmtType, stmt string, fn func() error) error {
	start := time.Now()
	err := fn()
	seqlog.SLogger.ReportStatement(typ, stmt, time.Since(start))
	return err
}

func (q *SQLSeqDB) get(ctx context.Context, tx *sqlx.Tx, typ seqlog.StmtType, query string, seqName string) (*sequences.Sequence, error) {
	var seq sequences.Sequence
	err := q.timed(typ, query, func() error {
		return tx.GetContext(ctx, &seq, query, seqName)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, seqerror.NotFound(seqName)
	}
	if err != nil {
		return nil, seqerror.DataAccess(err)
	}
	return &seq, nil
}

// NextVal returns the stored value of seqName and stores value+1.
func (q *SQLSeqDB) NextVal(ctx context.Context, seqName string) (int64, error) {
	seqlog.Zero.Debug().
		Str("sequence", seqName).
		Str("lock_mode", q.lockMode).
		Msg("sqlseqdb: next val")

	var observed int64
	err := q.inTx(ctx, func(tx *sqlx.Tx) error {
		if q.lockMode == config.LockModeAtomic {
			seq, err := q.get(ctx, tx, seqlog.StmtTypeUpdate, q.atomicQ, seqName)
			if err != nil {
				return err
			}
			observed = seq.NextID
			return nil
		}

		query := q.selectQ
		if q.lockMode == config.LockModeRow {
			query = q.lockQ
		}
		seq, err := q.get(ctx, tx, seqlog.StmtTypeSelect, query, seqName)
		if err != nil {
			return err
		}

		return q.timed(seqlog.StmtTypeUpdate, q.updateQ, func() error {
			res, err := tx.ExecContext(ctx, q.updateQ, seq.NextID+1, seqName)
			if err != nil {
				return seqerror.DataAccess(err)
			}
			// the row vanished between read and write
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return seqerror.NotFound(seqName)
			}
			observed = seq.NextID
			return nil
		})
	})
	if err != nil {
		return -1, err
	}
	return observed, nil
}

func (q *SQLSeqDB) CurrVal(ctx context.Context, seqName string) (int64, error) {
	var seq sequences.Sequence
	err := q.timed(seqlog.StmtTypeSelect, q.selectQ, func() error {
		return q.db.GetContext(ctx, &seq, q.selectQ, seqName)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return -1, seqerror.NotFound(seqName)
	}
	if err != nil {
		return -1, seqerror.DataAccess(err)
	}
	return seq.NextID, nil
}

func (q *SQLSeqDB) ListSequences(ctx context.Context) ([]*sequences.Sequence, error) {
	seqlog.Zero.Debug().Msg("sqlseqdb: list sequences")

	ret := []*sequences.Sequence{}
	err := q.timed(seqlog.StmtTypeSelect, q.listQ, func() error {
		return q.db.SelectContext(ctx, &ret, q.listQ)
	})
	if err != nil {
		return nil, seqerror.DataAccess(err)
	}
	return ret, nil
}

func (q *SQLSeqDB) CreateSequence(ctx context.Context, seqName string, initialValue int64) error {
	seqlog.Zero.Debug().
		Str("sequence", seqName).
		Int64("initial", initialValue).
		Msg("sqlseqdb: add sequence")

	return q.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := q.get(ctx, tx, seqlog.StmtTypeSelect, q.selectQ, seqName)
		switch {
		case err == nil:
			return seqerror.Newf(seqerror.SEQ_DUPLICATE, "sequence %q already exists", seqName)
		case !seqerror.IsNotFound(err):
			return err
		}

		return q.timed(seqlog.StmtTypeInsert, q.insertQ, func() error {
			_, err := tx.ExecContext(ctx, q.insertQ, seqName, initialValue)
			if isUniqueViolation(err) {
				return seqerror.Newf(seqerror.SEQ_DUPLICATE, "sequence %q already exists", seqName)
			}
			return seqerror.DataAccess(err)
		})
	})
}

func (q *SQLSeqDB) DropSequence(ctx context.Context, seqName string) error {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("sqlseqdb: drop sequence")

	return q.timed(seqlog.StmtTypeDelete, q.deleteQ, func() error {
		res, err := q.db.ExecContext(ctx, q.deleteQ, seqName)
		if err != nil {
			return seqerror.DataAccess(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return seqerror.DataAccess(err)
		}
		if n == 0 {
			return seqerror.NotFound(seqName)
		}
		return nil
	})
}

func (q *SQLSeqDB) Close() error {
	return q.db.Close()
}
