package seqdb

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	retry "github.com/sethvargo/go-retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
)

const pgUniqueViolation = "23505"

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// OpenSQL opens a pool for cfg.Driver and waits until it answers a ping,
// retrying with Fibonacci backoff up to cfg.ConnectRetries times.
func OpenSQL(ctx context.Context, cfg *config.Sequencer) (*sqlx.DB, error) {
	var db *sqlx.DB

	switch cfg.Driver {
	case config.DriverPgx:
		pcfg, err := pgx.ParseConfig(cfg.StorageConnString)
		if err != nil {
			return nil, seqerror.Wrap(seqerror.SEQ_CONFIG_ERROR, err)
		}
		if cfg.PgxTraceLevel != "" {
			lvl, err := tracelog.LogLevelFromString(cfg.PgxTraceLevel)
			if err != nil {
				return nil, seqerror.Wrap(seqerror.SEQ_CONFIG_ERROR, err)
			}
			pcfg.Tracer = &tracelog.TraceLog{
				Logger:   &seqlog.ZeroTraceLogger{},
				LogLevel: lvl,
			}
		}
		db = sqlx.NewDb(stdlib.OpenDB(*pcfg), config.DriverPgx)
	case config.DriverPostgres, config.DriverSQLite:
		var err error
		db, err = sqlx.Open(cfg.Driver, cfg.StorageConnString)
		if err != nil {
			return nil, seqerror.DataAccess(err)
		}
	default:
		return nil, seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown driver %q", cfg.Driver)
	}

	if cfg.Driver == config.DriverSQLite {
		// single writer, avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewFibonacci(100*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			seqlog.Zero.Warn().Err(err).Str("driver", cfg.Driver).Msg("storage is not reachable yet")
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, seqerror.DataAccess(pkgerrors.Wrap(err, "failed to connect to sequence storage"))
	}

	seqlog.Zero.Info().
		Str("driver", cfg.Driver).
		Msg("connected to sequence storage")
	return db, nil
}

// isUniqueViolation recognises primary key conflicts from every supported
// driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
