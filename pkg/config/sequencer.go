package config

import (
	"database/sql"
	"encoding/json"
	"os"
	"time"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
)

const (
	BackendSQL    = "sql"
	BackendEtcd   = "etcd"
	BackendMemory = "memory"

	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// LockModeNone reads then writes without a lock. Two concurrent callers
	// may observe the same value under READ COMMITTED.
	LockModeNone = "none"
	// LockModeRow takes SELECT ... FOR UPDATE before the write.
	LockModeRow = "row"
	// LockModeAtomic increments with a single UPDATE ... RETURNING.
	LockModeAtomic = "atomic"

	DefaultTableName      = "sequence"
	DefaultConnectRetries = 5
)

var cfgSequencer Sequencer

type Sequencer struct {
	LogLevel                string        `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFileName             string        `json:"log_filename" toml:"log_filename" yaml:"log_filename"`
	PrettyLogging           bool          `json:"pretty_logging" toml:"pretty_logging" yaml:"pretty_logging"`
	LogMinDurationStatement time.Duration `json:"log_min_duration_statement" toml:"log_min_duration_statement" yaml:"log_min_duration_statement"`

	Backend string `json:"backend" toml:"backend" yaml:"backend"`

	Driver            string `json:"driver" toml:"driver" yaml:"driver"`
	StorageConnString string `json:"storage_connstring" toml:"storage_connstring" yaml:"storage_connstring"`
	TableName         string `json:"table_name" toml:"table_name" yaml:"table_name"`
	LockMode          string `json:"lock_mode" toml:"lock_mode" yaml:"lock_mode"`
	Isolation         string `json:"isolation" toml:"isolation" yaml:"isolation"`
	MaxOpenConns      int    `json:"max_open_conns" toml:"max_open_conns" yaml:"max_open_conns"`
	ConnectRetries    uint64 `json:"connect_retries" toml:"connect_retries" yaml:"connect_retries"`
	PgxTraceLevel     string `json:"pgx_trace_level" toml:"pgx_trace_level" yaml:"pgx_trace_level"`

	QdbAddr string `json:"qdb_addr" toml:"qdb_addr" yaml:"qdb_addr"`

	MemBackupPath string `json:"mem_backup_path" toml:"mem_backup_path" yaml:"mem_backup_path"`
}

// LoadSequencerCfg loads the sequencer configuration from cfgPath, applies
// defaults and validates it.
//
// Returns:
//   - string: JSON-formatted running config
//   - error: An error if any occurred during the loading process.
func LoadSequencerCfg(cfgPath string) (string, error) {
	var scfg Sequencer
	file, err := os.Open(cfgPath)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	if err := initConfig(file, &scfg); err != nil {
		return "", err
	}

	scfg.ApplyDefaults()
	if err := scfg.Validate(); err != nil {
		return "", err
	}
	cfgSequencer = scfg

	configBytes, err := json.MarshalIndent(&cfgSequencer, "", "  ")
	if err != nil {
		return "", err
	}

	return string(configBytes), nil
}

func SequencerConfig() *Sequencer {
	return &cfgSequencer
}

// ApplyDefaults fills unset fields. An unset driver on the sql backend
// means pgx.
func (s *Sequencer) ApplyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Backend == "" {
		s.Backend = BackendSQL
	}
	if s.Backend == BackendSQL && s.Driver == "" {
		s.Driver = DriverPgx
	}
	if s.TableName == "" {
		s.TableName = DefaultTableName
	}
	if s.LockMode == "" {
		s.LockMode = LockModeAtomic
	}
	if s.ConnectRetries == 0 {
		s.ConnectRetries = DefaultConnectRetries
	}
}

func (s *Sequencer) Validate() error {
	switch s.Backend {
	case BackendSQL:
		switch s.Driver {
		case DriverPgx, DriverPostgres, DriverSQLite:
		default:
			return seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown driver %q", s.Driver)
		}
		if s.StorageConnString == "" {
			return seqerror.New(seqerror.SEQ_CONFIG_ERROR, "storage_connstring is required for sql backend")
		}
		switch s.LockMode {
		case LockModeNone, LockModeAtomic:
		case LockModeRow:
			if s.Driver == DriverSQLite {
				return seqerror.New(seqerror.SEQ_CONFIG_ERROR, "lock_mode \"row\" is not supported by sqlite")
			}
		default:
			return seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown lock_mode %q", s.LockMode)
		}
		if _, err := s.IsolationLevel(); err != nil {
			return err
		}
		if !validIdentifier(s.TableName) {
			return seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "invalid table_name %q", s.TableName)
		}
	case BackendEtcd:
		if s.QdbAddr == "" {
			return seqerror.New(seqerror.SEQ_CONFIG_ERROR, "qdb_addr is required for etcd backend")
		}
	case BackendMemory:
	default:
		return seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown backend %q", s.Backend)
	}
	return nil
}

// IsolationLevel maps the isolation setting to database/sql.
func (s *Sequencer) IsolationLevel() (sql.IsolationLevel, error) {
	switch s.Isolation {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, seqerror.Newf(seqerror.SEQ_CONFIG_ERROR, "unknown isolation %q", s.Isolation)
	}
}

// table names are spliced into statements, so only plain identifiers pass
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
