package seqlog

import "time"

type StmtType string

const (
	StmtTypeSelect = StmtType("SELECT")
	StmtTypeUpdate = StmtType("UPDATE")
	StmtTypeInsert = StmtType("INSERT")
	StmtTypeDelete = StmtType("DELETE")
	StmtTypeDDL    = StmtType("DDL")
)

var SLogger = NewStmtLogger(0)

// StmtLogger reports statements running longer than logMinDurationStatement.
// A non-positive threshold disables reporting.
type StmtLogger struct {
	logMinDurationStatement time.Duration
}

func NewStmtLogger(logMinDurationStatement time.Duration) *StmtLogger {
	return &StmtLogger{
		logMinDurationStatement: logMinDurationStatement,
	}
}

func ReloadSLogger(logMinDurationStatement time.Duration) {
	SLogger = NewStmtLogger(logMinDurationStatement)
}

func (s *StmtLogger) shouldLogStatement(t time.Duration) bool {
	return s.logMinDurationStatement > 0 && t > s.logMinDurationStatement
}

func (s *StmtLogger) ReportStatement(typ StmtType, stmt string, t time.Duration) {
	if s.shouldLogStatement(t) {
		Zero.Info().Str("stmt", stmt).Str("stmt_type", string(typ)).Dur("duration", t).Msg("log statement")
	}
}
