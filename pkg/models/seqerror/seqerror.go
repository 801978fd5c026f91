package seqerror

import (
	"errors"
	"fmt"

	jujuerrors "github.com/juju/errors"
)

const (
	SEQ_UNEXPECTED     = "SEQUN"
	SEQ_NOT_FOUND      = "SEQNF"
	SEQ_DATA_ACCESS    = "SEQDA"
	SEQ_INVALID_NAME   = "SEQIN"
	SEQ_DUPLICATE      = "SEQDU"
	SEQ_CONFIG_ERROR   = "SEQCF"
	SEQ_CORRUPTED_DATA = "SEQCD"
)

var existingErrorCodeMap = map[string]string{
	SEQ_NOT_FOUND:      "SequenceNotFound",
	SEQ_DATA_ACCESS:    "DataAccessFailure",
	SEQ_INVALID_NAME:   "InvalidSequenceName",
	SEQ_DUPLICATE:      "DuplicateSequence",
	SEQ_CONFIG_ERROR:   "Config error",
	SEQ_CORRUPTED_DATA: "Corrupted sequence value",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &SeqError{}

// SeqError is an error tagged with one of the SEQ_* codes.
type SeqError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *SeqError {
	return &SeqError{
		Err:       errors.New(errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *SeqError {
	return &SeqError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

// Wrap tags err with errorCode. The original error stays reachable through
// errors.Is and errors.As.
func Wrap(errorCode string, err error) *SeqError {
	return &SeqError{
		Err:       err,
		ErrorCode: errorCode,
	}
}

func (er *SeqError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *SeqError) Unwrap() error {
	return er.Err
}

// Is matches another *SeqError by code, and SEQ_NOT_FOUND against
// juju's NotFound so callers using either convention agree.
func (er *SeqError) Is(target error) bool {
	if t, ok := target.(*SeqError); ok {
		return t.ErrorCode == er.ErrorCode
	}
	return er.ErrorCode == SEQ_NOT_FOUND && target == jujuerrors.NotFound
}

// NotFound reports a missing sequence row.
func NotFound(name string) *SeqError {
	return Newf(SEQ_NOT_FOUND, "could not get next value of sequence %q: sequence does not exist", name)
}

// DataAccess wraps a storage layer failure. Nil stays nil.
func DataAccess(err error) error {
	if err == nil {
		return nil
	}
	var se *SeqError
	if errors.As(err, &se) {
		return err
	}
	return Wrap(SEQ_DATA_ACCESS, err)
}

func hasCode(err error, code string) bool {
	var se *SeqError
	if !errors.As(err, &se) {
		return false
	}
	return se.ErrorCode == code
}

func IsNotFound(err error) bool {
	return hasCode(err, SEQ_NOT_FOUND)
}

func IsDataAccess(err error) bool {
	return hasCode(err, SEQ_DATA_ACCESS)
}

func IsDuplicate(err error) bool {
	return hasCode(err, SEQ_DUPLICATE)
}
