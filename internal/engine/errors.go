package engine

import (
	"errors"
	"fmt"
)

// EngineError is an error that stops a submission or a close.
//
// Transaction failures are never EngineErrors; they are ter codes in an
// Outcome. An EngineError means the engine itself could not proceed.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// LedgerSeq is the ledger being closed or restored, when known.
	LedgerSeq uint32

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeStopped indicates the engine's Run loop has exited.
	ErrCodeStopped ErrorCode = "STOPPED"

	// ErrCodeJournal indicates a close could not be written to the store.
	ErrCodeJournal ErrorCode = "JOURNAL"

	// ErrCodeRestore indicates the journal could not rebuild a ledger.
	ErrCodeRestore ErrorCode = "RESTORE"
)

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.LedgerSeq != 0 {
		msg = fmt.Sprintf("%s (ledger=%d)", msg, e.LedgerSeq)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

// IsStoppedError reports whether err means the engine is no longer running.
func IsStoppedError(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

// IsJournalError reports whether err is a failed journal write.
func IsJournalError(err error) bool {
	return hasCode(err, ErrCodeJournal)
}

// IsRestoreError reports whether err is a failed restore.
func IsRestoreError(err error) bool {
	return hasCode(err, ErrCodeRestore)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func errStopped() *EngineError {
	return &EngineError{Code: ErrCodeStopped, Message: "engine stopped"}
}

func journalError(seq uint32, what string, err error) *EngineError {
	return &EngineError{Code: ErrCodeJournal, Message: what, LedgerSeq: seq, Err: err}
}
