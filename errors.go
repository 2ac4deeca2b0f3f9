package certs

import (
	"errors"
	"fmt"
)

// Stage identifies which phase of the issuance sequence an error came from.
// Callers use it to tell protocol failures apart from local I/O failures
// when deciding whether a retry makes sense.
type Stage string

const (
	StageBuild Stage = "csr build"
	StageIssue Stage = "issuance"
	StageSave  Stage = "persistence"
)

// Ordering errors returned when steps are invoked out of sequence.
var (
	ErrSessionRequired = errors.New("certs: session not initialized, call Init first")
	ErrAccountRequired = errors.New("certs: account not registered, call Account first")
)

// StageError wraps a failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("certs: %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches on stage so callers can compare against the sentinels below
// with errors.Is.
func (e *StageError) Is(target error) bool {
	t, ok := target.(*StageError)
	if !ok {
		return false
	}
	return e.Stage == t.Stage
}

// Sentinels for errors.Is checks.
var (
	ErrBuildFailed       = &StageError{Stage: StageBuild}
	ErrIssuanceFailed    = &StageError{Stage: StageIssue}
	ErrPersistenceFailed = &StageError{Stage: StageSave}
)
