package certs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &StageError{Stage: StageIssue, Err: cause})

	assert.ErrorIs(t, err, ErrIssuanceFailed)
	assert.NotErrorIs(t, err, ErrBuildFailed)
	assert.NotErrorIs(t, err, ErrPersistenceFailed)
	assert.ErrorIs(t, err, cause)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageIssue, stageErr.Stage)
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: StageSave, Err: errors.New("disk full")}
	assert.Equal(t, "certs: persistence failed: disk full", err.Error())
}

func TestOrderingSentinelsDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrSessionRequired, ErrAccountRequired)
	assert.NotErrorIs(t, ErrSessionRequired, ErrIssuanceFailed)
}
