package constants

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitions(t *testing.T) {
	assert.True(t, StatusQueued.CanTransitionTo(StatusRunning))
	assert.True(t, StatusRunning.CanTransitionTo(StatusSucceeded))
	assert.True(t, StatusRunning.CanTransitionTo(StatusFailed))

	assert.False(t, StatusQueued.CanTransitionTo(StatusSucceeded))
	assert.False(t, StatusSucceeded.CanTransitionTo(StatusRunning))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSucceeded))

	err := Transition(StatusSucceeded, StatusRunning)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.NoError(t, Transition(StatusQueued, StatusRunning))
}

func TestReopen(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusSucceeded, StatusFailed} {
		assert.NoError(t, Reopen(s), s)
	}
	assert.ErrorIs(t, Reopen(Status("done")), ErrIllegalTransition)
}

func TestNormalizeMime(t *testing.T) {
	assert.Equal(t, "text/plain", NormalizeMime(" Text/Plain; charset=utf-8"))
	assert.True(t, IsPlainText("text/markdown"))
	assert.False(t, IsPlainText(MimePDF))
	assert.True(t, IsShortcut(MimeShortcut))
}
