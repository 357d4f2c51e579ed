package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/fable/pkg/runner"
	"github.com/stretchr/testify/assert"
)

func TestExitError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"interrupted", context.Canceled, nil},
		{"story failed", runner.ErrStoryFailed, runner.ErrStoryFailed},
		{"turn limit", runner.ErrTurnLimit, runner.ErrTurnLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitError(tt.in))
		})
	}

	wrapped := exitError(boom)
	assert.ErrorIs(t, wrapped, boom)
	assert.EqualError(t, wrapped, "run failed: boom")
}

func TestSignalContext_ExitCode(t *testing.T) {
	sc := NewSignalContext(context.Background())
	defer sc.Cancel()

	assert.Nil(t, sc.Signal())
	assert.Equal(t, 0, sc.ExitCode(nil))
	assert.Equal(t, 1, sc.ExitCode(errors.New("boom")))

	sc.Cancel()
	<-sc.Done()
	assert.Nil(t, sc.Signal(), "cancel is not a signal")
}
