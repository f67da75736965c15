//go:build unix

package interrupt

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/newthinker/datacheck/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGuard_DefersSignalUntilDone(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	g := New(zap.New(obs))

	finished := false
	err := g.Run(func() error {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
		require.Eventually(t, func() bool { return g.Signal() != nil }, 5*time.Second, 10*time.Millisecond,
			"signal was not captured")
		finished = true
		return nil
	})

	assert.True(t, finished, "operation should run to completion")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInterrupted))
	assert.Equal(t, os.Interrupt, g.Signal())
	assert.Equal(t, 1, logs.FilterMessage("please wait until the current operation has finished").Len())
}

func TestGuard_CombinesErrors(t *testing.T) {
	g := New(nil)
	boom := errors.New("boom")

	err := g.Run(func() error {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
		require.Eventually(t, func() bool { return g.Signal() != nil }, 5*time.Second, 10*time.Millisecond)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.Is(err, core.ErrInterrupted))
}
