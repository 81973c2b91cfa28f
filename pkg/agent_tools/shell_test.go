package tools

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunCommand(t *testing.T) {
	skipOnWindows(t)

	t.Run("SuccessfulCommandWorks", func(t *testing.T) {
		res, err := RunCommand(context.Background(), []string{"echo", "hello world"}, "", time.Second*5)
		require.NoError(t, err)
		assert.Equal(t, "hello world", res.Output)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("CapturesStderrAndStdout", func(t *testing.T) {
		res, err := RunCommand(context.Background(),
			[]string{"sh", "-c", "echo 'stdout message'; echo 'stderr message' >&2"}, "", 5*time.Second)
		require.NoError(t, err)
		assert.Contains(t, res.Output, "stdout message")
		assert.Contains(t, res.Output, "stderr message")
	})

	t.Run("FailedCommandKeepsOutputAndExitCode", func(t *testing.T) {
		res, err := RunCommand(context.Background(), []string{"sh", "-c", "echo broken; exit 3"}, "", 5*time.Second)
		require.Error(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "broken", res.Output)
	})

	t.Run("RespectsWorkingDirectory", func(t *testing.T) {
		dir := t.TempDir()
		res, err := RunCommand(context.Background(), []string{"pwd"}, dir, 5*time.Second)
		require.NoError(t, err)
		assert.Contains(t, res.Output, filepath.Base(dir))
	})

	t.Run("TimeoutIsOrdinaryFailure", func(t *testing.T) {
		_, err := RunCommand(context.Background(), []string{"sleep", "5"}, "", 100*time.Millisecond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCommandTimeout))
	})

	t.Run("EmptyCommand", func(t *testing.T) {
		_, err := RunCommand(context.Background(), nil, "", time.Second)
		assert.Error(t, err)
	})

	t.Run("MissingExecutable", func(t *testing.T) {
		res, err := RunCommand(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, "", time.Second)
		assert.Error(t, err)
		assert.Equal(t, -1, res.ExitCode)
	})
}

func TestIsDestructiveCommand(t *testing.T) {
	tests := []struct {
		command string
		risk    string
	}{
		{"rm -rf projects", "high"},
		{"rmdir /s Assets", "high"},
		{"git reset --hard HEAD", "medium"},
		{"taskkill /IM Unity.exe", "low"},
		{"mkdir -p logs", "none"},
		{"echo rm -rf", "none"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			d, ok := IsDestructiveCommand(tt.command)
			if tt.risk == "none" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.risk, d.RiskLevel)
		})
	}
}
