package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesPerLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Info("analysis finished: %d labels", 2)
	l.Warning("annotation skipped")
	l.Error("describe failed: %v", "quota")

	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	require.Contains(t, string(info), "analysis finished: 2 labels")

	warning, err := os.ReadFile(filepath.Join(dir, WarningFile))
	require.NoError(t, err)
	require.Contains(t, string(warning), "annotation skipped")

	errLog, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	require.Contains(t, string(errLog), "describe failed: quota")
}

func TestCleanLogs_TruncatesFile(t *testing.T) {
	dir := t.TempDir()

	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Info("something")
	require.NoError(t, l.CleanLogs(InfoFile))

	stat, err := os.Stat(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	require.Zero(t, stat.Size())
}

func TestDiscard_IsUsable(t *testing.T) {
	l := Discard()
	l.Info("ignored")
	require.NoError(t, l.CleanLogs(InfoFile))
	require.NoError(t, l.Close())
	require.Empty(t, l.Dir())
}
