package corekb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileSourceLazyLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.txt")
	require.NoError(t, os.WriteFile(path, []byte("the stars incline"), 0o644))

	source := NewFileSource(path, newTestLogger())
	defer source.Close()

	text, err := source.Text(context.Background())
	require.NoError(t, err)
	require.Equal(t, "the stars incline", text)

	// Subsequent reads serve the cached copy.
	text, err = source.Text(context.Background())
	require.NoError(t, err)
	require.Equal(t, "the stars incline", text)
}

func TestFileSourceMissingFile(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "absent.txt"), newTestLogger())
	defer source.Close()

	_, err := source.Text(context.Background())
	require.Error(t, err)
}

func TestFileSourceReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	source := NewFileSource(path, newTestLogger())
	defer source.Close()

	text, err := source.Text(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", text)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))

	require.Eventually(t, func() bool {
		text, err := source.Text(context.Background())
		return err == nil && text == "second"
	}, 3*time.Second, 20*time.Millisecond)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
