package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.log")

	w := NewAsyncFileWriter(path, 100, 0)
	require.NoError(t, w.Start())
	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	w.Write([]byte("world\n"))
	w.Stop()

	// The configured path is a symlink to the time-suffixed file.
	target, err := os.Readlink(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(target), "hello.log."))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(content))
}

func TestWriterDoubleStart(t *testing.T) {
	w := NewAsyncFileWriter(filepath.Join(t.TempDir(), "x.log"), 1, 0)
	require.NoError(t, w.Start())
	defer w.Stop()
	assert.Error(t, w.Start())
}

func TestEveryN(t *testing.T) {
	f := &EveryN{N: 3}
	var passed int
	for i := 0; i < 9; i++ {
		if f.check() {
			passed++
		}
	}
	assert.Equal(t, 3, passed)

	var nilFilter *EveryN
	assert.True(t, nilFilter.check())
}
