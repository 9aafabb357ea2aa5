package dataload

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_PlainFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644))

	rc, err := Open(p)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))
}

func TestOpen_GzipDetectedByMagic(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("dep_code\n01\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	// 扩展名刻意不带 .gz
	p := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	rc, err := Open(p)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "dep_code\n01\n", string(b))
}

func TestOpen_EmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	rc, err := Open(p)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestOpen_MissingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nope.csv.gz")
	_, err := Open(p)
	require.Error(t, err)

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, p, de.Path)
	assert.Equal(t, "open", de.Op)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), p)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap("x", "parse", nil))

	inner := Wrap("a.csv", "parse", ErrMalformedRow)
	outer := Wrap("b.csv", "validate", inner)
	assert.Same(t, inner, outer)
	assert.ErrorIs(t, outer, ErrMalformedRow)
}
