package vfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteFile(t *testing.T) {
	t.Run("write creates and read returns the same bytes", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("hello"), WriteFileOptions{}))

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("write replaces previous content wholesale", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("a long first version"), WriteFileOptions{}))
		require.NoError(t, store.WriteFile("/file", []byte("short"), WriteFileOptions{}))

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "short", string(data))
	})

	t.Run("CreateNew refuses an existing file", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", nil, WriteFileOptions{}))
		err := store.WriteFile("/file", nil, WriteFileOptions{CreateNew: true})
		assert.True(t, IsCode(err, ErrAlreadyExists))
	})

	t.Run("create through a dangling symlink creates the target", func(t *testing.T) {
		store := New()

		require.NoError(t, store.CreateSymlink("/link", "/target"))
		require.NoError(t, store.WriteFile("/link", []byte("data"), WriteFileOptions{}))

		// The file landed at the end of the chain; the link survives.
		data, err := store.ReadFile("/target")
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))

		attrs, err := store.Stat("/link", false)
		require.NoError(t, err)
		assert.True(t, attrs.IsSymbolicLink())
	})

	t.Run("create through a dangling relative symlink", func(t *testing.T) {
		store := New()

		require.NoError(t, store.CreateDirectory("/dir"))
		require.NoError(t, store.CreateSymlink("/dir/rel", "missing"))
		require.NoError(t, store.WriteFile("/dir/rel", []byte("x"), WriteFileOptions{}))

		_, err := store.Stat("/dir/missing", false)
		assert.NoError(t, err)
	})

	t.Run("create through a link cycle fails", func(t *testing.T) {
		store := New()

		require.NoError(t, store.CreateSymlink("/a", "/b"))
		require.NoError(t, store.CreateSymlink("/b", "/a"))

		err := store.WriteFile("/a", []byte("x"), WriteFileOptions{})
		assert.True(t, IsCode(err, ErrLinkDepthExceeded))
	})

	t.Run("read fails on a directory", func(t *testing.T) {
		store := New()

		require.NoError(t, store.CreateDirectory("/dir"))
		_, err := store.ReadFile("/dir")
		assert.True(t, IsCode(err, ErrIsADirectory))
	})

	t.Run("returned slice is a private copy", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("abc"), WriteFileOptions{}))

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		data[0] = 'X'

		again, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})
}

func TestInputStream(t *testing.T) {
	t.Run("reads to EOF", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("streamed"), WriteFileOptions{}))

		in, err := store.OpenInputStream("/file", nil)
		require.NoError(t, err)
		defer in.Close()

		data, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, "streamed", string(data))

		n, err := in.Read(make([]byte, 1))
		assert.Zero(t, n)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("mark and reset replay from the marked position", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("abcdef"), WriteFileOptions{}))

		in, err := store.OpenInputStream("/file", nil)
		require.NoError(t, err)
		defer in.Close()

		buf := make([]byte, 2)
		_, err = io.ReadFull(in, buf)
		require.NoError(t, err)
		assert.Equal(t, "ab", string(buf))

		in.Mark()

		_, err = io.ReadFull(in, buf)
		require.NoError(t, err)
		assert.Equal(t, "cd", string(buf))

		require.NoError(t, in.Reset())

		rest, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, "cdef", string(rest))
	})

	t.Run("reset without a mark rewinds to the start", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("abc"), WriteFileOptions{}))

		in, err := store.OpenInputStream("/file", nil)
		require.NoError(t, err)
		defer in.Close()

		_, err = io.ReadAll(in)
		require.NoError(t, err)

		require.NoError(t, in.Reset())

		data, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(data))
	})

	t.Run("close fires the callback exactly once", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", nil, WriteFileOptions{}))

		calls := 0
		in, err := store.OpenInputStream("/file", func() { calls++ })
		require.NoError(t, err)

		require.NoError(t, in.Close())
		require.NoError(t, in.Close())
		assert.Equal(t, 1, calls)

		_, err = in.Read(make([]byte, 1))
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		store := New()

		_, err := store.OpenInputStream("/missing", nil)
		assert.True(t, IsCode(err, ErrNotFound))
	})
}

func TestOutputStream(t *testing.T) {
	t.Run("creates the file and truncates by default", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("old content"), WriteFileOptions{}))

		out, err := store.OpenOutputStream("/file", OutputStreamOptions{})
		require.NoError(t, err)

		_, err = out.Write([]byte("new"))
		require.NoError(t, err)
		require.NoError(t, out.Close())

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("append preserves existing content", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", []byte("hello"), WriteFileOptions{}))

		out, err := store.OpenOutputStream("/file", OutputStreamOptions{Append: true})
		require.NoError(t, err)

		_, err = out.Write([]byte(" world"))
		require.NoError(t, err)
		require.NoError(t, out.Close())

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(data))
	})

	t.Run("CreateNew refuses an existing file", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", nil, WriteFileOptions{}))

		_, err := store.OpenOutputStream("/file", OutputStreamOptions{CreateNew: true})
		assert.True(t, IsCode(err, ErrAlreadyExists))
	})

	t.Run("write after close fails", func(t *testing.T) {
		store := New()

		out, err := store.OpenOutputStream("/file", OutputStreamOptions{})
		require.NoError(t, err)
		require.NoError(t, out.Close())

		_, err = out.Write([]byte("x"))
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})

	t.Run("close fires the callback exactly once", func(t *testing.T) {
		store := New()

		calls := 0
		out, err := store.OpenOutputStream("/file", OutputStreamOptions{OnClose: func() { calls++ }})
		require.NoError(t, err)

		require.NoError(t, out.Close())
		require.NoError(t, out.Close())
		assert.Equal(t, 1, calls)
	})

	t.Run("refuses a read-only file", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/file", nil, WriteFileOptions{}))
		require.NoError(t, store.SetReadOnly("/file", true, true))

		_, err := store.OpenOutputStream("/file", OutputStreamOptions{})
		assert.True(t, IsCode(err, ErrAccessDenied))
	})
}
