package vfs

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T, store *Store, path string, content []byte) *Channel {
	t.Helper()

	require.NoError(t, store.WriteFile(path, content, WriteFileOptions{}))
	ch, err := store.OpenChannel(path, ChannelOptions{Read: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestOpenChannel(t *testing.T) {
	t.Run("defaults to read-only", func(t *testing.T) {
		store := New()
		require.NoError(t, store.WriteFile("/file", []byte("data"), WriteFileOptions{}))

		ch, err := store.OpenChannel("/file", ChannelOptions{})
		require.NoError(t, err)
		defer ch.Close()

		buf := make([]byte, 4)
		_, err = ch.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "data", string(buf))

		_, err = ch.Write([]byte("x"))
		assert.True(t, IsCode(err, ErrAccessDenied))
	})

	t.Run("write-capable non-append truncates at open", func(t *testing.T) {
		store := New()
		require.NoError(t, store.WriteFile("/file", []byte("previous"), WriteFileOptions{}))

		ch, err := store.OpenChannel("/file", ChannelOptions{Read: true, Write: true})
		require.NoError(t, err)
		defer ch.Close()

		size, err := ch.Size()
		require.NoError(t, err)
		assert.Zero(t, size)
	})

	t.Run("append seeks to the end and pins writes there", func(t *testing.T) {
		store := New()
		require.NoError(t, store.WriteFile("/file", []byte("hello"), WriteFileOptions{}))

		ch, err := store.OpenChannel("/file", ChannelOptions{Append: true})
		require.NoError(t, err)
		defer ch.Close()

		_, err = ch.Write([]byte(" world"))
		require.NoError(t, err)

		// Seeking does not move where append writes land.
		_, err = ch.Seek(0, io.SeekStart)
		require.NoError(t, err)
		_, err = ch.Write([]byte("!"))
		require.NoError(t, err)

		require.NoError(t, ch.Close())

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "hello world!", string(data))
	})

	t.Run("append with read is rejected", func(t *testing.T) {
		store := New()

		_, err := store.OpenChannel("/file", ChannelOptions{Read: true, Append: true})
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})

	t.Run("create and CreateNew", func(t *testing.T) {
		store := New()

		_, err := store.OpenChannel("/file", ChannelOptions{Write: true})
		assert.True(t, IsCode(err, ErrNotFound))

		ch, err := store.OpenChannel("/file", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)
		require.NoError(t, ch.Close())

		_, err = store.OpenChannel("/file", ChannelOptions{Write: true, CreateNew: true})
		assert.True(t, IsCode(err, ErrAlreadyExists))
	})

	t.Run("fails on a directory", func(t *testing.T) {
		store := New()
		require.NoError(t, store.CreateDirectory("/dir"))

		_, err := store.OpenChannel("/dir", ChannelOptions{Read: true})
		assert.True(t, IsCode(err, ErrIsADirectory))
	})
}

func TestChannelCursorIO(t *testing.T) {
	t.Run("read advances the cursor and hits EOF", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abcdef"))

		buf := make([]byte, 3)
		n, err := ch.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, "abc", string(buf))

		n, err = ch.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "def", string(buf[:n]))

		_, err = ch.Read(buf)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("writing past the end zero-fills the gap", func(t *testing.T) {
		store := New()

		ch, err := store.OpenChannel("/file", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)

		_, err = ch.WriteAt([]byte("end"), 5)
		require.NoError(t, err)
		require.NoError(t, ch.Close())

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 'e', 'n', 'd'}, data)
	})

	t.Run("ReadAt does not move the cursor", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abcdef"))

		buf := make([]byte, 2)
		n, err := ch.ReadAt(buf, 4)
		require.NoError(t, err)
		assert.Equal(t, "ef", string(buf[:n]))

		_, err = ch.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "ab", string(buf))
	})

	t.Run("ReadAt past the end returns EOF with a short count", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abc"))

		buf := make([]byte, 8)
		n, err := ch.ReadAt(buf, 1)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, "bc", string(buf[:n]))
	})

	t.Run("seek supports all three origins", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abcdef"))

		pos, err := ch.Seek(2, io.SeekStart)
		require.NoError(t, err)
		assert.Equal(t, int64(2), pos)

		pos, err = ch.Seek(2, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(4), pos)

		pos, err = ch.Seek(-1, io.SeekEnd)
		require.NoError(t, err)
		assert.Equal(t, int64(5), pos)

		_, err = ch.Seek(-10, io.SeekCurrent)
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})

	t.Run("truncate shrinks and clamps the cursor", func(t *testing.T) {
		store := New()
		require.NoError(t, store.WriteFile("/file", nil, WriteFileOptions{}))

		ch, err := store.OpenChannel("/file", ChannelOptions{Read: true, Write: true})
		require.NoError(t, err)
		defer ch.Close()

		_, err = ch.Write([]byte("abcdef"))
		require.NoError(t, err)

		require.NoError(t, ch.Truncate(3))

		size, err := ch.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(3), size)

		pos, err := ch.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(3), pos)

		// Growing via truncate is a no-op.
		require.NoError(t, ch.Truncate(10))
		size, err = ch.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(3), size)
	})

	t.Run("operations on a closed channel fail", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abc"))

		require.NoError(t, ch.Close())
		require.NoError(t, ch.Close())

		_, err := ch.Read(make([]byte, 1))
		assert.True(t, IsCode(err, ErrInvalidArgument))

		_, err = ch.Size()
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})
}

func TestChannelTransfer(t *testing.T) {
	t.Run("native splice between two channels", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/src", []byte("abcdefgh"), WriteFileOptions{}))

		src, err := store.OpenChannel("/src", ChannelOptions{Read: true})
		require.NoError(t, err)
		defer src.Close()

		dst, err := store.OpenChannel("/dst", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)
		defer dst.Close()

		n, err := src.TransferTo(5, dst)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		// Both cursors advanced.
		pos, err := src.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(5), pos)

		data, err := store.ReadFile("/dst")
		require.NoError(t, err)
		assert.Equal(t, "abcde", string(data))
	})

	t.Run("splice is bounded by available source bytes", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/src", []byte("abc"), WriteFileOptions{}))

		src, err := store.OpenChannel("/src", ChannelOptions{Read: true})
		require.NoError(t, err)
		defer src.Close()

		dst, err := store.OpenChannel("/dst", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)
		defer dst.Close()

		n, err := src.TransferTo(100, dst)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		// Exhausted source: zero moved is a valid result, not an error.
		n, err = src.TransferTo(100, dst)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("transfer to a foreign writer", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abcdef"))

		var sink bytes.Buffer
		n, err := ch.TransferTo(4, &sink)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.Equal(t, "abcd", sink.String())
	})

	t.Run("transfer from a foreign reader", func(t *testing.T) {
		store := New()

		ch, err := store.OpenChannel("/file", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)
		defer ch.Close()

		n, err := ch.TransferFrom(strings.NewReader("abcdef"), 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		// A short source stops the transfer without error.
		n, err = ch.TransferFrom(strings.NewReader("gh"), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, ch.Close())

		data, err := store.ReadFile("/file")
		require.NoError(t, err)
		assert.Equal(t, "abcdgh", string(data))
	})

	t.Run("transfer into an append destination lands at the end", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/src", []byte("xyz"), WriteFileOptions{}))
		require.NoError(t, store.WriteFile("/dst", []byte("abc"), WriteFileOptions{}))

		src, err := store.OpenChannel("/src", ChannelOptions{Read: true})
		require.NoError(t, err)
		defer src.Close()

		dst, err := store.OpenChannel("/dst", ChannelOptions{Append: true})
		require.NoError(t, err)
		defer dst.Close()

		n, err := src.TransferTo(3, dst)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		data, err := store.ReadFile("/dst")
		require.NoError(t, err)
		assert.Equal(t, "abcxyz", string(data))
	})

	t.Run("capability violations fail with an access error", func(t *testing.T) {
		store := New()

		require.NoError(t, store.WriteFile("/src", []byte("abc"), WriteFileOptions{}))

		readOnly, err := store.OpenChannel("/src", ChannelOptions{Read: true})
		require.NoError(t, err)
		defer readOnly.Close()

		writeOnly, err := store.OpenChannel("/dst", ChannelOptions{Write: true, Create: true})
		require.NoError(t, err)
		defer writeOnly.Close()

		_, err = writeOnly.TransferTo(1, readOnly)
		assert.True(t, IsCode(err, ErrAccessDenied))

		_, err = readOnly.TransferFrom(writeOnly, 1)
		assert.True(t, IsCode(err, ErrAccessDenied))
	})

	t.Run("negative count is rejected", func(t *testing.T) {
		store := New()
		ch := newTestChannel(t, store, "/file", []byte("abc"))

		_, err := ch.TransferTo(-1, io.Discard)
		assert.True(t, IsCode(err, ErrInvalidArgument))

		_, err = ch.TransferFrom(strings.NewReader(""), -1)
		assert.True(t, IsCode(err, ErrInvalidArgument))
	})
}
