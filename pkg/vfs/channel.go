package vfs

import (
	"bytes"
	"io"
)

// ChannelOptions controls OpenChannel behavior.
//
// Option decoding from caller-supplied option sets (replace flags, follow
// flags, localized errors) is the adapter's job; the core only sees these
// booleans.
type ChannelOptions struct {
	// Read requests read capability. When neither Read nor Write is set
	// the channel opens read-only.
	Read bool

	// Write requests write capability. Opening write-capable and
	// non-append truncates the file to empty at open time.
	Write bool

	// Append positions every cursor write at the current end of file and
	// seeks to the end at open time. Implies Write; incompatible with
	// Read.
	Append bool

	// Create creates the file when missing (only meaningful with Write).
	Create bool

	// CreateNew demands that the file does not exist yet.
	CreateNew bool
}

// Channel is a random-access byte channel over a file: an independent
// read/write cursor plus absolute-offset I/O, truncation, size query,
// region locks and bulk transfer.
//
// All channel state (cursor, closed flag, held locks) is guarded by the
// file's mutex, so channels on distinct files never contend and channels
// on the same file serialize exactly like the content they share.
type Channel struct {
	file     *File
	readable bool
	writable bool
	append   bool
	bufSize  int

	pos    int64
	closed bool
	locks  []*RegionLock
}

// OpenChannel opens a random-access channel on the file at path
// (following links).
//
// Invalid option combinations (append with read, append with neither
// capability resolving to write) fail with ErrInvalidArgument before any
// tree access. Capability violations on the returned channel fail with
// ErrAccessDenied.
func (s *Store) OpenChannel(path string, opts ChannelOptions) (*Channel, error) {
	if opts.Append {
		if opts.Read {
			return nil, newError(ErrInvalidArgument, "append and read are incompatible", path)
		}
		opts.Write = true
	}
	if !opts.Read && !opts.Write {
		opts.Read = true
	}

	create := opts.Write && (opts.Create || opts.CreateNew)
	file, err := s.openFile(path, create, opts.CreateNew, opts.Write)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		file:     file,
		readable: opts.Read,
		writable: opts.Write,
		append:   opts.Append,
		bufSize:  s.cfg.TransferBufferSize,
	}

	file.mu.Lock()
	defer file.mu.Unlock()
	switch {
	case opts.Write && !opts.Append:
		file.truncate(0)
	case opts.Append:
		ch.pos = file.size()
	}
	return ch, nil
}

// checkOpen validates the channel state and an offset argument.
// Callers must hold the file mutex.
func (ch *Channel) checkOpen(offset int64) error {
	if ch.closed {
		return newError(ErrInvalidArgument, "channel is closed", "")
	}
	if offset < 0 {
		return newError(ErrInvalidArgument, "negative offset", "")
	}
	return nil
}

// ============================================================================
// Cursor and absolute I/O
// ============================================================================

// Read reads from the cursor position, advancing it. Implements
// io.Reader; fails with ErrAccessDenied on a write-only channel.
func (ch *Channel) Read(p []byte) (int, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if !ch.readable {
		return 0, newError(ErrAccessDenied, "channel is not readable", "")
	}
	if err := ch.checkOpen(0); err != nil {
		return 0, err
	}

	n := ch.file.readAt(p, ch.pos)
	ch.pos += int64(n)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes at the cursor position, advancing it. In append mode the
// write always lands at the current end of file regardless of the cursor.
// Writing past the end zero-fills the gap.
func (ch *Channel) Write(p []byte) (int, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if !ch.writable {
		return 0, newError(ErrAccessDenied, "channel is not writable", "")
	}
	if err := ch.checkOpen(0); err != nil {
		return 0, err
	}

	if ch.append {
		ch.pos = ch.file.size()
	}
	n := ch.file.writeAt(p, ch.pos)
	ch.pos += int64(n)
	return n, nil
}

// ReadAt reads from an absolute offset without moving the cursor.
// Implements io.ReaderAt semantics: a read past the end returns io.EOF.
func (ch *Channel) ReadAt(p []byte, offset int64) (int, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if !ch.readable {
		return 0, newError(ErrAccessDenied, "channel is not readable", "")
	}
	if err := ch.checkOpen(offset); err != nil {
		return 0, err
	}

	n := ch.file.readAt(p, offset)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes at an absolute offset without moving the cursor,
// zero-filling any gap past the current end.
func (ch *Channel) WriteAt(p []byte, offset int64) (int, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if !ch.writable {
		return 0, newError(ErrAccessDenied, "channel is not writable", "")
	}
	if err := ch.checkOpen(offset); err != nil {
		return 0, err
	}
	return ch.file.writeAt(p, offset), nil
}

// Seek moves the cursor. Implements io.Seeker; a resulting negative
// position fails with ErrInvalidArgument.
func (ch *Channel) Seek(offset int64, whence int) (int64, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if err := ch.checkOpen(0); err != nil {
		return 0, err
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = ch.pos + offset
	case io.SeekEnd:
		next = ch.file.size() + offset
	default:
		return 0, newError(ErrInvalidArgument, "invalid seek whence", "")
	}
	if next < 0 {
		return 0, newError(ErrInvalidArgument, "negative position", "")
	}
	ch.pos = next
	return next, nil
}

// Size returns the file's current content length.
func (ch *Channel) Size() (int64, error) {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if err := ch.checkOpen(0); err != nil {
		return 0, err
	}
	return ch.file.size(), nil
}

// Truncate shrinks the file to size. Growing is a no-op, matching
// channel truncation semantics; the cursor is clamped to the new end.
func (ch *Channel) Truncate(size int64) error {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if !ch.writable {
		return newError(ErrAccessDenied, "channel is not writable", "")
	}
	if err := ch.checkOpen(size); err != nil {
		return err
	}

	if size < ch.file.size() {
		ch.file.truncate(size)
	}
	if ch.pos > size {
		ch.pos = size
	}
	return nil
}

// Close closes the channel and releases every region lock it still
// holds. Closing twice is a no-op.
func (ch *Channel) Close() error {
	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if ch.closed {
		return nil
	}
	ch.closed = true

	for _, lock := range ch.locks {
		lock.invalidate()
	}
	ch.locks = nil
	return nil
}

// ============================================================================
// Bulk transfer
// ============================================================================

// lockFilePair acquires the mutexes of two files in a globally consistent
// order — ascending node identity — so opposite-direction transfers
// between the same two files can never deadlock. Returns the matching
// unlock function.
func lockFilePair(a, b *File) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if bytes.Compare(b.id[:], a.id[:]) < 0 {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// TransferTo moves up to count bytes from this channel's cursor into dst.
//
// When dst is another engine channel the bytes are spliced directly
// between the two backing sequences under both file mutexes; otherwise
// the copy falls back to chunked buffering. The amount moved is
// min(count, bytes available at the source cursor); zero is a valid,
// non-error result.
func (ch *Channel) TransferTo(count int64, dst io.Writer) (int64, error) {
	if count < 0 {
		return 0, newError(ErrInvalidArgument, "negative count", "")
	}
	if native, ok := dst.(*Channel); ok {
		return ch.spliceTo(count, native)
	}
	return ch.copyTo(count, dst)
}

// TransferFrom moves up to count bytes from src into this channel's
// cursor position. Engine-native sources are spliced; foreign readers are
// drained in chunks until count bytes arrived or the source is exhausted.
func (ch *Channel) TransferFrom(src io.Reader, count int64) (int64, error) {
	if count < 0 {
		return 0, newError(ErrInvalidArgument, "negative count", "")
	}
	if native, ok := src.(*Channel); ok {
		return native.spliceTo(count, ch)
	}
	return ch.copyFrom(src, count)
}

// spliceTo is the native fast path: a direct sequence copy from src's
// cursor to dst's cursor with both files locked in identity order.
func (src *Channel) spliceTo(count int64, dst *Channel) (int64, error) {
	unlock := lockFilePair(src.file, dst.file)
	defer unlock()

	if !src.readable {
		return 0, newError(ErrAccessDenied, "source channel is not readable", "")
	}
	if !dst.writable {
		return 0, newError(ErrAccessDenied, "destination channel is not writable", "")
	}
	if err := src.checkOpen(0); err != nil {
		return 0, err
	}
	if err := dst.checkOpen(0); err != nil {
		return 0, err
	}

	available := src.file.size() - src.pos
	if available < 0 {
		available = 0
	}
	n := count
	if available < n {
		n = available
	}
	if n == 0 {
		return 0, nil
	}

	if dst.append {
		dst.pos = dst.file.size()
	}
	dst.file.writeAt(src.file.data[src.pos:src.pos+n], dst.pos)
	src.file.touchAccess()
	src.pos += n
	dst.pos += n
	return n, nil
}

// copyTo is the foreign fallback for TransferTo: chunked buffer copy from
// the source cursor into an arbitrary io.Writer.
func (src *Channel) copyTo(count int64, dst io.Writer) (int64, error) {
	buf := make([]byte, src.bufSize)
	var moved int64

	for moved < count {
		chunk := int64(len(buf))
		if remaining := count - moved; remaining < chunk {
			chunk = remaining
		}

		src.file.mu.Lock()
		if !src.readable {
			src.file.mu.Unlock()
			return moved, newError(ErrAccessDenied, "source channel is not readable", "")
		}
		if err := src.checkOpen(0); err != nil {
			src.file.mu.Unlock()
			return moved, err
		}
		n := src.file.readAt(buf[:chunk], src.pos)
		src.pos += int64(n)
		src.file.mu.Unlock()

		if n == 0 {
			break
		}
		written, err := dst.Write(buf[:n])
		moved += int64(written)
		if err != nil {
			return moved, err
		}
		if written < n {
			return moved, io.ErrShortWrite
		}
	}
	return moved, nil
}

// copyFrom is the foreign fallback for TransferFrom: chunked buffer copy
// from an arbitrary io.Reader into the destination cursor.
func (dst *Channel) copyFrom(src io.Reader, count int64) (int64, error) {
	buf := make([]byte, dst.bufSize)
	var moved int64

	for moved < count {
		chunk := int64(len(buf))
		if remaining := count - moved; remaining < chunk {
			chunk = remaining
		}

		n, readErr := src.Read(buf[:chunk])
		if n > 0 {
			dst.file.mu.Lock()
			if !dst.writable {
				dst.file.mu.Unlock()
				return moved, newError(ErrAccessDenied, "destination channel is not writable", "")
			}
			if err := dst.checkOpen(0); err != nil {
				dst.file.mu.Unlock()
				return moved, err
			}
			if dst.append {
				dst.pos = dst.file.size()
			}
			dst.file.writeAt(buf[:n], dst.pos)
			dst.pos += int64(n)
			dst.file.mu.Unlock()
			moved += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return moved, readErr
		}
	}
	return moved, nil
}
