package vfs

import (
	"io"

	"github.com/marmos91/memvfs/internal/logger"
)

// openFile resolves path to a file for content access, optionally
// creating it. Creation is subject to the shared target validation rules
// (write-new-file is a create operation like any other).
//
// Symbolic links are always followed for content access, including on
// create: when path names a dangling link, the new file is created at the
// end of the link chain, not over the link itself. The caller gets a
// resolved *File and holds it directly, so the file keeps working even if
// it is deleted from the tree afterwards.
func (s *Store) openFile(path string, create, createNew, needWrite bool) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, true)
	if err != nil {
		if IsCode(err, ErrNotFound) && (create || createNew) {
			target, err := s.createTarget(path)
			if err != nil {
				return nil, err
			}
			return s.createFile(target)
		}
		return nil, err
	}

	if createNew {
		return nil, newError(ErrAlreadyExists, "file already exists", path)
	}
	file, ok := node.(*File)
	if !ok {
		return nil, newError(ErrIsADirectory, "not a regular file", path)
	}
	if needWrite && file.readOnly {
		return nil, newError(ErrAccessDenied, "file is read-only", path)
	}
	return file, nil
}

// createTarget maps a create request to its landing path: the path
// itself normally, or the end of a symbolic link chain when the final
// component is a dangling link. Store mutex held.
func (s *Store) createTarget(p string) (string, error) {
	hops := 0
	for {
		node, err := s.walk(p, false, &hops)
		if err != nil {
			if IsCode(err, ErrNotFound) {
				return p, nil
			}
			return "", err
		}
		link, ok := node.(*Symlink)
		if !ok {
			return p, nil
		}

		hops++
		if hops > s.cfg.MaxLinkDepth {
			return "", newError(ErrLinkDepthExceeded, "too many levels of symbolic links", link.target)
		}
		p, err = s.linkTarget(link)
		if err != nil {
			return "", err
		}
	}
}

// createFile inserts a fresh empty file at path. Store mutex held.
func (s *Store) createFile(path string) (*File, error) {
	dir, name, err := s.findParent(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.validateTarget(dir, name, path, false); err != nil {
		return nil, err
	}

	file := newFile()
	s.insert(dir, name, file, nil)
	logger.Debug("vfs: created file %s", path)
	return file, nil
}

// ============================================================================
// Bulk content operations
// ============================================================================

// ReadFile returns a copy of the file's entire content (following links).
func (s *Store) ReadFile(path string) ([]byte, error) {
	file, err := s.openFile(path, false, false, false)
	if err != nil {
		return nil, err
	}

	file.mu.Lock()
	defer file.mu.Unlock()
	file.touchAccess()

	data := make([]byte, len(file.data))
	copy(data, file.data)
	return data, nil
}

// WriteFileOptions controls WriteFile behavior.
type WriteFileOptions struct {
	// CreateNew demands that the file does not exist yet; an occupied
	// path fails with ErrAlreadyExists.
	CreateNew bool
}

// WriteFile replaces the file's entire content with data, creating the
// file when missing (subject to target validation).
func (s *Store) WriteFile(path string, data []byte, opts WriteFileOptions) error {
	file, err := s.openFile(path, true, opts.CreateNew, true)
	if err != nil {
		return err
	}

	file.mu.Lock()
	defer file.mu.Unlock()

	file.data = make([]byte, len(data))
	copy(file.data, data)
	file.touchModify()
	return nil
}

// ============================================================================
// Sequential input stream
// ============================================================================

// InputStream is a forward-only reader over a file's content.
//
// The stream supports mark/reset with an unbounded mark: a mark never
// expires regardless of how much is read past it. An optional on-close
// callback lets adapters implement delete-on-close without the engine
// knowing about it. The stream holds the resolved file, so it survives a
// concurrent delete of the path.
type InputStream struct {
	// file's mutex guards pos, markPos and closed.
	file    *File
	pos     int64
	markPos int64
	closed  bool
	onClose func()
}

// OpenInputStream opens a sequential reader on the file at path
// (following links). A nil onClose is allowed.
func (s *Store) OpenInputStream(path string, onClose func()) (*InputStream, error) {
	file, err := s.openFile(path, false, false, false)
	if err != nil {
		return nil, err
	}
	return &InputStream{file: file, onClose: onClose}, nil
}

// Read implements io.Reader against the file content, refreshing the
// file's access time.
func (in *InputStream) Read(p []byte) (int, error) {
	in.file.mu.Lock()
	defer in.file.mu.Unlock()

	if in.closed {
		return 0, newError(ErrInvalidArgument, "stream is closed", "")
	}
	n := in.file.readAt(p, in.pos)
	in.pos += int64(n)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Mark records the current position for a later Reset.
func (in *InputStream) Mark() {
	in.file.mu.Lock()
	defer in.file.mu.Unlock()
	in.markPos = in.pos
}

// Reset rewinds the stream to the most recent mark (the start when no
// mark was ever set).
func (in *InputStream) Reset() error {
	in.file.mu.Lock()
	defer in.file.mu.Unlock()

	if in.closed {
		return newError(ErrInvalidArgument, "stream is closed", "")
	}
	in.pos = in.markPos
	return nil
}

// Close closes the stream and fires the on-close callback once.
func (in *InputStream) Close() error {
	in.file.mu.Lock()
	if in.closed {
		in.file.mu.Unlock()
		return nil
	}
	in.closed = true
	in.file.mu.Unlock()

	if in.onClose != nil {
		in.onClose()
	}
	return nil
}

// ============================================================================
// Sequential output stream
// ============================================================================

// OutputStreamOptions controls OpenOutputStream behavior.
type OutputStreamOptions struct {
	// Append keeps existing content and writes at the end. Without it
	// the content is truncated to empty at open time.
	Append bool

	// CreateNew demands that the file does not exist yet.
	CreateNew bool

	// OnClose is invoked once when the stream closes (adapters use this
	// for delete-on-close).
	OnClose func()
}

// OutputStream is an append-only writer over a file's content. Every
// write lands at the current end of the file.
type OutputStream struct {
	file    *File
	closed  bool
	onClose func()
}

// OpenOutputStream opens a sequential writer on the file at path
// (following links), creating the file when missing.
func (s *Store) OpenOutputStream(path string, opts OutputStreamOptions) (*OutputStream, error) {
	file, err := s.openFile(path, true, opts.CreateNew, true)
	if err != nil {
		return nil, err
	}

	if !opts.Append {
		file.mu.Lock()
		file.truncate(0)
		file.mu.Unlock()
	}
	return &OutputStream{file: file, onClose: opts.OnClose}, nil
}

// Write implements io.Writer, appending at the end of the file.
func (out *OutputStream) Write(p []byte) (int, error) {
	out.file.mu.Lock()
	defer out.file.mu.Unlock()

	if out.closed {
		return 0, newError(ErrInvalidArgument, "stream is closed", "")
	}
	return out.file.writeAt(p, out.file.size()), nil
}

// Close closes the stream and fires the on-close callback once.
func (out *OutputStream) Close() error {
	out.file.mu.Lock()
	if out.closed {
		out.file.mu.Unlock()
		return nil
	}
	out.closed = true
	out.file.mu.Unlock()

	if out.onClose != nil {
		out.onClose()
	}
	return nil
}
