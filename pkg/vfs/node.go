package vfs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NodeKind identifies the concrete type of a node in the tree.
type NodeKind int

const (
	// KindDirectory is a directory node owning a name → node mapping
	KindDirectory NodeKind = iota

	// KindFile is a regular file node owning a resizable byte sequence
	KindFile

	// KindSymlink is a symbolic link node owning a verbatim target path
	KindSymlink
)

// String returns the symbolic name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Node is a directory, file or symbolic link in the store's tree.
//
// Node Identity:
// Every node carries a random UUID assigned at creation. The identity is
// process-local and never reused; it backs same-node checks and the global
// lock ordering used by two-file bulk transfers. It is deliberately not
// exposed as a file key through the attribute views (nodes have no stable
// cross-restart key).
//
// Ownership Model:
// A directory's mapping owns its children. The child's parent reference is
// non-owning: it only locates the node's current name and parent for
// deletion and path reconstruction, and is cleared when the node is
// detached. A detached node stays fully functional for any handle opened
// before its removal (unlink-while-open semantics); it becomes garbage
// only when the last handle goes away.
//
// Thread Safety:
// Directory and symlink metadata is guarded by the store-wide mutex. File
// metadata, content and the region lock table are guarded by the file's own
// mutex; when both are needed the store mutex is always acquired first.
type Node interface {
	// ID returns the node's process-local identity.
	ID() uuid.UUID

	// Kind returns the concrete node type.
	Kind() NodeKind

	// meta exposes the shared metadata block. Callers must hold the
	// appropriate mutex (store-wide, plus the file mutex for files).
	meta() *nodeMeta

	// copyNode produces a detached copy following the polymorphic copy
	// contract: directories copy shallow (empty), files deep-copy their
	// bytes, symlinks copy the target string. When withAttributes is
	// false the copy gets fresh timestamps and cleared flags.
	copyNode(withAttributes bool) Node
}

// nodeMeta is the metadata block shared by all node types.
type nodeMeta struct {
	id uuid.UUID

	created  time.Time
	modified time.Time
	accessed time.Time

	readOnly bool
	hidden   bool

	// parent and name locate the node's current directory entry.
	// Both are zero for the root and for detached nodes. For files with
	// multiple hard links they track the entry the node was most recently
	// inserted under.
	parent *Directory
	name   string
}

// newNodeMeta initializes shared metadata with fresh timestamps.
func newNodeMeta() nodeMeta {
	now := time.Now()
	return nodeMeta{
		id:       uuid.New(),
		created:  now,
		modified: now,
		accessed: now,
	}
}

func (m *nodeMeta) touchAccess() { m.accessed = time.Now() }

func (m *nodeMeta) touchModify() {
	now := time.Now()
	m.modified = now
	m.accessed = now
}

func (m *nodeMeta) detach() {
	m.parent = nil
	m.name = ""
}

func (m *nodeMeta) attach(p *Directory, name string) {
	m.parent = p
	m.name = name
}

// resetAttributes gives the metadata fresh creation defaults. Used by
// copy-without-attributes.
func (m *nodeMeta) resetAttributes() {
	now := time.Now()
	m.created = now
	m.modified = now
	m.accessed = now
	m.readOnly = false
	m.hidden = false
}

// copyAttributesFrom carries timestamps and flags over from src.
func (m *nodeMeta) copyAttributesFrom(src *nodeMeta) {
	m.created = src.created
	m.modified = src.modified
	m.accessed = src.accessed
	m.readOnly = src.readOnly
	m.hidden = src.hidden
}

// ============================================================================
// Directory
// ============================================================================

// Directory is a node owning a name → child mapping.
//
// Names are unique within a directory. Listing order is lexicographic by
// name, which keeps iteration deterministic and independent of insertion
// order. A directory is non-empty iff its mapping is non-empty; non-empty
// directories cannot be deleted, overwritten or moved over.
type Directory struct {
	nodeMeta
	children map[string]Node
}

func newDirectory() *Directory {
	return &Directory{
		nodeMeta: newNodeMeta(),
		children: make(map[string]Node),
	}
}

// ID returns the node's process-local identity.
func (d *Directory) ID() uuid.UUID { return d.id }

// Kind returns KindDirectory.
func (d *Directory) Kind() NodeKind { return KindDirectory }

func (d *Directory) meta() *nodeMeta { return &d.nodeMeta }

// isEmpty reports whether the directory has no entries.
// Callers must hold the store mutex.
func (d *Directory) isEmpty() bool { return len(d.children) == 0 }

// copyNode produces an empty directory: copying never copies children
// (shallow-copy contract).
func (d *Directory) copyNode(withAttributes bool) Node {
	dup := newDirectory()
	if withAttributes {
		dup.copyAttributesFrom(&d.nodeMeta)
	}
	return dup
}

// ============================================================================
// File
// ============================================================================

// File is a node owning a resizable byte sequence and, lazily, a region
// lock table.
//
// Content is addressed by 0-based byte offset; writing past the current
// length zero-fills the gap. The file's mutex guards content, metadata and
// the lock table, independently of every other file, so I/O on distinct
// files never contends.
type File struct {
	nodeMeta

	// mu guards data, the lock table and the file's metadata times.
	// Lock order when combined with the store mutex: store first.
	mu    sync.Mutex
	data  []byte
	locks *regionLockTable
}

func newFile() *File {
	return &File{nodeMeta: newNodeMeta()}
}

// ID returns the node's process-local identity.
func (f *File) ID() uuid.UUID { return f.id }

// Kind returns KindFile.
func (f *File) Kind() NodeKind { return KindFile }

func (f *File) meta() *nodeMeta { return &f.nodeMeta }

// size returns the logical content length. Callers must hold f.mu.
func (f *File) size() int64 { return int64(len(f.data)) }

// lockTable returns the file's region lock table, materializing it on
// first use. Callers must hold f.mu.
func (f *File) lockTable() *regionLockTable {
	if f.locks == nil {
		f.locks = &regionLockTable{}
	}
	return f.locks
}

// writeAt copies p into the content at the given offset, growing and
// zero-filling as needed, and touches mtime/atime. Callers must hold f.mu.
func (f *File) writeAt(p []byte, offset int64) int {
	end := offset + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[offset:], p)
	f.touchModify()
	return len(p)
}

// readAt copies content from the given offset into p and touches atime.
// Returns the number of bytes copied; zero means offset is at or past the
// end. Callers must hold f.mu.
func (f *File) readAt(p []byte, offset int64) int {
	f.touchAccess()
	if offset >= int64(len(f.data)) {
		return 0
	}
	return copy(p, f.data[offset:])
}

// truncate resizes the content, zero-filling on growth, and touches
// mtime/atime. Callers must hold f.mu.
func (f *File) truncate(size int64) {
	switch {
	case size < int64(len(f.data)):
		f.data = f.data[:size:size]
	case size > int64(len(f.data)):
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	f.touchModify()
}

// copyNode deep-copies the byte sequence.
func (f *File) copyNode(withAttributes bool) Node {
	f.mu.Lock()
	defer f.mu.Unlock()

	dup := newFile()
	dup.data = make([]byte, len(f.data))
	copy(dup.data, f.data)
	if withAttributes {
		dup.copyAttributesFrom(&f.nodeMeta)
	}
	return dup
}

// ============================================================================
// Symlink
// ============================================================================

// Symlink is a node owning a target path string.
//
// The target is stored verbatim at creation time, never normalized.
// Resolution happens relative to the link's own location unless the target
// is absolute, and is bounded by the store's maximum link depth.
type Symlink struct {
	nodeMeta
	target string
}

func newSymlink(target string) *Symlink {
	return &Symlink{nodeMeta: newNodeMeta(), target: target}
}

// ID returns the node's process-local identity.
func (l *Symlink) ID() uuid.UUID { return l.id }

// Kind returns KindSymlink.
func (l *Symlink) Kind() NodeKind { return KindSymlink }

func (l *Symlink) meta() *nodeMeta { return &l.nodeMeta }

// Target returns the verbatim target path stored at creation time.
func (l *Symlink) Target() string { return l.target }

// copyNode copies the target string.
func (l *Symlink) copyNode(withAttributes bool) Node {
	dup := newSymlink(l.target)
	if withAttributes {
		dup.copyAttributesFrom(&l.nodeMeta)
	}
	return dup
}
