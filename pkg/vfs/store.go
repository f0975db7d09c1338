package vfs

import (
	"sort"
	"sync"
	"time"

	"github.com/marmos91/memvfs/internal/logger"
)

// StoreConfig carries the engine's tunables.
type StoreConfig struct {
	// MaxLinkDepth bounds symbolic link resolution. Exceeding the bound
	// fails with ErrLinkDepthExceeded, which is what guarantees
	// termination on link cycles.
	MaxLinkDepth int

	// TransferBufferSize is the chunk size used when a bulk transfer
	// falls back to buffered copying against a foreign endpoint.
	TransferBufferSize int
}

// Default engine tunables.
const (
	DefaultMaxLinkDepth       = 100
	DefaultTransferBufferSize = 64 * 1024
)

// DefaultStoreConfig returns the default engine tunables.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxLinkDepth:       DefaultMaxLinkDepth,
		TransferBufferSize: DefaultTransferBufferSize,
	}
}

// Store is an in-memory virtual filesystem: a single-rooted tree of
// directories, files and symbolic links with POSIX-like semantics and no
// physical storage underneath.
//
// A store is an explicit, independently constructible value. Nothing in
// this package is process-global; embedders that want a singleton make
// that choice themselves.
//
// Concurrency Model:
// Two mutex scopes exist. The store-wide mutex serializes every
// tree-structural operation (lookup, create, delete, move, copy, attribute
// mutation, listing snapshot), making each appear atomic with respect to
// every other. Each file additionally has its own mutex guarding content
// and region locks, so I/O on distinct files proceeds without touching the
// store-wide section. When both scopes are needed the order is always
// store-wide first, then per-file.
//
// All paths passed to store operations must be absolute and normalized;
// separator and "."/".." collapsing is the adapter layer's responsibility.
type Store struct {
	// mu is the store-wide critical section for structural operations.
	mu   sync.Mutex
	cfg  StoreConfig
	root *Directory
}

// New creates an empty store with default configuration.
func New() *Store {
	return NewWithConfig(DefaultStoreConfig())
}

// NewWithConfig creates an empty store with the given tunables. Zero
// values fall back to the defaults.
func NewWithConfig(cfg StoreConfig) *Store {
	defaults := DefaultStoreConfig()
	if cfg.MaxLinkDepth <= 0 {
		cfg.MaxLinkDepth = defaults.MaxLinkDepth
	}
	if cfg.TransferBufferSize <= 0 {
		cfg.TransferBufferSize = defaults.TransferBufferSize
	}

	logger.Debug("vfs: new store (max link depth %d, transfer buffer %d)",
		cfg.MaxLinkDepth, cfg.TransferBufferSize)

	return &Store{
		cfg:  cfg,
		root: newDirectory(),
	}
}

// Clear empties the root directory without destroying the store.
//
// Children removed here follow the usual detach semantics: nodes stay
// functional for handles opened before the reset. Used for test isolation
// and embedding scenarios.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, child := range s.root.children {
		child.meta().detach()
		delete(s.root.children, name)
	}
	s.root.touchModify()
	logger.Debug("vfs: store cleared")
}

// ============================================================================
// Shared mutation helpers (store mutex held)
// ============================================================================

// validateTarget enforces the shared target rules for create, move, copy
// and write-new-file: the parent must be writable, and an occupied name is
// only replaceable when the caller requested replacement and, for
// directories, the occupant is empty.
//
// On success it returns the node currently occupying the target name (nil
// when the name is free) so the caller can detach it atomically with the
// insert.
func (s *Store) validateTarget(dir *Directory, name, fullPath string, replace bool) (Node, error) {
	if dir.readOnly {
		return nil, newError(ErrAccessDenied, "parent directory is read-only", fullPath)
	}

	existing, occupied := dir.children[name]
	if !occupied {
		return nil, nil
	}
	if !replace {
		return nil, newError(ErrAlreadyExists, "file already exists", fullPath)
	}
	if existingDir, ok := existing.(*Directory); ok && !existingDir.isEmpty() {
		return nil, newError(ErrNotEmpty, "directory not empty", fullPath)
	}
	return existing, nil
}

// insert places a node into a directory under the given name, replacing
// (and detaching) any validated occupant.
func (s *Store) insert(dir *Directory, name string, node Node, replaced Node) {
	if replaced != nil {
		replaced.meta().detach()
	}
	dir.children[name] = node
	node.meta().attach(dir, name)
	dir.touchModify()
}

// removeEntry removes a single name from a directory and detaches the
// node it mapped to. For hard-linked files the back-reference is cleared
// only if it pointed at this very entry.
func (s *Store) removeEntry(dir *Directory, name string) Node {
	node := dir.children[name]
	delete(dir.children, name)
	m := node.meta()
	if m.parent == dir && m.name == name {
		m.detach()
	}
	dir.touchModify()
	return node
}

// ============================================================================
// Create operations
// ============================================================================

// CreateDirectory creates an empty directory at the given path.
//
// The parent must exist and be writable. Fails with ErrAlreadyExists when
// a sibling of the same name exists.
func (s *Store) CreateDirectory(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, name, err := s.findParent(path)
	if err != nil {
		return err
	}
	if _, err := s.validateTarget(dir, name, path, false); err != nil {
		return err
	}

	s.insert(dir, name, newDirectory(), nil)
	logger.Debug("vfs: created directory %s", path)
	return nil
}

// CreateSymlink creates a symbolic link at path pointing at target.
//
// The target string is stored verbatim — it is not normalized, validated
// or resolved at creation time, so dangling links are allowed.
func (s *Store) CreateSymlink(path, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, name, err := s.findParent(path)
	if err != nil {
		return err
	}
	if _, err := s.validateTarget(dir, name, path, false); err != nil {
		return err
	}

	s.insert(dir, name, newSymlink(target), nil)
	logger.Debug("vfs: created symlink %s -> %s", path, target)
	return nil
}

// CreateHardLink makes the file at existing available under path as well.
//
// Hard linking reuses the exact same node object: both names share
// identity, content and attributes. Symbolic links in the existing path
// are followed; linking to a directory is rejected with ErrIsADirectory.
func (s *Store) CreateHardLink(path, existing string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(existing, true)
	if err != nil {
		return err
	}
	if node.Kind() == KindDirectory {
		return newError(ErrIsADirectory, "cannot hard-link a directory", existing)
	}

	dir, name, err := s.findParent(path)
	if err != nil {
		return err
	}
	if _, err := s.validateTarget(dir, name, path, false); err != nil {
		return err
	}

	s.insert(dir, name, node, nil)
	logger.Debug("vfs: created hard link %s -> %s", path, existing)
	return nil
}

// ============================================================================
// Delete operations
// ============================================================================

// Delete removes the node at path from its parent directory.
//
// The node itself is never followed: deleting a symlink deletes the link.
// Non-empty directories, the root, read-only nodes and entries inside
// read-only parents are all rejected. The removed node is detached but
// stays alive and fully functional for any already-open handle.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(path)
}

// DeleteIfExists removes the node at path if it exists, reporting whether
// a deletion happened. A missing final segment is not an error; every
// other failure is surfaced unchanged.
func (s *Store) DeleteIfExists(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.deleteLocked(path)
	if err != nil {
		if IsCode(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) deleteLocked(path string) error {
	if path == "/" {
		return newError(ErrAccessDenied, "root cannot be deleted", path)
	}
	dir, name, err := s.findParent(path)
	if err != nil {
		return err
	}
	node, err := s.lookup(dir, name, path)
	if err != nil {
		return err
	}

	if dir.readOnly {
		return newError(ErrAccessDenied, "parent directory is read-only", path)
	}
	if node.meta().readOnly {
		return newError(ErrAccessDenied, "file is read-only", path)
	}
	if child, ok := node.(*Directory); ok && !child.isEmpty() {
		return newError(ErrNotEmpty, "directory not empty", path)
	}

	s.removeEntry(dir, name)
	logger.Debug("vfs: deleted %s", path)
	return nil
}

// ============================================================================
// Move and copy
// ============================================================================

// MoveOptions controls Move behavior.
type MoveOptions struct {
	// ReplaceExisting allows an existing target occupant to be replaced
	// (directories only when empty).
	ReplaceExisting bool
}

// Move atomically relocates the node at source to target.
//
// The operation is a pure remapping: remove-from-source plus
// insert-into-target under one critical section, never a content copy.
// A move onto the identical node is a successful no-op. The root cannot
// be moved. Symbolic links are moved as links, not followed.
func (s *Store) Move(source, target string, opts MoveOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ------------------------------------------------------------------
	// Resolve the source entry (never following a final link)
	// ------------------------------------------------------------------

	if source == "/" {
		return newError(ErrAccessDenied, "root cannot be moved", source)
	}
	sourceDir, sourceName, err := s.findParent(source)
	if err != nil {
		return err
	}
	node, err := s.lookup(sourceDir, sourceName, source)
	if err != nil {
		return err
	}

	// ------------------------------------------------------------------
	// No-op when source and target are the same node
	// ------------------------------------------------------------------

	targetDir, targetName, err := s.findParent(target)
	if err != nil {
		return err
	}
	if occupant, ok := targetDir.children[targetName]; ok && occupant == node {
		return nil
	}

	// A directory must never land inside its own subtree: that would
	// detach it from the root and make its parent chain cyclic. Walk the
	// target parent's ancestors and reject when the source is among them.
	if sourceAsDir, ok := node.(*Directory); ok {
		for d := targetDir; d != nil; d = d.parent {
			if d == sourceAsDir {
				return newError(ErrInvalidArgument, "cannot move a directory into its own subtree", target)
			}
		}
	}

	// ------------------------------------------------------------------
	// Validate both endpoints, then remap atomically
	// ------------------------------------------------------------------

	if sourceDir.readOnly {
		return newError(ErrAccessDenied, "source directory is read-only", source)
	}
	replaced, err := s.validateTarget(targetDir, targetName, target, opts.ReplaceExisting)
	if err != nil {
		return err
	}

	s.removeEntry(sourceDir, sourceName)
	s.insert(targetDir, targetName, node, replaced)
	logger.Debug("vfs: moved %s -> %s", source, target)
	return nil
}

// CopyOptions controls Copy behavior.
type CopyOptions struct {
	// ReplaceExisting allows an existing target occupant to be replaced
	// (directories only when empty).
	ReplaceExisting bool

	// CopyAttributes carries timestamps and flags over to the copy
	// instead of resetting them to creation defaults.
	CopyAttributes bool

	// NoFollowLinks copies a final symbolic link itself instead of the
	// node it resolves to.
	NoFollowLinks bool
}

// Copy duplicates the node at source to target.
//
// The duplication is polymorphic: a directory copy is an empty directory
// (children are never copied), a file copy deep-copies the byte sequence,
// a symlink copy copies the target string. Copying a node onto itself is
// a successful no-op.
func (s *Store) Copy(source, target string, opts CopyOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(source, !opts.NoFollowLinks)
	if err != nil {
		return err
	}

	targetDir, targetName, err := s.findParent(target)
	if err != nil {
		return err
	}
	if occupant, ok := targetDir.children[targetName]; ok && occupant == node {
		return nil
	}

	replaced, err := s.validateTarget(targetDir, targetName, target, opts.ReplaceExisting)
	if err != nil {
		return err
	}

	s.insert(targetDir, targetName, node.copyNode(opts.CopyAttributes), replaced)
	logger.Debug("vfs: copied %s -> %s", source, target)
	return nil
}

// ============================================================================
// Lookup surface
// ============================================================================

// Stat returns an attribute snapshot for the node at path. With
// followLinks unset a final symbolic link is reported as a symlink
// (lstat semantics).
func (s *Store) Stat(path string, followLinks bool) (*FileAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, followLinks)
	if err != nil {
		return nil, err
	}
	return snapshotNode(node), nil
}

// SameNode reports whether two paths resolve (following links) to the
// identical node — the check hard links and no-op detection rely on.
func (s *Store) SameNode(a, b string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodeA, err := s.resolve(a, true)
	if err != nil {
		return false, err
	}
	nodeB, err := s.resolve(b, true)
	if err != nil {
		return false, err
	}
	return nodeA.meta().id == nodeB.meta().id, nil
}

// ReadSymlinkTarget returns the verbatim target of the symbolic link at
// path. Fails with ErrNotALink when the node is not a symlink.
func (s *Store) ReadSymlinkTarget(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, false)
	if err != nil {
		return "", err
	}
	link, ok := node.(*Symlink)
	if !ok {
		return "", newError(ErrNotALink, "not a symbolic link", path)
	}
	link.touchAccess()
	return link.target, nil
}

// AccessMode is a requested access kind for CheckAccess.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExecute
)

// CheckAccess verifies the requested access kinds against the node at
// path (following links). Read and execute are always granted on existing
// nodes; write is denied on read-only nodes.
func (s *Store) CheckAccess(path string, modes ...AccessMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, true)
	if err != nil {
		return err
	}
	for _, mode := range modes {
		if mode == AccessWrite && node.meta().readOnly {
			return newError(ErrAccessDenied, "file is read-only", path)
		}
	}
	return nil
}

// ============================================================================
// Attribute mutation
// ============================================================================

// withNode resolves path and runs fn on the node under the right mutexes:
// the store mutex always, plus the file mutex for files so metadata stays
// consistent with concurrent content I/O.
func (s *Store) withNode(path string, followLinks bool, fn func(Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, followLinks)
	if err != nil {
		return err
	}
	if f, ok := node.(*File); ok {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	fn(node)
	return nil
}

// SetTimes updates the node's timestamps. Nil pointers leave the
// corresponding timestamp unchanged. The mutation affects only the node
// itself and never bubbles up.
func (s *Store) SetTimes(path string, created, modified, accessed *time.Time, followLinks bool) error {
	return s.withNode(path, followLinks, func(n Node) {
		m := n.meta()
		if created != nil {
			m.created = *created
		}
		if modified != nil {
			m.modified = *modified
		}
		if accessed != nil {
			m.accessed = *accessed
		}
	})
}

// SetReadOnly sets or clears the node's read-only flag.
func (s *Store) SetReadOnly(path string, readOnly, followLinks bool) error {
	return s.withNode(path, followLinks, func(n Node) {
		n.meta().readOnly = readOnly
	})
}

// SetHidden sets or clears the node's hidden flag.
func (s *Store) SetHidden(path string, hidden, followLinks bool) error {
	return s.withNode(path, followLinks, func(n Node) {
		n.meta().hidden = hidden
	})
}

// IsHidden reports the hidden flag of the node at path.
func (s *Store) IsHidden(path string, followLinks bool) (bool, error) {
	var hidden bool
	err := s.withNode(path, followLinks, func(n Node) {
		hidden = n.meta().hidden
	})
	return hidden, err
}

// ReadAttributes reads attributes from one view of the node at path.
//
// With no explicit attrs the read is a wildcard returning every attribute
// of the requested view. Asking for an attribute outside the view fails
// with ErrUnsupportedAttribute; the set never silently shrinks.
func (s *Store) ReadAttributes(path string, view AttributeView, followLinks bool, attrs ...Attribute) (map[Attribute]any, error) {
	snap, err := s.Stat(path, followLinks)
	if err != nil {
		return nil, err
	}

	if len(attrs) == 0 {
		attrs = viewAttributes(view)
	}
	values := make(map[Attribute]any, len(attrs))
	for _, attr := range attrs {
		if !attributeInView(view, attr) {
			return nil, newError(ErrUnsupportedAttribute, "attribute "+attr.String()+" not in view", path)
		}
		values[attr] = attributeValue(snap, attr)
	}
	return values, nil
}

// ============================================================================
// Directory listing
// ============================================================================

// Listing is a lazy, one-shot, non-restartable sequence of child path
// entries.
//
// The child name set is snapshotted at first consumption, not at listing
// creation: entries removed before the first Next call are omitted, and
// additions after the snapshot are never observed mid-iteration.
type Listing struct {
	store   *Store
	dir     *Directory
	base    string
	started bool
	entries []string
	pos     int
}

// List prepares a listing of the directory at path (following links).
func (s *Store) List(path string) (*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.resolve(path, true)
	if err != nil {
		return nil, err
	}
	dir, ok := node.(*Directory)
	if !ok {
		return nil, newError(ErrNotADirectory, "not a directory", path)
	}

	base := path
	if base != "/" {
		base += "/"
	}
	return &Listing{store: s, dir: dir, base: base}, nil
}

// Next returns the next child path entry. The boolean is false once the
// listing is exhausted. Entries come back in lexicographic name order.
func (l *Listing) Next() (string, bool) {
	if !l.started {
		l.snapshot()
	}
	if l.pos >= len(l.entries) {
		return "", false
	}
	entry := l.entries[l.pos]
	l.pos++
	return entry, true
}

// snapshot captures the directory's current name set under the store
// mutex. Runs once, on first consumption.
func (l *Listing) snapshot() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	l.started = true
	names := make([]string, 0, len(l.dir.children))
	for name := range l.dir.children {
		names = append(names, name)
	}
	sort.Strings(names)

	l.entries = make([]string, len(names))
	for i, name := range names {
		l.entries[i] = l.base + name
	}
	l.dir.touchAccess()
}
