package vfs

import "time"

// FileAttributes is an immutable point-in-time attribute snapshot of a
// node. Snapshots are materialized on request; later mutations of the node
// are not reflected.
type FileAttributes struct {
	// Kind is the node type the snapshot was taken from
	Kind NodeKind

	// Size is the content length in bytes for files, zero otherwise
	Size int64

	// Created is the node creation time
	Created time.Time

	// Modified is the last content or metadata modification time
	Modified time.Time

	// Accessed is the last observed read access time
	Accessed time.Time

	// ReadOnly reports the node's read-only flag
	ReadOnly bool

	// Hidden reports the node's hidden flag
	Hidden bool

	// FileKey is always nil: nodes have no stable cross-restart identity
	FileKey any
}

// IsDirectory reports whether the snapshot was taken from a directory.
func (a *FileAttributes) IsDirectory() bool { return a.Kind == KindDirectory }

// IsRegularFile reports whether the snapshot was taken from a file.
func (a *FileAttributes) IsRegularFile() bool { return a.Kind == KindFile }

// IsSymbolicLink reports whether the snapshot was taken from a symlink.
func (a *FileAttributes) IsSymbolicLink() bool { return a.Kind == KindSymlink }

// snapshotNode materializes an attribute snapshot. The caller must hold
// the store mutex; the file mutex is taken here for files so the size and
// timestamps form a consistent view.
func snapshotNode(n Node) *FileAttributes {
	var size int64
	if f, ok := n.(*File); ok {
		f.mu.Lock()
		defer f.mu.Unlock()
		size = f.size()
	}

	m := n.meta()
	return &FileAttributes{
		Kind:     n.Kind(),
		Size:     size,
		Created:  m.created,
		Modified: m.modified,
		Accessed: m.accessed,
		ReadOnly: m.readOnly,
		Hidden:   m.hidden,
	}
}

// ============================================================================
// Attribute views
// ============================================================================

// AttributeView selects one of the two logical attribute namespaces.
//
// Attribute names arrive at the adapter boundary as strings; the adapter
// validates them once and hands the core an enumerated view and kind, so
// the core never does stringly-typed dispatch.
type AttributeView int

const (
	// ViewBasic covers timestamps, size, type flags and the (always nil)
	// file key
	ViewBasic AttributeView = iota

	// ViewExtended covers everything in ViewBasic plus the read-only and
	// hidden flags
	ViewExtended
)

// Attribute identifies a single attribute within a view.
type Attribute int

const (
	AttrCreationTime Attribute = iota
	AttrLastModifiedTime
	AttrLastAccessTime
	AttrSize
	AttrIsDirectory
	AttrIsRegularFile
	AttrIsSymbolicLink
	AttrFileKey

	// Extended view only
	AttrReadOnly
	AttrHidden
)

// String returns the attribute's conventional name.
func (a Attribute) String() string {
	switch a {
	case AttrCreationTime:
		return "creationTime"
	case AttrLastModifiedTime:
		return "lastModifiedTime"
	case AttrLastAccessTime:
		return "lastAccessTime"
	case AttrSize:
		return "size"
	case AttrIsDirectory:
		return "isDirectory"
	case AttrIsRegularFile:
		return "isRegularFile"
	case AttrIsSymbolicLink:
		return "isSymbolicLink"
	case AttrFileKey:
		return "fileKey"
	case AttrReadOnly:
		return "readOnly"
	case AttrHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// viewAttributes lists every attribute belonging to a view, in declaration
// order. A wildcard read returns exactly this set.
func viewAttributes(view AttributeView) []Attribute {
	basic := []Attribute{
		AttrCreationTime,
		AttrLastModifiedTime,
		AttrLastAccessTime,
		AttrSize,
		AttrIsDirectory,
		AttrIsRegularFile,
		AttrIsSymbolicLink,
		AttrFileKey,
	}
	if view == ViewExtended {
		return append(basic, AttrReadOnly, AttrHidden)
	}
	return basic
}

// attributeInView reports whether attr belongs to view.
func attributeInView(view AttributeView, attr Attribute) bool {
	if attr == AttrReadOnly || attr == AttrHidden {
		return view == ViewExtended
	}
	return attr >= AttrCreationTime && attr <= AttrFileKey
}

// attributeValue extracts a single attribute from a snapshot via
// exhaustive dispatch.
func attributeValue(snap *FileAttributes, attr Attribute) any {
	switch attr {
	case AttrCreationTime:
		return snap.Created
	case AttrLastModifiedTime:
		return snap.Modified
	case AttrLastAccessTime:
		return snap.Accessed
	case AttrSize:
		return snap.Size
	case AttrIsDirectory:
		return snap.IsDirectory()
	case AttrIsRegularFile:
		return snap.IsRegularFile()
	case AttrIsSymbolicLink:
		return snap.IsSymbolicLink()
	case AttrFileKey:
		return nil
	case AttrReadOnly:
		return snap.ReadOnly
	case AttrHidden:
		return snap.Hidden
	default:
		return nil
	}
}
