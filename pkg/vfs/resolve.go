package vfs

import (
	"path"
	"strings"
)

// Path resolution.
//
// All paths entering the store are absolute and normalized: the adapter
// layer collapses "." / ".." and redundant separators before calling in.
// Symbolic link targets are the one exception — they are stored verbatim
// and may be relative or unnormalized, so link resolution cleans the
// joined target before walking it.
//
// Every helper in this file must be called with the store mutex held.

// splitPath validates an absolute, normalized path and returns its
// segments. The root path "/" yields no segments.
func splitPath(p string) ([]string, error) {
	if p == "" || p[0] != '/' {
		return nil, newError(ErrInvalidArgument, "path must be absolute", p)
	}
	if p == "/" {
		return nil, nil
	}
	segments := strings.Split(p[1:], "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return nil, newError(ErrInvalidArgument, "path is not normalized", p)
		}
	}
	return segments, nil
}

// lookup resolves a single name within a directory. A successful lookup
// refreshes the directory's access time (read access is observable).
func (s *Store) lookup(dir *Directory, name, fullPath string) (Node, error) {
	child, ok := dir.children[name]
	if !ok {
		return nil, newError(ErrNotFound, "no such file or directory", fullPath)
	}
	dir.touchAccess()
	return child, nil
}

// walk resolves an absolute, normalized path to a node.
//
// Intermediate symbolic links are always resolved (they must lead to
// directories for the walk to continue); the final segment is resolved
// only when followLast is true. The hop counter is shared across the whole
// resolution so chained and nested links count against one bound.
func (s *Store) walk(p string, followLast bool, hops *int) (Node, error) {
	segments, err := splitPath(p)
	if err != nil {
		return nil, err
	}

	var current Node = s.root
	for _, segment := range segments {
		dir, err := s.asDirectory(current, p, hops)
		if err != nil {
			return nil, err
		}
		current, err = s.lookup(dir, segment, p)
		if err != nil {
			return nil, err
		}
	}

	if followLast {
		if link, ok := current.(*Symlink); ok {
			return s.resolveLink(link, hops)
		}
	}
	return current, nil
}

// asDirectory coerces an intermediate walk node into a directory,
// resolving a symbolic link first when necessary.
func (s *Store) asDirectory(n Node, fullPath string, hops *int) (*Directory, error) {
	if link, ok := n.(*Symlink); ok {
		resolved, err := s.resolveLink(link, hops)
		if err != nil {
			return nil, err
		}
		n = resolved
	}
	dir, ok := n.(*Directory)
	if !ok {
		return nil, newError(ErrNotADirectory, "intermediate path segment is not a directory", fullPath)
	}
	return dir, nil
}

// resolveLink follows a symbolic link chain until a non-link node is
// reached or the hop bound is exceeded.
//
// Each target resolves relative to the link's own containing directory
// unless the target is absolute. A link that was detached from the tree
// has no containing directory and cannot anchor a relative target.
func (s *Store) resolveLink(link *Symlink, hops *int) (Node, error) {
	for {
		*hops++
		if *hops > s.cfg.MaxLinkDepth {
			return nil, newError(ErrLinkDepthExceeded, "too many levels of symbolic links", link.target)
		}

		target, err := s.linkTarget(link)
		if err != nil {
			return nil, err
		}

		resolved, err := s.walk(target, false, hops)
		if err != nil {
			return nil, err
		}
		next, ok := resolved.(*Symlink)
		if !ok {
			return resolved, nil
		}
		link = next
	}
}

// linkTarget computes the absolute path a symbolic link points at: the
// verbatim target joined against the link's containing directory when
// relative, cleaned when absolute. A detached link has no containing
// directory and cannot anchor a relative target.
func (s *Store) linkTarget(link *Symlink) (string, error) {
	target := link.target
	if target == "" {
		return "", newError(ErrNotFound, "symbolic link has an empty target", "")
	}
	if !path.IsAbs(target) {
		parent := link.parent
		if parent == nil {
			return "", newError(ErrNotFound, "symbolic link is detached", target)
		}
		return path.Join(s.nodePath(parent), target), nil
	}
	return path.Clean(target), nil
}

// findParent walks every path segment except the last and returns the
// containing directory together with the final name. The root path has no
// parent and is rejected.
func (s *Store) findParent(p string) (*Directory, string, error) {
	segments, err := splitPath(p)
	if err != nil {
		return nil, "", err
	}
	if len(segments) == 0 {
		return nil, "", newError(ErrInvalidArgument, "root has no parent", p)
	}

	hops := 0
	var current Node = s.root
	for _, segment := range segments[:len(segments)-1] {
		dir, err := s.asDirectory(current, p, &hops)
		if err != nil {
			return nil, "", err
		}
		current, err = s.lookup(dir, segment, p)
		if err != nil {
			return nil, "", err
		}
	}

	dir, err := s.asDirectory(current, p, &hops)
	if err != nil {
		return nil, "", err
	}
	return dir, segments[len(segments)-1], nil
}

// resolve maps a path to its node, following a final symbolic link only
// when followLinks is set. The root path resolves to the root directory
// directly.
func (s *Store) resolve(p string, followLinks bool) (Node, error) {
	hops := 0
	return s.walk(p, followLinks, &hops)
}

// nodePath reconstructs a node's absolute path by climbing the parent
// references up to the root. Only meaningful for attached nodes.
func (s *Store) nodePath(n Node) string {
	var parts []string
	m := n.meta()
	for m.parent != nil {
		parts = append(parts, m.name)
		n = m.parent
		m = n.meta()
	}
	if len(parts) == 0 {
		return "/"
	}
	// Reverse into root-first order.
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}
