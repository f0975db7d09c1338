package vfs

// Region locks.
//
// A region lock is an advisory, non-overlapping byte-range reservation on
// a file. The model is deliberately conservative for a single-process,
// in-memory store: any overlap with a held lock is rejected, even between
// two shared-intent requests — there is no reader/reader sharing. Because
// no external process can hold a lock, a blocking request and a
// non-blocking try are equivalent: both succeed immediately or fail
// immediately with ErrLockConflict.

// regionLockTable is a file's set of held locks. Created lazily on first
// lock request; guarded by the owning file's mutex.
type regionLockTable struct {
	held []*RegionLock
}

// conflicts reports whether [offset, offset+length) overlaps any held
// lock. Zero-length regions overlap nothing.
func (t *regionLockTable) conflicts(offset, length int64) bool {
	if length == 0 {
		return false
	}
	end := offset + length
	for _, lock := range t.held {
		if lock.length == 0 {
			continue
		}
		if offset < lock.offset+lock.length && lock.offset < end {
			return true
		}
	}
	return false
}

// remove drops a lock from the table.
func (t *regionLockTable) remove(lock *RegionLock) {
	for i, held := range t.held {
		if held == lock {
			t.held = append(t.held[:i], t.held[i+1:]...)
			return
		}
	}
}

// RegionLock is a held byte-range reservation. The handle is invalidated
// by Release and by closing the owning channel.
type RegionLock struct {
	file      *File
	owner     *Channel
	offset    int64
	length    int64
	exclusive bool
	valid     bool
}

// Offset returns the first byte of the locked region.
func (l *RegionLock) Offset() int64 { return l.offset }

// Length returns the length of the locked region.
func (l *RegionLock) Length() int64 { return l.length }

// Exclusive reports the exclusivity intent the lock was requested with.
// Intent is recorded but does not relax the overlap rule.
func (l *RegionLock) Exclusive() bool { return l.exclusive }

// Valid reports whether the handle still holds its region.
func (l *RegionLock) Valid() bool {
	l.file.mu.Lock()
	defer l.file.mu.Unlock()
	return l.valid
}

// Release removes the lock from its file's table and invalidates the
// handle. Releasing an already-invalid handle is a no-op.
func (l *RegionLock) Release() error {
	l.file.mu.Lock()
	defer l.file.mu.Unlock()

	if !l.valid {
		return nil
	}
	l.invalidate()
	if l.owner != nil {
		l.owner.forgetLock(l)
	}
	return nil
}

// invalidate drops the lock from the table and marks the handle dead.
// Callers must hold the file mutex.
func (l *RegionLock) invalidate() {
	l.valid = false
	if l.file.locks != nil {
		l.file.locks.remove(l)
	}
}

// forgetLock removes a released lock from the channel's tracking list.
// Callers must hold the file mutex.
func (ch *Channel) forgetLock(lock *RegionLock) {
	for i, held := range ch.locks {
		if held == lock {
			ch.locks = append(ch.locks[:i], ch.locks[i+1:]...)
			return
		}
	}
}

// Lock reserves [offset, offset+length) on the channel's file.
//
// The request fails with ErrLockConflict if the region overlaps any lock
// currently held on the file, regardless of either side's exclusivity
// intent. The lock is released explicitly or when the channel closes.
func (ch *Channel) Lock(offset, length int64, exclusive bool) (*RegionLock, error) {
	if offset < 0 || length < 0 {
		return nil, newError(ErrInvalidArgument, "negative lock range", "")
	}

	ch.file.mu.Lock()
	defer ch.file.mu.Unlock()

	if err := ch.checkOpen(0); err != nil {
		return nil, err
	}

	table := ch.file.lockTable()
	if table.conflicts(offset, length) {
		return nil, newError(ErrLockConflict, "lock region overlaps a held lock", "")
	}

	lock := &RegionLock{
		file:      ch.file,
		owner:     ch,
		offset:    offset,
		length:    length,
		exclusive: exclusive,
		valid:     true,
	}
	table.held = append(table.held, lock)
	ch.locks = append(ch.locks, lock)
	return lock, nil
}

// TryLock is the non-blocking variant of Lock. With no external
// contention the two are equivalent; it exists so adapters can map both
// host API shapes onto the engine.
func (ch *Channel) TryLock(offset, length int64, exclusive bool) (*RegionLock, error) {
	return ch.Lock(offset, length, exclusive)
}
