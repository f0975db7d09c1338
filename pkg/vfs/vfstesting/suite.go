// Package vfstesting provides a reusable contract test suite for the
// engine. It tests the store's public contract, not implementation
// details, so embedders that wrap or configure the store differently can
// run the same checks against their own factory.
package vfstesting

import (
	"testing"

	"github.com/marmos91/memvfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a contract test suite for the engine.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &vfstesting.StoreTestSuite{
//	        NewStore: func() *vfs.Store { return vfs.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh store for each
	// test. This ensures test isolation.
	NewStore func() *vfs.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ContentRoundTrip", suite.TestContentRoundTrip)
	t.Run("MovePreservesContent", suite.TestMovePreservesContent)
	t.Run("SymlinkResolution", suite.TestSymlinkResolution)
	t.Run("NonEmptyDirectoryGuard", suite.TestNonEmptyDirectoryGuard)
	t.Run("ReadOnlyEnforcement", suite.TestReadOnlyEnforcement)
	t.Run("RegionLockExclusivity", suite.TestRegionLockExclusivity)
	t.Run("ClearResetsRoot", suite.TestClearResetsRoot)
}

// TestContentRoundTrip verifies that written bytes read back unchanged
// and the reported size matches.
func (suite *StoreTestSuite) TestContentRoundTrip(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.CreateDirectory("/a"))
	require.NoError(t, store.WriteFile("/a/b.txt", []byte("hello"), vfs.WriteFileOptions{}))

	data, err := store.ReadFile("/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	attrs, err := store.Stat("/a/b.txt", true)
	require.NoError(t, err)
	assert.Equal(t, int64(5), attrs.Size)
	assert.True(t, attrs.IsRegularFile())
}

// TestMovePreservesContent verifies that move is a pure remapping.
func (suite *StoreTestSuite) TestMovePreservesContent(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.CreateDirectory("/a"))
	require.NoError(t, store.WriteFile("/a/b.txt", []byte("hello"), vfs.WriteFileOptions{}))
	require.NoError(t, store.CreateDirectory("/c"))

	err := store.Move("/a", "/c", vfs.MoveOptions{ReplaceExisting: true})
	require.NoError(t, err)

	_, err = store.Stat("/a", false)
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))

	data, err := store.ReadFile("/c/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

// TestSymlinkResolution verifies follow and no-follow stat behavior.
func (suite *StoreTestSuite) TestSymlinkResolution(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.CreateDirectory("/a"))
	require.NoError(t, store.WriteFile("/a/b.txt", []byte("hello"), vfs.WriteFileOptions{}))
	require.NoError(t, store.CreateSymlink("/link", "/a/b.txt"))

	data, err := store.ReadFile("/link")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	attrs, err := store.Stat("/link", false)
	require.NoError(t, err)
	assert.True(t, attrs.IsSymbolicLink())

	attrs, err = store.Stat("/link", true)
	require.NoError(t, err)
	assert.True(t, attrs.IsRegularFile())
}

// TestNonEmptyDirectoryGuard verifies populated directories cannot be
// deleted or replaced.
func (suite *StoreTestSuite) TestNonEmptyDirectoryGuard(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.CreateDirectory("/dir"))
	require.NoError(t, store.WriteFile("/dir/file", []byte("x"), vfs.WriteFileOptions{}))

	err := store.Delete("/dir")
	assert.True(t, vfs.IsCode(err, vfs.ErrNotEmpty))

	require.NoError(t, store.CreateDirectory("/other"))
	err = store.Move("/other", "/dir", vfs.MoveOptions{ReplaceExisting: true})
	assert.True(t, vfs.IsCode(err, vfs.ErrNotEmpty))

	require.NoError(t, store.Delete("/dir/file"))
	require.NoError(t, store.Delete("/dir"))
}

// TestReadOnlyEnforcement verifies the read-only flag blocks writes and
// deletes until cleared.
func (suite *StoreTestSuite) TestReadOnlyEnforcement(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.WriteFile("/file", []byte("x"), vfs.WriteFileOptions{}))
	require.NoError(t, store.SetReadOnly("/file", true, true))

	err := store.WriteFile("/file", []byte("y"), vfs.WriteFileOptions{})
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied))

	err = store.Delete("/file")
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied))

	require.NoError(t, store.SetReadOnly("/file", false, true))
	require.NoError(t, store.WriteFile("/file", []byte("y"), vfs.WriteFileOptions{}))
	require.NoError(t, store.Delete("/file"))
}

// TestRegionLockExclusivity verifies overlap rejection and release.
func (suite *StoreTestSuite) TestRegionLockExclusivity(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.WriteFile("/file", make([]byte, 32), vfs.WriteFileOptions{}))

	ch, err := store.OpenChannel("/file", vfs.ChannelOptions{Read: true})
	require.NoError(t, err)
	defer ch.Close()

	first, err := ch.Lock(0, 10, true)
	require.NoError(t, err)

	_, err = ch.Lock(5, 10, true)
	assert.True(t, vfs.IsCode(err, vfs.ErrLockConflict))

	require.NoError(t, first.Release())

	second, err := ch.Lock(5, 10, true)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

// TestClearResetsRoot verifies the explicit reset-to-empty operation.
func (suite *StoreTestSuite) TestClearResetsRoot(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.CreateDirectory("/a"))
	require.NoError(t, store.WriteFile("/b", []byte("x"), vfs.WriteFileOptions{}))

	store.Clear()

	_, err := store.Stat("/a", false)
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))

	listing, err := store.List("/")
	require.NoError(t, err)
	_, ok := listing.Next()
	assert.False(t, ok)
}
