package vfs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	t.Run("formats message and path", func(t *testing.T) {
		err := newError(ErrNotFound, "no such entry", "/a/b")
		assert.Equal(t, "no such entry: /a/b", err.Error())
	})

	t.Run("omits an empty path", func(t *testing.T) {
		err := newError(ErrInvalidArgument, "negative offset", "")
		assert.Equal(t, "negative offset", err.Error())
	})

	t.Run("IsCode matches the code through wrapping", func(t *testing.T) {
		err := newError(ErrLockConflict, "overlap", "")
		wrapped := fmt.Errorf("during transfer: %w", err)

		assert.True(t, IsCode(err, ErrLockConflict))
		assert.True(t, IsCode(wrapped, ErrLockConflict))
		assert.False(t, IsCode(err, ErrNotFound))
		assert.False(t, IsCode(nil, ErrNotFound))
		assert.False(t, IsCode(errors.New("plain"), ErrNotFound))
	})
}

func TestErrorCodeString(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrNotFound:             "NotFound",
		ErrAlreadyExists:        "AlreadyExists",
		ErrNotADirectory:        "NotADirectory",
		ErrIsADirectory:         "IsADirectory",
		ErrNotEmpty:             "NotEmpty",
		ErrNotALink:             "NotALink",
		ErrAccessDenied:         "AccessDenied",
		ErrLinkDepthExceeded:    "LinkDepthExceeded",
		ErrLockConflict:         "LockConflict",
		ErrUnsupportedAttribute: "UnsupportedAttribute",
		ErrInvalidArgument:      "InvalidArgument",
	}
	for code, want := range tests {
		assert.Equal(t, want, code.String())
	}
	assert.Equal(t, "Unknown", ErrorCode(99).String())
}
