package memory

import "errors"

var (
	// ErrEmptyContent indicates Remember was called with blank content.
	ErrEmptyContent = errors.New("memory content is empty")

	// ErrUnknownEntryType indicates an entry type outside the known set.
	ErrUnknownEntryType = errors.New("unknown memory entry type")

	// ErrEmptyUserID indicates a missing user scope.
	ErrEmptyUserID = errors.New("user id is required")
)
