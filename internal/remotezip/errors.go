package remotezip

import "errors"

// Failure classes for one extraction attempt. Anything not wrapping one of
// these (network errors, timeouts, non-2xx responses) is transient; callers
// decide whether to move on to another candidate URL.
var (
	// ErrNotFound means the archive is readable but does not contain the
	// requested entry.
	ErrNotFound = errors.New("entry not found in archive")

	// ErrUnsupportedFormat means the archive uses a feature this client
	// does not handle (zip64 directories, unknown compression methods).
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrCorrupt means a structurally required signature or size did not
	// check out. The archive at this URL is unusable.
	ErrCorrupt = errors.New("corrupt archive")
)
