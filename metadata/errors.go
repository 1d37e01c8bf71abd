package metadata

import "fmt"

// Error types used across the trusted metadata core. Names start with 'Err'
// and each documents which broader category (if any) it is a subset of via
// errors.Is semantics, mirroring the "Repository error" / "Download error"
// grouping used throughout the TUF client workflow.

// ErrMalformedMetadata indicates a parse failure or schema violation: wrong
// _type, unparsable spec_version, missing required field, duplicate
// signature keyids, etc.
type ErrMalformedMetadata struct {
	Msg string
}

func (e ErrMalformedMetadata) Error() string {
	return fmt.Sprintf("malformed metadata: %s", e.Msg)
}

// ErrRepository covers exceptions that originate from the repository's
// state as seen by a client: a missing role entry, a key not in the
// keyring, and so on.
type ErrRepository struct {
	Msg string
}

func (e ErrRepository) Error() string {
	return fmt.Sprintf("repository error: %s", e.Msg)
}

// ErrUnsignedMetadata signals that a metadata object did not carry enough
// valid, distinct-keyid signatures to meet its role's threshold.
type ErrUnsignedMetadata struct {
	Msg string
}

func (e ErrUnsignedMetadata) Error() string {
	return fmt.Sprintf("unsigned metadata: %s", e.Msg)
}

func (e ErrUnsignedMetadata) Is(target error) bool {
	_, ok := target.(ErrUnsignedMetadata)
	return ok
}

// ErrBadVersion signals a monotonicity violation: root must advance by
// exactly one, timestamp/snapshot meta must not go backwards, snapshot
// itself must equal the version timestamp declared.
type ErrBadVersion struct {
	Msg string
}

func (e ErrBadVersion) Error() string {
	return fmt.Sprintf("bad version: %s", e.Msg)
}

func (e ErrBadVersion) Is(target error) bool {
	_, ok := target.(ErrBadVersion)
	return ok
}

// ErrEqualVersion is a non-fatal signal: the new timestamp's version
// exactly equals the currently trusted one. Callers treat it as a no-op.
type ErrEqualVersion struct {
	Msg string
}

func (e ErrEqualVersion) Error() string {
	return fmt.Sprintf("equal version: %s", e.Msg)
}

func (e ErrEqualVersion) Is(target error) bool {
	_, ok := target.(ErrEqualVersion)
	return ok
}

// ErrExpiredMetadata indicates a role's expires instant has passed the
// reference time used for the check.
type ErrExpiredMetadata struct {
	Msg string
}

func (e ErrExpiredMetadata) Error() string {
	return fmt.Sprintf("expired metadata: %s", e.Msg)
}

func (e ErrExpiredMetadata) Is(target error) bool {
	_, ok := target.(ErrExpiredMetadata)
	return ok
}

// ErrLengthOrHashMismatch indicates declared length or hashes did not
// match the bytes actually received.
type ErrLengthOrHashMismatch struct {
	Msg string
}

func (e ErrLengthOrHashMismatch) Error() string {
	return fmt.Sprintf("length/hash mismatch: %s", e.Msg)
}

func (e ErrLengthOrHashMismatch) Is(target error) bool {
	_, ok := target.(ErrLengthOrHashMismatch)
	return ok
}

// ErrDownload is a transport-level failure: timeout, connection reset,
// non-2xx status that isn't otherwise classified.
type ErrDownload struct {
	Msg string
}

func (e ErrDownload) Error() string {
	return fmt.Sprintf("download error: %s", e.Msg)
}

func (e ErrDownload) Is(target error) bool {
	_, ok := target.(ErrDownload)
	return ok
}

// ErrDownloadLengthMismatch indicates a transfer was aborted because it
// would have exceeded its configured length ceiling.
type ErrDownloadLengthMismatch struct {
	Msg string
}

func (e ErrDownloadLengthMismatch) Error() string {
	return fmt.Sprintf("download length mismatch: %s", e.Msg)
}

func (e ErrDownloadLengthMismatch) Is(target error) bool {
	switch target.(type) {
	case ErrDownload, ErrDownloadLengthMismatch:
		return true
	}
	return false
}

// ErrDownloadHTTP is raised by Fetcher implementations for HTTP-layer
// failures; it carries the status code so callers (the fetcher's retry
// policy) can distinguish "no such version" (403/404) from a real outage.
type ErrDownloadHTTP struct {
	StatusCode int
	URL        string
}

func (e ErrDownloadHTTP) Error() string {
	return fmt.Sprintf("failed to download %s: http status %d", e.URL, e.StatusCode)
}

func (e ErrDownloadHTTP) Is(target error) bool {
	switch target.(type) {
	case ErrDownload, ErrDownloadHTTP:
		return true
	}
	return false
}

// ErrPersist indicates local storage failed to durably write metadata or
// target bytes.
type ErrPersist struct {
	Msg string
}

func (e ErrPersist) Error() string {
	return fmt.Sprintf("persist error: %s", e.Msg)
}

// ErrRuntime signals a precondition violation in the caller's use of the
// API, e.g. updating snapshot before timestamp has been loaded.
type ErrRuntime struct {
	Msg string
}

func (e ErrRuntime) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Msg)
}

// ErrValue signals caller API misuse: a malformed argument, a call made
// without a required prerequisite being configured.
type ErrValue struct {
	Msg string
}

func (e ErrValue) Error() string {
	return fmt.Sprintf("value error: %s", e.Msg)
}

// ErrType signals a call made against the wrong metadata variant, e.g.
// VerifyDelegate invoked on neither Root nor Targets metadata.
type ErrType struct {
	Msg string
}

func (e ErrType) Error() string {
	return fmt.Sprintf("type error: %s", e.Msg)
}
