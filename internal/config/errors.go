package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine is wrapped by every ParseError.
	ErrMalformedLine = errors.New("malformed config line")

	// ErrCommentNotExportable is returned when a comment is rendered as a CLI flag.
	ErrCommentNotExportable = errors.New("comments cannot be exported to CLI")

	// ErrRootDiskNotFound means the document parsed but has no rootfs or disk-0 volume.
	ErrRootDiskNotFound = errors.New("primary (root) disk (disk-0) could not be found")

	// ErrCloudInitConflict means a cloud-init image was set directly in the config.
	ErrCloudInitConflict = errors.New("cloud-init images must be set with the cloud_init parameter, not in the config")

	// ErrNoFreeSlot means every IDE slot a cloud-init image could use is taken.
	ErrNoFreeSlot = errors.New("cloud-init defined but no free IDE devices are available to mount")
)

// ParseError reports a config line that could not be parsed.
type ParseError struct {
	Line   string // Offending raw line
	Reason string // What was wrong with it
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedLine
}

func newParseError(line, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
