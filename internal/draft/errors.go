package draft

import "errors"

var (
	// ErrNotFound is returned when a project directory does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrAlreadyExists is returned by Create when the target exists and overwrite is not set.
	ErrAlreadyExists = errors.New("project already exists")

	// ErrMalformedInput is returned when a file does not parse as the expected structured data.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnreadable is returned when a project file cannot be read.
	ErrUnreadable = errors.New("file unreadable")

	// ErrUnwritable is returned when a project file cannot be written.
	ErrUnwritable = errors.New("file unwritable")
)
