package document

import "errors"

var (
	// ErrMissingRoot is returned when a path expression does not start with $.
	ErrMissingRoot = errors.New("docpath: path must start with $")

	// ErrInvalidPath is returned when a path expression fails to parse.
	ErrInvalidPath = errors.New("docpath: invalid path expression")

	// ErrNotFound is returned when the item, the document attribute or the
	// addressed value doesn't exist.
	ErrNotFound = errors.New("docpath: document object not found")

	// ErrNotAList is returned when appending to a value that is not a list.
	ErrNotAList = errors.New("docpath: append target is not a list")

	// ErrConcurrentModification is returned when a version condition fails
	// or read-modify-write retries are exhausted.
	ErrConcurrentModification = errors.New("docpath: document was modified concurrently")

	// ErrInvalidKey is returned when a key is missing its table or id.
	ErrInvalidKey = errors.New("docpath: key must have a table and an id")

	// ErrInvalidAttribute is returned when the document attribute name is
	// empty or collides with the key or version attribute.
	ErrInvalidAttribute = errors.New("docpath: invalid document attribute")

	// ErrVersioningDisabled is returned when a version feature is used
	// without Config.VersionAttribute set.
	ErrVersioningDisabled = errors.New("docpath: versioning is not configured")
)
