package document

// ReadOptions adjust a single read operation. A nil *ReadOptions uses
// the Config defaults.
type ReadOptions struct {
	// ConsistentRead overrides Config.ConsistentReads for this read.
	ConsistentRead *bool
}

// Consistent returns read options forcing a strongly consistent read.
func Consistent() *ReadOptions {
	t := true
	return &ReadOptions{ConsistentRead: &t}
}

// WriteOptions adjust a single write operation. A nil *WriteOptions
// applies the write unconditionally.
type WriteOptions struct {
	// IfVersion makes the write conditional on the stored document
	// version and requires Config.VersionAttribute. The write fails with
	// ErrConcurrentModification when the stored version differs; zero
	// means the version attribute must not exist yet. When a write also
	// carries an existence guard, a failed condition is reported as
	// ErrConcurrentModification.
	IfVersion *int64
}

// IfVersion returns write options requiring the stored version to equal v.
func IfVersion(v int64) *WriteOptions {
	return &WriteOptions{IfVersion: &v}
}
