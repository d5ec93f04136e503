package document

// Key identifies a document item: the table holding it and the value of
// the key attribute.
type Key struct {
	Table string
	ID    string
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	return k.Table + "/" + k.ID
}
