// Package document provides path-addressed access to JSON documents
// stored in DynamoDB item attributes.
//
// A document is any JSON value held in a single item attribute. The
// client reads and writes parts of it addressed by path expressions,
// fetching or touching only the smallest enclosing piece the server can
// address.
//
// # Path Expressions
//
// Paths follow the JSONPath syntax of RFC 9535 and must start with $:
//
//	$.store.book[0].title
//	$['store']['book'][0]['title']
//	$.store.book[*].author
//	$..author
//	$.store.book[?(@.price < 10)]
//	$.store.book[1:3]
//	$.store.book.length()
//
// Plain member names and non-negative indexes are served directly by
// DynamoDB document paths. Wildcards, descendants, filters, slices,
// unions and negative indexes are evaluated client-side against the
// smallest document containing them; writes through such paths use a
// read-modify-write.
//
// A trailing .* addresses the container it follows: $.* reads the whole
// document and $.a.* the value of a. A trailing .length() reads the
// size of the addressed value, or of every matched value.
//
// # Operations
//
//   - [Client.Get] reads the addressed value, or every match
//   - [Client.Put] writes a value at the addressed location
//   - [Client.Append] appends to the addressed list
//   - [Client.Delete] removes the addressed value
//   - [Client.Exists] reports whether the path resolves
//   - [Client.Version] reads the stored document version
//
// # Configuration
//
// Use [DefaultConfig] and adjust as needed:
//
//	cfg := document.DefaultConfig()
//	cfg.VersionAttribute = "version" // optimistic locking for read-modify-write
//	client := document.New(dynamodb.NewFromConfig(awscfg), cfg)
//
// With VersionAttribute set, every write bumps the version and
// read-modify-writes are retried up to MaxRMWAttempts when they lose a
// race. Without it, advanced-path writes are last-write-wins.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrMissingRoot] - path doesn't start with $
//   - [ErrInvalidPath] - path fails to parse
//   - [ErrNotFound] - item, attribute or addressed value doesn't exist
//   - [ErrNotAList] - append target is not a list
//   - [ErrConcurrentModification] - version condition failed
package document
