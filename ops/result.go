package ops

import "github.com/jschaf/bibmgr/entry"

// Kind names the operation a Result reports on.
type Kind string

const (
	KindCreate  Kind = "create"
	KindRead    Kind = "read"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindReplace Kind = "replace"
	KindBulk    Kind = "bulk"
)

// Result is the uniform outcome of the CRUD and bulk operations in this
// package: each returns one (bulk operations one per item) instead of a bare
// error, so callers always have a message and affected-count to report even
// on success. ImportFile reports through ImportReport instead.
type Result struct {
	Success  bool
	Kind     Kind
	Key      string
	Message  string
	OldEntry *entry.Entry
	NewEntry *entry.Entry
	Errors   []error
	Affected int
}

func ok(kind Kind, key, message string) Result {
	return Result{Success: true, Kind: kind, Key: key, Message: message, Affected: 1}
}

func failed(kind Kind, key, message string, errs ...error) Result {
	return Result{Success: false, Kind: kind, Key: key, Message: message, Errors: errs}
}
