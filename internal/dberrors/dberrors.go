// Package dberrors defines the discriminated error kinds surfaced by the
// storage engine's core layers (pagestore, btree, catalog, engine).
package dberrors

import "github.com/pkg/errors"

// Sentinel kinds. Each is wrapped via Wrap/Wrapf at the point of failure so
// callers can errors.Is against a kind while %+v still yields a stack trace.
var (
	ErrIO           = errors.New("io error")
	ErrCorruptIndex = errors.New("corrupt index")
	ErrSchema       = errors.New("schema error")
	ErrNoSuchTable  = errors.New("no such table")
	ErrNoSuchColumn = errors.New("no such column")
	ErrNoPrimaryKey = errors.New("no primary key")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrOutOfRange   = errors.New("integer literal out of range")
)

// IOError wraps a filesystem failure with the path that caused it, so
// callers can report which file an I/O failure touched.
type IOError struct {
	Path   string
	Action string
	Cause  error
}

func (e *IOError) Error() string {
	return errors.Wrapf(e.Cause, "%s %q", e.Action, e.Path).Error()
}

func (e *IOError) Unwrap() error { return ErrIO }

// WrapIO builds an IOError for a failed filesystem action.
func WrapIO(cause error, action, path string) error {
	if cause == nil {
		return nil
	}
	return &IOError{Path: path, Action: action, Cause: cause}
}

// Is reports whether err is (or wraps) kind, delegating to errors.Is so
// sentinel comparisons work through the Wrap/Wrapf chain.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
