package gridcache

import (
	"errors"
	"fmt"
)

var (
	// ErrCache matches every *Error via errors.Is.
	ErrCache = errors.New("gridcache: cache operation failed")
	// ErrNilStore is returned by NewCache when no store is given.
	ErrNilStore = errors.New("gridcache: store argument cannot be nil")
	// ErrEmptyKey is the cause of a Put with an empty key.
	ErrEmptyKey = errors.New("gridcache: empty key")
)

// Error is the single failure kind surfaced by Cache and Directory.
// Engine specific failures are available through Unwrap.
type Error struct {
	Op    string // get, put, remove, clear, size, keys, values, getCache, init
	Cache string
	Key   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Cache != "" && e.Key != "":
		return fmt.Sprintf("gridcache: %s %q in cache [%s]: %v", e.Op, e.Key, e.Cache, e.Err)
	case e.Cache != "":
		return fmt.Sprintf("gridcache: %s on cache [%s]: %v", e.Op, e.Cache, e.Err)
	default:
		return fmt.Sprintf("gridcache: %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrCache }

// wrapErr returns err unchanged if it already is an *Error so that nested
// calls (Put reading through Get) keep the innermost operation.
func wrapErr(op, cache, key string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Op: op, Cache: cache, Key: key, Err: err}
}
