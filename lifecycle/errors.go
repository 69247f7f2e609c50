// Package lifecycle holds the state rules shared by equipment, loans and the
// assignment ledger. Nothing here touches storage; the db package applies these
// rules inside its transactions.
package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so callers can map it to a response.
type Kind int

const (
	// KindValidation is a structural invariant violation (missing holder, bad dates, duplicates).
	KindValidation Kind = iota + 1
	// KindBusiness is an illegal transition or a conflicting record.
	KindBusiness
	// KindConfiguration means reference data (Main Store, fallback location) is missing.
	KindConfiguration
	// KindNotFound means the addressed record does not exist.
	KindNotFound
	// KindForbidden means the actor may not touch the record.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindConfiguration:
		return "configuration"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is returned by every workflow operation that rejects a request.
type Error struct {
	Kind Kind
	Msg  string
	// Conflict names the record that blocked the operation, e.g. an overlapping loan.
	Conflict string
}

func (e *Error) Error() string {
	if e.Conflict != "" {
		return fmt.Sprintf("%s (conflicting: %s)", e.Msg, e.Conflict)
	}
	return e.Msg
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Businessf(format string, args ...any) *Error {
	return &Error{Kind: KindBusiness, Msg: fmt.Sprintf(format, args...)}
}

func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Is reports whether err is a domain error of kind k.
func Is(err error, k Kind) bool { return KindOf(err) == k }
