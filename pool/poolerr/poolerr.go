// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package poolerr classifies operation failures.
//
// Every rejected operation falls into exactly one category:
//   - validation: malformed input, rejected before any state mutation
//   - authorization: caller lacks the required role, never retried automatically
//   - external: a dependency (price feed, staking protocol) failed, the whole
//     operation is aborted atomically
//   - invariant: a protocol invariant would be broken; fatal to the operation
//
// Errors from nested calls propagate unchanged; wrapping only adds context.
package poolerr

import (
	"errors"
	"fmt"
)

type kind int

const (
	kindValidation kind = iota + 1
	kindAuthorization
	kindExternal
	kindInvariant
)

func (k kind) String() string {
	switch k {
	case kindValidation:
		return "validation"
	case kindAuthorization:
		return "authorization"
	case kindExternal:
		return "external dependency"
	case kindInvariant:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Error is a classified operation failure.
type Error struct {
	kind  kind
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

func classify(k kind, cause error) error {
	if cause == nil {
		return nil
	}
	// first classification wins; nested errors pass through unchanged
	var classified *Error
	if errors.As(cause, &classified) {
		return cause
	}
	return &Error{kind: k, cause: cause}
}

func is(err error, k kind) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.kind == k
	}
	return false
}

// Validation creates a validation error.
func Validation(format string, args ...any) error {
	return &Error{kind: kindValidation, cause: fmt.Errorf(format, args...)}
}

// Authorization creates an authorization error.
func Authorization(format string, args ...any) error {
	return &Error{kind: kindAuthorization, cause: fmt.Errorf(format, args...)}
}

// External classifies cause as an external dependency failure.
func External(cause error) error {
	return classify(kindExternal, cause)
}

// Invariant creates an invariant violation error.
func Invariant(format string, args ...any) error {
	return &Error{kind: kindInvariant, cause: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, kindValidation) }

// IsAuthorization reports whether err is an authorization error.
func IsAuthorization(err error) bool { return is(err, kindAuthorization) }

// IsExternal reports whether err is an external dependency error.
func IsExternal(err error) bool { return is(err, kindExternal) }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool { return is(err, kindInvariant) }
