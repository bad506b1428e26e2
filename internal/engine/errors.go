package engine

import (
	"errors"
	"fmt"
)

// CacheError represents a failure detected during a cache read or
// write. Missing data is NOT an error - it surfaces as Result
// incompleteness; CacheError covers the cases that must reach the
// caller synchronously: a policy function failing, or inputs the engine
// cannot walk.
type CacheError struct {
	// Code identifies the error category.
	Code CacheErrorCode

	// Message is a human-readable description.
	Message string

	// Typename and Field identify the policy site for policy errors.
	Typename string
	Field    string

	// Path is the response path where the failure occurred.
	Path string

	// Err is the underlying error, if any.
	Err error
}

// CacheErrorCode categorizes cache errors.
type CacheErrorCode string

const (
	// ErrCodePolicy indicates a custom read or merge function returned
	// an error. Policy errors propagate to the caller unretried.
	ErrCodePolicy CacheErrorCode = "POLICY_ERROR"

	// ErrCodeShape indicates the selection shape cannot be executed
	// (unbound variable, invalid structure).
	ErrCodeShape CacheErrorCode = "BAD_SHAPE"

	// ErrCodePayload indicates response data that does not line up
	// with the selection shape on the write path.
	ErrCodePayload CacheErrorCode = "BAD_PAYLOAD"

	// ErrCodeKey indicates identity or storage-key derivation failed.
	ErrCodeKey CacheErrorCode = "BAD_KEY"
)

// Error implements the error interface.
func (e *CacheError) Error() string {
	site := ""
	if e.Typename != "" && e.Field != "" {
		site = fmt.Sprintf(" (%s.%s)", e.Typename, e.Field)
	}
	if e.Path != "" {
		site += fmt.Sprintf(" at %s", e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s%s: %v", e.Code, e.Message, site, e.Err)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, site)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsPolicyError reports whether err is a CacheError with ErrCodePolicy.
func IsPolicyError(err error) bool {
	var ce *CacheError
	return errors.As(err, &ce) && ce.Code == ErrCodePolicy
}

func policyErr(typename, field, path string, err error) *CacheError {
	return &CacheError{
		Code:     ErrCodePolicy,
		Message:  "policy function failed",
		Typename: typename,
		Field:    field,
		Path:     path,
		Err:      err,
	}
}

func shapeErr(path string, err error) *CacheError {
	return &CacheError{
		Code:    ErrCodeShape,
		Message: "selection shape cannot be executed",
		Path:    path,
		Err:     err,
	}
}

func payloadErr(field, path string, err error) *CacheError {
	return &CacheError{
		Code:    ErrCodePayload,
		Message: "response does not match selection shape",
		Field:   field,
		Path:    path,
		Err:     err,
	}
}

func keyErr(typename, field, path string, err error) *CacheError {
	return &CacheError{
		Code:     ErrCodeKey,
		Message:  "key derivation failed",
		Typename: typename,
		Field:    field,
		Path:     path,
		Err:      err,
	}
}
