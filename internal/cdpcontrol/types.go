package cdpcontrol

import (
	"errors"
	"fmt"
)

const (
	CodeValidation       = "VALIDATION"
	CodePageNotFound     = "PAGE_NOT_FOUND"
	CodeElementNotFound  = "ELEMENT_NOT_FOUND"
	CodeEvalFailure      = "EVAL_FAILURE"
	CodeEvalTimeout      = "EVAL_TIMEOUT"
	CodeCDPUnavailable   = "CDP_UNAVAILABLE"
	CodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// HasCode reports whether err is a CodedError carrying code.
func HasCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// ElementNotFound builds the error drivers return when a locator matches
// nothing yet.
func ElementNotFound(loc Locator) error {
	return newError(CodeElementNotFound, "no element matches "+loc.String(), nil)
}

// IsElementNotFound reports whether err means the locator matched nothing.
func IsElementNotFound(err error) bool {
	return HasCode(err, CodeElementNotFound)
}

// PageInfo describes the browser tab being driven.
type PageInfo struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}
