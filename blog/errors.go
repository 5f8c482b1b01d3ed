package blog

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the mutation taxonomy. Concrete errors wrap or match
// these so callers can branch with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrDuplicateSlug = errors.New("duplicate slug")
	ErrNotFound      = errors.New("post not found")
	ErrUpload        = errors.New("upload failed")
)

// ValidationError reports the first input rule that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RateLimitError is returned when an actor exceeded its admission budget.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s: retry after %s", e.Key, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// UploadError wraps a failure of the upload collaborator.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %s: %v", e.Reason, e.Err)
	}
	return "upload failed: " + e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// Kind classifies an error into the mutation taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindRateLimited
	KindDuplicateSlug
	KindNotFound
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationFailure"
	case KindUnauthorized:
		return "Unauthorized"
	case KindRateLimited:
		return "RateLimited"
	case KindDuplicateSlug:
		return "DuplicateSlug"
	case KindNotFound:
		return "NotFound"
	case KindUpload:
		return "UploadFailure"
	default:
		return "Unknown"
	}
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrDuplicateSlug):
		return KindDuplicateSlug
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpload):
		return KindUpload
	}
	return KindUnknown
}

const unexpectedMessage = "Unexpected error while saving post. Please try again."

// Message normalizes err into the single human-readable message shown to an
// author. Errors outside the taxonomy collapse into a generic message so no
// internal detail leaks into the console.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	switch KindOf(err) {
	case KindUnauthorized:
		return "Unauthorized"
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindDuplicateSlug:
		return "A post with this slug already exists."
	case KindNotFound:
		return "The post could not be found."
	case KindUpload:
		return "The image could not be uploaded. Please try again."
	}
	return unexpectedMessage
}
