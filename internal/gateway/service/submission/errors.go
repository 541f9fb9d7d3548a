package submission

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags every error Submit and RetryUploads can return so callers can
// tell "nothing saved" apart from "saved but incompletely mirrored".
type Kind string

const (
	KindValidation    Kind = "validation"
	KindPersistence   Kind = "persistence"
	KindUpload        Kind = "upload"
	KindPartialUpload Kind = "partial_upload"
)

// Persistence failure reasons.
const (
	ReasonConstraint   = "constraint"
	ReasonConnectivity = "connectivity"
	ReasonNotFound     = "not_found"
)

// ValidationError is returned before any store is contacted.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "required"
	}
	return fmt.Sprintf("validation: %s: %s", reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Kind() Kind { return KindValidation }

// PersistenceError means the record store did not commit; no uploads ran.
type PersistenceError struct {
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence (%s): %v", e.Reason, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Kind() Kind { return KindPersistence }

// UploadError is the failure of a single artifact put.
type UploadError struct {
	Key   string
	Field Field
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Kind() Kind { return KindUpload }

// PartialUploadError reports a committed record whose artifacts were not all
// written. The failed keys can be retried without re-inserting.
type PartialUploadError struct {
	UniverseID int64
	Failed     []*UploadError
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("partial upload for universe %d: failed %s",
		e.UniverseID, strings.Join(e.FailedKeys(), ", "))
}

func (e *PartialUploadError) Kind() Kind { return KindPartialUpload }

func (e *PartialUploadError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		keys = append(keys, f.Key)
	}
	return keys
}

// Unwrap exposes the per-artifact errors to errors.Is / errors.As.
func (e *PartialUploadError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f)
	}
	return out
}

type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the outermost tagged error in err's chain, or ""
// when err carries none.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

func IsPartialUpload(err error) bool {
	var p *PartialUploadError
	return errors.As(err, &p)
}
