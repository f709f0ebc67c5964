package domain

import "errors"

// ErrGuideNotFound is returned when the guide directory has no guide for the requested ID.
var ErrGuideNotFound = errors.New("guide not found")

// ErrInvalidGuide is returned when a guide definition cannot drive a wizard (e.g. no steps).
var ErrInvalidGuide = errors.New("invalid guide definition")

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrStoreUnavailable marks persistence failures. The wizard keeps running in memory.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrSubmissionFailed is returned when the submission service could not accept the application.
// The session is preserved and the submission may be retried.
var ErrSubmissionFailed = errors.New("submission failed")

// ErrUploadTooLarge is returned when a file exceeds MaxUploadBytes.
var ErrUploadTooLarge = errors.New("file too large")

// ErrUploadTypeNotAllowed is returned when a file extension is outside the field's accept set.
var ErrUploadTypeNotAllowed = errors.New("file type not allowed")

// ErrUnknownField is returned when an answer targets a field the guide does not declare.
var ErrUnknownField = errors.New("unknown field")

// ErrInvalidValue is returned when an answer's shape does not match its field kind.
var ErrInvalidValue = errors.New("invalid value for field kind")

// ErrNotOnLastStep is returned when submit is attempted before reaching the last step.
var ErrNotOnLastStep = errors.New("submit is only allowed from the last step")

// ErrSessionSubmitted is returned when a submitted session is mutated.
var ErrSessionSubmitted = errors.New("session already submitted")

// ErrSubmissionInProgress is returned when a session is mutated while its submission is pending.
var ErrSubmissionInProgress = errors.New("submission in progress")

// ErrSessionClosed is returned when a wizard is used after it was closed.
var ErrSessionClosed = errors.New("session closed")
