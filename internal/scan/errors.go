package scan

import (
	"errors"
	"fmt"
)

// GenericFailureCode is the result code reported for every failure that has
// no HTTP status of its own.
const GenericFailureCode = 1

// Step names the lifecycle step a scan failed in.
type Step string

const (
	StepRead    Step = "read"
	StepSubmit  Step = "submit"
	StepPoll    Step = "poll"
	StepFetch   Step = "fetch"
	StepPersist Step = "persist"
)

// Kind classifies why a step failed.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindTransport    Kind = "transport"
	KindRejected     Kind = "rejected"
	KindJobFailed    Kind = "job_failed"
	KindPersistence  Kind = "persistence"
	KindTimeout      Kind = "timeout"
	KindCanceled     Kind = "canceled"
)

var (
	ErrInvalidInput    = errors.New("scan source unreadable")
	ErrTransport       = errors.New("scan transport failure")
	ErrRemoteRejection = errors.New("scan request rejected by remote service")
	ErrJobFailed       = errors.New("scan job failed")
	ErrPersistence     = errors.New("scan artifact could not be persisted")
	ErrPollTimeout     = errors.New("scan job did not finish in time")
)

var kindSentinels = map[Kind]error{
	KindInvalidInput: ErrInvalidInput,
	KindTransport:    ErrTransport,
	KindRejected:     ErrRemoteRejection,
	KindJobFailed:    ErrJobFailed,
	KindPersistence:  ErrPersistence,
	KindTimeout:      ErrPollTimeout,
}

// Error is returned by every failing scan operation. RequestID is set on
// every failure that happens after a successful submission.
type Error struct {
	Step       Step
	Kind       Kind
	RequestID  string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("scan %s: %s", e.Step, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" [request %s]", e.RequestID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// Code returns the legacy result code: the raw HTTP status when the remote
// service rejected the call, GenericFailureCode otherwise.
func (e *Error) Code() int {
	if e.Kind == KindRejected && e.StatusCode != 0 {
		return e.StatusCode
	}
	return GenericFailureCode
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var scanErr *Error
	if errors.As(err, &scanErr) {
		return scanErr, true
	}
	return nil, false
}

func withRequestID(err error, requestID string) error {
	if scanErr, ok := AsError(err); ok && scanErr.RequestID == "" {
		scanErr.RequestID = requestID
	}
	return err
}
