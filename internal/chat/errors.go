package chat

import (
	"errors"
	"fmt"
)

// Kind names one of the failure classes a chat session reports to its caller.
type Kind string

const (
	KindConfiguration     Kind = "configuration_error"
	KindCredentialMissing Kind = "credential_missing"
	KindRemoteCall        Kind = "remote_call_error"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrCredentialMissing = errors.New("credential missing")
	ErrRemoteCall        = errors.New("remote call failed")
)

var kindSentinels = map[Kind]error{
	KindConfiguration:     ErrConfiguration,
	KindCredentialMissing: ErrCredentialMissing,
	KindRemoteCall:        ErrRemoteCall,
}

// Error carries the kind of failure plus its cause. errors.Is matches the kind's sentinel.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf extracts the Kind of err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func configError(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}
