package adapter

import "github.com/pkg/errors"

// Lifecycle error classes. Schemes attach one of these to the leaf cause
// so callers can match either level with errors.Is.
var (
	ErrKeyGeneration = errors.New("key generation failed")
	ErrIssuance      = errors.New("credential issuance failed")
	ErrVerification  = errors.New("verification failed")
	ErrPresentation  = errors.New("presentation issuance failed")
	ErrSerialization = errors.New("key material serialization failed")
)

type lifecycleError struct {
	class error
	cause error
}

func (e *lifecycleError) Error() string {
	return e.class.Error() + ": " + e.cause.Error()
}

func (e *lifecycleError) Unwrap() error { return e.cause }

func (e *lifecycleError) Is(target error) bool { return target == e.class }

// Wrap annotates err with a lifecycle class. It returns nil when err is
// nil so call sites can wrap unconditionally.
func Wrap(class, err error) error {
	if err == nil {
		return nil
	}
	return &lifecycleError{class: class, cause: err}
}
