package shared

import "github.com/cockroachdb/errors"

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig      = errors.New("configuration not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Provider errors. Adapters only ever return these (wrapped).
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnrecoverable    = errors.New("unrecoverable provider error")

	// Store errors
	ErrValidation = errors.New("validation error")
	ErrStorage    = errors.New("storage error")

	// Input validation errors
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrMissingArgument     = errors.New("missing required argument")
)

// NotFound marks err (or a new error built from msg when err is nil) as [ErrPlaylistNotFound].
func NotFound(err error, msg string) error {
	if err == nil {
		return errors.Mark(errors.New(msg), ErrPlaylistNotFound)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrPlaylistNotFound)
}

// Unrecoverable marks err (or a new error built from msg when err is nil) as [ErrUnrecoverable].
func Unrecoverable(err error, msg string) error {
	if err == nil {
		return errors.Mark(errors.New(msg), ErrUnrecoverable)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrUnrecoverable)
}

// Storage wraps an engine failure as [ErrStorage]. A nil err stays nil.
func Storage(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return errors.Wrap(err, msg)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrStorage)
}

// Validationf builds a formatted [ErrValidation].
func Validationf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}
