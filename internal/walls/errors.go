package walls

import (
	"errors"
	"net/http"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers branch with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
)

// User-facing messages.
const (
	MsgInvalidInput    = "Ongeldige invoer."
	MsgEmailTaken      = "E-mail bestaat al."
	MsgBadCredentials  = "Onjuiste inloggegevens."
	MsgSlugTaken       = "Slug bestaat al."
	MsgNotFound        = "Niet gevonden."
	MsgMissingURL      = "URL ontbreekt."
	MsgUnsupportedType = "Onbekend type."
	MsgInternal        = "Er ging iets mis."
)

// Error is a domain error with a message safe to show to the user.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

func conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

func notFound() error { return &Error{Kind: ErrNotFound, Message: MsgNotFound} }

func badCredentials() error { return &Error{Kind: ErrAuth, Message: MsgBadCredentials} }

// StatusCode maps an error to its HTTP status. Anything outside the taxonomy is a 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrAuth):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgInternal
}
