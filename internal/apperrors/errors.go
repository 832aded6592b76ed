package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindCredential Kind = "credential"
	KindSubmit     Kind = "submit"
	KindPoll       Kind = "poll"
	KindNoResult   Kind = "no_result"
	KindDownload   Kind = "download"
	KindTimeout    Kind = "timeout"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
	KindRateLimit  Kind = "rate_limit"
	KindTransient  Kind = "transient"
)

// Error tags a failure with the stage that produced it.
// Unlike a plain wrapped error, the rendered message is Message followed by the
// cause's text, so callers matching on the remote service's wording still see it.
type Error struct {
	Kind Kind
	// Message is the human-readable prefix. May be empty.
	Message string
	// Cause keeps the original error.
	Cause error
	// Opaque hides the cause text from Error(); the cause is still reachable via Unwrap.
	Opaque bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if e.Cause == nil || e.Opaque {
		if msg == "" {
			return defaultMessage(e.Kind)
		}
		return msg
	}
	cause := e.Cause.Error()
	if msg == "" {
		return cause
	}
	return msg + ": " + cause
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultMessage(kind Kind) string {
	switch kind {
	case KindCredential:
		return "No usable API key is available."
	case KindSubmit:
		return "Video generation request failed."
	case KindPoll:
		return "Checking video generation status failed."
	case KindNoResult:
		return "Failed to generate video: No download link provided by API."
	case KindDownload:
		return "Failed to download video."
	case KindTimeout:
		return "Video generation did not finish in time."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindValidation:
		return "Request validation failed."
	case KindBadRequest:
		return "Request rejected by upstream API."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindTransient:
		return "Temporary upstream error. Please try again."
	default:
		return "Request failed."
	}
}

// New builds a tagged error that renders as "message: cause".
func New(kind Kind, message string, cause error) error {
	return &Error{
		Kind:    kind,
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Safe builds a tagged error whose rendered text never includes the cause.
func Safe(kind Kind, message string, cause error) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = defaultMessage(kind)
	}
	return &Error{
		Kind:    kind,
		Message: msg,
		Cause:   cause,
		Opaque:  true,
	}
}

func Credential(err error) error {
	return New(KindCredential, "", err)
}

func Submit(err error) error {
	return New(KindSubmit, "", err)
}

func Poll(err error) error {
	return New(KindPoll, "", err)
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// PublicMessage returns the text shown to the user for err.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindRateLimit || k == KindTransient)
}
