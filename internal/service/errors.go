package service

import (
	"fmt"
	"net/http"
)

// Kind вид ошибки сервиса
type Kind int

const (
	KindInvalidLongURL Kind = iota + 1
	KindInvalidShortCode
	KindExpiryTooHigh
	KindInvalidExpiry
	KindShortCodeAlreadyExists
	KindMaxRetriesExceeded
	KindShortCodeNotFound
	KindLinkExpired
	KindDatabaseError
)

// Error ошибка сервиса с сообщением для клиента и HTTP статусом.
// errors.Is сравнивает ошибки по Kind, поэтому обёрнутые копии
// совпадают со своими sentinel-значениями.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// wrap возвращает копию ошибки с причиной
func (e *Error) wrap(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Code: e.Code, Err: err}
}

// Ошибки сервиса
var (
	ErrInvalidLongURL = &Error{
		Kind: KindInvalidLongURL, Message: "Long URL is invalid.", Code: http.StatusBadRequest,
	}
	ErrInvalidShortCode = &Error{
		Kind: KindInvalidShortCode, Message: "Invalid characters in the short code.", Code: http.StatusBadRequest,
	}
	ErrExpiryTooHigh = &Error{
		Kind: KindExpiryTooHigh, Message: "Expiration cannot be greater than 1 year.", Code: http.StatusBadRequest,
	}
	ErrInvalidExpiry = &Error{
		Kind: KindInvalidExpiry, Message: "Expiration cannot be negative.", Code: http.StatusBadRequest,
	}
	ErrShortCodeAlreadyExists = &Error{
		Kind: KindShortCodeAlreadyExists, Message: "Short code already exists.", Code: http.StatusBadRequest,
	}
	ErrMaxRetriesExceeded = &Error{
		Kind: KindMaxRetriesExceeded, Message: "Max retries exceeded.", Code: http.StatusBadRequest,
	}
	ErrShortCodeNotFound = &Error{
		Kind: KindShortCodeNotFound, Message: "Short code not found.", Code: http.StatusNotFound,
	}
	ErrLinkExpired = &Error{
		Kind: KindLinkExpired, Message: "Short link has expired.", Code: http.StatusGone,
	}
	ErrDatabase = &Error{
		Kind: KindDatabaseError, Message: "Database error.", Code: http.StatusFailedDependency,
	}
)

var kindNames = map[Kind]string{
	KindInvalidLongURL:         "invalid_long_url",
	KindInvalidShortCode:       "invalid_short_code",
	KindExpiryTooHigh:          "expiry_too_high",
	KindInvalidExpiry:          "invalid_expiry",
	KindShortCodeAlreadyExists: "short_code_exists",
	KindMaxRetriesExceeded:     "max_retries_exceeded",
	KindShortCodeNotFound:      "not_found",
	KindLinkExpired:            "link_expired",
	KindDatabaseError:          "database_error",
}

// String возвращает машинное имя вида ошибки для ответов API
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
