package richmenu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindValidation
	KindBadRequest
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindTransport
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindUnauthenticated: "unauthenticated",
	KindValidation:      "validation",
	KindBadRequest:      "bad_request",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindConflict:        "conflict",
	KindRateLimited:     "rate_limited",
	KindTransport:       "transport",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad request: the request payload is malformed or invalid",
	http.StatusUnauthorized:        "Unauthorized: the channel access token is invalid or expired",
	http.StatusForbidden:           "Forbidden: the channel is not authorized for this operation",
	http.StatusNotFound:            "Not found: the rich menu, alias or user does not exist",
	http.StatusConflict:            "Conflict: the resource already exists",
	http.StatusTooManyRequests:     "Rate limited: too many requests, retry later",
	http.StatusInternalServerError: "LINE API internal server error",
}

var statusKinds = map[int]Kind{
	http.StatusBadRequest:      KindBadRequest,
	http.StatusUnauthorized:    KindUnauthenticated,
	http.StatusForbidden:       KindForbidden,
	http.StatusNotFound:        KindNotFound,
	http.StatusConflict:        KindConflict,
	http.StatusTooManyRequests: KindRateLimited,
}

// Error is the single failure type returned by every Client operation.
//
// Local is true when the failure was detected before any request was sent
// (missing credential, oversized image, too many user IDs and so on).
// Detail holds the provider's error body: a json.RawMessage when it parsed
// as JSON, otherwise the raw text.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Detail     interface{}
	Local      bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DetailString renders Detail for display. Empty when there is none.
func (e *Error) DetailString() string {
	switch d := e.Detail.(type) {
	case nil:
		return ""
	case json.RawMessage:
		return string(d)
	case string:
		return d
	default:
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(data)
	}
}

func errUnauthenticated() *Error {
	return &Error{
		Kind:       KindUnauthenticated,
		StatusCode: http.StatusUnauthorized,
		Message:    "channel access token is not configured",
		Local:      true,
	}
}

func errValidation(format string, args ...interface{}) *Error {
	return &Error{
		Kind:       KindValidation,
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf(format, args...),
		Local:      true,
	}
}

func errTransport(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: "LINE API request failed",
		Err:     err,
	}
}

// newStatusError converts a non-2xx response into an Error. A body that is not
// JSON is kept as text; it never produces a second error.
func newStatusError(status int, body []byte) *Error {
	msg, ok := statusMessages[status]
	if !ok {
		msg = fmt.Sprintf("LINE API error (status %d)", status)
	}
	kind, ok := statusKinds[status]
	if !ok {
		kind = KindUnknown
	}

	var detail interface{}
	if len(body) > 0 {
		if json.Valid(body) {
			detail = json.RawMessage(append([]byte(nil), body...))
		} else {
			detail = string(body)
		}
	}

	return &Error{
		Kind:       kind,
		StatusCode: status,
		Message:    msg,
		Detail:     detail,
	}
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf reports the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
