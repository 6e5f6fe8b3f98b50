package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Kind sentinels. Every error returned across a package boundary matches
// exactly one of these with errors.Is.
var (
	ErrStatus          = fmt.Errorf("unexpected http status")
	ErrAPI             = fmt.Errorf("api error")
	ErrTransport       = fmt.Errorf("transport failure")
	ErrJSON            = fmt.Errorf("json decode failed")
	ErrNoWindow        = fmt.Errorf("no global window object")
	ErrForbiddenHeader = fmt.Errorf("forbidden header")
	ErrSend            = fmt.Errorf("websocket send failed")
	ErrClosed          = fmt.Errorf("websocket closed")
)

// Usage causes wrapped by ErrSend.
var (
	ErrNotOpen           = fmt.Errorf("websocket is not open")
	ErrBinaryUnsupported = fmt.Errorf("binary messages are not supported by this backend")
)

// Error is the single structured error type of the client. Kind is one of the
// kind sentinels above; Err is the underlying cause, if any.
type Error struct {
	Op      string // operation name (e.g., "native.Do")
	Kind    error
	Status  int    // set for ErrStatus and ErrAPI
	Message string // API message for ErrAPI, detail otherwise
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrStatus:
		return "HTTP Status Code: " + statusText(e.Status)
	case ErrAPI:
		return e.Message
	}

	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// statusText renders the canonical reason phrase, falling back to the number.
func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return strconv.Itoa(status)
}

// NewStatusError reports a non-success response without a decodable API body.
func NewStatusError(status int) *Error {
	return &Error{Kind: ErrStatus, Status: status}
}

// NewAPIError reports a non-success response carrying an API message.
func NewAPIError(status int, message string) *Error {
	return &Error{Kind: ErrAPI, Status: status, Message: message}
}

// NewTransportError reports an I/O or host-transport failure that happened
// before a response was obtained.
func NewTransportError(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrTransport, Err: err}
}

// NewJSONError reports a success body that did not match the requested shape.
func NewJSONError(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrJSON, Err: err}
}

// NewNoWindowError reports that the host has no global fetch capability.
func NewNoWindowError(op string) *Error {
	return &Error{Op: op, Kind: ErrNoWindow}
}

// NewForbiddenHeaderError reports a header the host refuses to send.
func NewForbiddenHeaderError(op, name string, err error) *Error {
	return &Error{Op: op, Kind: ErrForbiddenHeader, Message: name, Err: err}
}

// NewSendError reports a rejected or failed websocket send.
func NewSendError(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrSend, Err: err}
}

// CloseError describes the close handshake that ended a stream.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("close code %d", e.Code)
	}
	return fmt.Sprintf("close code %d: %s", e.Code, e.Reason)
}

// NewClosedError reports the terminal close event of a stream.
func NewClosedError(op string, code int, reason string) *Error {
	return &Error{Op: op, Kind: ErrClosed, Err: &CloseError{Code: code, Reason: reason}}
}

// StatusOf returns the HTTP status carried by a Status or API error.
func StatusOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && (e.Kind == ErrStatus || e.Kind == ErrAPI) {
		return e.Status, true
	}
	return 0, false
}

// ErrorCode is a machine-parseable error category for logs and metrics.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeStatus          ErrorCode = "STATUS"
	CodeAPI             ErrorCode = "API"
	CodeTransport       ErrorCode = "TRANSPORT"
	CodeJSON            ErrorCode = "JSON"
	CodeNoWindow        ErrorCode = "NO_WINDOW"
	CodeForbiddenHeader ErrorCode = "FORBIDDEN_HEADER"
	CodeSend            ErrorCode = "SEND"
	CodeClosed          ErrorCode = "CLOSED"
)

var errorCodeMap = map[error]ErrorCode{
	ErrStatus:          CodeStatus,
	ErrAPI:             CodeAPI,
	ErrTransport:       CodeTransport,
	ErrJSON:            CodeJSON,
	ErrNoWindow:        CodeNoWindow,
	ErrForbiddenHeader: CodeForbiddenHeader,
	ErrSend:            CodeSend,
	ErrClosed:          CodeClosed,
}

// CodeOf returns the ErrorCode for err, or CodeUnknown when err does not
// belong to the taxonomy.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		if code, ok := errorCodeMap[e.Kind]; ok {
			return code
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// IsUsageError reports whether err is a host-precondition violation rather
// than a transient failure.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrNoWindow) || errors.Is(err, ErrForbiddenHeader) || errors.Is(err, ErrSend)
}
