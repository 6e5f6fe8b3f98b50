package srapi

import (
	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
)

// Re-exported domain types for callers of the client.
type (
	Request     = domain.Request
	Response    = domain.Response
	Body        = domain.Body
	BodyKind    = domain.BodyKind
	Message     = domain.Message
	MessageType = domain.MessageType
	WsStream    = domain.WsStream
	WsState     = domain.WsState
	Backend     = domain.Backend
	Error       = domain.Error
	CloseError  = domain.CloseError
	ErrorCode   = domain.ErrorCode
	TLSConfig   = config.TLSConfig
)

// Re-exported constants.
const (
	BodyEmpty      = domain.BodyEmpty
	BodyOwned      = domain.BodyOwned
	BodyHostStream = domain.BodyHostStream

	MessageText   = domain.MessageText
	MessageBinary = domain.MessageBinary

	WsConnecting = domain.WsConnecting
	WsOpen       = domain.WsOpen
	WsClosed     = domain.WsClosed
)

// Re-exported error kinds; match them with errors.Is.
var (
	ErrStatus          = domain.ErrStatus
	ErrAPI             = domain.ErrAPI
	ErrTransport       = domain.ErrTransport
	ErrJSON            = domain.ErrJSON
	ErrNoWindow        = domain.ErrNoWindow
	ErrForbiddenHeader = domain.ErrForbiddenHeader
	ErrSend            = domain.ErrSend
	ErrClosed          = domain.ErrClosed

	ErrNotOpen           = domain.ErrNotOpen
	ErrBinaryUnsupported = domain.ErrBinaryUnsupported
)

// Re-exported constructors and helpers.
var (
	NewRequest    = domain.NewRequest
	NewBody       = domain.NewBody
	EmptyBody     = domain.EmptyBody
	TextMessage   = domain.TextMessage
	BinaryMessage = domain.BinaryMessage
	StatusOf      = domain.StatusOf
	CodeOf        = domain.CodeOf
	IsUsageError  = domain.IsUsageError
)
