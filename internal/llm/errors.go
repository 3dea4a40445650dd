package llm

import "fmt"

// ErrorKind clasifica las fallas del proveedor en una taxonomía cerrada.
type ErrorKind string

const (
	ErrKindAuthentication ErrorKind = "authentication"
	ErrKindRateLimited    ErrorKind = "rate_limited"
	ErrKindServer         ErrorKind = "server"
	ErrKindProtocol       ErrorKind = "protocol"
	ErrKindNetwork        ErrorKind = "network"
)

// GatewayError envuelve cualquier falla del proveedor con exactamente un kind.
// El gateway nunca reintenta; la política de retry es del caller.
type GatewayError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("llm %s error: %s", e.Kind, e.Message)
}

func classifyStatus(status int, message string) *GatewayError {
	kind := ErrKindProtocol
	switch {
	case status == 401 || status == 403:
		kind = ErrKindAuthentication
	case status == 429:
		kind = ErrKindRateLimited
	case status >= 500:
		kind = ErrKindServer
	}
	return &GatewayError{Kind: kind, Status: status, Message: message}
}
