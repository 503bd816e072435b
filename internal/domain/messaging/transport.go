package messaging

import (
	"context"
	"fmt"
)

// Receipt is what the transport hands back for an accepted message.
type Receipt struct {
	ID     string // provider message id (Twilio SID, Telegram message id)
	Status string // provider status at acceptance, e.g. "queued"
}

// Transport defines an outbound messaging channel.
// This keeps the scheduler independent of any specific provider SDK.
type Transport interface {
	Send(ctx context.Context, destination, body string) (Receipt, error)
	// Ping verifies credentials / reachability without sending anything.
	Ping(ctx context.Context) error
	Name() string
}

// TransportError is returned when the provider rejects a message or cannot be reached.
type TransportError struct {
	Code    string // provider error code, HTTP status, or "NETWORK"
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error %s: %s", e.Code, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

const CodeNetwork = "NETWORK"
const CodeUnknown = "UNKNOWN"
