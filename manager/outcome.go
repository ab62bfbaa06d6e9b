package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by commands issued without a connection.
	ErrNotConnected = errors.New("not connected to TV yet")
	// ErrPairingRequired means the device must be paired before connecting.
	ErrPairingRequired = errors.New("PAIRING_REQUIRED")
	// ErrPairingFailed means the pairing handshake could not be started.
	ErrPairingFailed = errors.New("pairing failed")
	// ErrReconnectFailed means the connection could not be restored.
	ErrReconnectFailed = errors.New("failed to reconnect to TV")
	// ErrConnectAborted means the handle was released, or the caller gave
	// up, while a connect was still running.
	ErrConnectAborted = errors.New("connect aborted")
	// ErrSendFailed means a key could not be delivered after all attempts.
	ErrSendFailed = errors.New("failed to send key to TV")
)

// Status is the kind of a connect Outcome.
type Status int

const (
	StatusConnected Status = iota
	StatusPairingRequired
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusPairingRequired:
		return "pairing_required"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of Connect.
type Outcome struct {
	Status Status
	// Reason is set for StatusFailed.
	Reason error
}

func connectedOutcome() Outcome {
	return Outcome{Status: StatusConnected}
}

func pairingOutcome() Outcome {
	return Outcome{Status: StatusPairingRequired}
}

func failedOutcome(reason error) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// Err converts the outcome to an error: nil when connected,
// ErrPairingRequired when pairing is needed, the wrapped reason otherwise.
func (o Outcome) Err() error {
	switch o.Status {
	case StatusConnected:
		return nil
	case StatusPairingRequired:
		return ErrPairingRequired
	default:
		if o.Reason == nil {
			return errors.New("connect failed")
		}
		return fmt.Errorf("connect failed: %w", o.Reason)
	}
}

func (o Outcome) String() string {
	if o.Status == StatusFailed && o.Reason != nil {
		return fmt.Sprintf("%s: %v", o.Status, o.Reason)
	}
	return o.Status.String()
}
