package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrReverted is wrapped in a RejectedError when a mined transaction
	// has a failed receipt status.
	ErrReverted = errors.New("transaction reverted")

	// ErrUnsupportedAction is returned for action kinds the contract has
	// no entry point for.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// TransportError means no provider or wallet could be reached. It is fatal
// for the current view.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: provider unavailable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the wallet or the contract declined the request. The
// caller can recover by letting the user try again.
type RejectedError struct {
	Op  string
	Err error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: rejected: %v", e.Op, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether err is, or wraps, a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// Node-side failures that lose their rpc.Error type on the way through
// bind (gas estimation wraps with %v) are recognised by message.
var rejectionMarkers = []string{
	"execution reverted",
	"insufficient funds",
	"user denied",
	"user rejected",
	"nonce too low",
	"gas required exceeds",
}

// classify maps an error from go-ethereum onto the client's taxonomy.
// Context cancellation is passed through untouched so callers can tell a
// torn-down view from a failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if IsTransport(err) || IsRejected(err) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RejectedError{Op: op, Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return &RejectedError{Op: op, Err: err}
		}
	}

	return &TransportError{Op: op, Err: err}
}
