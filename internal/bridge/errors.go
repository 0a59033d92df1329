package bridge

import (
	"errors"
	"fmt"
)

// Operations reported in OpError and LockError.
const (
	OpEstablish  = "establish"
	OpDisconnect = "disconnect"
	OpSend       = "send"
)

var (
	// ErrAlreadyConnected is returned by Establish while a connection is live.
	// The live connection is left untouched.
	ErrAlreadyConnected = errors.New("socket already connected")

	// ErrBridgeFaulted is wrapped by LockError. Once a bridge is faulted every
	// operation fails with it and the process is expected to terminate.
	ErrBridgeFaulted = errors.New("connection bridge faulted")
)

// OpError is a transport failure of one bridge operation. It is never
// fatal: the state machine has already moved to its documented state.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("socket %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// LockError reports that a transport call panicked while the bridge lock
// was held. The handle it was operating on can no longer be trusted.
type LockError struct {
	Op    string
	Value any
}

func (e *LockError) Error() string {
	return fmt.Sprintf("connection bridge faulted during %s: %v", e.Op, e.Value)
}

func (e *LockError) Unwrap() error { return ErrBridgeFaulted }
