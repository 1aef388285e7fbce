package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrConnFailed     = errors.New("connection failed")
	ErrNotFound       = errors.New("object not found")
	ErrTimeout        = errors.New("operation timeout")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNotInitialized = errors.New("storage session not initialized")
	ErrConnectivity   = errors.New("storage request failed")
	ErrNotSupported   = errors.New("operation not supported by driver")
)

// ConnectivityError wraps a transport or auth failure returned by a driver. It matches
// ErrConnectivity with errors.Is and unwraps to the original cause.
type ConnectivityError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *ConnectivityError) Error() string {
	target := e.Bucket
	if e.Key != "" {
		target += "/" + e.Key
	}
	if target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// NewConnectivityError wraps err for operation op. A nil err stays nil, and errors that
// already are a ConnectivityError are returned unchanged.
func NewConnectivityError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectivityError{Op: op, Bucket: bucket, Key: key, Err: err}
}

// IsRetryable returns true if error should trigger a retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnFailed) || errors.Is(err, ErrTimeout)
}

// IsCritical returns true if error should stop all operations
func IsCritical(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidConfig)
}

// WrapError adds context to an error
func WrapError(driver, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, driver, err)
}

// ClassifyTransport tags raw network failures so WithRetry can recognize them.
// Errors it does not recognize are returned unchanged.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrConnFailed, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrConnFailed, err)
	}
	return err
}
