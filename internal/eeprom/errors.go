package eeprom

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData reports that part of the requested range was never written.
	// It is a normal outcome, not a fault.
	ErrNoData = errors.New("eeprom: no data")

	// ErrFull reports that the store cannot hold the write, even after
	// compaction, or that the write lies past the capacity.
	ErrFull = errors.New("eeprom: store full")

	// ErrBadAlignment reports a write whose address is not a multiple of
	// the word size.
	ErrBadAlignment = errors.New("eeprom: write not word aligned")

	// ErrFlash matches every *FlashError via errors.Is.
	ErrFlash = errors.New("eeprom: flash operation failed")

	// ErrNotReady is returned by Read and Write before a successful Init or Format.
	ErrNotReady = errors.New("eeprom: store not initialised")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("eeprom: invalid config")

	// errPageFull triggers compaction and never leaves the package.
	errPageFull = errors.New("eeprom: page full")
)

// FlashError wraps a failure of the underlying flash device.
// The operation is not retried by the store.
type FlashError struct {
	Op   string // "read", "write" or "erase"
	Addr uint32
	Err  error
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("eeprom: flash %s at 0x%x: %v", e.Op, e.Addr, e.Err)
}

func (e *FlashError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFlash) true for any FlashError.
func (e *FlashError) Is(target error) bool { return target == ErrFlash }

// Error codes returned by Code.
const (
	CodeOK            = "ok"
	CodeNoData        = "no_data"
	CodeFull          = "full"
	CodeBadAlignment  = "bad_alignment"
	CodeFlash         = "flash"
	CodeNotReady      = "not_ready"
	CodeInvalidConfig = "invalid_config"
	CodeUnknown       = "unknown"
)

// Code maps an error returned by this package to a short stable identifier.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNoData):
		return CodeNoData
	case errors.Is(err, ErrFull):
		return CodeFull
	case errors.Is(err, ErrBadAlignment):
		return CodeBadAlignment
	case errors.Is(err, ErrFlash):
		return CodeFlash
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	default:
		return CodeUnknown
	}
}
