package flash

import (
	"errors"
	"fmt"
)

// Erased is the value of every byte of a freshly erased unit.
const Erased byte = 0xFF

var (
	// ErrOutOfBounds is returned for accesses past the end of the device.
	ErrOutOfBounds = errors.New("flash: address out of bounds")

	// ErrUnaligned is returned when Erase is called with an address that is
	// not the start of an erase unit.
	ErrUnaligned = errors.New("flash: erase address not aligned to erase unit")

	// ErrProgram is returned when a write would have to set a bit that is
	// currently cleared. Only an erase can do that.
	ErrProgram = errors.New("flash: write would set cleared bits")
)

// Device is the narrow interface the store consumes.
//
// Write may only clear bits: programming a byte whose current value has a
// cleared bit where the new value has it set is an error. Erase restores the
// whole erase unit starting at addr to Erased.
type Device interface {
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
	Erase(addr uint32) error
}

// checkRange verifies that [addr, addr+n) lies inside a device of the given size.
func checkRange(size, addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(size) {
		return fmt.Errorf("%w: [0x%x, 0x%x) exceeds size 0x%x", ErrOutOfBounds, addr, uint64(addr)+uint64(n), size)
	}
	return nil
}

// program computes the result of writing p over cur in place.
// It returns ErrProgram without touching cur if any byte would need a bit set.
func program(addr uint32, cur, p []byte) error {
	for i, b := range p {
		if b&^cur[i] != 0 {
			return fmt.Errorf("%w: at 0x%x have 0x%02x want 0x%02x", ErrProgram, addr+uint32(i), cur[i], b)
		}
	}
	for i, b := range p {
		cur[i] &= b
	}
	return nil
}

// IsErased reports whether every byte of p reads as erased flash.
func IsErased(p []byte) bool {
	for _, b := range p {
		if b != Erased {
			return false
		}
	}
	return true
}
