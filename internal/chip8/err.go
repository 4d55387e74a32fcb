package chip8

import (
	"errors"
	"strconv"

	"github.com/djwormlight/chip8-interpreter/internal/translate"
)

var f = translate.From

var (
	ErrCapacityExceeded  = errors.New(f("capacity exceeded"))
	ErrUnknownOpcode     = errors.New(f("unknown opcode"))
	ErrAddressOutOfRange = errors.New(f("address out of range"))
	ErrStateCorrupt      = errors.New(f("state corrupt"))
)

// CapacityError reports a program that does not fit the program region.
type CapacityError struct {
	Requested int
	Available int
}

func (err *CapacityError) Error() string {
	// preformatted so the locale printer does not group digits
	return f("program size (%s) exceeds available memory space (%s)",
		strconv.Itoa(err.Requested), strconv.Itoa(err.Available))
}

func (err *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// OpcodeError is the unimplemented-instruction trap.
type OpcodeError struct {
	Opcode  Opcode
	Address uint16
}

func (err *OpcodeError) Error() string {
	return f("unsupported opcode %04X at %03X", uint16(err.Opcode), err.Address)
}

func (err *OpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}

// AddressError reports a fetch that would read past the end of memory.
type AddressError struct {
	Address uint16
}

func (err *AddressError) Error() string {
	return f("program counter %04X outside memory", err.Address)
}

func (err *AddressError) Unwrap() error {
	return ErrAddressOutOfRange
}
