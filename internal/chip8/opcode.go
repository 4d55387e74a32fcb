package chip8

import "fmt"

// Opcode is a 16-bit instruction word, fetched big-endian from memory.
type Opcode uint16

// Decode joins two instruction bytes into an Opcode.
func Decode(hi, lo byte) Opcode {
	return Opcode(uint16(hi)<<8 | uint16(lo))
}

// Nibbles splits the opcode into its four 4-bit fields, high first.
func (op Opcode) Nibbles() (a, b, c, d byte) {
	return byte(op >> 12), byte(op>>8) & 0x0F, byte(op>>4) & 0x0F, byte(op) & 0x0F
}

// X is the first register operand (bits 8-11).
func (op Opcode) X() byte { return byte(op>>8) & 0x0F }

// Y is the second register operand (bits 4-7).
func (op Opcode) Y() byte { return byte(op>>4) & 0x0F }

// N is the lowest nibble.
func (op Opcode) N() byte { return byte(op) & 0x0F }

// KK is the 8-bit immediate.
func (op Opcode) KK() byte { return byte(op) }

// NNN is the 12-bit address.
func (op Opcode) NNN() uint16 { return uint16(op) & 0x0FFF }

// Bytes returns the big-endian encoding of op.
func (op Opcode) Bytes() [2]byte {
	return [2]byte{byte(op >> 8), byte(op)}
}

func (op Opcode) String() string {
	return fmt.Sprintf("%04X", uint16(op))
}

// Implemented reports whether ExecuteCycle executes op rather than trapping.
func (op Opcode) Implemented() bool {
	a, b, c, d := op.Nibbles()
	switch a {
	case 0x0:
		return b == 0x0 && c == 0xE && d == 0x0
	case 0x1, 0x3, 0x4, 0x6, 0x7, 0xA, 0xD:
		return true
	case 0x5:
		return d == 0x0
	case 0x8:
		return d <= 0x3
	}
	return false
}
