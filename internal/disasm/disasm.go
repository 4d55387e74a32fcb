// Package disasm turns raw CHIP-8 programs back into assembly text.
//
// Instructions are recognised through the retrogolib CHIP-8 opcode table,
// which covers the full classic instruction set including the forms the
// interpreter core does not execute. Words that decode to no instruction
// are emitted as data.
package disasm

import (
	"fmt"

	chip8cpu "github.com/retroenv/retrogolib/arch/cpu/chip8"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
)

// Instruction is one decoded word of a program.
type Instruction struct {
	Address uint16
	Opcode  chip8.Opcode
	Name    string // empty when the word is not an instruction
	Params  string

	ins *chip8cpu.Instruction
}

// At decodes the word op found at address.
func At(address uint16, op chip8.Opcode) Instruction {
	i := Instruction{Address: address, Opcode: op, ins: lookup(op)}
	if i.ins != nil {
		i.Name = i.ins.Name
		i.Params = operands(op)
	}
	return i
}

// Valid reports whether the word decoded to an instruction.
func (i Instruction) Valid() bool { return i.ins != nil }

// String formats the instruction as "name params", or as a data
// directive for words that are not instructions.
func (i Instruction) String() string {
	if !i.Valid() {
		b := i.Opcode.Bytes()
		return fmt.Sprintf("db $%02X, $%02X", b[0], b[1])
	}
	if i.Params == "" {
		return i.Name
	}
	return i.Name + " " + i.Params
}

// IsJump reports an unconditional jump (1nnn). JP V0 has no static target.
func (i Instruction) IsJump() bool {
	return i.ins == chip8cpu.Jp && uint16(i.Opcode)&0xF000 == 0x1000
}

// IsCall reports a subroutine call (2nnn).
func (i Instruction) IsCall() bool { return i.ins == chip8cpu.Call }

// IsSkip reports a conditional skip of the following instruction.
func (i Instruction) IsSkip() bool {
	return i.ins != nil && chip8cpu.SkipInstructions.Contains(i.ins.Name)
}

// IsDataReference reports LD I, nnn.
func (i Instruction) IsDataReference() bool {
	return i.ins == chip8cpu.Ld && uint16(i.Opcode)&0xF000 == 0xA000
}

// Target returns the address operand of jumps, calls and LD I.
func (i Instruction) Target() (uint16, bool) {
	if i.IsJump() || i.IsCall() || i.IsDataReference() {
		return i.Opcode.NNN(), true
	}
	return 0, false
}

// lookup finds the instruction encoded by op in the opcode table of its
// high nibble.
func lookup(op chip8.Opcode) *chip8cpu.Instruction {
	w := uint16(op)
	for _, o := range chip8cpu.Opcodes[int(w>>12)] {
		if o.Info.Mask&w == o.Info.Value {
			return o.Instruction
		}
	}
	return nil
}

// Decode names op and formats its operands. ok is false for words that
// are not instructions.
func Decode(op chip8.Opcode) (name, params string, ok bool) {
	i := At(0, op)
	return i.Name, i.Params, i.Valid()
}

// operands formats the operand field of an instruction word.
func operands(op chip8.Opcode) string {
	a, _, _, d := op.Nibbles()
	x, y := op.X(), op.Y()
	kk, nnn := op.KK(), op.NNN()

	vxkk := func() string { return fmt.Sprintf("V%X, $%02X", x, kk) }
	vxvy := func() string { return fmt.Sprintf("V%X, V%X", x, y) }
	vx := func() string { return fmt.Sprintf("V%X", x) }
	addr := func() string { return fmt.Sprintf("$%03X", nnn) }

	switch a {
	case 0x0:
		switch uint16(op) {
		case 0x00E0, 0x00EE:
			return ""
		}
		return addr()
	case 0x1, 0x2:
		return addr()
	case 0x3, 0x4, 0x6, 0x7, 0xC:
		return vxkk()
	case 0x5, 0x9:
		return vxvy()
	case 0x8:
		switch d {
		case 0x6, 0xE:
			// Vy is printed only when set
			if y == 0 {
				return vx()
			}
		}
		return vxvy()
	case 0xA:
		return "I, " + addr()
	case 0xB:
		return "V0, " + addr()
	case 0xD:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, op.N())
	case 0xE:
		return vx()
	case 0xF:
		switch kk {
		case 0x07:
			return vx() + ", DT"
		case 0x0A:
			return vx() + ", K"
		case 0x15:
			return "DT, " + vx()
		case 0x18:
			return "ST, " + vx()
		case 0x1E:
			return "I, " + vx()
		case 0x29:
			return "F, " + vx()
		case 0x33:
			return "B, " + vx()
		case 0x55:
			return "[I], " + vx()
		case 0x65:
			return vx() + ", [I]"
		}
	}
	return ""
}

// Disassemble decodes program word by word, numbering addresses from base.
// A trailing odd byte is dropped; Source keeps it.
func Disassemble(program []byte, base uint16) []Instruction {
	out := make([]Instruction, 0, len(program)/2)
	for off := 0; off+1 < len(program); off += 2 {
		op := chip8.Decode(program[off], program[off+1])
		out = append(out, At(base+uint16(off), op))
	}
	return out
}
