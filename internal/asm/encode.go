package asm

import (
	"strings"
)

// register parses V0..VF.
func register(word string) (byte, bool) {
	if len(word) != 2 || (word[0] != 'V' && word[0] != 'v') {
		return 0, false
	}
	switch c := word[1]; {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

func mustRegister(word string) (byte, error) {
	x, ok := register(word)
	if !ok {
		return 0, ErrRegisterInvalid
	}
	return x, nil
}

// keyword matches the special operands I, DT, ST, K, F, B and [I].
func keyword(word, want string) bool {
	return strings.EqualFold(word, want)
}

// value resolves a label or a number.
func (asm *Assembler) value(word string) (int64, error) {
	if addr, ok := asm.Label[word]; ok {
		return int64(addr), nil
	}
	if _, ok := register(word); ok {
		return 0, ErrOperandInvalid
	}
	v, err := valueOf(word)
	if err != nil {
		if isIdent(word) {
			return 0, ErrLabelMissing(word)
		}
		return 0, err
	}
	return v, nil
}

func isIdent(word string) bool {
	for i, r := range word {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return word != ""
}

func (asm *Assembler) ranged(word string, lo, hi int64) (uint16, error) {
	v, err := asm.value(word)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, ErrValueRange
	}
	return uint16(v), nil
}

func (asm *Assembler) address(word string) (uint16, error) { return asm.ranged(word, 0, 0xFFF) }

// immediate accepts signed and unsigned bytes.
func (asm *Assembler) immediate(word string) (uint16, error) {
	v, err := asm.ranged(word, -0x80, 0xFF)
	return v & 0xFF, err
}

func (asm *Assembler) nibble(word string) (uint16, error) { return asm.ranged(word, 0, 0xF) }

func argCount(args []string, min, max int) error {
	switch {
	case len(args) < min:
		return ErrOpcodeMissing
	case len(args) > max:
		return ErrOpcodeExtraArgs
	}
	return nil
}

func xy(op uint16, x, y byte) uint16 {
	return op | uint16(x)<<8 | uint16(y)<<4
}

// encodeStatement turns one statement into bytes.
func (asm *Assembler) encodeStatement(words []string) ([]byte, error) {
	name := strings.ToLower(words[0])
	args := words[1:]

	switch name {
	case "db", ".byte":
		out := make([]byte, 0, len(args))
		for _, a := range args {
			v, err := asm.immediate(a)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(v))
		}
		return out, nil
	case "dw", ".word":
		out := make([]byte, 0, 2*len(args))
		for _, a := range args {
			v, err := asm.ranged(a, -0x8000, 0xFFFF)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(v>>8), byte(v))
		}
		return out, nil
	}

	op, err := asm.encode(name, args)
	if err != nil {
		return nil, err
	}
	return []byte{byte(op >> 8), byte(op)}, nil
}

// encode assembles a single instruction.
func (asm *Assembler) encode(name string, args []string) (uint16, error) {
	switch name {
	case "cls", "ret":
		if err := argCount(args, 0, 0); err != nil {
			return 0, err
		}
		if name == "cls" {
			return 0x00E0, nil
		}
		return 0x00EE, nil

	case "sys", "call":
		if err := argCount(args, 1, 1); err != nil {
			return 0, err
		}
		nnn, err := asm.address(args[0])
		if name == "sys" {
			return nnn, err
		}
		return 0x2000 | nnn, err

	case "jp":
		if err := argCount(args, 1, 2); err != nil {
			return 0, err
		}
		if len(args) == 2 {
			if x, ok := register(args[0]); !ok || x != 0 {
				return 0, ErrRegisterInvalid
			}
			nnn, err := asm.address(args[1])
			return 0xB000 | nnn, err
		}
		nnn, err := asm.address(args[0])
		return 0x1000 | nnn, err

	case "se", "sne":
		if err := argCount(args, 2, 2); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		if y, ok := register(args[1]); ok {
			if name == "se" {
				return xy(0x5000, x, y), nil
			}
			return xy(0x9000, x, y), nil
		}
		kk, err := asm.immediate(args[1])
		if name == "se" {
			return xy(0x3000, x, 0) | kk, err
		}
		return xy(0x4000, x, 0) | kk, err

	case "ld":
		if err := argCount(args, 2, 2); err != nil {
			return 0, err
		}
		return asm.encodeLoad(args[0], args[1])

	case "add":
		if err := argCount(args, 2, 2); err != nil {
			return 0, err
		}
		if keyword(args[0], "I") {
			x, err := mustRegister(args[1])
			return xy(0xF01E, x, 0), err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		if y, ok := register(args[1]); ok {
			return xy(0x8004, x, y), nil
		}
		kk, err := asm.immediate(args[1])
		return xy(0x7000, x, 0) | kk, err

	case "or", "and", "xor", "sub", "subn":
		if err := argCount(args, 2, 2); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		y, err := mustRegister(args[1])
		if err != nil {
			return 0, err
		}
		low := map[string]uint16{"or": 1, "and": 2, "xor": 3, "sub": 5, "subn": 7}[name]
		return xy(0x8000|low, x, y), nil

	case "shr", "shl":
		if err := argCount(args, 1, 2); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		var y byte
		if len(args) == 2 {
			if y, err = mustRegister(args[1]); err != nil {
				return 0, err
			}
		}
		if name == "shr" {
			return xy(0x8006, x, y), nil
		}
		return xy(0x800E, x, y), nil

	case "rnd":
		if err := argCount(args, 2, 2); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		kk, err := asm.immediate(args[1])
		return xy(0xC000, x, 0) | kk, err

	case "drw":
		if err := argCount(args, 3, 3); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if err != nil {
			return 0, err
		}
		y, err := mustRegister(args[1])
		if err != nil {
			return 0, err
		}
		n, err := asm.nibble(args[2])
		return xy(0xD000, x, y) | n, err

	case "skp", "sknp":
		if err := argCount(args, 1, 1); err != nil {
			return 0, err
		}
		x, err := mustRegister(args[0])
		if name == "skp" {
			return xy(0xE09E, x, 0), err
		}
		return xy(0xE0A1, x, 0), err
	}

	return 0, ErrOpcodeInvalid
}

// encodeLoad covers the many forms of LD.
func (asm *Assembler) encodeLoad(dst, src string) (uint16, error) {
	if keyword(dst, "I") {
		nnn, err := asm.address(src)
		return 0xA000 | nnn, err
	}

	if x, ok := register(dst); ok {
		switch {
		case keyword(src, "DT"):
			return xy(0xF007, x, 0), nil
		case keyword(src, "K"):
			return xy(0xF00A, x, 0), nil
		case keyword(src, "[I]"):
			return xy(0xF065, x, 0), nil
		}
		if y, ok := register(src); ok {
			return xy(0x8000, x, y), nil
		}
		kk, err := asm.immediate(src)
		return xy(0x6000, x, 0) | kk, err
	}

	x, err := mustRegister(src)
	if err != nil {
		return 0, err
	}
	switch {
	case keyword(dst, "DT"):
		return xy(0xF015, x, 0), nil
	case keyword(dst, "ST"):
		return xy(0xF018, x, 0), nil
	case keyword(dst, "F"):
		return xy(0xF029, x, 0), nil
	case keyword(dst, "B"):
		return xy(0xF033, x, 0), nil
	case keyword(dst, "[I]"):
		return xy(0xF055, x, 0), nil
	}
	return 0, ErrOperandInvalid
}
