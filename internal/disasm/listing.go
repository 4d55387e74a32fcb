package disasm

import (
	"bufio"
	"fmt"
	"io"
)

// Listing writes one line per word: address, raw opcode and mnemonic.
// Instructions the interpreter core would trap on are marked.
func Listing(w io.Writer, program []byte, base uint16) error {
	bw := bufio.NewWriter(w)
	for _, ins := range Disassemble(program, base) {
		line := fmt.Sprintf("%03X  %04X  %s", ins.Address, uint16(ins.Opcode), ins)
		if !ins.Opcode.Implemented() {
			line = fmt.Sprintf("%-32s; halts", line)
		}
		fmt.Fprintln(bw, line)
	}
	if len(program)%2 == 1 {
		fmt.Fprintf(bw, "%03X  %02X    db $%02X\n", base+uint16(len(program)-1), program[len(program)-1], program[len(program)-1])
	}
	return bw.Flush()
}

// Labels names the addresses inside the program that are referenced by
// jumps, calls or LD I. The entry point is always labelled "Start".
func Labels(insts []Instruction, base uint16, size int) map[uint16]string {
	labels := map[uint16]string{base: "Start"}
	end := int(base) + size
	for _, ins := range insts {
		target, ok := ins.Target()
		if !ok || int(target) < int(base) || int(target) >= end || (target-base)%2 != 0 {
			continue
		}
		if _, seen := labels[target]; seen {
			continue
		}
		if ins.IsDataReference() {
			labels[target] = fmt.Sprintf("data_%03X", target)
		} else {
			labels[target] = fmt.Sprintf("code_%03X", target)
		}
	}
	return labels
}

// Source writes the program as assembly the asm package accepts, with
// labels in place of in-program addresses.
func Source(w io.Writer, program []byte, base uint16) error {
	insts := Disassemble(program, base)
	labels := Labels(insts, base, len(program))

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "; %d bytes at $%03X\n", len(program), base)
	for _, ins := range insts {
		if label, ok := labels[ins.Address]; ok {
			fmt.Fprintf(bw, "%s:\n", label)
		}
		text := ins.String()
		if target, ok := ins.Target(); ok {
			if label, ok := labels[target]; ok {
				switch {
				case ins.IsDataReference():
					text = fmt.Sprintf("%s I, %s", ins.Name, label)
				default:
					text = fmt.Sprintf("%s %s", ins.Name, label)
				}
			}
		}
		fmt.Fprintf(bw, "    %s\n", text)
	}
	if len(program)%2 == 1 {
		last := base + uint16(len(program)-1)
		if label, ok := labels[last]; ok {
			fmt.Fprintf(bw, "%s:\n", label)
		}
		fmt.Fprintf(bw, "    db $%02X\n", program[len(program)-1])
	}
	return bw.Flush()
}
