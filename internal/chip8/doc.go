// Package chip8 implements the instruction execution engine of a minimal
// CHIP-8 style virtual CPU.
//
// The interpreter owns a flat 4KB memory, sixteen 8-bit registers (V0-VF),
// a 16-bit index register (I) and a 16-bit program counter. Memory is split
// by convention into three regions:
//
//	0x000-0x04F: font glyphs for the hex digits 0-F, 5 bytes each
//	0x200-0xEFF: program text and data, loaded by LoadProgram
//	0xF00-0xFFF: 64x32 monochrome framebuffer, 1 bit per pixel, MSB first
//
// ExecuteCycle performs one fetch-decode-execute step. Only a subset of the
// historical instruction set is executed: CLS, JP, SE/SNE, LD, ADD, the
// 8xy0-8xy3 register operations, LD I and DRW. Anything else halts the
// interpreter with an OpcodeError. There are no timers, no call stack, no
// keypad and no random number source.
//
// An Interpreter is not safe for concurrent use. Hosts that render from a
// different goroutine should hand over a Snapshot taken between cycles.
package chip8
