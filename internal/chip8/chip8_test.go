package chip8

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newInterpreterWithOpcodes loads opcodes at ProgramStart.
func newInterpreterWithOpcodes(t *testing.T, opcodes ...uint16) *Interpreter {
	t.Helper()
	program := make([]byte, 0, len(opcodes)*InstructionSize)
	for _, op := range opcodes {
		b := Opcode(op).Bytes()
		program = append(program, b[:]...)
	}
	c := New()
	require.NoError(t, c.LoadProgram(program))
	return c
}

func TestNew(t *testing.T) {
	c := New()

	assert.Equal(t, uint16(ProgramStart), c.ProgramCounter)
	assert.Equal(t, uint16(0), c.IndexRegister)
	assert.Equal(t, [16]byte{}, c.Registers)
	assert.Equal(t, font[:], c.Memory[FontStart:FontStart+len(font)])
	assert.True(t, isZero(c.Memory[len(font):]), "memory past the font must be zero")
	assert.NoError(t, c.Halted())
}

func TestLoadProgram(t *testing.T) {
	t.Run("max size", func(t *testing.T) {
		c := New()
		program := bytes.Repeat([]byte{0xFF}, ProgramCapacity)
		require.NoError(t, c.LoadProgram(program))
		assert.Equal(t, program, c.Memory[ProgramStart:])
	})

	t.Run("too large", func(t *testing.T) {
		c := New()
		before := c.Memory
		err := c.LoadProgram(bytes.Repeat([]byte{0xFF}, ProgramCapacity+1))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		var capErr *CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, ProgramCapacity+1, capErr.Requested)
		assert.Equal(t, ProgramCapacity, capErr.Available)
		assert.Equal(t, "program size (3585) exceeds available memory space (3584)", err.Error())
		assert.Equal(t, before, c.Memory, "memory must be untouched")
	})

	t.Run("leaves registers alone", func(t *testing.T) {
		c := New()
		c.Registers[3] = 0x33
		c.IndexRegister = 0x123
		c.ProgramCounter = 0x300
		require.NoError(t, c.LoadProgram([]byte{0x12, 0x34, 0x56}))

		assert.Equal(t, []byte{0x12, 0x34, 0x56}, c.Memory[ProgramStart:ProgramStart+3])
		assert.Equal(t, byte(0x33), c.Registers[3])
		assert.Equal(t, uint16(0x123), c.IndexRegister)
		assert.Equal(t, uint16(0x300), c.ProgramCounter)
	})

	t.Run("empty", func(t *testing.T) {
		c := New()
		assert.NoError(t, c.LoadProgram(nil))
	})
}

func TestOpcode_00E0_ClearsFramebuffer(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0x00E0)
	for i := range c.Framebuffer() {
		c.Framebuffer()[i] = byte(i) | 0x01
	}
	c.Memory[FramebufferStart-1] = 0xAA

	require.NoError(t, c.ExecuteCycle())

	assert.True(t, isZero(c.Framebuffer()))
	assert.Equal(t, byte(0xAA), c.Memory[FramebufferStart-1])
	assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)
}

func TestOpcode_1nnn_Jumps(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0x1FFF)
	before := c.Snapshot()

	require.NoError(t, c.ExecuteCycle())

	assert.Equal(t, uint16(0x0FFF), c.ProgramCounter)
	after := c.Snapshot()
	after.ProgramCounter = before.ProgramCounter
	assert.Equal(t, before, after, "jump must not mutate anything but PC")
}

func TestOpcode_Skips(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		vx, vy byte
		skip   bool
	}{
		{"3xkk equal", 0x3142, 0x42, 0, true},
		{"3xkk not equal", 0x3142, 0x41, 0, false},
		{"3xkk zero", 0x3100, 0x00, 0, true},
		{"4xkk not equal", 0x4142, 0x41, 0, true},
		{"4xkk equal", 0x4142, 0x42, 0, false},
		{"5xy0 equal", 0x5120, 0x99, 0x99, true},
		{"5xy0 not equal", 0x5120, 0x99, 0x98, false},
		{"5xx0 same register", 0x5110, 0x07, 0x00, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newInterpreterWithOpcodes(t, tt.opcode)
			c.Registers[1] = tt.vx
			c.Registers[2] = tt.vy
			regs := c.Registers

			require.NoError(t, c.ExecuteCycle())

			want := uint16(ProgramStart + 2)
			if tt.skip {
				want = ProgramStart + 4
			}
			assert.Equal(t, want, c.ProgramCounter)
			assert.Equal(t, regs, c.Registers)
		})
	}
}

func TestOpcode_Skips_AllValues(t *testing.T) {
	c := New()
	for v := 0; v < 256; v++ {
		for _, k := range []byte{0x00, 0x7F, 0x80, 0xFF, byte(v)} {
			for _, base := range []uint16{0x3000, 0x4000} {
				op := Opcode(base | 0x0500 | uint16(k))
				b := op.Bytes()
				c.Memory[ProgramStart], c.Memory[ProgramStart+1] = b[0], b[1]
				c.ProgramCounter = ProgramStart
				c.Registers[5] = byte(v)

				require.NoError(t, c.ExecuteCycle())

				equal := byte(v) == k
				skip := equal == (base == 0x3000)
				want := uint16(ProgramStart + 2)
				if skip {
					want += 2
				}
				require.Equal(t, want, c.ProgramCounter, "op %v V5=%02X", op, v)
				require.Equal(t, byte(v), c.Registers[5])
			}
		}
	}
}

func TestOpcode_6xkk_LoadsImmediate(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0x6A12)
	before := c.Snapshot()

	require.NoError(t, c.ExecuteCycle())

	assert.Equal(t, byte(0x12), c.Registers[0xA])
	assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)

	after := c.Snapshot()
	after.Registers[0xA] = before.Registers[0xA]
	after.ProgramCounter = before.ProgramCounter
	assert.Equal(t, before, after, "only VA and PC may change")
}

func TestOpcode_7xkk_Adds(t *testing.T) {
	tests := []struct {
		name string
		vx   byte
		kk   byte
		want byte
	}{
		{"from zero", 0x00, 0x12, 0x12},
		{"no overflow", 0x10, 0x20, 0x30},
		{"to max", 0xFE, 0x01, 0xFF},
		{"wraps", 0xFF, 0x02, 0x01},
		{"wraps to zero", 0x80, 0x80, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newInterpreterWithOpcodes(t, 0x7300|uint16(tt.kk))
			c.Registers[3] = tt.vx
			c.Registers[FlagRegister] = 0x5A

			require.NoError(t, c.ExecuteCycle())

			assert.Equal(t, tt.want, c.Registers[3])
			assert.Equal(t, byte(0x5A), c.Registers[FlagRegister], "ADD immediate leaves VF alone")
			assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)
		})
	}
}

func TestOpcode_8xy0_Copies(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0x8010)
	c.Registers[0] = 0x01
	c.Registers[1] = 0x02

	require.NoError(t, c.ExecuteCycle())

	assert.Equal(t, byte(0x02), c.Registers[0])
	assert.Equal(t, byte(0x02), c.Registers[1])
	assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)
}

func TestOpcode_8xyN_BitwiseAllValues(t *testing.T) {
	ops := []struct {
		name string
		d    uint16
		fn   func(a, b byte) byte
	}{
		{"or", 0x1, func(a, b byte) byte { return a | b }},
		{"and", 0x2, func(a, b byte) byte { return a & b }},
		{"xor", 0x3, func(a, b byte) byte { return a ^ b }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			c := New()
			b := Opcode(0x8120 | op.d).Bytes()
			c.Memory[ProgramStart], c.Memory[ProgramStart+1] = b[0], b[1]
			for x := 0; x < 256; x++ {
				for y := 0; y < 256; y++ {
					c.ProgramCounter = ProgramStart
					c.Registers[1] = byte(x)
					c.Registers[2] = byte(y)

					require.NoError(t, c.ExecuteCycle())

					if c.Registers[1] != op.fn(byte(x), byte(y)) || c.Registers[2] != byte(y) {
						t.Fatalf("%s %02X, %02X got V1=%02X V2=%02X", op.name, x, y, c.Registers[1], c.Registers[2])
					}
				}
			}
			assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)
		})
	}
}

func TestOpcode_Annn_SetsIndex(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0xA123)

	require.NoError(t, c.ExecuteCycle())

	assert.Equal(t, uint16(0x123), c.IndexRegister)
	assert.Equal(t, uint16(ProgramStart+2), c.ProgramCounter)
}

func TestExecuteCycle_UnknownOpcodeHalts(t *testing.T) {
	for _, op := range []uint16{0x0000, 0x00EE, 0x0123, 0x2300, 0x5121, 0x8124, 0x812E, 0x9120, 0xB200, 0xC0FF, 0xE19E, 0xF029, 0xFFFF} {
		t.Run(Opcode(op).String(), func(t *testing.T) {
			c := newInterpreterWithOpcodes(t, op, 0x6001)
			before := c.Snapshot()

			err := c.ExecuteCycle()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownOpcode)

			var opErr *OpcodeError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, Opcode(op), opErr.Opcode)
			assert.Equal(t, uint16(ProgramStart), opErr.Address)
			assert.Equal(t, before, c.Snapshot(), "a trapped opcode must not change state")

			// halted: the following LD V0 is never executed
			assert.Equal(t, err, c.ExecuteCycle())
			assert.Equal(t, err, c.Halted())
			assert.Equal(t, byte(0), c.Registers[0])
		})
	}
}

func TestExecuteCycle_PCAtEndOfMemory(t *testing.T) {
	c := New()
	c.ProgramCounter = MemorySize - 1

	err := c.ExecuteCycle()
	assert.ErrorIs(t, err, ErrAddressOutOfRange)
	assert.ErrorIs(t, c.Halted(), ErrAddressOutOfRange)
}

func TestReset_ClearsHalt(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0xFFFF)
	require.Error(t, c.ExecuteCycle())

	c.Reset()

	assert.NoError(t, c.Halted())
	assert.Equal(t, New().Snapshot(), c.Snapshot())
}

func TestProgram_Loop(t *testing.T) {
	// V0 counts to 5, then falls through the skip to the final jump-to-self.
	c := newInterpreterWithOpcodes(t,
		0x7001, // 200: ADD V0, 1
		0x3005, // 202: SE V0, 5
		0x1200, // 204: JP 200
		0x1206, // 206: JP 206
	)

	for i := 0; i < 20; i++ {
		require.NoError(t, c.ExecuteCycle())
	}

	assert.Equal(t, byte(5), c.Registers[0])
	assert.Equal(t, uint16(0x206), c.ProgramCounter)
}

func TestOpcode_Decode(t *testing.T) {
	op := Decode(0xD1, 0x25)

	a, b, cc, d := op.Nibbles()
	assert.Equal(t, [4]byte{0xD, 0x1, 0x2, 0x5}, [4]byte{a, b, cc, d})
	assert.Equal(t, byte(0x1), op.X())
	assert.Equal(t, byte(0x2), op.Y())
	assert.Equal(t, byte(0x5), op.N())
	assert.Equal(t, byte(0x25), op.KK())
	assert.Equal(t, uint16(0x125), op.NNN())
	assert.Equal(t, [2]byte{0xD1, 0x25}, op.Bytes())
	assert.Equal(t, "D125", op.String())
}

func TestSaveLoadState(t *testing.T) {
	c := newInterpreterWithOpcodes(t, 0x6A12, 0xA050, 0xD005)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ExecuteCycle())
	}
	data := c.SaveState()

	restored := New()
	require.NoError(t, restored.LoadState(data))
	assert.Equal(t, c.Snapshot(), restored.Snapshot())

	t.Run("clears halt", func(t *testing.T) {
		halted := newInterpreterWithOpcodes(t, 0xFFFF)
		require.Error(t, halted.ExecuteCycle())
		require.NoError(t, halted.LoadState(data))
		assert.NoError(t, halted.Halted())
	})

	t.Run("corrupt", func(t *testing.T) {
		err := New().LoadState([]byte("not a gob stream"))
		assert.ErrorIs(t, err, ErrStateCorrupt)
	})
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := New()
	s := c.Snapshot()
	c.Memory[FramebufferStart] = 0xFF
	c.Registers[0] = 1

	assert.Equal(t, byte(0), s.Framebuffer()[0])
	assert.Equal(t, byte(0), s.Registers[0])
	assert.Len(t, s.Framebuffer(), FramebufferSize)
}

func TestErrors_Messages(t *testing.T) {
	err := &OpcodeError{Opcode: 0xF00D, Address: 0x2A4}
	assert.Contains(t, err.Error(), "F00D")
	assert.Contains(t, err.Error(), "2A4")
	assert.True(t, errors.Is(err, ErrUnknownOpcode))
	assert.False(t, errors.Is(err, ErrCapacityExceeded))
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestOpcode_ImplementedMatchesExecution(t *testing.T) {
	for w := 0; w <= 0xFFFF; w++ {
		op := Opcode(w)
		c := newInterpreterWithOpcodes(t, uint16(w))
		err := c.ExecuteCycle()
		if op.Implemented() != (err == nil) {
			t.Fatalf("%v: Implemented()=%v but ExecuteCycle returned %v", op, op.Implemented(), err)
		}
	}
}
