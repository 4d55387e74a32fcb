package asm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/disasm"
)

func assemble(t *testing.T, lines ...string) []byte {
	t.Helper()
	a := &Assembler{}
	prog, err := a.Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return prog
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	a := &Assembler{}
	prog, err := a.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Empty(prog)

	assert.Equal("0", a.Equate["LINENO"])
	assert.Equal("0x200", a.Equate["PROGRAM_START"])
	assert.Equal("0xf00", a.Equate["FRAMEBUFFER"])
	assert.Equal("64", a.Equate["WIDTH"])
}

func TestAssemblerInstructions(t *testing.T) {
	tests := []struct {
		src  string
		want uint16
	}{
		{"cls", 0x00E0},
		{"RET", 0x00EE},
		{"sys $123", 0x0123},
		{"jp $234", 0x1234},
		{"jp V0, 0x300", 0xB300},
		{"call 768", 0x2300},
		{"se V2, $34", 0x3234},
		{"se v2, v3", 0x5230},
		{"sne VA, -1", 0x4AFF},
		{"sne VA, VB", 0x9AB0},
		{"ld V1, 'A'", 0x6141},
		{"ld V1, V2", 0x8120},
		{"ld I, $123", 0xA123},
		{"ld V3, DT", 0xF307},
		{"ld V3, k", 0xF30A},
		{"ld DT, V3", 0xF315},
		{"ld ST, V3", 0xF318},
		{"ld F, V3", 0xF329},
		{"ld B, V3", 0xF333},
		{"ld [I], V3", 0xF355},
		{"ld V3, [I]", 0xF365},
		{"add V1, 1", 0x7101},
		{"add V1, V2", 0x8124},
		{"add I, V3", 0xF31E},
		{"or V1, V2", 0x8121},
		{"and V1, V2", 0x8122},
		{"xor V1, V2", 0x8123},
		{"sub V1, V2", 0x8125},
		{"subn V1, V2", 0x8127},
		{"shr V1", 0x8106},
		{"shr V1, V2", 0x8126},
		{"shl V1", 0x810E},
		{"rnd V3, 0b1111", 0xC30F},
		{"drw V1, V2, $F", 0xD12F},
		{"skp V5", 0xE59E},
		{"sknp V5", 0xE5A1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog := assemble(t, tt.src)
			assert.Equal(t, []byte{byte(tt.want >> 8), byte(tt.want)}, prog)
		})
	}
}

func TestAssemblerData(t *testing.T) {
	prog := assemble(t,
		"db $F0, $90 ; glyph rows",
		".byte 1 2",
		"dw $1234, -2",
		".word label",
		"label:",
	)
	assert.Equal(t, []byte{0xF0, 0x90, 1, 2, 0x12, 0x34, 0xFF, 0xFE, 0x02, 0x0A}, prog)
}

func TestAssemblerLabels(t *testing.T) {
	a := &Assembler{}
	prog, err := a.Parse(strings.NewReader(strings.Join([]string{
		"Start:",
		"  ld I, sprite   ; forward reference",
		"loop: jp loop",
		"sprite: db $80",
	}, "\n")))
	require.NoError(t, err)

	assert.Equal(t, []byte{0xA2, 0x04, 0x12, 0x02, 0x80}, prog)
	assert.Equal(t, map[string]uint16{"Start": 0x200, "loop": 0x202, "sprite": 0x204}, a.Label)
	require.Len(t, a.Statements, 3)
	assert.Equal(t, uint16(0x204), a.Statements[2].Address)
	assert.Equal(t, []byte{0x80}, a.Statements[2].Bytes)
}

func TestAssemblerBase(t *testing.T) {
	a := &Assembler{Base: 0x300}
	prog, err := a.Parse(strings.NewReader("here: jp here"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x13, 0x00}, prog)
}

func TestAssemblerEquates(t *testing.T) {
	a := &Assembler{}
	a.Predefine("SPEED", "3")
	prog, err := a.Parse(strings.NewReader(strings.Join([]string{
		".equ X V4",
		".equ ROW 0x0A",
		"ld X, ROW",
		"add X, SPEED",
	}, "\n")))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x64, 0x0A, 0x74, 0x03}, prog)
}

func TestAssemblerExpressions(t *testing.T) {
	prog := assemble(t,
		".equ ROW 3",
		"ld V0, $(WIDTH - 8)",
		"ld V1, $(ROW * GLYPH_SIZE + 1)",
		"start: ld I, $(FONT_START + 0xA * GLYPH_SIZE)",
		"jp $(start + 2)",
		"ld V2, $(LINENO)",
	)
	assert.Equal(t, []byte{
		0x60, 56,
		0x61, 16,
		0xA0, 50,
		0x12, 0x06,
		0x62, 6,
	}, prog)
}

func TestAssemblerMacros(t *testing.T) {
	a := &Assembler{}
	prog, err := a.Parse(strings.NewReader(strings.Join([]string{
		".macro glyph REG DIGIT",
		"  ld REG, DIGIT",
		"  ld F, REG",
		"@wait: jp @wait",
		".endm",
		"glyph V1 7",
		"glyph V2 $A",
	}, "\n")))
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x61, 0x07, 0xF1, 0x29, 0x12, 0x04,
		0x62, 0x0A, 0xF2, 0x29, 0x12, 0x0A,
	}, prog)
	assert.Len(t, a.Label, 2, "each expansion gets its own local label")
	assert.NotContains(t, a.Equate, "REG", "macro arguments do not leak")
}

func TestAssemblerErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown opcode", "mov V0, V1", ErrOpcodeInvalid},
		{"missing args", "ld V0", ErrOpcodeMissing},
		{"extra args", "cls V0", ErrOpcodeExtraArgs},
		{"bad register", "drw VG, V1, 1", ErrRegisterInvalid},
		{"jp base register", "jp V1, $200", ErrRegisterInvalid},
		{"byte range", "ld V0, 256", ErrValueRange},
		{"address range", "jp $1000", ErrValueRange},
		{"nibble range", "drw V0, V1, 16", ErrValueRange},
		{"register as value", "jp V3", ErrOperandInvalid},
		{"bad ld target", "ld X, V0", ErrOperandInvalid},
		{"equ syntax", ".equ A", ErrEquateSyntax},
		{"equ duplicate", ".equ A 1\n.equ A 2", ErrEquateDuplicate},
		{"label duplicate", "a: cls\na: cls", ErrLabelDuplicate},
		{"macro nesting", ".macro a\n.macro b", ErrMacroNesting},
		{"macro duplicate", ".macro a\n.endm\n.macro a\n.endm", ErrMacroDuplicate},
		{"macro lonely", ".macro a\ncls", ErrMacroLonely},
		{"endm lonely", ".endm", ErrMacroLonelyEndm},
		{"macro args", ".macro a X\n.endm\na", ErrMacroSyntax},
		{"memory overflow", strings.Repeat("dw 0 0 0 0 0 0 0 0\n", 240), ErrAddressOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Assembler{}).Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var se *ErrSyntax
			assert.True(t, errors.As(err, &se))
		})
	}
}

func TestErrSyntaxLineNumber(t *testing.T) {
	err := &ErrSyntax{LineNo: 1234, Line: "bogus", Err: ErrOpcodeInvalid}
	assert.Equal(t, "line 1234 'bogus' "+ErrOpcodeInvalid.Error(), err.Error())
}

func TestAssemblerErrorLines(t *testing.T) {
	_, err := (&Assembler{}).Parse(strings.NewReader("cls\njp nowhere\ncls"))
	var se *ErrSyntax
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.LineNo)
	assert.Equal(t, "jp nowhere", se.Line)

	var missing ErrLabelMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ErrLabelMissing("nowhere"), missing)

	_, err = (&Assembler{}).Parse(strings.NewReader("ld V0, $(1 +)"))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.LineNo)

	_, err = (&Assembler{}).Parse(strings.NewReader(`ld V0, $("x")`))
	var pe ErrParseExpression
	assert.ErrorAs(t, err, &pe)

	_, err = (&Assembler{}).Parse(strings.NewReader(".macro m\n  a: cls\n.endm\nm\nm"))
	var me *ErrMacro
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "m", me.Macro)
	assert.Equal(t, 2, me.Line)
	assert.ErrorIs(t, err, ErrLabelDuplicate)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 5, se.LineNo)
}

func TestAssemblerCapacity(t *testing.T) {
	src := strings.Repeat("dw 0 0 0 0 0 0 0 0\n", chip8.ProgramCapacity/16) + "db 0"
	_, err := (&Assembler{}).Parse(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrAddressOverflow)

	src = strings.Repeat("dw 0 0 0 0 0 0 0 0\n", chip8.ProgramCapacity/16)
	prog, err := (&Assembler{}).Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, prog, chip8.ProgramCapacity)
}

// Every instruction the disassembler prints assembles back to a word that
// disassembles to the same text.
func TestAssemblerDisassemblerRoundTrip(t *testing.T) {
	for w := 0; w <= 0xFFFF; w += 3 {
		op := chip8.Opcode(w)
		ins := disasm.At(chip8.ProgramStart, op)
		if !ins.Valid() {
			continue
		}
		text := ins.String()

		a := &Assembler{}
		prog, err := a.Parse(strings.NewReader(text))
		if err != nil {
			t.Fatalf("%v %q: %v", op, text, err)
		}
		want := op.Bytes()
		if !bytes.Equal(prog, want[:]) {
			t.Fatalf("%v %q: reassembled as % X", op, text, prog)
		}
	}
}

func TestAssemblerSourceRoundTripShifts(t *testing.T) {
	program := []byte{0x81, 0x26, 0x83, 0x4E, 0x85, 0x06}

	var src bytes.Buffer
	require.NoError(t, disasm.Source(&src, program, chip8.ProgramStart))

	again, err := (&Assembler{}).Parse(&src)
	require.NoError(t, err)
	assert.Equal(t, program, again)
}

func TestAssemblerSourceRoundTrip(t *testing.T) {
	program := assemble(t,
		"Start:  cls",
		"        ld V0, 0",
		"        ld V1, 0",
		"loop:   ld I, glyph",
		"        drw V0, V1, 5",
		"        add V0, 8",
		"        se V0, 64",
		"        jp loop",
		"        call sub",
		"sub:    ret",
		"glyph:  db $F0 $90 $90 $90 $F0",
	)

	var src bytes.Buffer
	require.NoError(t, disasm.Source(&src, program, chip8.ProgramStart))

	again, err := (&Assembler{}).Parse(&src)
	require.NoError(t, err)
	assert.Equal(t, program, again)
}

// An assembled program runs on the interpreter.
func TestAssembledProgramRuns(t *testing.T) {
	program := assemble(t,
		"        ld V0, 0",
		"        ld V1, 0",
		"        ld V2, 0",
		"loop:   ld I, $(FONT_START)",
		"        drw V0, V1, GLYPH_SIZE",
		"        add V0, 8",
		"        add V2, 1",
		"        se V2, 8",
		"        jp loop",
		"done:   jp done",
	)

	c := chip8.New()
	require.NoError(t, c.LoadProgram(program))
	for i := 0; i < 3+6*8+2; i++ {
		require.NoError(t, c.ExecuteCycle())
	}

	assert.Equal(t, uint16(0x212), c.ProgramCounter)
	for col := 0; col < 8; col++ {
		assert.Equal(t, byte(0xF0), c.Framebuffer()[col], "glyph %d", col)
	}
	assert.Equal(t, byte(0), c.Registers[chip8.FlagRegister])
}
