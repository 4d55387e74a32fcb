// Package asm is a small two pass macro assembler for CHIP-8 programs.
//
// Source lines are "label: mnemonic operand, operand ; comment". Numbers
// may be written as $1F, 0x1F, 0b11111, 31 or 'c'. Directives:
//
//	.equ NAME VALUE      textual constant
//	.macro NAME args...  start a macro, '@' in its body makes local labels
//	.endm                end a macro
//	db / .byte v...      raw bytes
//	dw / .word v...      big-endian 16-bit words
//
// $(expr) is evaluated at assembly time as a Starlark expression over the
// integer equates and the labels defined above it.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
)

// Macro represents a macro definition.
type Macro struct {
	LineNo int      // Line number of the first body line.
	Args   []string // Argument names.
	Lines  []string // Body text to expand.
}

// Statement is one instruction or data directive and its place in memory.
type Statement struct {
	LineNo  int
	Line    string
	Address uint16
	Words   []string
	Bytes   []byte // filled by the second pass
}

func (st *Statement) size() int {
	switch strings.ToLower(st.Words[0]) {
	case "db", ".byte":
		return len(st.Words) - 1
	case "dw", ".word":
		return 2 * (len(st.Words) - 1)
	}
	return chip8.InstructionSize
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"PROGRAM_START": fmt.Sprintf("%#x", chip8.ProgramStart),
	"FRAMEBUFFER":   fmt.Sprintf("%#x", chip8.FramebufferStart),
	"MEMORY_SIZE":   fmt.Sprintf("%#x", chip8.MemorySize),
	"FONT_START":    fmt.Sprintf("%#x", chip8.FontStart),
	"GLYPH_SIZE":    fmt.Sprintf("%d", chip8.GlyphSize),
	"WIDTH":         fmt.Sprintf("%d", chip8.DisplayWidth),
	"HEIGHT":        fmt.Sprintf("%d", chip8.DisplayHeight),
}

// Assembler turns source text into a raw program image.
type Assembler struct {
	Verbose bool   // If set, logs every source line.
	Base    uint16 // Load address, chip8.ProgramStart when zero.

	Statements []Statement
	Label      map[string]uint16 // Map of labels to addresses.
	Equate     map[string]string // Map of equates.
	Macro      map[string]*Macro // Map of macros.

	predefine map[string]string
	pc        int
}

// Predefine defines an equate visible to every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a numeric word.
func valueOf(word string) (value int64, err error) {
	neg := false
	if strings.HasPrefix(word, "-") {
		neg = true
		word = word[1:]
	}
	if strings.HasPrefix(word, "$") && len(word) > 1 {
		value, err = strconv.ParseInt(word[1:], 16, 32)
	} else {
		value, err = strconv.ParseInt(word, 0, 32)
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	if neg {
		value = -value
	}
	return
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, err := valueOf(str)
		if err != nil {
			// Non-numeric equates may be registers.
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
	}
	return
}

var (
	charRe  = regexp.MustCompile(`'\\?[^']'`)
	parenRe = regexp.MustCompile(`\$\([^\$]*\)`)
)

func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine expands a single line and records its labels and equates.
// The remaining words are an instruction, a directive or a macro call.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// 'x' evaluations
	line = charRe.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "t":
				str = "\t"
			default:
				return word
			}
		}
		return fmt.Sprintf("%v", str[0])
	})

	// $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		if _, ok := asm.Equate[words[1]]; ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = nil
		return
	}

	for n, word := range words {
		if equate, ok := asm.Equate[word]; ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if _, ok := asm.Label[label]; ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = uint16(asm.pc)
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	macro, ok := asm.Macro[words[0]]
	if !ok {
		return
	}

	name := words[0]
	if len(words)-1 != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}
	oldEquate := maps.Clone(asm.Equate)
	for n, arg := range macro.Args {
		asm.Equate[arg] = words[1+n]
	}
	defer func() { asm.Equate = oldEquate }()

	// '@' labels are unique per call site and body line
	callLine := lineno
	for n, body := range macro.Lines {
		lineno := macro.LineNo + n
		body = strings.ReplaceAll(body, "@", fmt.Sprintf("%v_%v_%v_", name, callLine, lineno))
		var inner []string
		inner, err = asm.parseLine(body, lineno)
		if err == nil {
			err = asm.parseWords(inner, lineno, body)
		}
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}
	words = nil
	return
}

// parseWords records a statement at the current address.
func (asm *Assembler) parseWords(words []string, lineno int, line string) error {
	if len(words) == 0 {
		return nil
	}
	st := Statement{
		LineNo:  lineno,
		Line:    line,
		Address: uint16(asm.pc),
		Words:   slices.Clone(words),
	}
	next := asm.pc + st.size()
	if next > chip8.MemorySize {
		return ErrAddressOverflow
	}
	asm.pc = next
	asm.Statements = append(asm.Statements, st)
	return nil
}

// Parse assembles input into a program image loaded at Base.
func (asm *Assembler) Parse(input io.Reader) (program []byte, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	base := asm.Base
	if base == 0 {
		base = chip8.ProgramStart
	}
	asm.pc = int(base)
	asm.Statements = asm.Statements[:0]
	asm.Label = make(map[string]uint16)
	asm.Macro = make(map[string]*Macro)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	for scanner.Scan() {
		text := scanner.Text()
		lineno++

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(strings.SplitN(text, ";", 2)[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				return nil, ErrMacroNesting
			}
			if len(words) < 2 {
				return nil, ErrMacroSyntax
			}
			if _, ok := asm.Macro[words[1]]; ok {
				return nil, ErrMacroDuplicate
			}
			macro = &Macro{LineNo: lineno + 1, Args: words[2:]}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				return nil, ErrMacroLonelyEndm
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return nil, err
		}
		if err = asm.parseWords(words, lineno, line); err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	if macro != nil {
		return nil, ErrMacroLonely
	}

	// Second pass: encode with every label known.
	program = make([]byte, 0, asm.pc-int(base))
	for n := range asm.Statements {
		st := &asm.Statements[n]
		st.Bytes, err = asm.encodeStatement(st.Words)
		if err != nil {
			lineno, line = st.LineNo, st.Line
			return nil, err
		}
		program = append(program, st.Bytes...)
	}

	if base == chip8.ProgramStart && len(program) > chip8.ProgramCapacity {
		return nil, &chip8.CapacityError{Requested: len(program), Available: chip8.ProgramCapacity}
	}

	return program, nil
}
