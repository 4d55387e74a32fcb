package chip8

// Memory map and display geometry.
const (
	MemorySize       = 0x1000
	ProgramStart     = 0x200
	FramebufferStart = 0xF00

	DisplayWidth    = 64
	DisplayHeight   = 32
	FramebufferSize = DisplayWidth * DisplayHeight / 8

	// InstructionSize is the width of one opcode in bytes.
	InstructionSize = 2

	// FlagRegister receives the collision flag of every sprite draw.
	FlagRegister = 0xF
)

// ProgramCapacity is the largest program LoadProgram accepts.
const ProgramCapacity = MemorySize - ProgramStart

// Interpreter holds the complete machine state of one running program.
type Interpreter struct {
	Memory         [MemorySize]byte
	Registers      [16]byte
	IndexRegister  uint16
	ProgramCounter uint16

	// halted is the fault that stopped execution, nil while running
	halted error
}

// New creates an interpreter with the font loaded and PC at ProgramStart.
func New() *Interpreter {
	c := &Interpreter{}
	c.Reset()
	return c
}

// Reset restores the state New returns, discarding any loaded program.
func (c *Interpreter) Reset() {
	*c = Interpreter{ProgramCounter: ProgramStart}
	copy(c.Memory[FontStart:], font[:])
}

// LoadProgram copies program into memory at ProgramStart. Registers, I and
// PC are left alone. A program larger than ProgramCapacity is rejected
// before memory is touched.
func (c *Interpreter) LoadProgram(program []byte) error {
	if len(program) > ProgramCapacity {
		return &CapacityError{Requested: len(program), Available: ProgramCapacity}
	}
	copy(c.Memory[ProgramStart:], program)
	return nil
}

// Halted returns the fault that stopped the interpreter, or nil.
func (c *Interpreter) Halted() error { return c.halted }

// V returns register Vx.
func (c *Interpreter) V(x byte) byte { return c.Registers[x&0x0F] }

// Opcode returns the instruction word at the program counter without
// executing it. ok is false when PC points at the last memory byte.
func (c *Interpreter) Opcode() (op Opcode, ok bool) {
	pc := int(c.ProgramCounter)
	if pc+1 >= MemorySize {
		return 0, false
	}
	return Decode(c.Memory[pc], c.Memory[pc+1]), true
}
