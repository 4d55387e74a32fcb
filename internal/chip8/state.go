package chip8

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Snapshot is a full copy of the machine state taken between cycles.
type Snapshot struct {
	Memory         [MemorySize]byte
	Registers      [16]byte
	IndexRegister  uint16
	ProgramCounter uint16
}

// Snapshot copies the current state.
func (c *Interpreter) Snapshot() Snapshot {
	return Snapshot{
		Memory:         c.Memory,
		Registers:      c.Registers,
		IndexRegister:  c.IndexRegister,
		ProgramCounter: c.ProgramCounter,
	}
}

// Framebuffer returns the framebuffer region of the snapshot.
func (s *Snapshot) Framebuffer() []byte {
	return s.Memory[FramebufferStart : FramebufferStart+FramebufferSize]
}

// savedState is the gob payload of SaveState. Slices keep the encoding
// independent of the array sizes so LoadState can validate them.
type savedState struct {
	Memory         []byte
	Registers      []byte
	IndexRegister  uint16
	ProgramCounter uint16
}

// SaveState serializes memory and registers. A halt condition is not saved.
func (c *Interpreter) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(savedState{
		Memory:         c.Memory[:],
		Registers:      c.Registers[:],
		IndexRegister:  c.IndexRegister,
		ProgramCounter: c.ProgramCounter,
	})
	return buf.Bytes()
}

// LoadState restores a state written by SaveState and clears any halt.
func (c *Interpreter) LoadState(data []byte) error {
	var s savedState
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	if len(s.Memory) != MemorySize || len(s.Registers) != len(c.Registers) {
		return fmt.Errorf("%w: memory %d bytes, %d registers", ErrStateCorrupt, len(s.Memory), len(s.Registers))
	}
	copy(c.Memory[:], s.Memory)
	copy(c.Registers[:], s.Registers)
	c.IndexRegister = s.IndexRegister
	c.ProgramCounter = s.ProgramCounter
	c.halted = nil
	return nil
}
