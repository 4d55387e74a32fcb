package chip8

// ExecuteCycle performs exactly one fetch-decode-execute step.
//
// An opcode outside the implemented subset is a fatal trap: the returned
// *OpcodeError is latched and every later call returns it without touching
// state, until Reset.
func (c *Interpreter) ExecuteCycle() error {
	if c.halted != nil {
		return c.halted
	}

	op, ok := c.Opcode()
	if !ok {
		c.halted = &AddressError{Address: c.ProgramCounter}
		return c.halted
	}

	x, y := op.X(), op.Y()

	switch a, b, cc, d := op.Nibbles(); a {
	case 0x0:
		if b != 0x0 || cc != 0xE || d != 0x0 {
			break
		}
		// 00E0: CLS
		c.clearScreen()
		c.next()
		return nil

	case 0x1: // JP nnn
		c.ProgramCounter = op.NNN()
		return nil

	case 0x3: // SE Vx, kk
		c.skipIf(c.Registers[x] == op.KK())
		return nil

	case 0x4: // SNE Vx, kk
		c.skipIf(c.Registers[x] != op.KK())
		return nil

	case 0x5:
		if d != 0x0 {
			break
		}
		// SE Vx, Vy
		c.skipIf(c.Registers[x] == c.Registers[y])
		return nil

	case 0x6: // LD Vx, kk
		c.Registers[x] = op.KK()
		c.next()
		return nil

	case 0x7: // ADD Vx, kk; wraps, VF untouched
		c.Registers[x] += op.KK()
		c.next()
		return nil

	case 0x8:
		switch d {
		case 0x0: // LD Vx, Vy
			c.Registers[x] = c.Registers[y]
		case 0x1: // OR Vx, Vy
			c.Registers[x] |= c.Registers[y]
		case 0x2: // AND Vx, Vy
			c.Registers[x] &= c.Registers[y]
		case 0x3: // XOR Vx, Vy
			c.Registers[x] ^= c.Registers[y]
		default:
			return c.trap(op)
		}
		c.next()
		return nil

	case 0xA: // LD I, nnn
		c.IndexRegister = op.NNN()
		c.next()
		return nil

	case 0xD: // DRW Vx, Vy, n
		c.drawSprite(c.Registers[x], c.Registers[y], op.N())
		c.next()
		return nil
	}

	return c.trap(op)
}

// next advances PC past the current instruction.
func (c *Interpreter) next() {
	c.ProgramCounter += InstructionSize
}

// skipIf advances past the next instruction when cond holds.
func (c *Interpreter) skipIf(cond bool) {
	if cond {
		c.ProgramCounter += 2 * InstructionSize
		return
	}
	c.next()
}

func (c *Interpreter) trap(op Opcode) error {
	c.halted = &OpcodeError{Opcode: op, Address: c.ProgramCounter}
	return c.halted
}
