package chip8

// bytesPerRow is the framebuffer pitch.
const bytesPerRow = DisplayWidth / 8

// Framebuffer returns the framebuffer region of memory. The slice aliases
// the interpreter memory.
func (c *Interpreter) Framebuffer() []byte {
	return c.Memory[FramebufferStart : FramebufferStart+FramebufferSize]
}

// Pixel reports whether the pixel at x,y is lit. Coordinates wrap.
func (c *Interpreter) Pixel(x, y int) bool {
	x = mod(x, DisplayWidth)
	y = mod(y, DisplayHeight)
	b := c.Memory[FramebufferStart+y*bytesPerRow+x/8]
	return b&(0x80>>(x%8)) != 0
}

func (c *Interpreter) clearScreen() {
	clear(c.Framebuffer())
}

// drawSprite XORs n bytes starting at I into the framebuffer at (vx, vy)
// and sets VF when a lit pixel is hit.
//
// The start column wraps once per row; a byte that is not byte aligned
// spills its low bits into the following framebuffer byte, which for the
// rightmost column is the first byte of the next row.
func (c *Interpreter) drawSprite(vx, vy, n byte) {
	c.Registers[FlagRegister] = 0

	col := int(vx) % DisplayWidth
	shift := col % 8

	for i := 0; i < int(n); i++ {
		row := (int(vy) + i) % DisplayHeight
		value := c.Memory[(int(c.IndexRegister)+i)&(MemorySize-1)]
		offset := row*bytesPerRow + col/8

		c.blit(offset, value>>shift)

		if shift > 0 {
			if spill := value << (8 - shift); spill != 0 {
				c.blit((offset+1)%FramebufferSize, spill)
			}
		}
	}
}

// blit applies one sprite byte at framebuffer offset.
func (c *Interpreter) blit(offset int, part byte) {
	addr := FramebufferStart + offset
	c.Registers[FlagRegister] |= part & c.Memory[addr]
	c.Memory[addr] ^= part
}

func mod(v, m int) int {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}
