package ui

import "github.com/djwormlight/chip8-interpreter/internal/ui/session"

// Config contains window and input related settings.
type Config struct {
	Title   string // window title
	Scale   int    // integer upscaling factor
	TPS     int    // host frames per second
	Session session.Config
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "chip8"
	}
	if c.Scale <= 0 {
		c.Scale = 10
	}
	if c.TPS <= 0 {
		c.TPS = 60
	}
	c.Session.Defaults()
}
