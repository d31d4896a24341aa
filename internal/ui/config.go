package ui

// Config contains window/input settings for the host-process shell.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbcam"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
