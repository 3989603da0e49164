// Package hal is the only contact point between the emulated machine's
// surroundings and the host: log output, the monitor framebuffer,
// keyboard input, the wall-clock tick stream, and a raw serial pipe.
package hal

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	SetPixel(x, y int, pixel uint16)
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier for non-rune keys.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
)

// KeyEvent is a keyboard event. Printable input arrives as Rune with
// Code zero; editing and navigation keys arrive as Code with Rune zero.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events, best-effort on each backend.
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the monitor framebuffer.
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices.
type Input interface {
	Keyboard() Keyboard
}

// Time provides a base tick stream. One tick is one millisecond of host
// wall clock; the machine's own cycle counter is unrelated to it.
type Time interface {
	Ticks() <-chan uint64
}

// Serial is a raw byte pipe to the host terminal.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// HAL bundles the host surfaces the OS runs against.
type HAL interface {
	Logger() Logger
	Display() Display
	Input() Input
	Time() Time
	Serial() Serial
}
