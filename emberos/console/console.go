// Package console is the operator surface: it drains kernel output to
// the host log and runs a small command line over the keyboard or the
// serial pipe.
package console

import (
	"bytes"
	"fmt"

	"github.com/google/shlex"

	"ember/hal"
	"ember/kernel"
)

// Service couples the kernel's output ring to the host log and parses
// operator commands against the scheduler. Commands arrive from the
// keyboard under a window, or line by line over the serial pipe when
// running headless.
type Service struct {
	log    hal.Logger
	kbd    hal.Keyboard
	serial hal.Serial
	k      *kernel.Scheduler
	reg    *registry
	line   []rune

	lines   chan string
	pending []byte
}

// New wires a console over the scheduler. kbd and serial may each be
// nil; a non-nil serial starts a reader goroutine that lives until the
// pipe reports an error.
func New(log hal.Logger, kbd hal.Keyboard, serial hal.Serial, k *kernel.Scheduler) *Service {
	s := &Service{log: log, kbd: kbd, serial: serial, k: k, lines: make(chan string, 8)}
	s.reg = newRegistry(s)
	if serial != nil {
		go s.readSerial()
	}
	return s
}

func (s *Service) readSerial() {
	buf := make([]byte, 256)
	for {
		n, err := s.serial.Read(buf)
		if n > 0 {
			s.feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// feed splits incoming serial bytes into command lines. A line that
// arrives while the queue is full is dropped.
func (s *Service) feed(b []byte) {
	s.pending = append(s.pending, b...)
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			return
		}
		line := string(bytes.TrimRight(s.pending[:i], "\r"))
		s.pending = s.pending[i+1:]
		select {
		case s.lines <- line:
		default:
		}
	}
}

// Step drains pending kernel output, serial command lines, and keyboard
// input. Called once per host frame.
func (s *Service) Step() {
	for _, chunk := range s.k.Output().Drain() {
		s.log.WriteLineBytes(bytes.TrimRight(chunk, "\n"))
	}
	for {
		select {
		case line := <-s.lines:
			s.Exec(line)
		default:
			s.drainKeys()
			return
		}
	}
}

func (s *Service) drainKeys() {
	if s.kbd == nil {
		return
	}
	for {
		select {
		case ev := <-s.kbd.Events():
			s.handleKey(ev)
		default:
			return
		}
	}
}

func (s *Service) handleKey(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	switch {
	case ev.Rune != 0:
		s.line = append(s.line, ev.Rune)
	case ev.Code == hal.KeyBackspace:
		if len(s.line) > 0 {
			s.line = s.line[:len(s.line)-1]
		}
	case ev.Code == hal.KeyEnter:
		line := string(s.line)
		s.line = s.line[:0]
		s.Exec(line)
	case ev.Code == hal.KeyEscape:
		s.line = s.line[:0]
	}
}

// Exec parses and runs one command line.
func (s *Service) Exec(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		s.printf("console: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}
	cmd, ok := s.reg.find(args[0])
	if !ok {
		s.printf("console: unknown command %q (try help)", args[0])
		return
	}
	if err := cmd.Run(s, args[1:]); err != nil {
		s.printf("%s: %v", cmd.Name, err)
	}
}

// printf answers on the serial pipe when one is attached, so headless
// command responses come back on the same channel the command came in
// on. Everything else goes to the log.
func (s *Service) printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if s.serial != nil {
		s.serial.Write([]byte(line + "\n"))
		return
	}
	s.log.WriteLineString(line)
}
