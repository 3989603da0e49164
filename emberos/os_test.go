package emberos

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ember/hal"
	"ember/internal/config"
	"ember/internal/logging"
	"ember/kernel"
)

type nullLogger struct{}

func (nullLogger) WriteLineString(string) {}
func (nullLogger) WriteLineBytes([]byte)  {}

type stubHAL struct{}

func (stubHAL) Logger() hal.Logger   { return nullLogger{} }
func (stubHAL) Display() hal.Display { return nil }
func (stubHAL) Input() hal.Input     { return nil }
func (stubHAL) Time() hal.Time       { return nil }
func (stubHAL) Serial() hal.Serial   { return nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Machine.TimerCycles = 0
	cfg.Trace.Enabled = true
	cfg.Trace.DBPath = ":memory:"
	cfg.Tasks = []config.TaskConfig{
		{Name: "steady", Kind: "spin", Budget: 1000, Arg: 500},
		{Name: "greedy", Kind: "hog", Budget: 1000, Arg: 1500},
	}
	return cfg
}

func quiet() *slog.Logger {
	return logging.NewLoggerWithWriter(slog.LevelError, "text", io.Discard)
}

func TestSystemBootAndRun(t *testing.T) {
	s, err := NewSystem(stubHAL{}, testConfig(), quiet())
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	defer s.Close()

	if s.Scheduler().Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Scheduler().Len())
	}

	for i := 0; i < 10; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() %d error = %v", i, err)
		}
	}

	snap := s.Scheduler().Snapshot()
	if snap[0].Status != kernel.StatusSuccess {
		t.Fatalf("steady status = %s, want success", snap[0].Status)
	}
	// The overrunner has been through three strikes by now.
	if snap[1].Status != kernel.StatusFailure && snap[1].Status != kernel.StatusPenalty {
		t.Fatalf("greedy status = %s, want failure or penalty", snap[1].Status)
	}
}

func TestSystemRejectsUnknownKind(t *testing.T) {
	cfg := testConfig()
	cfg.Tasks = []config.TaskConfig{{Name: "x", Kind: "nosuch"}}
	if _, err := NewSystem(stubHAL{}, cfg, quiet()); err == nil {
		t.Fatal("NewSystem() error = nil, want unknown kind")
	}
}

type stubTime struct{ ch chan uint64 }

func (t stubTime) Ticks() <-chan uint64 { return t.ch }

type tickHAL struct {
	stubHAL
	t stubTime
}

func (h tickHAL) Time() hal.Time { return h.t }

func TestSystemAccumulatesUptime(t *testing.T) {
	h := tickHAL{t: stubTime{ch: make(chan uint64, 4)}}
	s, err := NewSystem(h, testConfig(), quiet())
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	defer s.Close()

	h.t.ch <- 1500
	h.t.ch <- 750
	if err := s.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got, want := s.Uptime(), 2250*time.Millisecond; got != want {
		t.Fatalf("Uptime() = %v, want %v", got, want)
	}
}

type stubSerial struct {
	in chan []byte

	mu  sync.Mutex
	out bytes.Buffer
}

func (s *stubSerial) Read(p []byte) (int, error) {
	b, ok := <-s.in
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (s *stubSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

type serialHAL struct {
	stubHAL
	s *stubSerial
}

func (h serialHAL) Serial() hal.Serial { return h.s }

func TestSystemSerialCommandInput(t *testing.T) {
	ser := &stubSerial{in: make(chan []byte, 1)}
	s, err := NewSystem(serialHAL{s: ser}, testConfig(), quiet())
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	defer s.Close()

	ser.in <- []byte("spawn spin extra\n")
	close(ser.in)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if s.Scheduler().Len() == 3 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Len() = %d, serial spawn never landed", s.Scheduler().Len())
}

func TestSystemConsoleRoundTrip(t *testing.T) {
	s, err := NewSystem(stubHAL{}, testConfig(), quiet())
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	defer s.Close()

	s.Console().Exec("spawn spin extra")
	if got := s.Scheduler().Len(); got != 3 {
		t.Fatalf("Len() after console spawn = %d, want 3", got)
	}
}
