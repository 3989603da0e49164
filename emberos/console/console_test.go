package console

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"ember/kernel"
	"ember/machine"
	"ember/sys"
)

type memLogger struct {
	lines []string
}

func (l *memLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *memLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func (l *memLogger) joined() string { return strings.Join(l.lines, "\n") }

func newTestConsole(t *testing.T) (*memLogger, *kernel.Scheduler, *Service) {
	t.Helper()
	m := machine.New(machine.Config{MemBytes: 1 << 20})
	k := kernel.New(m, kernel.Config{StackBytes: 4096})
	log := &memLogger{}
	return log, k, New(log, nil, nil, k)
}

func TestExecPS(t *testing.T) {
	log, k, c := newTestConsole(t)
	if err := k.Spawn("worker", 1000, func(cpu *machine.CPU, _ uint64) {
		for {
			cpu.Work(10)
			sys.Yield(cpu)
		}
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	k.Step()

	c.Exec("ps")
	out := log.joined()
	if !strings.Contains(out, "worker") || !strings.Contains(out, "[ PASS ]") {
		t.Fatalf("ps output = %q", out)
	}
}

func TestExecBudget(t *testing.T) {
	log, _, c := newTestConsole(t)
	c.Exec("budget +100000")
	if !strings.Contains(log.joined(), "2,600,000") {
		t.Fatalf("budget output = %q", log.lines)
	}
}

func TestExecBudgetRejectsJunk(t *testing.T) {
	log, _, c := newTestConsole(t)
	c.Exec("budget lots")
	if !strings.Contains(log.joined(), "bad delta") {
		t.Fatalf("output = %q", log.lines)
	}
}

func TestExecSpawn(t *testing.T) {
	log, k, c := newTestConsole(t)
	c.Exec("spawn spin worker 1000 200")
	if k.Len() != 1 {
		t.Fatalf("Len() = %d after spawn, want 1", k.Len())
	}
	if !strings.Contains(log.joined(), "spawned worker") {
		t.Fatalf("output = %q", log.lines)
	}

	c.Exec("spawn nosuch x")
	if !strings.Contains(log.joined(), "unknown kind") {
		t.Fatalf("output = %q", log.lines)
	}
}

func TestExecUnknownCommand(t *testing.T) {
	log, _, c := newTestConsole(t)
	c.Exec("frobnicate")
	if !strings.Contains(log.joined(), "unknown command") {
		t.Fatalf("output = %q", log.lines)
	}
}

func TestStepDrainsKernelOutput(t *testing.T) {
	log, k, c := newTestConsole(t)
	k.Output().WriteString("boot message\n")
	c.Step()
	if !strings.Contains(log.joined(), "boot message") {
		t.Fatalf("output = %q", log.lines)
	}
}

// memSerial queues input chunks for Read and captures Write output.
type memSerial struct {
	in chan []byte

	mu  sync.Mutex
	out bytes.Buffer
}

func newMemSerial() *memSerial {
	return &memSerial{in: make(chan []byte, 8)}
}

func (s *memSerial) Read(p []byte) (int, error) {
	b, ok := <-s.in
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (s *memSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *memSerial) output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

func TestFeedSplitsSerialLines(t *testing.T) {
	log, _, c := newTestConsole(t)

	c.feed([]byte("ps\nbud"))
	c.Step()
	if !strings.Contains(log.joined(), "no tasks") {
		t.Fatalf("output = %q", log.lines)
	}
	if string(c.pending) != "bud" {
		t.Fatalf("pending = %q, want %q", c.pending, "bud")
	}

	c.feed([]byte("get +100000\r\n"))
	c.Step()
	if !strings.Contains(log.joined(), "2,600,000") {
		t.Fatalf("output = %q", log.lines)
	}
}

func TestSerialCommandRoundTrip(t *testing.T) {
	m := machine.New(machine.Config{MemBytes: 1 << 20})
	k := kernel.New(m, kernel.Config{StackBytes: 4096})
	ser := newMemSerial()
	c := New(&memLogger{}, nil, ser, k)

	ser.in <- []byte("budget +100000\n")
	close(ser.in)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.Step()
		if strings.Contains(ser.output(), "2,600,000") {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("serial output = %q, want budget response", ser.output())
}

func TestExecQuotedArguments(t *testing.T) {
	log, k, c := newTestConsole(t)
	c.Exec(`spawn spin "quiet worker"`)
	if k.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", k.Len())
	}
	snap := k.Snapshot()
	if snap[0].Name != "quiet worker" {
		t.Fatalf("name = %q, want %q", snap[0].Name, "quiet worker")
	}
	_ = log
}
