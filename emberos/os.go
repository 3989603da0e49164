// Package emberos assembles the operating system: the emulated machine,
// the scheduler, the console and monitor services, and the activation
// trace. The host runner drives it one Step per frame.
package emberos

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ember/emberos/console"
	"ember/emberos/monitor"
	"ember/emberos/tasks"
	"ember/hal"
	"ember/internal/config"
	"ember/kernel"
	"ember/machine"
	"ember/trace"
)

// stepsPerFrame bounds how many activations one host frame may run, so
// the window loop stays responsive even with a busy task set.
const stepsPerFrame = 32

// System is one booted instance of the OS.
type System struct {
	logger  *slog.Logger
	m       *machine.Machine
	k       *kernel.Scheduler
	console *console.Service
	mon     *monitor.Monitor

	ticks    <-chan uint64
	uptimeMS uint64

	store    trace.Store
	recorder *trace.Recorder
	recDone  chan struct{}
	httpSrv  *http.Server
	cancel   context.CancelFunc
}

// NewSystem boots the OS against a HAL: builds the machine, spawns the
// manifest tasks, and wires the trace pipeline when enabled.
func NewSystem(h hal.HAL, cfg config.Config, logger *slog.Logger) (*System, error) {
	m := machine.New(machine.Config{
		MemBytes:    cfg.Machine.MemBytes,
		TimerCycles: cfg.Machine.TimerCycles,
	})
	k := kernel.New(m, kernel.Config{StackBytes: cfg.Machine.StackBytes})

	s := &System{
		logger: logger.With("component", "os"),
		m:      m,
		k:      k,
		mon:    monitor.New(h.Display()),
	}

	var kbd hal.Keyboard
	if in := h.Input(); in != nil {
		kbd = in.Keyboard()
	}
	s.console = console.New(h.Logger(), kbd, h.Serial(), k)
	if t := h.Time(); t != nil {
		s.ticks = t.Ticks()
	}

	for _, tc := range cfg.Tasks {
		build, ok := tasks.Lookup(tc.Kind)
		if !ok {
			return nil, fmt.Errorf("task %s: unknown kind %q", tc.Name, tc.Kind)
		}
		entry := build(tasks.Config{Name: tc.Name, Arg: tc.Arg})
		if err := k.Spawn(tc.Name, tc.Budget, entry, tc.Arg); err != nil {
			return nil, fmt.Errorf("spawn %s: %w", tc.Name, err)
		}
	}

	if cfg.Trace.Enabled {
		if err := s.startTrace(cfg.Trace, logger); err != nil {
			return nil, err
		}
	}

	s.logger.Info("booted",
		"tasks", k.Len(),
		"timer_cycles", cfg.Machine.TimerCycles,
		"trace", cfg.Trace.Enabled)
	return s, nil
}

func (s *System) startTrace(tc config.TraceConfig, logger *slog.Logger) error {
	st, err := trace.NewSQLiteStore(tc.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open trace store: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := st.Migrate(ctx); err != nil {
		cancel()
		st.Close()
		return fmt.Errorf("migrate trace store: %w", err)
	}

	rec := trace.NewRecorder(st, logger)
	s.store = st
	s.recorder = rec
	s.cancel = cancel
	s.recDone = make(chan struct{})
	s.k.SetObserver(rec.Observe)
	go func() {
		rec.Run(ctx)
		close(s.recDone)
	}()

	if tc.HTTPAddr != "" {
		srv := trace.NewServer(st, rec.BootID(), s.k.Snapshot, logger)
		s.httpSrv = &http.Server{Addr: tc.HTTPAddr, Handler: srv}
		go func() {
			s.logger.Info("trace http listening", "addr", tc.HTTPAddr)
			if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("trace http", "error", err)
			}
		}()
	}
	return nil
}

// Step runs one host frame: a bounded burst of activations, then the
// console drain and a monitor redraw.
func (s *System) Step() error {
	s.drainTicks()
	for i := 0; i < stepsPerFrame; i++ {
		if !s.k.Step() {
			break
		}
	}
	s.console.Step()
	s.mon.Publish(s.k.Snapshot(), s.m.Cycles(), s.uptimeMS)
	return s.mon.Render()
}

// drainTicks folds the HAL's millisecond tick stream into the uptime
// counter without blocking the frame.
func (s *System) drainTicks() {
	if s.ticks == nil {
		return
	}
	for {
		select {
		case n := <-s.ticks:
			s.uptimeMS += n
		default:
			return
		}
	}
}

// Uptime reports wall-clock time accumulated from the HAL tick stream.
func (s *System) Uptime() time.Duration {
	return time.Duration(s.uptimeMS) * time.Millisecond
}

// Scheduler exposes the running scheduler, mainly for the trace surface.
func (s *System) Scheduler() *kernel.Scheduler { return s.k }

// Machine exposes the emulated machine.
func (s *System) Machine() *machine.Machine { return s.m }

// Console exposes the operator console, for scripted command input.
func (s *System) Console() *console.Service { return s.console }

// Close tears down the trace pipeline. The machine itself needs no
// shutdown; parked task goroutines die with the process.
func (s *System) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.recDone
	}
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(ctx)
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
