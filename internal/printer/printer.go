// Package printer delivers encoded ticket streams to an output sink.
package printer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/device"
	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// ErrDeviceUnavailable is returned by a sink that has nothing to print to.
var ErrDeviceUnavailable = device.ErrUnavailable

// Sink consumes a complete ticket stream.
type Sink interface {
	Name() string
	Print(ctx context.Context, stream []byte) error
}

// DeviceSink writes the raw stream to a connected characteristic. Writes on
// the same sink never overlap.
type DeviceSink struct {
	mu     sync.Mutex
	writer device.Writer
}

// NewDeviceSink wraps w; a nil w makes every print report ErrDeviceUnavailable.
func NewDeviceSink(w device.Writer) *DeviceSink {
	return &DeviceSink{writer: w}
}

func (s *DeviceSink) Name() string { return string(models.SinkDevice) }

func (s *DeviceSink) Print(ctx context.Context, stream []byte) error {
	if s.writer == nil {
		return ErrDeviceUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Write(ctx, stream)
}

// SystemSink renders the plain-text preview to a temporary file and hands it
// to the operating system's print command.
type SystemSink struct {
	mu      sync.Mutex
	command string
	args    []string
	render  func([]byte) []byte
	run     func(ctx context.Context, name string, args ...string) error
}

// NewSystemSink builds a sink invoking command with args plus the file path.
// render converts the stream to printable text.
func NewSystemSink(command string, args []string, render func([]byte) []byte) *SystemSink {
	return &SystemSink{
		command: command,
		args:    args,
		render:  render,
		run: func(ctx context.Context, name string, args ...string) error {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, out)
			}
			return nil
		},
	}
}

func (s *SystemSink) Name() string { return string(models.SinkSystem) }

func (s *SystemSink) Print(ctx context.Context, stream []byte) error {
	if s.command == "" {
		return ErrDeviceUnavailable
	}
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp("", "ticket-*.txt")
	if err != nil {
		return fmt.Errorf("create ticket file: %w", err)
	}
	defer os.Remove(f.Name())

	text := stream
	if s.render != nil {
		text = s.render(stream)
	}
	if _, err := f.Write(text); err != nil {
		f.Close()
		return fmt.Errorf("write ticket file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ticket file: %w", err)
	}

	args := append(append([]string(nil), s.args...), f.Name())
	return s.run(ctx, s.command, args...)
}

// LogSink is the simulated printer: it logs the rendered ticket.
type LogSink struct {
	render func([]byte) []byte
	logger *zap.Logger
}

// NewLogSink returns a sink that always succeeds.
func NewLogSink(render func([]byte) []byte, logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{render: render, logger: logger}
}

func (s *LogSink) Name() string { return "simulated" }

func (s *LogSink) Print(_ context.Context, stream []byte) error {
	text := stream
	if s.render != nil {
		text = s.render(stream)
	}
	s.logger.Info("simulated ticket print", zap.ByteString("ticket", text))
	return nil
}

// Service picks the sink order from the operator's preference and falls
// through sinks that report ErrDeviceUnavailable. Any other failure stops
// the chain and is returned to the caller.
type Service struct {
	device    Sink
	system    Sink
	simulated Sink
	logger    *zap.Logger
}

// NewService wires the available sinks. Nil sinks are skipped.
func NewService(deviceSink, systemSink, simulated Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{device: deviceSink, system: systemSink, simulated: simulated, logger: logger}
}

// Print delivers stream and returns the name of the sink that accepted it.
func (s *Service) Print(ctx context.Context, preferred models.SinkKind, stream []byte) (string, error) {
	var lastErr error = ErrDeviceUnavailable
	for _, sink := range s.order(preferred) {
		err := sink.Print(ctx, stream)
		if err == nil {
			return sink.Name(), nil
		}
		if !errors.Is(err, ErrDeviceUnavailable) {
			s.logger.Warn("ticket print failed", zap.String("sink", sink.Name()), zap.Error(err))
			return sink.Name(), err
		}
		s.logger.Warn("print sink unavailable, trying next", zap.String("sink", sink.Name()), zap.Error(err))
		lastErr = err
	}
	return "", lastErr
}

func (s *Service) order(preferred models.SinkKind) []Sink {
	candidates := []Sink{s.device, s.system}
	if preferred == models.SinkSystem {
		candidates = []Sink{s.system, s.device}
	}
	candidates = append(candidates, s.simulated)

	out := make([]Sink, 0, len(candidates))
	for _, sink := range candidates {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}
