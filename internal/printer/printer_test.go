package printer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

type fakeSink struct {
	name   string
	err    error
	prints [][]byte
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Print(_ context.Context, stream []byte) error {
	if f.err != nil {
		return f.err
	}
	f.prints = append(f.prints, stream)
	return nil
}

func TestServiceHonoursPreferenceAndFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		deviceErr error
		systemErr error
		preferred models.SinkKind
		wantSink  string
		wantErr   bool
	}{
		{"device preferred and connected", nil, nil, models.SinkDevice, "device", false},
		{"system preferred", nil, nil, models.SinkSystem, "system", false},
		{"device missing falls to system", ErrDeviceUnavailable, nil, models.SinkDevice, "system", false},
		{"nothing attached falls to simulation", ErrDeviceUnavailable, ErrDeviceUnavailable, models.SinkDevice, "simulated", false},
		{"write failure is reported", errors.New("paper jam"), nil, models.SinkDevice, "device", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeSink{name: "device", err: tt.deviceErr}
			sys := &fakeSink{name: "system", err: tt.systemErr}
			sim := &fakeSink{name: "simulated"}
			svc := NewService(dev, sys, sim, nil)

			used, err := svc.Print(context.Background(), tt.preferred, []byte("ticket"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: %v", err)
			}
			if used != tt.wantSink {
				t.Errorf("used sink %q, want %q", used, tt.wantSink)
			}
		})
	}
}

func TestServiceWithoutSinks(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil).Print(context.Background(), models.SinkDevice, []byte("x"))
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

type slowWriter struct {
	mu      sync.Mutex
	active  int
	overlap bool
}

func (w *slowWriter) Write(context.Context, []byte) error {
	w.mu.Lock()
	w.active++
	if w.active > 1 {
		w.overlap = true
	}
	w.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	w.mu.Lock()
	w.active--
	w.mu.Unlock()
	return nil
}

func TestDeviceSinkSerializesWrites(t *testing.T) {
	w := &slowWriter{}
	sink := NewDeviceSink(w)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Print(context.Background(), []byte("x"))
		}()
	}
	wg.Wait()

	if w.overlap {
		t.Error("device writes overlapped")
	}
	if err := NewDeviceSink(nil).Print(context.Background(), nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("nil writer: got %v", err)
	}
}

func TestSystemSinkRendersAndInvokesCommand(t *testing.T) {
	sink := NewSystemSink("sh", []string{"-c", "true"}, func(b []byte) []byte { return []byte(strings.ToUpper(string(b))) })

	var gotName string
	var gotArgs []string
	sink.run = func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	if err := sink.Print(context.Background(), []byte("net 28.80 kg")); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if gotName != "sh" || len(gotArgs) != 3 || !strings.HasSuffix(gotArgs[2], ".txt") {
		t.Errorf("unexpected invocation %s %v", gotName, gotArgs)
	}

	if err := NewSystemSink("", nil, nil).Print(context.Background(), nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("empty command: got %v", err)
	}
	if err := NewSystemSink("definitely-not-a-print-command", nil, nil).Print(context.Background(), nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("missing command: got %v", err)
	}
}

func TestLogSinkLogsRenderedTicket(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(func(b []byte) []byte { return b[1:] }, zap.New(core))

	if err := sink.Print(context.Background(), []byte("\x1bhello")); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("simulated ticket print").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got, _ := entries[0].ContextMap()["ticket"].(string); got != "hello" {
		t.Errorf("logged ticket %q", got)
	}
}
