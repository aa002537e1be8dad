// Package scale turns weighing-device payloads into kilogram readings.
package scale

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/device"
)

// Reading modes selectable by configuration.
const (
	ModeSimulation = "simulation"
	ModeDevice     = "device"
)

// Default simulation range for a crate of live birds, in kilograms.
const (
	DefaultSimMinKg = 20.0
	DefaultSimMaxKg = 30.0
)

// Reader yields a weight in kilograms. Implementations never fail; a reader
// without real data degrades to a simulated value.
type Reader interface {
	ReadWeight(ctx context.Context) float64
}

// ReaderFunc adapts a function to Reader, mostly for stubbing fixed values.
type ReaderFunc func(ctx context.Context) float64

func (f ReaderFunc) ReadWeight(ctx context.Context) float64 { return f(ctx) }

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// ParseWeight extracts the first signed or unsigned decimal number found
// anywhere in payload. It reports false when the payload holds no number.
func ParseWeight(payload []byte) (float64, bool) {
	match := numberPattern.Find(payload)
	if match == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(match), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Simulator returns uniformly distributed weights rounded to two decimals.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	min float64
	max float64
}

// NewSimulator builds a seeded simulator over [minKg, maxKg]. Swapped bounds
// are reordered.
func NewSimulator(minKg, maxKg float64, seed uint64) *Simulator {
	if minKg > maxKg {
		minKg, maxKg = maxKg, minKg
	}
	return &Simulator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		min: minKg,
		max: maxKg,
	}
}

func (s *Simulator) ReadWeight(context.Context) float64 {
	s.mu.Lock()
	v := s.min + s.rng.Float64()*(s.max-s.min)
	s.mu.Unlock()

	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return rounded
}

// DeviceReader decodes the most recent notification payload of a connected
// scale and hands over to an explicit fallback reader until one arrives.
type DeviceReader struct {
	mu       sync.Mutex
	last     []byte
	fallback Reader
	logger   *zap.Logger
}

// NewDeviceReader returns a reader with no payload yet.
func NewDeviceReader(fallback Reader, logger *zap.Logger) *DeviceReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceReader{fallback: fallback, logger: logger}
}

// Observe records a notification payload from the scale characteristic.
func (r *DeviceReader) Observe(payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = append(make([]byte, 0, len(payload)), payload...)
}

// Attach subscribes the reader to a scale characteristic. The returned
// cancel function unsubscribes and disconnects the reader.
func (r *DeviceReader) Attach(n device.Notifier) (func(), error) {
	if n == nil {
		return nil, device.ErrUnavailable
	}
	unsubscribe, err := n.Subscribe(r.Observe)
	if err != nil {
		return nil, fmt.Errorf("subscribe to scale: %w", err)
	}
	return func() {
		unsubscribe()
		r.Disconnect()
	}, nil
}

// Disconnect forgets the last payload, returning the reader to fallback mode.
func (r *DeviceReader) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = nil
}

// Connected reports whether a payload has been received.
func (r *DeviceReader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last != nil
}

// ReadWeight returns the number in the last payload. A payload without a
// number reads as 0, which the ledger guard rejects as invalid input.
func (r *DeviceReader) ReadWeight(ctx context.Context) float64 {
	r.mu.Lock()
	payload := append([]byte(nil), r.last...)
	connected := r.last != nil
	r.mu.Unlock()

	if !connected {
		if r.fallback == nil {
			return 0
		}
		r.logger.Debug("no scale payload, using fallback reading")
		return r.fallback.ReadWeight(ctx)
	}

	v, ok := ParseWeight(payload)
	if !ok {
		r.logger.Warn("scale payload holds no number", zap.ByteString("payload", payload))
		return 0
	}
	return v
}

// New selects the reader for mode. Unknown modes use simulation.
func New(mode string, sim *Simulator, logger *zap.Logger) Reader {
	if mode == ModeDevice {
		return NewDeviceReader(sim, logger)
	}
	return sim
}
