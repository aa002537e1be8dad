// Package device defines the characteristic contracts the ledger consumes
// from connected peripherals and a raw-socket transport for network printers.
package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrUnavailable reports that no device is connected on the requested path.
var ErrUnavailable = errors.New("device: unavailable")

// Writer is a connected characteristic accepting a full payload in one
// logical write.
type Writer interface {
	Write(ctx context.Context, payload []byte) error
}

// Notifier is a connected characteristic delivering value-change payloads.
// The returned function cancels the subscription.
type Notifier interface {
	Subscribe(handler func(payload []byte)) (cancel func(), err error)
}

// TCPPrinter writes to a printer listening on a raw socket (usually port
// 9100). Each write dials, sends the whole stream and closes.
type TCPPrinter struct {
	Addr    string
	Timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTCPPrinter returns a printer transport for addr. An empty addr yields a
// transport that always reports ErrUnavailable.
func NewTCPPrinter(addr string, timeout time.Duration) *TCPPrinter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &net.Dialer{}
	return &TCPPrinter{Addr: addr, Timeout: timeout, dial: d.DialContext}
}

func (p *TCPPrinter) Write(ctx context.Context, payload []byte) error {
	if p == nil || p.Addr == "" {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrUnavailable, p.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write to printer %s: %w", p.Addr, err)
	}
	return nil
}
