// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package actuator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_pilot/internal/flight"
)

const (
	// DefaultDroneAddr is the drone's command endpoint on its own access point.
	DefaultDroneAddr = "192.168.10.1:8889"

	// DefaultLocalAddr is where acknowledgments come back to.
	DefaultLocalAddr = ":8889"

	maxAckSize = 1024

	// drainWait bounds each read while discarding queued datagrams. A read
	// deadline already in the past fails before the socket is consulted.
	drainWait = time.Millisecond
)

var (
	// ErrTransportFault means a command could not be sent. The loop must stop.
	ErrTransportFault = errors.New("transport fault")

	// ErrAckTimeout means no acknowledgment arrived within the bound.
	ErrAckTimeout = errors.New("acknowledgment timeout")
)

// Transport sends command tokens and receives best-effort acknowledgments.
type Transport interface {
	Send(c flight.Command) error
	ReceiveAck(timeout time.Duration) ([]byte, error)
	Close() error
}

// UDPTransport sends one command per datagram to the drone.
type UDPTransport struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	buf    []byte

	closeOnce sync.Once
	closeErr  error
}

// DialUDP binds localAddr (empty for an ephemeral port) and targets remoteAddr.
func DialUDP(remoteAddr, localAddr string) (*UDPTransport, error) {
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving drone address %q: %w", remoteAddr, err)
	}

	var local *net.UDPAddr
	if localAddr != "" {
		if local, err = net.ResolveUDPAddr("udp", localAddr); err != nil {
			return nil, fmt.Errorf("resolving local address %q: %w", localAddr, err)
		}
	}

	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("binding UDP socket %q: %w", localAddr, err)
	}

	return &UDPTransport{conn: conn, remote: remote, buf: make([]byte, maxAckSize)}, nil
}

// Send writes the command token as a single datagram.
func (t *UDPTransport) Send(c flight.Command) error {
	if _, err := t.conn.WriteToUDP([]byte(c.String()), t.remote); err != nil {
		return fmt.Errorf("%w: sending %q to %s: %w", ErrTransportFault, c, t.remote, err)
	}
	return nil
}

// ReceiveAck waits up to timeout for a datagram from the drone. Datagrams from
// other peers are ignored.
func (t *UDPTransport) ReceiveAck(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	for {
		n, from, err := t.conn.ReadFromUDP(t.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrAckTimeout, timeout)
			}
			return nil, fmt.Errorf("reading acknowledgment: %w", err)
		}
		if !from.IP.Equal(t.remote.IP) {
			continue
		}
		return append([]byte(nil), t.buf[:n]...), nil
	}
}

// Drain discards datagrams already queued on the socket, such as
// acknowledgments that arrived after their wait expired, and returns those
// that came from the drone.
func (t *UDPTransport) Drain() [][]byte {
	var late [][]byte
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(drainWait)); err != nil {
			return late
		}
		n, from, err := t.conn.ReadFromUDP(t.buf)
		if err != nil {
			return late
		}
		if from.IP.Equal(t.remote.IP) {
			late = append(late, append([]byte(nil), t.buf[:n]...))
		}
	}
}

// LocalAddr returns the bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (t *UDPTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// DryRunTransport logs commands instead of sending them and acknowledges each
// with "ok".
type DryRunTransport struct {
	mu      sync.Mutex
	sent    []flight.Command
	pending int
	logger  *slog.Logger
}

// NewDryRunTransport creates a transport that never touches the network.
func NewDryRunTransport(logger *slog.Logger) *DryRunTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DryRunTransport{logger: logger.With(slog.String("transport", "dry-run"))}
}

func (t *DryRunTransport) Send(c flight.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, c)
	t.pending++
	t.logger.Info("would send command", slog.String("command", c.String()))
	return nil
}

func (t *DryRunTransport) ReceiveAck(timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == 0 {
		return nil, fmt.Errorf("%w after %s", ErrAckTimeout, timeout)
	}
	t.pending--
	return []byte("ok"), nil
}

// Sent returns the commands seen so far.
func (t *DryRunTransport) Sent() []flight.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]flight.Command(nil), t.sent...)
}

func (t *DryRunTransport) Close() error {
	return nil
}
